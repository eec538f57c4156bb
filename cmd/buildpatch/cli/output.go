// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"

	"github.com/bureau-foundation/buildpatch/lib/codec"
)

// StructuredOutput is an embeddable struct that adds --json and
// --cbor output to a command's parameter struct.
//
//	type lsParams struct {
//	    cli.StructuredOutput
//	    Tag string `flag:"tag" desc:"only files with this install tag"`
//	}
//
//	// In Run:
//	if done, err := params.Emit(stdout, entries); done {
//	    return err
//	}
//	// ... text formatting ...
type StructuredOutput struct {
	OutputJSON bool `flag:"json" desc:"output as JSON"`
	OutputCBOR bool `flag:"cbor" desc:"output as deterministic CBOR"`
}

// Emit writes result to w in the selected structured format. It
// returns (false, nil) when neither flag is set and the caller should
// print text. Nil slices are emitted as empty arrays.
func (o *StructuredOutput) Emit(w io.Writer, result any) (bool, error) {
	switch {
	case o.OutputJSON && o.OutputCBOR:
		return true, errors.New("--json and --cbor are mutually exclusive")
	case o.OutputJSON:
		return true, WriteJSON(w, normalizeNilSlice(result))
	case o.OutputCBOR:
		data, err := codec.Marshal(normalizeNilSlice(result))
		if err != nil {
			return true, err
		}
		_, err = w.Write(data)
		return true, err
	}
	return false, nil
}

// WriteJSON writes value to w as indented JSON.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
