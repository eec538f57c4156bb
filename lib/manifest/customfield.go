// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"

	"github.com/bureau-foundation/buildpatch/lib/binreader"
)

// CustomField is a free-form name/value pair attached to a build.
type CustomField struct {
	Name  string
	Value string
}

func readCustomFields(r *binreader.Reader) ([]CustomField, error) {
	start := r.Position()
	size, err := r.Int32()
	if err != nil {
		return nil, malformed("custom fields size", err)
	}
	if _, err := r.Uint8(); err != nil {
		return nil, malformed("custom fields version", err)
	}
	count, err := r.Count(8)
	if err != nil {
		return nil, malformed("custom fields count", err)
	}

	fields := make([]CustomField, count)
	for i := range fields {
		if fields[i].Name, err = r.FString(); err != nil {
			return nil, malformed(fmt.Sprintf("custom field name %d", i), err)
		}
	}
	for i := range fields {
		if fields[i].Value, err = r.FString(); err != nil {
			return nil, malformed(fmt.Sprintf("custom field value %q", fields[i].Name), err)
		}
	}

	if err := r.SetPosition(start + int64(size)); err != nil {
		return nil, malformed("custom fields size", err)
	}
	return fields, nil
}
