// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagBinder is implemented by parameter types that register their
// own flags instead of using struct tags, for example when several
// commands share a group of flags with computed help text.
type FlagBinder interface {
	AddFlags(flagSet *pflag.FlagSet)
}

// FlagsFromParams returns a flag set named name bound to params, a
// pointer to a tagged struct. Invalid params are a programming error
// and panic.
//
//	var params catParams
//	command := &cli.Command{
//	    Params: func() any { return &params },
//	    Run: func(ctx context.Context, args []string) error {
//	        // params fields hold the parsed flag values here
//	    },
//	}
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers a flag on flagSet for every tagged field of
// params:
//
//	Length int64    `flag:"length"   desc:"bytes to write" default:"0"`
//	Tags   []string `flag:"tag,t"    desc:"install tag (repeatable)"`
//
// The flag tag holds the long name and an optional shorthand. Fields
// of type string, bool, int, int64, [time.Duration] and []string are
// supported. Embedded structs contribute their own fields, or call
// AddFlags when they implement [FlagBinder].
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	pointer := reflect.ValueOf(params)
	if pointer.Kind() != reflect.Pointer || pointer.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStruct(pointer.Elem(), flagSet)
}

// flagSpec is the parsed form of one field's tags.
type flagSpec struct {
	name      string
	shorthand string
	usage     string
	fallback  string
}

func bindStruct(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	for _, field := range reflect.VisibleFields(structValue.Type()) {
		if len(field.Index) > 1 || !field.IsExported() {
			// Promoted fields are bound through their embedded struct.
			continue
		}
		fieldValue := structValue.FieldByIndex(field.Index)

		if field.Type.Kind() == reflect.Struct {
			if binder, ok := fieldValue.Addr().Interface().(FlagBinder); ok {
				binder.AddFlags(flagSet)
				continue
			}
			if field.Anonymous {
				if err := bindStruct(fieldValue, flagSet); err != nil {
					return fmt.Errorf("embedded %s: %w", field.Name, err)
				}
				continue
			}
		}

		tag, ok := field.Tag.Lookup("flag")
		if !ok || tag == "" {
			continue
		}
		name, shorthand, _ := strings.Cut(tag, ",")
		spec := flagSpec{
			name:      name,
			shorthand: shorthand,
			usage:     field.Tag.Get("desc"),
			fallback:  field.Tag.Get("default"),
		}
		if err := bindField(flagSet, fieldValue.Addr().Interface(), spec); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func bindField(flagSet *pflag.FlagSet, target any, spec flagSpec) error {
	switch target := target.(type) {
	case *string:
		return bindTyped(flagSet.StringVarP, target, spec, func(s string) (string, error) { return s, nil })
	case *bool:
		return bindTyped(flagSet.BoolVarP, target, spec, strconv.ParseBool)
	case *int:
		return bindTyped(flagSet.IntVarP, target, spec, strconv.Atoi)
	case *int64:
		return bindTyped(flagSet.Int64VarP, target, spec, func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		})
	case *time.Duration:
		return bindTyped(flagSet.DurationVarP, target, spec, time.ParseDuration)
	case *[]string:
		return bindTyped(flagSet.StringSliceVarP, target, spec, func(s string) ([]string, error) {
			return strings.Split(s, ","), nil
		})
	}
	return fmt.Errorf("unsupported type %T for flag --%s", target, spec.name)
}

// bindTyped parses the default tag with parse (an empty tag is the
// zero value) and registers the flag through one of the pflag *VarP
// methods.
func bindTyped[T any](register func(*T, string, string, T, string), target *T, spec flagSpec, parse func(string) (T, error)) error {
	var fallback T
	if spec.fallback != "" {
		parsed, err := parse(spec.fallback)
		if err != nil {
			return fmt.Errorf("default for --%s: %w", spec.name, err)
		}
		fallback = parsed
	}
	register(target, spec.name, spec.shorthand, fallback, spec.usage)
	return nil
}
