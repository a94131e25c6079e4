// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// FlagsFromParams creates a [pflag.FlagSet] with flags bound to the tagged
// fields of params. params must be a pointer to a struct. Panics on
// invalid input (programming error, not runtime data).
//
//	var params buildParams
//	command := &cli.Command{
//	    Flags: func() *pflag.FlagSet {
//	        return cli.FlagsFromParams("build", &params)
//	    },
//	    Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
//	        // params fields are populated after flag parsing
//	    },
//	}
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers pflag entries for each tagged field in params.
// params must be a pointer to a struct.
//
// Three tags control binding: flag:"name" or flag:"name,n" gives the
// long name and optional shorthand (untagged fields are skipped),
// desc:"help text" the description, and default:"value" the default,
// parsed according to the field's type. Supported field types are
// string, bool, and int. Embedded structs are bound recursively.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStructFields(value.Elem(), flagSet)
}

func bindStructFields(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	structType := structValue.Type()

	for i := range structType.NumField() {
		field := structType.Field(i)
		fieldValue := structValue.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := bindStructFields(fieldValue, flagSet); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}

		flagTag := field.Tag.Get("flag")
		if flagTag == "" {
			continue
		}
		name, shorthand, _ := strings.Cut(flagTag, ",")
		if !fieldValue.CanAddr() {
			return fmt.Errorf("field %s: not addressable", field.Name)
		}
		if err := bindField(fieldValue, flagSet, name, shorthand, field.Tag.Get("desc"), field.Tag.Get("default")); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}

	return nil
}

func bindField(fieldValue reflect.Value, flagSet *pflag.FlagSet, name, shorthand, description, defaultString string) error {
	switch target := fieldValue.Addr().Interface().(type) {
	case *string:
		flagSet.StringVarP(target, name, shorthand, defaultString, description)

	case *bool:
		defaultValue := false
		if defaultString != "" {
			parsed, err := strconv.ParseBool(defaultString)
			if err != nil {
				return fmt.Errorf("default for --%s: %w", name, err)
			}
			defaultValue = parsed
		}
		flagSet.BoolVarP(target, name, shorthand, defaultValue, description)

	case *int:
		defaultValue := 0
		if defaultString != "" {
			parsed, err := strconv.Atoi(defaultString)
			if err != nil {
				return fmt.Errorf("default for --%s: %w", name, err)
			}
			defaultValue = parsed
		}
		flagSet.IntVarP(target, name, shorthand, defaultValue, description)

	default:
		return fmt.Errorf("unsupported type %s for flag --%s", fieldValue.Type(), name)
	}

	return nil
}
