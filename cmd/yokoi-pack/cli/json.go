// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"os"
)

// JSONOutput is an embeddable struct that adds --json output support to
// a command's parameter struct.
//
//	type inspectParams struct {
//	    cli.JSONOutput
//	}
//
//	// In Run:
//	if done, err := params.EmitJSON(summary); done {
//	    return err
//	}
//	// ... text formatting ...
type JSONOutput struct {
	OutputJSON bool `flag:"json" desc:"output as JSON"`
}

// EmitJSON writes result as indented JSON to stdout if --json is set.
// Returns (true, nil) on success, (true, err) on write failure, or
// (false, nil) when --json is not set and the caller should proceed
// with text formatting.
func (j *JSONOutput) EmitJSON(result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	return true, WriteJSON(os.Stdout, result)
}

// WriteJSON marshals value as indented JSON to w.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
