// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package buildcache

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/retrovalou/yokoi/lib/codec"
)

// maxChanges bounds the change list reported for a signature mismatch.
const maxChanges = 25

// describeChanges lists the differences between a stored and a current
// signature, one line per differing field.
func describeChanges(stored, current Signature) []string {
	var changes []string
	add := func(label string, before, after any) {
		if before != after {
			changes = append(changes, fmt.Sprintf("%s: %v -> %v", label, before, after))
		}
	}

	add("schema_version", stored.SchemaVersion, current.SchemaVersion)
	add("key", stored.Key, current.Key)
	add("target", stored.Target, current.Target)
	changes = append(changes, fieldChanges("knobs", stored.Knobs, current.Knobs)...)
	changes = append(changes, fieldChanges("title", stored.Title, current.Title)...)

	if len(stored.Inputs) != len(current.Inputs) {
		changes = append(changes, fmt.Sprintf("inputs.count: %d -> %d", len(stored.Inputs), len(current.Inputs)))
	}
	for index := range min(len(stored.Inputs), len(current.Inputs)) {
		before, after := stored.Inputs[index], current.Inputs[index]
		if before.Path != after.Path {
			changes = append(changes, fmt.Sprintf("inputs[%d].path: %q -> %q", index, before.Path, after.Path))
			continue
		}
		if before != after {
			changes = append(changes, fmt.Sprintf("inputs[%d] changed: %s (%s -> %s)",
				index, after.Path, describeInput(before), describeInput(after)))
		}
	}

	if len(changes) > maxChanges {
		changes = changes[:maxChanges]
	}
	return changes
}

func describeInput(input InputSignature) string {
	if !input.Exists {
		return "absent"
	}
	return fmt.Sprintf("%d bytes, %s", input.Size, input.Digest.String()[:12])
}

// fieldChanges compares two structs field by field through their CBOR
// encoding, so the labels are the persisted field names.
func fieldChanges(prefix string, before, after any) []string {
	beforeFields, beforeErr := encodedFields(before)
	afterFields, afterErr := encodedFields(after)
	if beforeErr != nil || afterErr != nil {
		return []string{prefix + ": differs"}
	}

	names := make([]string, 0, len(beforeFields)+len(afterFields))
	for name := range beforeFields {
		names = append(names, name)
	}
	for name := range afterFields {
		if _, ok := beforeFields[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var changes []string
	for _, name := range names {
		beforeValue, afterValue := beforeFields[name], afterFields[name]
		if bytes.Equal(beforeValue, afterValue) {
			continue
		}
		changes = append(changes, fmt.Sprintf("%s.%s: %s -> %s",
			prefix, name, diagnose(beforeValue), diagnose(afterValue)))
	}
	return changes
}

func encodedFields(value any) (map[string]codec.RawMessage, error) {
	data, err := codec.Marshal(value)
	if err != nil {
		return nil, err
	}
	var fields map[string]codec.RawMessage
	if err := codec.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func diagnose(raw codec.RawMessage) string {
	if raw == nil {
		return "absent"
	}
	text, err := codec.Diagnose(raw)
	if err != nil {
		return fmt.Sprintf("%x", []byte(raw))
	}
	return text
}
