package compiler

import (
	"github.com/flotilla-vm/flotilla/internal/document"
)

// normalizeArguments flattens a sequence of {name?, value?} descriptors
// into a positional argument vector. For each descriptor, in order: the
// name's value is appended if the name key is present, then the value's
// value if present. A descriptor with neither key contributes nothing.
//
// This is positional flattening, not keyword construction: order and
// presence determine the result, the key names never appear in it.
func normalizeArguments(raw any) []any {
	seq, ok := raw.([]any)
	if !ok {
		return nil
	}
	var args []any
	for _, entry := range seq {
		desc, ok := document.AsMapping(entry)
		if !ok {
			continue
		}
		if name, ok := desc.Get("name"); ok {
			args = append(args, name)
		}
		if value, ok := desc.Get("value"); ok {
			args = append(args, value)
		}
	}
	return args
}
