// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

//go:embed keymap.jsonc
var keymapSource []byte

// toInternal maps workbench API field names to internal wire names.
// toUpstream is its exact inverse. Both are fixed for the process
// lifetime.
var (
	toInternal map[string]string
	toUpstream map[string]string
)

func init() {
	if err := json.Unmarshal(jsonc.ToJSON(keymapSource), &toInternal); err != nil {
		panic("normalize: parsing keymap.jsonc: " + err.Error())
	}

	toUpstream = make(map[string]string, len(toInternal))
	for upstream, internal := range toInternal {
		if upstream == internal {
			panic("normalize: keymap entry " + upstream + " maps to itself")
		}
		if _, dup := toUpstream[internal]; dup {
			panic("normalize: keymap value " + internal + " appears twice; table is not invertible")
		}
		toUpstream[internal] = upstream
	}
	// An upstream name that is also some entry's internal name would
	// make one round trip rewrite a key the other direction left
	// alone.
	for upstream := range toInternal {
		if _, clash := toUpstream[upstream]; clash {
			panic("normalize: keymap key " + upstream + " collides with an internal name")
		}
	}
}

// Value rewrites every object key found in the keymap from the
// upstream convention to the internal convention, recursively across
// nested objects and arrays. Unmapped keys and non-object values pass
// through unchanged. The input is not mutated.
func Value(v any) any {
	return rewrite(v, toInternal)
}

// Reverse is the exact inverse of Value: internal convention back to
// upstream convention.
func Reverse(v any) any {
	return rewrite(v, toUpstream)
}

// JSON decodes data, applies Value, and re-encodes. Fails only on
// malformed JSON — the transform itself is total.
func JSON(data []byte) ([]byte, error) {
	return rewriteJSON(data, toInternal)
}

// ReverseJSON decodes data, applies Reverse, and re-encodes.
func ReverseJSON(data []byte) ([]byte, error) {
	return rewriteJSON(data, toUpstream)
}

func rewriteJSON(data []byte, keymap map[string]string) ([]byte, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("normalize: decoding JSON: %w", err)
	}
	out, err := json.Marshal(rewrite(v, keymap))
	if err != nil {
		return nil, fmt.Errorf("normalize: re-encoding JSON: %w", err)
	}
	return out, nil
}

func rewrite(v any, keymap map[string]string) any {
	switch value := v.(type) {
	case map[string]any:
		rewritten := make(map[string]any, len(value))
		for key, element := range value {
			if mapped, ok := keymap[key]; ok {
				key = mapped
			}
			rewritten[key] = rewrite(element, keymap)
		}
		return rewritten
	case []any:
		rewritten := make([]any, len(value))
		for i, element := range value {
			rewritten[i] = rewrite(element, keymap)
		}
		return rewritten
	default:
		return v
	}
}
