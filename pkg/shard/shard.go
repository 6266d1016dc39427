// Package shard maps SKU identifiers to deterministic directory paths.
//
// A SKU is split into consecutive 2-character chunks; an odd trailing
// character is right-padded with '0', and the chunk list is left-padded
// with "00" until three prefix segments exist. The full SKU is always the
// final segment, which makes the mapping injective: two distinct SKUs can
// never resolve to the same directory.
package shard

import (
	"errors"
	"path/filepath"
)

// prefixDepth is the number of 2-character prefix segments before the SKU.
const prefixDepth = 3

// ErrEmptySKU reports a missing or empty SKU identifier.
var ErrEmptySKU = errors.New("sku must not be empty")

// Path returns the directory path for a SKU, relative to the asset root.
func Path(sku string) (string, error) {
	if sku == "" {
		return "", ErrEmptySKU
	}

	chunks := make([]string, 0, prefixDepth+1)
	for i := 0; i < len(sku); i += 2 {
		if i+2 <= len(sku) {
			chunks = append(chunks, sku[i:i+2])
		} else {
			chunks = append(chunks, sku[i:]+"0")
		}
	}
	for len(chunks) < prefixDepth {
		chunks = append([]string{"00"}, chunks...)
	}

	chunks = append(chunks, sku)
	return filepath.Join(chunks...), nil
}

// Dir resolves the absolute asset directory for a SKU under the given root.
func Dir(root, sku string) (string, error) {
	rel, err := Path(sku)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, rel), nil
}
