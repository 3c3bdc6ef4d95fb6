package policy

import (
	_ "embed"
	"fmt"
)

//go:embed default.yaml
var defaultDocument []byte

// DefaultDocument returns the raw built-in policy document
func DefaultDocument() []byte {
	return append([]byte(nil), defaultDocument...)
}

// Default parses the built-in policy table
func Default() (*Snapshot, error) {
	snap, err := Parse(defaultDocument)
	if err != nil {
		return nil, fmt.Errorf("built-in policy: %w", err)
	}
	return snap, nil
}
