// Package id generates identifiers for discovery runs.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// runIDLength is shorter than the NanoID default; run IDs only need to be
// unique among the runs a single peer keeps in its logs.
const runIDLength = 12

// Generate creates a prefixed NanoID, e.g. "scan-V1StGXR8_Z5j".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New(runIDLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
