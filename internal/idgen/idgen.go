// Package idgen provides short, URL-safe run ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefix marks every generated ID as a run identifier.
const Prefix = "run-"

// Length is the number of random characters after the prefix. Lowercase
// alphanumerics keep the IDs filesystem- and subject-safe.
const Length = 10

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a new unique run ID.
func Generate() (string, error) {
	id, err := nanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return Prefix + id, nil
}
