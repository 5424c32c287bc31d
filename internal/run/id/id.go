// Package id provides unique identifier generation for runs.
package id

import "github.com/google/uuid"

// Generate creates a new run ID (a random UUID).
func Generate() string {
	return uuid.NewString()
}

// Valid reports whether s is a well-formed run ID. Run IDs name directories
// on disk, so anything else is rejected before touching the filesystem.
func Valid(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
