// Package idgen produces identifiers for conversations and messages.
package idgen

import "github.com/google/uuid"

// Generate returns a new identifier. UUIDv7 combines a millisecond timestamp
// with random bits, so ids are unique without a registry and sort by creation.
func Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Only fails when the entropy source does
		return uuid.NewString()
	}
	return id.String()
}
