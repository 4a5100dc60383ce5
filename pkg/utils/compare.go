package utils

import (
	"slices"

	"github.com/nats-io/nats.go"
)

// StreamConfigEqual compares two NATS stream configurations for equality.
// Focuses on the properties the publisher manages.
func StreamConfigEqual(a, b nats.StreamConfig) bool {
	return a.Name == b.Name &&
		a.Retention == b.Retention &&
		a.MaxAge == b.MaxAge &&
		a.Storage == b.Storage &&
		slices.Equal(a.Subjects, b.Subjects)
}
