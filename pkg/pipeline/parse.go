package pipeline

import (
	"github.com/matzehuels/gitway/pkg/snapshot"
)

// Parse decodes and validates a snapshot document. Every failure carries
// MALFORMED_SNAPSHOT.
func Parse(data []byte) (*snapshot.Snapshot, error) {
	return snapshot.Unmarshal(data)
}
