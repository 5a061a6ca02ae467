// Package cache stores rendered artifacts and one-shot diagrams.
//
// Every backend implements [Cache]. [FileCache] backs the CLI, [MemoryCache]
// a single server process, and [RedisCache] a set of servers rendering the
// same repository. [NullCache] disables caching.
//
// Keys come from a [Keyer] so that the key layout is defined in one place:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.ArtifactKey(diagramHash, cache.ArtifactKeyOpts{Format: "svg"})
package cache

import (
	"context"
	"fmt"
	"time"
)

// TTLs per entry kind.
const (
	// TTLDiagram applies to diagrams computed from a standalone snapshot.
	TTLDiagram = time.Hour

	// TTLArtifact applies to rendered outputs. They are keyed by the content
	// hash of the diagram, so they never go stale, only unused.
	TTLArtifact = 24 * time.Hour
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// =============================================================================
// Keyer
// =============================================================================

// DiagramKeyOpts are the layout inputs besides the snapshot itself.
type DiagramKeyOpts struct {
	Width      float64 `json:"width"`
	LaneHeight float64 `json:"lane_height"`
}

// ArtifactKeyOpts are the render inputs besides the diagram itself.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Now    int64  `json:"now,omitempty"` // reference time for relative labels, truncated by caller
}

// Keyer builds cache keys.
type Keyer interface {
	// DiagramKey keys a diagram computed from a snapshot with fresh lanes.
	DiagramKey(snapshotHash string, opts DiagramKeyOpts) string

	// ArtifactKey keys one rendered output of a diagram.
	ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// DiagramKey returns "diagram:<hash of inputs>".
func (DefaultKeyer) DiagramKey(snapshotHash string, opts DiagramKeyOpts) string {
	return hashKey("diagram", snapshotHash, opts)
}

// ArtifactKey returns "artifact:<format>:<hash of inputs>".
func (DefaultKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return hashKey(fmt.Sprintf("artifact:%s", opts.Format), diagramHash, opts)
}
