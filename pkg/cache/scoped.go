package cache

// ScopedKeyer prefixes every key of an inner Keyer.
//
// Servers sharing one Redis instance but watching different repositories
// scope their keys by repository:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "repo:github.com/acme/api:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or a DefaultKeyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DiagramKey returns the inner key with the prefix.
func (k *ScopedKeyer) DiagramKey(snapshotHash string, opts DiagramKeyOpts) string {
	return k.prefix + k.inner.DiagramKey(snapshotHash, opts)
}

// ArtifactKey returns the inner key with the prefix.
func (k *ScopedKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(diagramHash, opts)
}
