package cache

// ScopedKeyer wraps a Keyer with a prefix so separate deployments or
// tenants sharing one backend get isolated namespaces.
//
// Example usage:
//
//	// Per-project keys on a shared Redis
//	projKeyer := cache.NewScopedKeyer(nil, "proj:ml-infra:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. The prefix is prepended to
// every generated key. A nil inner keyer defaults to [NewDefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// GraphKey generates a prefixed key for graph document caching.
func (k *ScopedKeyer) GraphKey(graphHash string) string {
	return k.prefix + k.inner.GraphKey(graphHash)
}

// OrderKey generates a prefixed key for execution order caching.
func (k *ScopedKeyer) OrderKey(graphHash string, opts OrderKeyOpts) string {
	return k.prefix + k.inner.OrderKey(graphHash, opts)
}

// RenderKey generates a prefixed key for rendered artifact caching.
func (k *ScopedKeyer) RenderKey(orderHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(orderHash, opts)
}
