package cache

// ScopedKeyer wraps a Keyer with a prefix, e.g. to keep server and CLI
// entries apart in a shared redis.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

func (k *ScopedKeyer) GeocodeKey(city, country string) string {
	return k.prefix + k.inner.GeocodeKey(city, country)
}

func (k *ScopedKeyer) FeatureKey(layer string, opts FeatureKeyOpts) string {
	return k.prefix + k.inner.FeatureKey(layer, opts)
}
