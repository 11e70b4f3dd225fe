package stalier

// Key identifies a cache entry.
// It holds either a literal key or a function returning one.
// The function is called at most once per call, and only if caching is enabled.
type Key struct {
	literal string
	fn      func() string
}

// StaticKey returns a key with a literal value.
func StaticKey(key string) Key {
	return Key{literal: key}
}

// KeyFunc returns a key that is computed lazily.
func KeyFunc(fn func() string) Key {
	return Key{fn: fn}
}

// Resolve returns the string form of the key.
func (k Key) Resolve() string {
	if k.fn != nil {
		return k.fn()
	}
	return k.literal
}
