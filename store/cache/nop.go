package cache

import "time"

// Nop is a Store that never holds anything. It is used when caching is turned off.
type Nop struct{}

// NewNop creates a no-op cache.
func NewNop() *Nop {
	return &Nop{}
}

func (*Nop) Get(string) (any, bool) {
	return nil, false
}

func (*Nop) Set(string, any, time.Duration) {}

func (*Nop) Delete(string) {}

func (*Nop) DeleteByPrefix(string) int {
	return 0
}

func (*Nop) Clear() {}

var _ Store = (*Nop)(nil)
