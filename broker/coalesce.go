package broker

import (
	"golang.org/x/sync/singleflight"
)

// Coalescer runs at most one computation per key at a time. Callers that
// arrive while a computation for their key is pending wait for it and share
// its result. The key is forgotten as soon as the computation settles,
// whether it succeeded or failed.
type Coalescer struct {
	g singleflight.Group
}

// Do runs fn for key unless an identical call is already pending. leader
// reports whether this caller's fn ran.
func (c *Coalescer) Do(key string, fn func() (Result, error)) (res Result, err error, leader bool) {
	v, err, _ := c.g.Do(key, func() (any, error) {
		leader = true
		return fn()
	})
	res, _ = v.(Result)
	return res, err, leader
}
