// Package sf coalesces concurrent calls that share a key: while a call is
// in flight, later callers with the same key wait for it and get its result.
package sf

import (
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Group is a typed singleflight.Group. The zero value is ready to use.
type Group[K comparable, V any] struct {
	group singleflight.Group
}

// Do runs fn for key unless a call for key is already in flight, in which
// case it waits for that call. shared reports whether the result was handed
// to more than one caller.
func (g *Group[K, V]) Do(key K, fn func() (V, error)) (v V, shared bool, err error) {
	res, err, shared := g.group.Do(fmt.Sprint(key), func() (any, error) {
		return fn()
	})
	if res != nil {
		v = res.(V)
	}
	return v, shared, err
}

// Forget makes the next Do for key run fn even if a call is in flight.
func (g *Group[K, V]) Forget(key K) {
	g.group.Forget(fmt.Sprint(key))
}
