// Package gls recovers "which logical thread of control is this" without a
// parameter threaded through every call. Go exposes no goroutine-local
// storage API, so the fiber runtime needs a substitute for the per-worker
// "pointer to the currently executing fiber (thread-local)" that the C3/C4
// data model calls for: scrape the running goroutine's id off its own stack
// trace (the standard workaround used across the ecosystem for this) and key
// a map on it.
package gls

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		if id, err := strconv.ParseInt(string(b[:i]), 10, 64); err == nil {
			return id
		}
	}
	return -1
}

var store sync.Map // int64 goroutine id -> any

// Set associates v with the calling goroutine.
func Set(v any) {
	store.Store(goroutineID(), v)
}

// Get returns the value associated with the calling goroutine, if any.
func Get() (any, bool) {
	return store.Load(goroutineID())
}

// Clear removes the calling goroutine's association.
func Clear() {
	store.Delete(goroutineID())
}
