package fiberruntime

import (
	"crypto/rand"
	"encoding/binary"
)

// NewTraceID returns a fresh opaque trace id for a fiber that has no
// natural correlation id of its own (e.g. a request id from an upstream
// caller). Per the glossary, trace ids exist solely to drive §4.5's
// deterministic hash routing -- they carry no other semantics.
func NewTraceID() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// TraceID returns the trace id the fiber was spawned with.
func (f *Fiber) TraceID() uint64 { return f.traceID }
