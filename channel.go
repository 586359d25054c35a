package fiber

import "github.com/inory/fiber/fiberruntime"

// NewChannel returns a fiber-aware bounded channel of the given capacity.
// See spec §4.8/§6. The returned type is fiberruntime.Channel[T]; most
// callers only ever need the constructor from this package.
func NewChannel[T any](capacity int) *fiberruntime.Channel[T] {
	return fiberruntime.NewChannel[T](capacity)
}
