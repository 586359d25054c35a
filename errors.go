package fiber

import "github.com/inory/fiber/fiberruntime"

// Kind classifies the errors a caller of the runtime can observe. See
// spec §7.
type Kind = fiberruntime.Kind

const (
	KindIO            = fiberruntime.KindIO
	KindTimeout       = fiberruntime.KindTimeout
	KindClosed        = fiberruntime.KindClosed
	KindInvalidState  = fiberruntime.KindInvalidState
	KindOutOfResource = fiberruntime.KindOutOfResource
)

// Error is the concrete error type returned across the runtime's public
// surface.
type Error = fiberruntime.Error

// BugError marks an internal invariant violation; these are fatal and
// propagate as panics rather than returned errors, per §7.
type BugError = fiberruntime.BugError

// Sentinels usable with errors.Is(err, fiber.ErrTimeout).
var (
	ErrTimeout       = fiberruntime.ErrTimeout
	ErrClosed        = fiberruntime.ErrClosed
	ErrInvalidState  = fiberruntime.ErrInvalidState
	ErrOutOfResource = fiberruntime.ErrOutOfResource
)
