package fiber

import "github.com/inory/fiber/fiberruntime"

// Mutex is a fiber-aware mutual exclusion lock: Lock blocks the calling
// fiber, never the underlying OS thread. See spec §4.8.
type Mutex = fiberruntime.Mutex

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex { return fiberruntime.NewMutex() }

// Condition is a fiber-aware condition variable, used with a Mutex.
type Condition = fiberruntime.Condition

// NewCondition returns a new Condition.
func NewCondition() *Condition { return fiberruntime.NewCondition() }

// WaitGroup is a fiber-aware wait group.
type WaitGroup = fiberruntime.WaitGroup

// NewWaitGroup returns a WaitGroup with counter 0.
func NewWaitGroup() *WaitGroup { return fiberruntime.NewWaitGroup() }
