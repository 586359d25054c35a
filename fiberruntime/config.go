package fiberruntime

import "time"

// Config enumerates every tunable the spec names in §6.
type Config struct {
	// NumConsumers is the worker count (fiber.num_consumer). Default 4.
	NumConsumers int
	// StackSize is the default fiber stack size (fiber.stack_size).
	// Recorded for documentation purposes: internal/coro delegates real
	// stack allocation to the Go runtime, see DESIGN.md.
	StackSize int
	// TimerTick is the timer wheel's tick length (fiber.timer_tick_ms).
	TimerTick time.Duration
	// TimerSlots is the timer wheel's slot count (fiber.timer_slots).
	TimerSlots int
	// EpollBatch bounds events returned per poll (fiber.epoll_batch).
	EpollBatch int
}

// DefaultConfig returns the spec's §6 defaults.
func DefaultConfig() Config {
	return Config{
		NumConsumers: 4,
		StackSize:    256 * 1024,
		TimerTick:    100 * time.Millisecond,
		TimerSlots:   256,
		EpollBatch:   1024,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.NumConsumers <= 0 {
		c.NumConsumers = d.NumConsumers
	}
	if c.StackSize <= 0 {
		c.StackSize = d.StackSize
	}
	if c.TimerTick <= 0 {
		c.TimerTick = d.TimerTick
	}
	if c.TimerSlots <= 0 {
		c.TimerSlots = d.TimerSlots
	}
	if c.EpollBatch <= 0 {
		c.EpollBatch = d.EpollBatch
	}
	return c
}
