package fiber

import (
	"time"

	"github.com/inory/fiber/fiberruntime"
)

// Config enumerates the tunables from spec §6: worker count, default stack
// size, timer tick/slot sizing, and the epoll batch size.
type Config = fiberruntime.Config

// DefaultConfig returns fiber.num_consumer=4, fiber.stack_size=256KiB,
// fiber.timer_tick_ms=100, fiber.timer_slots=256, fiber.epoll_batch=1024.
func DefaultConfig() Config { return fiberruntime.DefaultConfig() }

// ConfigOption mutates a Config under construction.
type ConfigOption func(*Config)

// WithWorkers sets fiber.num_consumer.
func WithWorkers(n int) ConfigOption { return func(c *Config) { c.NumConsumers = n } }

// WithStackSize sets fiber.stack_size.
func WithStackSize(bytes int) ConfigOption { return func(c *Config) { c.StackSize = bytes } }

// WithTimerTick sets fiber.timer_tick_ms.
func WithTimerTick(d time.Duration) ConfigOption { return func(c *Config) { c.TimerTick = d } }

// WithTimerSlots sets fiber.timer_slots.
func WithTimerSlots(n int) ConfigOption { return func(c *Config) { c.TimerSlots = n } }

// WithEpollBatch sets fiber.epoll_batch.
func WithEpollBatch(n int) ConfigOption { return func(c *Config) { c.EpollBatch = n } }

// NewConfig builds a Config from DefaultConfig with opts applied in order.
func NewConfig(opts ...ConfigOption) Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
