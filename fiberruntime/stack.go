package fiberruntime

// Stack allocation, §4.3: a region of size+page_size bytes mapped
// read-write with its lowest page then remapped inaccessible, so a stack
// overflow traps against the guard page instead of corrupting whatever
// memory happens to sit below it.
//
// This runtime does not hand-map that region itself. internal/coro's
// linkname build rides the Go runtime's own goroutine stacks, which already
// grow from a small initial allocation and are bounds-checked on every call
// via the compiler-inserted stack-split check -- overflow past the
// runtime's max stack size panics ("stack overflow") rather than
// corrupting memory, the same failure mode the guard page exists to
// produce. Its portable (nolinkname) build is a real goroutine for the
// same reason. Config.StackSize is therefore advisory bookkeeping only
// (surfaced for API parity; nothing reads it) rather than an mmap size; see
// DESIGN.md for the reasoning this substitution is grounded in.
const defaultStackSize = 256 * 1024
