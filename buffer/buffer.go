package buffer

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Buffer is a single mmap'd anonymous region the lowerer writes generated
// code into. It starts out RW; Execute flips it RX for the duration of one
// call into the code, then flips it back to RW so the next compilation
// pass can patch more in.
type Buffer struct {
	mu      sync.Mutex
	mem     []byte
	written int
	closed  bool
}

// New maps an anonymous RW region of the given capacity.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	mem, err := unix.Mmap(-1, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("buffer: mmap: %w", err)
	}
	return &Buffer{mem: mem}, nil
}

// Close unmaps the region. Any further operation returns ErrClosed.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return unix.Munmap(b.mem)
}

// Len returns the mapping's total capacity in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.mem)
}

// Written returns the high-water mark the last Write reached.
func (b *Buffer) Written() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written
}

// Write copies code into the mapping at offset, extending Written() if
// code reaches past the current high-water mark. Returns ErrOverflow if
// code would not fit within capacity — capacity must be sized up-front,
// so this is always fatal to the caller, never retried.
func (b *Buffer) Write(offset int, code []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if offset < 0 || offset+len(code) > len(b.mem) {
		return ErrOverflow
	}
	copy(b.mem[offset:], code)
	if end := offset + len(code); end > b.written {
		b.written = end
	}
	return nil
}

// Execute flips the mapping RX, invokes the generated entry point at
// offset with (pool, state) per the System V amd64 runtime ABI,
// flips the mapping back to RW, and returns the callee's result. Held
// exclusively for the duration of the call: the engine must not attempt to
// patch the buffer (via Write) concurrently with a running Execute, and
// Execute itself serializes against any concurrent Execute via mu: the
// buffer is owned exclusively by whichever side currently holds it.
func (b *Buffer) Execute(offset int, pool, state uint64) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	if offset < 0 || offset >= len(b.mem) {
		return 0, ErrOverflow
	}
	if err := unix.Mprotect(b.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return 0, fmt.Errorf("buffer: mprotect rx: %w", err)
	}
	fn := uintptr(unsafe.Pointer(&b.mem[offset]))
	result := callEntry(fn, uintptr(pool), uintptr(state))
	if err := unix.Mprotect(b.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return 0, fmt.Errorf("buffer: mprotect rw: %w", err)
	}
	return uint64(result), nil
}
