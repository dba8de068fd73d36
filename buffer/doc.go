// Package buffer owns the executable memory region the x64 lowerer writes
// machine code into and the engine later executes.
//
// A Buffer is opened RW, written to freely (Write copies code into the
// mapping at an offset), and flipped RX only for the duration of Execute.
// Execute flips back to RW before returning so a subsequent compilation
// pass can patch more code in; the mapping is never writable while
// generated code runs.
//
// Built on golang.org/x/sys/unix's Mmap/Mprotect rather than
// github.com/edsrzf/mmap-go, which bundles protection into the initial map
// call and has no standalone Mprotect for the RW<->RX flip this package
// needs.
package buffer
