package buffer

// callEntry invokes the generated function at fn per the System V amd64
// calling convention: two integer arguments (pool base, state index) and
// one integer result. Implemented in call_amd64.s since Go has no portable
// way to call through an arbitrary code pointer; the generated code
// expects exactly this argument placement (x64.Arg0/Arg1/Result).
//
//go:noescape
func callEntry(fn, pool, state uintptr) uintptr
