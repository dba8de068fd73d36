package x64_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fsmjit/fsmjit/x64"
)

func TestPrologueEpilogueEmitBytes(t *testing.T) {
	asm := x64.NewAssembler()
	asm.Prologue()
	before := asm.Len()
	require.NotZero(t, before)

	asm.Epilogue()
	require.Greater(t, asm.Len(), before)

	code := asm.Bytes()
	require.Equal(t, byte(0xc3), code[len(code)-1], "epilogue must end in a ret")
}

func TestProloguePushesCalleeSavedRegisters(t *testing.T) {
	asm := x64.NewAssembler()
	asm.Prologue()
	// Each CalleeSaved push is at least 1 byte (2 for the REX.B-extended
	// registers R12-R15); six pushes plus the sub-rsp realignment (7
	// bytes: REX.W + 0x81 + modrm + imm32) must appear before Pool/
	// StateIndex are loaded.
	require.GreaterOrEqual(t, asm.Len(), len(x64.CalleeSaved)+7)
}
