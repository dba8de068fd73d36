package x64

import "github.com/fsmjit/fsmjit/ir"

// Assembler accumulates a linear machine-code byte stream along with a set
// of forward branches awaiting their target address.
type Assembler struct {
	code   []byte
	labels []*Label
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Bytes returns the code emitted so far. The slice aliases the Assembler's
// internal buffer; callers must not retain it across further emission.
func (a *Assembler) Bytes() []byte { return a.code }

// Len returns the number of bytes emitted so far.
func (a *Assembler) Len() int { return len(a.code) }

func (a *Assembler) emit(bs ...byte) {
	a.code = append(a.code, bs...)
}

func (a *Assembler) emitImm32(v int32) {
	a.emit(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (a *Assembler) emitImm64(v int64) {
	for i := 0; i < 8; i++ {
		a.emit(byte(v >> (8 * i)))
	}
}

// rex builds a REX prefix. w selects 64-bit operand size; r/x/b extend the
// ModRM.reg, SIB.index and ModRM.rm/SIB.base fields respectively. It always
// returns a prefix byte: 0x40, a REX with no bits set, when every flag is
// false.
func rex(w, r, x, b bool) byte {
	var v byte = 0x40
	if w {
		v |= 1 << 3
	}
	if r {
		v |= 1 << 2
	}
	if x {
		v |= 1 << 1
	}
	if b {
		v |= 1 << 0
	}
	return v
}

func modrm(mod, reg, rm byte) byte {
	return mod<<6 | (reg&7)<<3 | rm&7
}

// Label is a forward (or backward) branch target within one Assembler's
// code stream.
type Label struct {
	asm     *Assembler
	bound   bool
	target  int
	patches []int // code offsets of pending 4-byte rel32 fields
}

// NewLabel allocates an unbound Label on a.
func (a *Assembler) NewLabel() *Label {
	l := &Label{asm: a}
	a.labels = append(a.labels, l)
	return l
}

// Bind fixes l's target to the current end of the code stream and patches
// every branch that referenced it so far.
func (a *Assembler) Bind(l *Label) error {
	if l.asm != a {
		return ErrUnboundLabel
	}
	l.target = len(a.code)
	l.bound = true
	for _, site := range l.patches {
		disp := int32(l.target - (site + 4))
		a.code[site] = byte(disp)
		a.code[site+1] = byte(disp >> 8)
		a.code[site+2] = byte(disp >> 16)
		a.code[site+3] = byte(disp >> 24)
	}
	l.patches = nil
	return nil
}

// refer emits a rel32 for l: the final displacement if l is already bound
// (backward reference, computed immediately) or a zero placeholder recorded
// for later patching (forward reference).
func (a *Assembler) refer(l *Label) error {
	if l.asm != a {
		return ErrUnboundLabel
	}
	if l.bound {
		disp := int32(l.target - (len(a.code) + 4))
		a.emitImm32(disp)
		return nil
	}
	l.patches = append(l.patches, len(a.code))
	a.emitImm32(0)
	return nil
}

// Condition is a jcc/cmovcc condition code, using the Intel Jcc tttn field.
type Condition byte

const (
	CondO  Condition = 0x0
	CondNO Condition = 0x1
	CondB  Condition = 0x2 // below (unsigned <)
	CondAE Condition = 0x3 // above-or-equal (unsigned >=)
	CondE  Condition = 0x4
	CondNE Condition = 0x5
	CondBE Condition = 0x6 // below-or-equal (unsigned <=)
	CondA  Condition = 0x7 // above (unsigned >)
	CondS  Condition = 0x8
	CondNS Condition = 0x9
	CondL  Condition = 0xc // less (signed <)
	CondGE Condition = 0xd // greater-or-equal (signed >=)
	CondLE Condition = 0xe // less-or-equal (signed <=)
	CondG  Condition = 0xf // greater (signed >)
)

// JumpIf emits a near conditional jump (0F 8x rel32) to l.
func (a *Assembler) JumpIf(cond Condition, l *Label) error {
	a.emit(0x0f, 0x80|byte(cond))
	return a.refer(l)
}

// Jump emits an unconditional near jump (E9 rel32) to l.
func (a *Assembler) Jump(l *Label) error {
	a.emit(0xe9)
	return a.refer(l)
}

// CMovCC emits a conditional move dst <- src (64-bit).
func (a *Assembler) CMovCC(cond Condition, dst, src Phys) {
	a.emit(rex(true, dst.Extended(), false, src.Extended()), 0x0f, 0x40|byte(cond))
	a.emit(modrm(3, dst.Low3(), src.Low3()))
}

// CMovCCMem emits a conditional move dst <- [base+disp] (64-bit).
func (a *Assembler) CMovCCMem(cond Condition, dst, base Phys, disp int32) {
	a.emit(rex(true, dst.Extended(), false, base.Extended()), 0x0f, 0x40|byte(cond))
	a.memTail(dst, base, disp)
}

// Ret emits a near return.
func (a *Assembler) Ret() { a.emit(0xc3) }

// Push emits a push of a 64-bit GPR.
func (a *Assembler) Push(r Phys) {
	if r.Extended() {
		a.emit(0x41)
	}
	a.emit(0x50 | r.Low3())
}

// Pop emits a pop into a 64-bit GPR.
func (a *Assembler) Pop(r Phys) {
	if r.Extended() {
		a.emit(0x41)
	}
	a.emit(0x58 | r.Low3())
}

// MovRegReg emits mov dst, src at the given width (64-bit unless p32 is
// true, in which case the write zero-extends the upper 32 bits per x86-64
// convention).
func (a *Assembler) MovRegReg(dst, src Phys, p32 bool) {
	a.emit(rex(!p32, src.Extended(), false, dst.Extended()), 0x89)
	a.emit(modrm(3, src.Low3(), dst.Low3()))
}

// MovImm64 emits a 64-bit immediate load (REX.W + B8+r imm64).
func (a *Assembler) MovImm64(dst Phys, v int64) {
	a.emit(rex(true, false, false, dst.Extended()), 0xb8|dst.Low3())
	a.emitImm64(v)
}

// MovImm32 emits a 32-bit immediate load that zero-extends into the full
// 64-bit register (B8+r imm32, no REX.W).
func (a *Assembler) MovImm32(dst Phys, v int32) {
	if dst.Extended() {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0xb8 | dst.Low3())
	a.emitImm32(v)
}

// Xor32 zeroes dst via xor dst32, dst32 (the standard idiom: cheaper to
// encode than a 32-bit immediate load of zero and implicitly zero-extends).
func (a *Assembler) Xor32(dst Phys) {
	if dst.Extended() {
		a.emit(rex(false, dst.Extended(), false, dst.Extended()))
	}
	a.emit(0x31)
	a.emit(modrm(3, dst.Low3(), dst.Low3()))
}

// memTail emits the ModRM(+SIB)+disp32 tail addressing [base+disp] with reg
// in the ModRM.reg field (either a real register operand or, for group1/3
// opcode-extension instructions, a literal 3-bit extension passed as a
// Phys). base.Low3()==4 (RSP with REX.B clear, or R12, the TEMP register,
// with REX.B set) always needs a SIB byte, since ModRM.rm=100 means "a SIB
// byte follows".
func (a *Assembler) memTail(reg, base Phys, disp int32) {
	if base.Low3() == 4 {
		a.emit(modrm(2, reg.Low3(), 4))
		a.emit(0x24) // SIB: scale=0, no index, base=base (taken from ModRM.rm=100 + REX.B)
	} else {
		a.emit(modrm(2, reg.Low3(), base.Low3()))
	}
	a.emitImm32(disp)
}

// ALU opcodes in "RM" form: dst(reg) <- op(dst, src(reg or r/m)).
const (
	aluAddRM = 0x03
	aluOrRM  = 0x0b
	aluAndRM = 0x23
	aluSubRM = 0x2b
	aluXorRM = 0x33
	aluCmpRM = 0x3b
)

// AluRR emits a two-register ALU instruction dst <- op(dst, src).
func (a *Assembler) AluRR(op byte, dst, src Phys, w64 bool) {
	a.emit(rex(w64, dst.Extended(), false, src.Extended()), op)
	a.emit(modrm(3, dst.Low3(), src.Low3()))
}

// AluRM emits dst <- op(dst, [base+disp]).
func (a *Assembler) AluRM(op byte, dst, base Phys, disp int32, w64 bool) {
	a.emit(rex(w64, dst.Extended(), false, base.Extended()), op)
	a.memTail(dst, base, disp)
}

// CmpRegImm32 emits cmp dst, imm32 (group1 opcode 0x81 /7).
func (a *Assembler) CmpRegImm32(dst Phys, imm int32, w64 bool) {
	a.emit(rex(w64, false, false, dst.Extended()), 0x81)
	a.emit(modrm(3, 7, dst.Low3()))
	a.emitImm32(imm)
}

// CmpMemImm32 emits cmp [base+disp], imm32.
func (a *Assembler) CmpMemImm32(base Phys, disp int32, imm int32, w64 bool) {
	a.emit(rex(w64, false, false, base.Extended()), 0x81)
	a.memTail(Phys(7), base, disp)
	a.emitImm32(imm)
}

// TestRR emits test dst, dst (used to turn a boolean register's
// all-ones/zero encoding into the zero flag for a conditional jump).
func (a *Assembler) TestRR(r Phys, w64 bool) {
	a.emit(rex(w64, r.Extended(), false, r.Extended()), 0x85)
	a.emit(modrm(3, r.Low3(), r.Low3()))
}

// Imul emits the two-operand imul dst, src (0F AF /r).
func (a *Assembler) Imul(dst, src Phys, w64 bool) {
	a.emit(rex(w64, dst.Extended(), false, src.Extended()), 0x0f, 0xaf)
	a.emit(modrm(3, dst.Low3(), src.Low3()))
}

// ImulMem emits dst <- dst * [base+disp].
func (a *Assembler) ImulMem(dst, base Phys, disp int32, w64 bool) {
	a.emit(rex(w64, dst.Extended(), false, base.Extended()), 0x0f, 0xaf)
	a.memTail(dst, base, disp)
}

// ShiftCL emits a shift-by-CL group2 instruction (0xD3 /ext): ext selects
// shl(4)/shr(5)/sar(7).
func (a *Assembler) ShiftCL(ext byte, dst Phys, w64 bool) {
	a.emit(rex(w64, false, false, dst.Extended()), 0xd3)
	a.emit(modrm(3, ext, dst.Low3()))
}

// NegNot emits a group3 unary instruction (0xF7 /ext): ext selects
// not(2)/neg(3).
func (a *Assembler) NegNot(ext byte, dst Phys, w64 bool) {
	a.emit(rex(w64, false, false, dst.Extended()), 0xf7)
	a.emit(modrm(3, ext, dst.Low3()))
}

// MovFromMem emits dst <- [base+disp] (plain mov; for w64=false this
// zero-extends the upper 32 bits per ordinary x86-64 32-bit write
// semantics).
func (a *Assembler) MovFromMem(dst, base Phys, disp int32, w64 bool) {
	a.emit(rex(w64, dst.Extended(), false, base.Extended()), 0x8b)
	a.memTail(dst, base, disp)
}

// MovToMem emits [base+disp] <- src.
func (a *Assembler) MovToMem(base, src Phys, disp int32, w64 bool) {
	a.emit(rex(w64, src.Extended(), false, base.Extended()), 0x89)
	a.memTail(src, base, disp)
}

// LoadZX emits a zero-extending load of width from [base+disp] into dst,
// always producing a full 64-bit result (movzx for One/Two, a plain
// 32-bit mov for Four since the CPU zero-extends automatically, a 64-bit
// mov for Eight).
func (a *Assembler) LoadZX(dst, base Phys, disp int32, width ir.Width) {
	switch width {
	case ir.Eight:
		a.MovFromMem(dst, base, disp, true)
	case ir.Four:
		a.MovFromMem(dst, base, disp, false)
	case ir.Two:
		a.emit(rex(true, dst.Extended(), false, base.Extended()), 0x0f, 0xb7)
		a.memTail(dst, base, disp)
	case ir.One:
		a.emit(rex(true, dst.Extended(), false, base.Extended()), 0x0f, 0xb6)
		a.memTail(dst, base, disp)
	}
}

// StoreWidth emits a store of src's low `width` bytes to [base+disp].
func (a *Assembler) StoreWidth(base, src Phys, disp int32, width ir.Width) {
	switch width {
	case ir.Eight:
		a.MovToMem(base, src, disp, true)
	case ir.Four:
		a.MovToMem(base, src, disp, false)
	case ir.Two:
		a.emit(0x66)
		a.emit(rex(false, src.Extended(), false, base.Extended()), 0x89)
		a.memTail(src, base, disp)
	case ir.One:
		a.emit(rex(false, src.Extended(), false, base.Extended()), 0x88)
		a.memTail(src, base, disp)
	}
}

// Cdq sign-extends eax into edx:eax (32-bit) or rax into rdx:rax (64-bit),
// ahead of a signed idiv.
func (a *Assembler) Cdq(w64 bool) {
	if w64 {
		a.emit(rex(true, false, false, false))
	}
	a.emit(0x99)
}

// IdivMem/Idiv/DivMem/Div perform 64-or-32-bit signed/unsigned division:
// rdx:rax (or edx:eax) / src, quotient in rax/eax, remainder in rdx/edx.
func (a *Assembler) Idiv(src Phys, w64 bool) {
	a.emit(rex(w64, false, false, src.Extended()), 0xf7)
	a.emit(modrm(3, 7, src.Low3()))
}

func (a *Assembler) IdivMem(base Phys, disp int32, w64 bool) {
	a.emit(rex(w64, false, false, base.Extended()), 0xf7)
	a.memTail(Phys(7), base, disp)
}

func (a *Assembler) Div(src Phys, w64 bool) {
	a.emit(rex(w64, false, false, src.Extended()), 0xf7)
	a.emit(modrm(3, 6, src.Low3()))
}

func (a *Assembler) DivMem(base Phys, disp int32, w64 bool) {
	a.emit(rex(w64, false, false, base.Extended()), 0xf7)
	a.memTail(Phys(6), base, disp)
}

// ShiftImm8 emits a shift-by-immediate group2 instruction (0xC1 /ext ib):
// ext selects shl(4)/shr(5)/sar(7). Used for the compile-time-constant
// shift counts the boolean/abs idioms need, so the count never has to
// round-trip through CL.
func (a *Assembler) ShiftImm8(ext byte, dst Phys, count byte, w64 bool) {
	a.emit(rex(w64, false, false, dst.Extended()), 0xc1)
	a.emit(modrm(3, ext, dst.Low3()))
	a.emit(count)
}

const (
	ShiftLeft   = 4
	ShiftRightU = 5
	ShiftRightS = 7
)

// memTailIndexed emits ModRM+SIB+disp32 addressing [base + index*1 + disp],
// reg in ModRM.reg. Beetle-style VMs address their entire memory as byte
// offsets into the pool, so a Load/Store's address operand is always a
// runtime value rather than a compile-time constant — hence the scaled-index
// form instead of memTail's plain displacement.
func (a *Assembler) memTailIndexed(reg, base, index Phys, disp int32) {
	a.emit(modrm(2, reg.Low3(), 4))
	a.emit(0<<6 | index.Low3()<<3 | base.Low3())
	a.emitImm32(disp)
}

// LoadIndexedZX emits a zero-extending load of width from [base+index] into
// dst, mirroring LoadZX's per-width opcode selection.
func (a *Assembler) LoadIndexedZX(dst, base, index Phys, width ir.Width) {
	switch width {
	case ir.Eight:
		a.emit(rex(true, dst.Extended(), index.Extended(), base.Extended()), 0x8b)
		a.memTailIndexed(dst, base, index, 0)
	case ir.Four:
		a.emit(rex(false, dst.Extended(), index.Extended(), base.Extended()), 0x8b)
		a.memTailIndexed(dst, base, index, 0)
	case ir.Two:
		a.emit(rex(true, dst.Extended(), index.Extended(), base.Extended()), 0x0f, 0xb7)
		a.memTailIndexed(dst, base, index, 0)
	case ir.One:
		a.emit(rex(true, dst.Extended(), index.Extended(), base.Extended()), 0x0f, 0xb6)
		a.memTailIndexed(dst, base, index, 0)
	}
}

// StoreIndexedWidth emits a store of src's low `width` bytes to [base+index].
func (a *Assembler) StoreIndexedWidth(base, index, src Phys, width ir.Width) {
	switch width {
	case ir.Eight:
		a.emit(rex(true, src.Extended(), index.Extended(), base.Extended()), 0x89)
		a.memTailIndexed(src, base, index, 0)
	case ir.Four:
		a.emit(rex(false, src.Extended(), index.Extended(), base.Extended()), 0x89)
		a.memTailIndexed(src, base, index, 0)
	case ir.Two:
		a.emit(0x66)
		a.emit(rex(false, src.Extended(), index.Extended(), base.Extended()), 0x89)
		a.memTailIndexed(src, base, index, 0)
	case ir.One:
		a.emit(rex(false, src.Extended(), index.Extended(), base.Extended()), 0x88)
		a.memTailIndexed(src, base, index, 0)
	}
}
