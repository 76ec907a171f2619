// coprocessor.go - Coprocessor capability and shared LWC/SWC/LDC/SDC helpers

package main

// Coprocessor is the uniform capability every COP0..COP3 slot implements:
// opaque register access plus opcode dispatch, per spec.md §4.3. Register
// width is narrowed from the spec's u128 to uint64 here — this core's
// Non-goals exclude floating-point/128-bit coprocessor semantics (spec.md
// §1), so no installed coprocessor ever needs more than 64 bits of state.
type Coprocessor interface {
	Reg(i int) uint64
	SetReg(i int, val uint64)
	Op(ctx *CpuContext, instr uint32)
}

// coprocessorSlots is the fixed number of COPx slots the interpreter
// dispatches to (spec.md §6: "up to four (indexes 0..3); 0 may additionally
// be a Cop0").
const coprocessorSlots = 4

// loadCoprocessorWord implements LWC1/LWC2: ea = rs + sximm32, masked to the
// 29-bit physical window and word-aligned, a 32-bit bus read, written into
// the coprocessor's register rt. Shared across coprocessor slots rather
// than duplicated per-cop, per the DESIGN.md note on this interpretation.
func (m *Mips) loadCoprocessorWord(cop Coprocessor, rs, rt int, sximm32 uint32) {
	ea := uint32(m.Ctx.Reg(rs)) + sximm32
	val := m.Bus.Read32(ea)
	cop.SetReg(rt, uint64(val))
}

// storeCoprocessorWord implements SWC1/SWC2: the dual of loadCoprocessorWord.
func (m *Mips) storeCoprocessorWord(cop Coprocessor, rs, rt int, sximm32 uint32) {
	ea := uint32(m.Ctx.Reg(rs)) + sximm32
	m.Bus.Write32(ea, uint32(cop.Reg(rt)))
}

// loadCoprocessorDouble implements LDC1/LDC2: like loadCoprocessorWord but
// 64-bit, double-word aligned.
func (m *Mips) loadCoprocessorDouble(cop Coprocessor, rs, rt int, sximm32 uint32) {
	ea := uint32(m.Ctx.Reg(rs)) + sximm32
	cop.SetReg(rt, m.Bus.Read64(ea))
}

// storeCoprocessorDouble implements SDC1/SDC2: the dual of loadCoprocessorDouble.
func (m *Mips) storeCoprocessorDouble(cop Coprocessor, rs, rt int, sximm32 uint32) {
	ea := uint32(m.Ctx.Reg(rs)) + sximm32
	m.Bus.Write64(ea, cop.Reg(rt))
}
