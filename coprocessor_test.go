package main

import "testing"

// fakeCop is a minimal Coprocessor for exercising the shared LWC/SWC/LDC/SDC helpers.
type fakeCop struct {
	regs [32]uint64
}

func (f *fakeCop) Reg(i int) uint64          { return f.regs[i] }
func (f *fakeCop) SetReg(i int, val uint64)  { f.regs[i] = val }
func (f *fakeCop) Op(ctx *CpuContext, instr uint32) {}

func TestLoadStoreCoprocessorWord(t *testing.T) {
	m, bus, ctx := newTestMips()
	cop := &fakeCop{}
	ctx.SetReg(4, 0x1000)
	bus.Write32(0x1000, 0xABCD1234)

	m.loadCoprocessorWord(cop, 4, 5, 0)
	if cop.Reg(5) != 0xABCD1234 {
		t.Fatalf("cop.Reg(5) = %#x, want 0xABCD1234", cop.Reg(5))
	}

	cop.SetReg(6, 0x99887766)
	m.storeCoprocessorWord(cop, 4, 6, 4)
	if got := bus.Read32(0x1004); got != 0x99887766 {
		t.Fatalf("bus.Read32(0x1004) = %#x, want 0x99887766", got)
	}
}

func TestLoadStoreCoprocessorDouble(t *testing.T) {
	m, bus, ctx := newTestMips()
	cop := &fakeCop{}
	ctx.SetReg(4, 0x2000)
	bus.Write64(0x2000, 0x0102030405060708)

	m.loadCoprocessorDouble(cop, 4, 1, 0)
	if cop.Reg(1) != 0x0102030405060708 {
		t.Fatalf("cop.Reg(1) = %#x, want 0x0102030405060708", cop.Reg(1))
	}

	cop.SetReg(2, 0xAABBCCDDEEFF0011)
	m.storeCoprocessorDouble(cop, 4, 2, 8)
	if got := bus.Read64(0x2008); got != 0xAABBCCDDEEFF0011 {
		t.Fatalf("bus.Read64(0x2008) = %#x, want 0xAABBCCDDEEFF0011", got)
	}
}

func TestCoprocessorOpDispatchToEmptySlotLogsAndContinues(t *testing.T) {
	m, _, _ := newTestMips()
	// COP2 opcode with no coprocessor installed at slot 2 must not panic.
	instr := encodeI(opCOP2, 0, 0, 0)
	m.execute(instr)
}
