package main

import "testing"

func TestMachineLoadProgramWritesAtResetVector(t *testing.T) {
	m := NewMachine()
	m.LoadProgram([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	if got := m.Bus.Read32(ResetVector); got != 0xDEADBEEF {
		t.Fatalf("word at reset vector = %#x, want 0xdeadbeef", got)
	}
}

func TestMachineFreezeResume(t *testing.T) {
	m := NewMachine()
	if !m.Running() {
		t.Fatal("machine should start running")
	}
	m.Freeze()
	if m.Running() {
		t.Fatal("expected Freeze to stop the machine")
	}
	m.Resume()
	if !m.Running() {
		t.Fatal("expected Resume to restart the machine")
	}
}

func TestMachineRunFrameNoOpWhenFrozen(t *testing.T) {
	m := NewMachine()
	m.Freeze()
	before := m.CPU.Cycles()
	m.RunFrame(1000)
	if m.CPU.Cycles() != before {
		t.Fatalf("cycles advanced to %d while frozen, want unchanged %d", m.CPU.Cycles(), before)
	}
}

func TestMachineShutdownStopsRunningAndIsIdempotent(t *testing.T) {
	m := NewMachine()
	if m.ShuttingDown() {
		t.Fatal("fresh machine should not be shutting down")
	}

	m.Shutdown()
	if !m.ShuttingDown() {
		t.Fatal("expected ShuttingDown to report true after Shutdown")
	}
	if m.Running() {
		t.Fatal("expected Shutdown to stop the machine")
	}

	m.Resume()
	m.Shutdown()
	if !m.ShuttingDown() {
		t.Fatal("expected a second Shutdown call to remain idempotently true")
	}
}

func TestMachineReset(t *testing.T) {
	m := NewMachine()
	m.CPU.Ctx.SetReg(5, 0xABCD)
	m.CPU.Ctx.PC = 0x999
	m.Reset()
	if m.CPU.Ctx.Reg(5) != 0 {
		t.Fatalf("r5 = %#x after Reset, want 0", m.CPU.Ctx.Reg(5))
	}
	if m.CPU.Ctx.PC != ResetVector {
		t.Fatalf("PC = %#x after Reset, want reset vector %#x", m.CPU.Ctx.PC, ResetVector)
	}
}
