package main

import "testing"

func TestDebugScriptEvalRegs(t *testing.T) {
	m := NewMachine()
	m.CPU.Ctx.SetReg(5, 10)

	s, err := compileDebugScript("regs[5] == 10")
	if err != nil {
		t.Fatalf("compileDebugScript: %v", err)
	}
	if !s.Eval(m) {
		t.Fatal("expected regs[5] == 10 to evaluate truthy")
	}

	m.CPU.Ctx.SetReg(5, 11)
	if s.Eval(m) {
		t.Fatal("expected regs[5] == 10 to evaluate false after changing r5")
	}
}

func TestDebugScriptEvalMI(t *testing.T) {
	m := NewMachine()
	s, err := compileDebugScript("mi.ip2")
	if err != nil {
		t.Fatalf("compileDebugScript: %v", err)
	}
	if s.Eval(m) {
		t.Fatal("expected mi.ip2 to be false with no lines asserted")
	}

	m.MI.writeInterruptMask(1 << 1) // enable SP
	m.MI.SetLine(LineSP, true)
	if !s.Eval(m) {
		t.Fatal("expected mi.ip2 to be true once an enabled line is asserted")
	}
}

func TestDebugScriptEvalMem32(t *testing.T) {
	m := NewMachine()
	m.Bus.Write32(0x1000, 0xDEADBEEF)

	s, err := compileDebugScript("mem32(0x1000) == 0xDEADBEEF")
	if err != nil {
		t.Fatalf("compileDebugScript: %v", err)
	}
	if !s.Eval(m) {
		t.Fatal("expected mem32(0x1000) == 0xDEADBEEF to evaluate truthy")
	}
}

func TestCompileDebugScriptRejectsMalformedSource(t *testing.T) {
	if _, err := compileDebugScript("regs[5] =="); err == nil {
		t.Fatal("expected a parse error for malformed Lua source")
	}
}

func TestDebugScriptEvalCombinedExpression(t *testing.T) {
	m := NewMachine()
	m.CPU.Ctx.SetReg(1, 5)
	m.Bus.Write32(0x2000, 1)

	s, err := compileDebugScript("regs[1] == 5 and mem32(0x2000) ~= 0")
	if err != nil {
		t.Fatalf("compileDebugScript: %v", err)
	}
	if !s.Eval(m) {
		t.Fatal("expected combined expression to evaluate truthy")
	}
}
