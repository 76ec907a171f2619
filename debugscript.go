// debugscript.go - Lua-scripted conditional breakpoints

/*
The teacher's debug_conditions.go parses a single fixed grammar
("r1==$FF", "[$1000]==$42", "hitcount>10") into a BreakpointCondition and
evaluates it against one CPU. This module generalizes that into arbitrary
Lua boolean expressions evaluated against a snapshot of the running
machine, using gopher-lua exactly as a scripting engine is meant to be
used: regs[5] == 10 and mi.ip2 and mem32(0x1000) ~= 0.
*/

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// debugScript is a conditional-breakpoint expression, recompiled by
// gopher-lua on every evaluation — cheap next to the cost of stopping the
// machine at all, and simpler than caching a lua.FunctionProto across the
// fresh lua.LState each Eval creates.
type debugScript struct {
	chunk string
}

// compileDebugScript validates a Lua expression of the form "<bool expr>"
// by parsing it once, then returns a debugScript that re-evaluates it on
// every breakpoint check. Globals exposed at eval time: regs (a 0-indexed
// table of the 32 GPRs), mi (a table with ip2, interrupt, mask fields),
// and mem32(addr) (a function reading the bus).
func compileDebugScript(source string) (*debugScript, error) {
	chunk := "return (" + source + ")"
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	if _, err := L.LoadString(chunk); err != nil {
		return nil, fmt.Errorf("debugscript: parse %q: %w", source, err)
	}
	return &debugScript{chunk: chunk}, nil
}

// Eval runs the script against a snapshot of machine and reports whether
// it evaluated truthy. Any runtime error is treated as false (the
// breakpoint does not fire) rather than propagating, since the interpreter
// must never be destabilized by a malformed user expression.
func (s *debugScript) Eval(machine *Machine) bool {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	lua.OpenMath(L)

	regs := L.NewTable()
	for i, v := range machine.CPU.Ctx.Regs {
		regs.RawSetInt(i, lua.LNumber(v))
	}
	L.SetGlobal("regs", regs)

	mi := L.NewTable()
	mi.RawSetString("ip2", lua.LBool(machine.CPU.Ctx.Line(IP2)))
	mi.RawSetString("interrupt", lua.LNumber(machine.MI.interrupt))
	mi.RawSetString("mask", lua.LNumber(machine.MI.interruptMask))
	L.SetGlobal("mi", mi)

	L.SetGlobal("mem32", L.NewFunction(func(L *lua.LState) int {
		addr := uint32(L.CheckInt64(1))
		L.Push(lua.LNumber(machine.Bus.Read32(addr)))
		return 1
	}))

	fn, err := L.LoadString(s.chunk)
	if err != nil {
		return false
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return false
	}
	return lua.LVAsBool(L.Get(-1))
}
