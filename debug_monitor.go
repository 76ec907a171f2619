// debug_monitor.go - Machine Monitor core (freeze/resume, breakpoints, register dump)

package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// MonitorState represents whether the monitor is active.
type MonitorState int

const (
	MonitorInactive MonitorState = iota
	MonitorActive
)

// OutputLine holds one line of the monitor's scrollback buffer.
type OutputLine struct {
	Text  string
	Color uint32 // RGBA packed, consumed by a text overlay if one is attached
}

// BreakpointEvent is published on the monitor's channel when the
// interpreter stops at a breakpoint or a watched address changes.
type BreakpointEvent struct {
	PC        uint32
	IsWatch   bool
	WatchAddr uint32
	OldValue  uint32
	NewValue  uint32
}

// MachineMonitor is the debugger state machine wrapping one Machine: it
// freezes/resumes the interpreter, tracks breakpoints and watchpoints, and
// keeps a scrollback of output lines for a terminal or overlay front end.
type MachineMonitor struct {
	mu    sync.Mutex
	state MonitorState

	machine *Machine

	breakpoints map[uint32]*debugScript // nil script means unconditional
	watches     map[uint32]uint32       // addr -> last observed value

	breakpointChan chan BreakpointEvent

	outputLines  []OutputLine
	maxOutput    int
	scrollOffset int

	wasRunning bool
	prevRegs   [32]uint64
}

// NewMachineMonitor creates a monitor wrapping machine.
func NewMachineMonitor(machine *Machine) *MachineMonitor {
	return &MachineMonitor{
		machine:        machine,
		breakpoints:    make(map[uint32]*debugScript),
		watches:        make(map[uint32]uint32),
		breakpointChan: make(chan BreakpointEvent, 1),
		maxOutput:      500,
	}
}

// IsActive reports whether the monitor is currently in control.
func (m *MachineMonitor) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == MonitorActive
}

// Activate freezes the machine and enters the monitor.
func (m *MachineMonitor) Activate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == MonitorActive {
		return
	}
	m.state = MonitorActive
	m.wasRunning = m.machine.Running()
	m.machine.Freeze()

	m.scrollOffset = 0
	m.saveCurrentRegs()
	m.appendOutput("MACHINE MONITOR - Type ? for help", colorCyan)
	m.showRegisters()
}

// Deactivate exits the monitor, resuming the machine if it was running.
func (m *MachineMonitor) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == MonitorInactive {
		return
	}
	m.state = MonitorInactive
	if m.wasRunning {
		m.machine.Resume()
	}
}

// SetBreakpoint installs an unconditional breakpoint at addr.
func (m *MachineMonitor) SetBreakpoint(addr uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakpoints[addr] = nil
}

// SetConditionalBreakpoint installs a breakpoint at addr that only fires
// when script evaluates truthy against the current machine state
// (SPEC_FULL.md §2's gopher-lua debugscript feature).
func (m *MachineMonitor) SetConditionalBreakpoint(addr uint32, script *debugScript) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakpoints[addr] = script
}

// ClearBreakpoint removes any breakpoint at addr.
func (m *MachineMonitor) ClearBreakpoint(addr uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakpoints, addr)
}

// ClearAllBreakpoints removes every installed breakpoint.
func (m *MachineMonitor) ClearAllBreakpoints() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakpoints = make(map[uint32]*debugScript)
}

// CheckBreakpoint is polled by the host loop once per frame boundary (the
// interpreter itself never yields mid-instruction, per spec.md §5): if PC
// matches an installed breakpoint whose condition (if any) evaluates true,
// it freezes the machine and publishes a BreakpointEvent.
func (m *MachineMonitor) CheckBreakpoint() {
	m.mu.Lock()
	pc := m.machine.CPU.Ctx.PC
	script, hit := m.breakpoints[pc]
	m.mu.Unlock()
	if !hit {
		return
	}
	if script != nil && !script.Eval(m.machine) {
		return
	}
	// Activate records whether the machine was running before freezing it,
	// so that a later "c" resumes it.
	m.Activate()
	select {
	case m.breakpointChan <- BreakpointEvent{PC: pc}:
	default:
	}
}

// appendOutput adds a line to the scrollback buffer, trimming old lines.
func (m *MachineMonitor) appendOutput(text string, color uint32) {
	m.outputLines = append(m.outputLines, OutputLine{Text: text, Color: color})
	if len(m.outputLines) > m.maxOutput {
		m.outputLines = m.outputLines[len(m.outputLines)-m.maxOutput:]
	}
}

// saveCurrentRegs snapshots the GPR file for change-highlighting in showRegisters.
func (m *MachineMonitor) saveCurrentRegs() {
	m.prevRegs = m.machine.CPU.Ctx.Regs
}

// showRegisters appends a formatted register dump to the scrollback,
// highlighting registers that changed since the last snapshot.
func (m *MachineMonitor) showRegisters() {
	ctx := m.machine.CPU.Ctx
	m.appendOutput(fmt.Sprintf("PC=%#010x  HI=%#018x  LO=%#018x  clock=%d", ctx.PC, ctx.Hi, ctx.Lo, ctx.Clock), colorWhite)
	for i := 0; i < 32; i += 4 {
		line := ""
		for j := i; j < i+4; j++ {
			marker := " "
			if ctx.Regs[j] != m.prevRegs[j] {
				marker = "*"
			}
			line += fmt.Sprintf("r%-2d=%#018x%s ", j, ctx.Regs[j], marker)
		}
		m.appendOutput(line, colorWhite)
	}
	m.appendOutput(fmt.Sprintf("IP0..IP7=%08b  MI(interrupt=%#x mask=%#x)", ctx.Lines(), m.machine.MI.interrupt, m.machine.MI.interruptMask), colorYellow)
}

// RunCommand parses and executes one monitor command line, implementing
// MonitorCommandSink for TerminalHost. Recognized commands:
//
//	b <hex addr>        set an unconditional breakpoint
//	bc <hex addr> <lua> set a Lua-conditional breakpoint (SPEC_FULL.md §2)
//	d <hex addr>         clear the breakpoint at addr
//	da                   clear all breakpoints
//	r                    show registers
//	m <hex addr>         dump the 32-bit word at addr, naming its owning region
//	s <path>             save a machine snapshot to path
//	l <path>             load a machine snapshot from path
//	c                    continue (exit the monitor)
//	?                    show help
func (m *MachineMonitor) RunCommand(line string) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "b":
		if len(fields) < 2 {
			m.appendOutput("usage: b <hex addr>", colorRed)
			return
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 32)
		if err != nil {
			m.appendOutput(fmt.Sprintf("bad address %q: %v", fields[1], err), colorRed)
			return
		}
		m.SetBreakpoint(uint32(addr))
		m.appendOutput(fmt.Sprintf("breakpoint set at %#x", addr), colorGreen)
	case "bc":
		if len(fields) < 3 {
			m.appendOutput("usage: bc <hex addr> <lua expr>", colorRed)
			return
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 32)
		if err != nil {
			m.appendOutput(fmt.Sprintf("bad address %q: %v", fields[1], err), colorRed)
			return
		}
		script, err := compileDebugScript(strings.Join(fields[2:], " "))
		if err != nil {
			m.appendOutput(err.Error(), colorRed)
			return
		}
		m.SetConditionalBreakpoint(uint32(addr), script)
		m.appendOutput(fmt.Sprintf("conditional breakpoint set at %#x", addr), colorGreen)
	case "d":
		if len(fields) < 2 {
			m.appendOutput("usage: d <hex addr>", colorRed)
			return
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 32)
		if err != nil {
			m.appendOutput(fmt.Sprintf("bad address %q: %v", fields[1], err), colorRed)
			return
		}
		m.ClearBreakpoint(uint32(addr))
	case "da":
		m.ClearAllBreakpoints()
	case "r":
		m.mu.Lock()
		m.saveCurrentRegs()
		m.showRegisters()
		m.mu.Unlock()
	case "m":
		if len(fields) < 2 {
			m.appendOutput("usage: m <hex addr>", colorRed)
			return
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 32)
		if err != nil {
			m.appendOutput(fmt.Sprintf("bad address %q: %v", fields[1], err), colorRed)
			return
		}
		val := m.machine.Bus.Read32(uint32(addr))
		color := colorWhite
		if IsIOAddress(uint32(addr)) {
			color = colorYellow
		}
		m.appendOutput(fmt.Sprintf("%#010x: %#010x  [%s]", addr, val, GetIORegion(uint32(addr))), color)
	case "s":
		if len(fields) < 2 {
			m.appendOutput("usage: s <path>", colorRed)
			return
		}
		snap := TakeSnapshot(m.machine)
		if err := SaveSnapshotToFile(snap, fields[1]); err != nil {
			m.appendOutput(fmt.Sprintf("save failed: %v", err), colorRed)
			return
		}
		m.appendOutput(fmt.Sprintf("saved snapshot to %s", fields[1]), colorGreen)
	case "l":
		if len(fields) < 2 {
			m.appendOutput("usage: l <path>", colorRed)
			return
		}
		snap, err := LoadSnapshotFromFile(fields[1])
		if err != nil {
			m.appendOutput(fmt.Sprintf("load failed: %v", err), colorRed)
			return
		}
		m.mu.Lock()
		RestoreSnapshot(m.machine, snap)
		m.saveCurrentRegs()
		m.mu.Unlock()
		m.appendOutput(fmt.Sprintf("loaded snapshot from %s", fields[1]), colorGreen)
	case "c":
		m.Deactivate()
	case "?":
		m.appendOutput("b <addr> | bc <addr> <lua> | d <addr> | da | r | m <addr> | s <path> | l <path> | c", colorCyan)
	default:
		m.appendOutput(fmt.Sprintf("unknown command %q (? for help)", fields[0]), colorRed)
	}
}

// Color constants (RGBA packed as 0xRRGGBBAA), matching the teacher's
// scrollback palette so an overlay front end can reuse the same constants.
const (
	colorWhite  = 0xFFFFFFFF
	colorCyan   = 0x64C8FFFF
	colorYellow = 0xFFFF55FF
	colorRed    = 0xFF5555FF
	colorGreen  = 0x55FF55FF
)
