// machine.go - top-level wiring: bus, CPU, Cop0, MI, run/freeze control

/*
Per the "Cyclic ownership" design note (spec.md §9), the source's pattern of
devices each holding a shared mutable handle back to the bus is inverted
here: Machine is the single top-level owner of the bus and every device;
the bus itself is handed to each component at construction, not stored by
a shared-ownership cell.
*/

package main

import "sync"

// Machine owns the bus and every wired device, and is the unit a host loop
// drives one frame at a time via the Subsystem hook on CPU.
type Machine struct {
	Bus *SystemBus
	CPU *Mips
	MI  *MI

	mu           sync.Mutex
	running      bool
	shuttingDown bool
}

// NewMachine constructs a fully wired machine: a SystemBus with the MI
// register bank mapped at MIBase, a Cop0 routing interrupts and exceptions,
// and a Mips interpreter with Cop0 installed at slot 0.
func NewMachine() *Machine {
	bus := NewSystemBus()
	ctx := NewCpuContext()
	mi := NewMI(ctx)
	mi.MapInto(bus, MIBase)
	cop0 := NewCop0(ctx)
	cpu := NewMips(ctx, bus, cop0)

	return &Machine{Bus: bus, CPU: cpu, MI: mi, running: true}
}

// LoadProgram copies program into RAM starting at the reset vector.
func (m *Machine) LoadProgram(program []byte) {
	for i, b := range program {
		m.Bus.Write8(ResetVector+uint32(i), b)
	}
}

// Reset reinitializes the bus, CPU context, and MI registers.
func (m *Machine) Reset() {
	m.Bus.Reset()
	*m.CPU.Ctx = CpuContext{PC: ResetVector}
	*m.MI = *NewMI(m.CPU.Ctx)
	m.MI.MapInto(m.Bus, MIBase)
}

// RunFrame advances the machine by cyclesPerFrame cycles, implementing the
// host-side half of the Subsystem scheduler hook (spec.md §4.6): the host
// loop supplies an increasing deadline once per video frame.
func (m *Machine) RunFrame(cyclesPerFrame int64) {
	if !m.Running() {
		return
	}
	m.CPU.Run(m.CPU.Cycles() + cyclesPerFrame)
}

// Running reports whether the machine is currently executing (i.e. not
// frozen by a debug monitor).
func (m *Machine) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Freeze stops RunFrame from advancing the CPU, used by MachineMonitor.
func (m *Machine) Freeze() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	runtimeStatus.setRunning(false)
}

// Resume re-enables RunFrame.
func (m *Machine) Resume() {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	runtimeStatus.setRunning(true)
}

// Shutdown signals every goroutine cooperatively driving this machine to
// stop at its next checkpoint: the host loop's Update (polled once per
// video frame, spec.md §4.6) observes ShuttingDown and returns
// ebiten.Termination instead of calling RunFrame again. Idempotent.
func (m *Machine) Shutdown() {
	m.mu.Lock()
	if m.shuttingDown {
		m.mu.Unlock()
		return
	}
	m.shuttingDown = true
	m.running = false
	m.mu.Unlock()
	runtimeStatus.setRunning(false)
}

// ShuttingDown reports whether Shutdown has been called.
func (m *Machine) ShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shuttingDown
}
