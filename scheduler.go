// scheduler.go - Subsystem adaptor for co-driving multiple cycle-counted units

package main

// Subsystem is the uniform facet a host scheduler co-drives: advance to a
// deadline, report how far you got. Per spec.md §4.6, a host may interleave
// several subsystems by supplying increasing deadlines to each in turn.
type Subsystem interface {
	// Run advances the subsystem until Cycles() >= until.
	Run(until int64)
	// Cycles reports the subsystem's current cycle count.
	Cycles() int64
}

var _ Subsystem = (*Mips)(nil)

// Run implements Subsystem for the interpreter: it is a thin adaptor over
// the run loop's public entry point.
func (m *Mips) Run(until int64) {
	m.RunUntil(until)
}

// Cycles implements Subsystem for the interpreter.
func (m *Mips) Cycles() int64 {
	return m.Ctx.Clock
}
