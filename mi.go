// mi.go - Memory-interrupt controller: register bank and line aggregation

package main

import "encoding/binary"

// Device interrupt lines aggregated by MI, per spec.md §3/§4.5. Carried as
// named constants (per SPEC_FULL.md §3, grounded on original_source/src/mi.rs's
// Line enum) rather than bare bit indices.
type DeviceLine uint8

const (
	LineSP DeviceLine = iota // RSP
	LineSI                    // serial/PIF
	LineAI                    // audio
	LineVI                    // video
	LinePI                    // peripheral/cartridge DMA
	LineDP                    // RDP
)

// RSPLine is the CPU interrupt input MI drives: the RCP aggregate, IP2.
const RSPLine = IP2

// MI register bank offsets, per spec.md §3.
const (
	miOffInitMode      = 0x00
	miOffVersion       = 0x04
	miOffInterrupt     = 0x08
	miOffInterruptMask = 0x0C
	miBankSize         = 0x10
)

const (
	miInitModeReadMask  = 0x3FF  // bits 0..9
	miInitModeWriteMask = 0x3FFF // bits 0..13

	miInterruptMaskReadMask  = 0x3F  // bits 0..5
	miInterruptMaskWriteMask = 0xFFF // bits 0..11

	miVersionInit = 0x0101_0101
)

// MI is the memory-interrupt controller: four 32-bit big-endian registers
// mapped over a 16-byte bank, aggregating six device lines into one CPU
// interrupt input (spec.md §4.5).
type MI struct {
	ctx *CpuContext

	initMode      uint32
	version       uint32
	interrupt     uint32
	interruptMask uint32
}

// NewMI returns an MI controller wired to ctx, with registers at their
// post-reset values (spec.md §3: init_mode = 0x80, version = 0x01010101,
// others zero).
func NewMI(ctx *CpuContext) *MI {
	return &MI{
		ctx:      ctx,
		initMode: 0x80,
		version:  miVersionInit,
	}
}

// MapInto registers the MI bank's four registers as a 32-bit-wide I/O
// region on bus, at physical address base.
func (mi *MI) MapInto(bus *SystemBus, base uint32) {
	bus.MapIO(base, base+miBankSize-1, mi.onRead, mi.onWrite)
}

func (mi *MI) onRead(addr uint32) uint32 {
	switch addr & (miBankSize - 1) {
	case miOffInitMode:
		return mi.initMode & miInitModeReadMask
	case miOffVersion:
		return mi.version
	case miOffInterrupt:
		return mi.interrupt
	case miOffInterruptMask:
		return mi.interruptMask & miInterruptMaskReadMask
	default:
		return 0
	}
}

func (mi *MI) onWrite(addr uint32, value uint32) {
	switch addr & (miBankSize - 1) {
	case miOffInitMode:
		mi.writeInitMode(value)
	case miOffInterruptMask:
		mi.writeInterruptMask(value)
	}
}

// writeInitMode applies the paired clear/set write semantics of spec.md
// §4.5: low 7 bits are a direct init-length value; bits 7/8 clear/set the
// init-mode flag; bits 9/10 clear/set ebus test mode; bit 11 acknowledges
// (clears) the DP interrupt; bits 12/13 clear/set RDRAM reg mode.
func (mi *MI) writeInitMode(value uint32) {
	value &= miInitModeWriteMask

	res := mi.initMode & 0x3FF
	res = (res &^ 0x7F) | (value & 0x7F) // init length, written directly

	res = pairedBit(res, value, 7, 8, 7)   // init mode
	res = pairedBit(res, value, 9, 10, 8)  // ebus test mode
	res = pairedBit(res, value, 12, 13, 9) // RDRAM reg mode

	if value&(1<<11) != 0 {
		mi.setLine(LineDP, false)
	}

	mi.initMode = res
	mi.recompute()
}

// writeInterruptMask applies the paired clear/set write semantics for the
// six device-line enable bits, fixing the two bugs documented in
// original_source/src/mi.rs (spec.md §9): the PI-clear branch targets mask
// bit 4 (not bit 3), and the computed mask is committed to interruptMask
// (not initMode).
func (mi *MI) writeInterruptMask(value uint32) {
	value &= miInterruptMaskWriteMask

	res := mi.interruptMask & miInterruptMaskReadMask
	res = pairedBit(res, value, 0, 1, 0) // SP
	res = pairedBit(res, value, 2, 3, 1) // SI
	res = pairedBit(res, value, 4, 5, 2) // AI
	res = pairedBit(res, value, 6, 7, 3) // VI
	res = pairedBit(res, value, 8, 9, 4) // PI
	res = pairedBit(res, value, 10, 11, 5) // DP

	mi.interruptMask = res
	mi.recompute()
}

// pairedBit applies one clear/set write-bit pair from value (clearBit,
// setBit) onto target bit bit of res. Set wins when both are asserted in
// the same write, per spec.md §4.5.
func pairedBit(res, value uint32, clearBit, setBit, bit uint) uint32 {
	if value&(1<<setBit) != 0 {
		return res | (1 << bit)
	}
	if value&(1<<clearBit) != 0 {
		return res &^ (1 << bit)
	}
	return res
}

// SetLine asserts or clears a device's interrupt line and recomputes the
// aggregate, per spec.md §4.5 ("every set_line(line, val) from a device").
func (mi *MI) SetLine(line DeviceLine, asserted bool) {
	mi.setLine(line, asserted)
	mi.recompute()
}

func (mi *MI) setLine(line DeviceLine, asserted bool) {
	bit := uint32(1) << uint(line)
	if asserted {
		mi.interrupt |= bit
	} else {
		mi.interrupt &^= bit
	}
}

// recompute drives the CPU's IP2 line from (interrupt & interruptMask) != 0,
// the invariant in spec.md §3/§4.5.
func (mi *MI) recompute() {
	active := mi.interrupt&mi.interruptMask != 0
	mi.ctx.SetLine(RSPLine, active)
}

// ReadBE32 exposes the bank's register reads for direct (non-bus-mapped) use,
// e.g. by a debug monitor inspecting MI state without going through the bus.
func (mi *MI) ReadBE32(addr uint32) uint32 {
	return mi.onRead(addr)
}

func encodeMIRegisters(mi *MI) []byte {
	buf := make([]byte, miBankSize)
	binary.BigEndian.PutUint32(buf[miOffInitMode:], mi.onRead(miOffInitMode))
	binary.BigEndian.PutUint32(buf[miOffVersion:], mi.onRead(miOffVersion))
	binary.BigEndian.PutUint32(buf[miOffInterrupt:], mi.onRead(miOffInterrupt))
	binary.BigEndian.PutUint32(buf[miOffInterruptMask:], mi.onRead(miOffInterruptMask))
	return buf
}
