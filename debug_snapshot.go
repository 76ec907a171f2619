// debug_snapshot.go - Machine state snapshot for save/load

package main

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	snapshotMagic   = "N64C"
	snapshotVersion = 1
)

// MachineSnapshot captures CPU registers, MI register state, and memory for
// save/load, the single-machine analogue of the teacher's CPUType/
// RegisterInfo-list snapshot shape (this core has exactly one CPU, so its
// register file is a fixed array rather than a named list).
type MachineSnapshot struct {
	Regs   [32]uint64
	Hi, Lo uint64
	PC     uint32
	Clock  int64

	MIRegs []byte // 16 bytes, big-endian bank contents from encodeMIRegisters

	Memory []byte
}

// TakeSnapshot captures the current machine state.
func TakeSnapshot(m *Machine) *MachineSnapshot {
	ctx := m.CPU.Ctx
	mem := make([]byte, len(m.Bus.memory))
	copy(mem, m.Bus.memory)
	return &MachineSnapshot{
		Regs:   ctx.Regs,
		Hi:     ctx.Hi,
		Lo:     ctx.Lo,
		PC:     ctx.PC,
		Clock:  ctx.Clock,
		MIRegs: encodeMIRegisters(m.MI),
		Memory: mem,
	}
}

// RestoreSnapshot restores machine state from a snapshot.
func RestoreSnapshot(m *Machine, snap *MachineSnapshot) {
	ctx := m.CPU.Ctx
	ctx.Regs = snap.Regs
	ctx.Hi, ctx.Lo = snap.Hi, snap.Lo
	ctx.PC = snap.PC
	ctx.BranchPC = 0
	ctx.TightExit = false
	ctx.Clock = snap.Clock
	copy(m.Bus.memory, snap.Memory)

	m.MI.initMode = binary.BigEndian.Uint32(snap.MIRegs[miOffInitMode:])
	m.MI.interrupt = binary.BigEndian.Uint32(snap.MIRegs[miOffInterrupt:])
	m.MI.interruptMask = binary.BigEndian.Uint32(snap.MIRegs[miOffInterruptMask:])
	m.MI.recompute()
}

// SaveSnapshotToFile writes a snapshot to disk: magic, version, fixed
// fields, then gzip-compressed memory, matching the teacher's framing
// style (magic + version + fields + compressed memory).
func SaveSnapshotToFile(snap *MachineSnapshot, path string) error {
	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	binary.Write(&buf, binary.LittleEndian, uint32(snapshotVersion))

	for _, r := range snap.Regs {
		binary.Write(&buf, binary.LittleEndian, r)
	}
	binary.Write(&buf, binary.LittleEndian, snap.Hi)
	binary.Write(&buf, binary.LittleEndian, snap.Lo)
	binary.Write(&buf, binary.LittleEndian, snap.PC)
	binary.Write(&buf, binary.LittleEndian, snap.Clock)
	buf.Write(snap.MIRegs)

	binary.Write(&buf, binary.LittleEndian, uint32(len(snap.Memory)))
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(snap.Memory); err != nil {
		return fmt.Errorf("compressing memory: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}
	buf.Write(compressed.Bytes())

	return os.WriteFile(path, buf.Bytes(), 0644)
}

// LoadSnapshotFromFile reads and decompresses a snapshot from disk.
func LoadSnapshotFromFile(path string) (*MachineSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != snapshotMagic {
		return nil, fmt.Errorf("invalid snapshot magic: %q", string(magic))
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", version)
	}

	snap := &MachineSnapshot{}
	for i := range snap.Regs {
		if err := binary.Read(r, binary.LittleEndian, &snap.Regs[i]); err != nil {
			return nil, fmt.Errorf("reading register %d: %w", i, err)
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &snap.Hi); err != nil {
		return nil, fmt.Errorf("reading HI: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &snap.Lo); err != nil {
		return nil, fmt.Errorf("reading LO: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &snap.PC); err != nil {
		return nil, fmt.Errorf("reading PC: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &snap.Clock); err != nil {
		return nil, fmt.Errorf("reading clock: %w", err)
	}
	snap.MIRegs = make([]byte, miBankSize)
	if _, err := io.ReadFull(r, snap.MIRegs); err != nil {
		return nil, fmt.Errorf("reading MI registers: %w", err)
	}

	var uncompressedLen uint32
	if err := binary.Read(r, binary.LittleEndian, &uncompressedLen); err != nil {
		return nil, fmt.Errorf("reading memory length: %w", err)
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip reader: %w", err)
	}
	defer gz.Close()

	snap.Memory = make([]byte, uncompressedLen)
	if _, err := io.ReadFull(gz, snap.Memory); err != nil {
		return nil, fmt.Errorf("decompressing memory: %w", err)
	}
	return snap, nil
}
