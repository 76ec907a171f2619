// mips_interpreter.go - MIPS64 decode+execute and the run(until) loop

package main

import "fmt"

// Mips is the interpreter: architectural state, the bus it fetches and
// moves data through, and the coprocessor slots it dispatches COPx/LWC/SWC
// opcodes to. Cop0 is kept as a separate typed field (rather than just
// Cops[0]) since the run loop polls its PendingInterrupt every outer
// iteration, per spec.md §4.3/§4.4.3.
type Mips struct {
	Ctx  *CpuContext
	Bus  MemoryBus
	Cop0 *Cop0
	Cops [coprocessorSlots]Coprocessor

	// last-fetch cache: reused when PC is unchanged from the previous
	// fetch, per spec.md §4.1's caching contract.
	fetchAddr  uint32
	fetchValid bool
	fetchCache FetchHandle
}

// NewMips wires an interpreter to ctx and bus; cop0 may be nil for a core
// running without exception/interrupt delivery (tests exercising the ALU
// in isolation).
func NewMips(ctx *CpuContext, bus MemoryBus, cop0 *Cop0) *Mips {
	return &Mips{Ctx: ctx, Bus: bus, Cop0: cop0}
}

// fetch returns the fetch handle for pc, reusing the cached handle when pc
// matches the last fetch (spec.md §4.1).
func (m *Mips) fetch(pc uint32) FetchHandle {
	if m.fetchValid && m.fetchAddr == pc {
		return m.fetchCache
	}
	h := m.Bus.FetchRead(pc)
	m.fetchAddr = pc
	m.fetchValid = true
	m.fetchCache = h
	return h
}

// RunUntil advances the CPU until the cycle clock reaches until, per
// spec.md §4.4.3. A pending Cop0 interrupt is serviced before each tight
// run. Within a tight run, instructions execute in program order off a
// cached fetch iterator until a tight exit (branch taken, likely-branch
// not taken, or an interrupt line transition) or the deadline is reached.
// A pending branch is then delivered by executing exactly one further
// (delay-slot) instruction before redirecting PC.
func (m *Mips) RunUntil(until int64) {
	ctx := m.Ctx
	for ctx.Clock < until {
		if m.Cop0 != nil && m.Cop0.PendingInterrupt() {
			m.Cop0.Exception(ctx, ExcINT, false)
			continue
		}

		it := m.fetch(ctx.PC).Iter()
		ctx.TightExit = false
		for {
			w, ok := it.Next()
			if !ok {
				break
			}
			ctx.PC += 4
			ctx.Clock++
			m.execute(w)
			if ctx.Clock >= until || ctx.TightExit {
				break
			}
		}

		if ctx.BranchPC != 0 {
			delay, ok := it.Next()
			if !ok {
				delay = m.fetch(ctx.PC).Read()
			}
			ctx.Clock++ // the delay-slot instruction's own cycle
			m.execute(delay)
			ctx.Clock++ // branch redirect cycle (spec.md §8 scenario 2: clock=4)
			ctx.PC = ctx.BranchPC
			ctx.BranchPC = 0
		}
	}
}

// cop returns the coprocessor installed at slot, or nil if empty.
func (m *Mips) cop(slot int) Coprocessor {
	if slot == 0 && m.Cop0 != nil {
		return m.Cop0
	}
	if slot < 0 || slot >= coprocessorSlots {
		return nil
	}
	return m.Cops[slot]
}

func (m *Mips) execute(instr uint32) {
	ctx := m.Ctx
	op := fieldOp(instr)
	rs := fieldRS(instr)
	rt := fieldRT(instr)
	rd := fieldRD(instr)
	imm := fieldImm(instr)
	sximm32 := signExtend16to32(imm)
	sximm64 := signExtend16to64(imm)
	imm64 := zeroExtend16to64(imm)

	switch op {
	case opSPECIAL:
		m.executeSpecial(instr, rs, rt, rd)

	case opREGIMM:
		m.executeRegimm(rs, rt, sximm32)

	case opJ:
		jtgt := (ctx.PC & 0xF000_0000) | (fieldJimm(instr) * 4)
		ctx.Branch(true, jtgt, false)
	case opJAL:
		ctx.SetReg(31, uint64(ctx.PC+4))
		jtgt := (ctx.PC & 0xF000_0000) | (fieldJimm(instr) * 4)
		ctx.Branch(true, jtgt, false)

	case opBEQ:
		ctx.Branch(ctx.Reg(rs) == ctx.Reg(rt), branchTarget(ctx.PC, sximm32), false)
	case opBNE:
		ctx.Branch(ctx.Reg(rs) != ctx.Reg(rt), branchTarget(ctx.PC, sximm32), false)
	case opBLEZ:
		ctx.Branch(int64(ctx.Reg(rs)) <= 0, branchTarget(ctx.PC, sximm32), false)
	case opBGTZ:
		ctx.Branch(int64(ctx.Reg(rs)) > 0, branchTarget(ctx.PC, sximm32), false)

	case opADDI:
		sum, overflow := addOverflow32(int32(ctx.Reg(rs)), int32(sximm32))
		if overflow {
			m.trapOverflow()
			return
		}
		ctx.SetReg(rt, signExtend32to64(uint32(sum)))
	case opADDIU:
		ctx.SetReg(rt, signExtend32to64(uint32(ctx.Reg(rs))+sximm32))

	case opSLTI:
		ctx.SetReg(rt, boolToU64(int64(ctx.Reg(rs)) < int64(sximm64)))
	case opSLTIU:
		ctx.SetReg(rt, boolToU64(ctx.Reg(rs) < sximm64))

	case opANDI:
		ctx.SetReg(rt, ctx.Reg(rs)&imm64)
	case opORI:
		ctx.SetReg(rt, ctx.Reg(rs)|imm64)
	case opXORI:
		ctx.SetReg(rt, ctx.Reg(rs)^imm64)

	case opLUI:
		ctx.SetReg(rt, signExtend32to64(sximm32<<16))

	case opCOP0, opCOP1, opCOP2, opCOP3:
		slot := op - opCOP0
		if c := m.cop(slot); c != nil {
			c.Op(ctx, instr)
		} else {
			fmt.Printf("n64core: COP%d opcode on empty slot at PC=%#x\n", slot, ctx.PC)
		}

	case opBEQL:
		ctx.Branch(ctx.Reg(rs) == ctx.Reg(rt), branchTarget(ctx.PC, sximm32), true)
	case opBNEL:
		ctx.Branch(ctx.Reg(rs) != ctx.Reg(rt), branchTarget(ctx.PC, sximm32), true)
	case opBLEZL:
		ctx.Branch(int64(ctx.Reg(rs)) <= 0, branchTarget(ctx.PC, sximm32), true)
	case opBGTZL:
		ctx.Branch(int64(ctx.Reg(rs)) > 0, branchTarget(ctx.PC, sximm32), true)

	case opDADDI:
		sum, overflow := addOverflow64(int64(ctx.Reg(rs)), sximm64)
		if overflow {
			m.trapOverflow()
			return
		}
		ctx.SetReg(rt, uint64(sum))
	case opDADDIU:
		ctx.SetReg(rt, ctx.Reg(rs)+sximm64)

	case opLB:
		ea := effAddr(ctx.Reg(rs), sximm32)
		ctx.SetReg(rt, uint64(int64(int8(m.Bus.Read8(ea)))))
	case opLH:
		ea := effAddr(ctx.Reg(rs), sximm32)
		ctx.SetReg(rt, uint64(int64(int16(m.Bus.Read16(ea)))))
	case opLWL:
		m.execLWL(rs, rt, sximm32)
	case opLW:
		ea := effAddr(ctx.Reg(rs), sximm32)
		ctx.SetReg(rt, signExtend32to64(m.Bus.Read32(ea)))
	case opLBU:
		ea := effAddr(ctx.Reg(rs), sximm32)
		ctx.SetReg(rt, uint64(m.Bus.Read8(ea)))
	case opLHU:
		ea := effAddr(ctx.Reg(rs), sximm32)
		ctx.SetReg(rt, uint64(m.Bus.Read16(ea)))
	case opLWR:
		m.execLWR(rs, rt, sximm32)
	case opLWU:
		ea := effAddr(ctx.Reg(rs), sximm32)
		ctx.SetReg(rt, uint64(m.Bus.Read32(ea)))

	case opSB:
		ea := effAddr(ctx.Reg(rs), sximm32)
		m.Bus.Write8(ea, uint8(ctx.Reg(rt)))
	case opSH:
		ea := effAddr(ctx.Reg(rs), sximm32)
		m.Bus.Write16(ea, uint16(ctx.Reg(rt)))
	case opSWL:
		m.execSWL(rs, rt, sximm32)
	case opSW:
		ea := effAddr(ctx.Reg(rs), sximm32)
		m.Bus.Write32(ea, uint32(ctx.Reg(rt)))
	case opSWR:
		m.execSWR(rs, rt, sximm32)

	case opCACHE:
		// no-op (spec.md §4.4.1)

	case opLWC1, opLWC2:
		if c := m.cop(op - opLWC1 + 1); c != nil {
			m.loadCoprocessorWord(c, rs, rt, sximm32)
		}
	case opSWC1, opSWC2:
		if c := m.cop(op - opSWC1 + 1); c != nil {
			m.storeCoprocessorWord(c, rs, rt, sximm32)
		}
	case opLDC1, opLDC2:
		if c := m.cop(op - opLDC1 + 1); c != nil {
			m.loadCoprocessorDouble(c, rs, rt, sximm32)
		}
	case opSDC1, opSDC2:
		if c := m.cop(op - opSDC1 + 1); c != nil {
			m.storeCoprocessorDouble(c, rs, rt, sximm32)
		}

	case opLD:
		ea := effAddr(ctx.Reg(rs), sximm32)
		ctx.SetReg(rt, m.Bus.Read64(ea))
	case opSD:
		ea := effAddr(ctx.Reg(rs), sximm32)
		m.Bus.Write64(ea, ctx.Reg(rt))

	default:
		panic(fmt.Sprintf("n64core: reserved opcode %#02x at PC=%#x", op, ctx.PC))
	}
}

func (m *Mips) executeSpecial(instr uint32, rs, rt, rd int) {
	ctx := m.Ctx
	sa := fieldSA(instr)
	funct := fieldFunct(instr)

	switch funct {
	case fnSLL:
		ctx.SetReg(rd, signExtend32to64(uint32(ctx.Reg(rt))<<sa))
	case fnSRL:
		ctx.SetReg(rd, signExtend32to64(uint32(ctx.Reg(rt))>>sa))
	case fnSRA:
		ctx.SetReg(rd, signExtend32to64(uint32(int32(uint32(ctx.Reg(rt)))>>sa)))
	case fnSLLV:
		ctx.SetReg(rd, signExtend32to64(uint32(ctx.Reg(rt))<<(uint32(ctx.Reg(rs))&0x1F)))
	case fnSRLV:
		ctx.SetReg(rd, signExtend32to64(uint32(ctx.Reg(rt))>>(uint32(ctx.Reg(rs))&0x1F)))
	case fnSRAV:
		ctx.SetReg(rd, signExtend32to64(uint32(int32(uint32(ctx.Reg(rt)))>>(uint32(ctx.Reg(rs))&0x1F))))

	case fnJR:
		ctx.Branch(true, uint32(ctx.Reg(rs)), false)
	case fnJALR:
		link := ctx.PC + 4
		ctx.Branch(true, uint32(ctx.Reg(rs)), false)
		ctx.SetReg(rd, uint64(link))

	case fnBREAK:
		if m.Cop0 != nil {
			m.Cop0.Exception(ctx, ExcBP, false)
		} else {
			panic(fmt.Sprintf("n64core: BREAK at PC=%#x with no Cop0 installed", ctx.PC))
		}
	case fnSYNC:
		// no-op

	case fnMFHI:
		ctx.SetReg(rd, ctx.Hi)
	case fnMTHI:
		ctx.Hi = ctx.Reg(rs)
	case fnMFLO:
		ctx.SetReg(rd, ctx.Lo)
	case fnMTLO:
		ctx.Lo = ctx.Reg(rs)

	case fnDSLLV:
		ctx.SetReg(rd, ctx.Reg(rt)<<(ctx.Reg(rs)&0x3F))
	case fnDSRLV:
		ctx.SetReg(rd, ctx.Reg(rt)>>(ctx.Reg(rs)&0x3F))
	case fnDSRAV:
		ctx.SetReg(rd, uint64(int64(ctx.Reg(rt))>>(ctx.Reg(rs)&0x3F)))

	case fnMULT:
		prod := int64(int32(ctx.Reg(rs))) * int64(int32(ctx.Reg(rt)))
		ctx.Lo = signExtend32to64(uint32(prod))
		ctx.Hi = signExtend32to64(uint32(prod >> 32))
	case fnMULTU:
		prod := uint64(uint32(ctx.Reg(rs))) * uint64(uint32(ctx.Reg(rt)))
		ctx.Lo = signExtend32to64(uint32(prod))
		ctx.Hi = signExtend32to64(uint32(prod >> 32))
	case fnDIV:
		a, b := int32(ctx.Reg(rs)), int32(ctx.Reg(rt))
		if b == 0 {
			ctx.Lo, ctx.Hi = 0, 0 // undefined per spec.md §4.4.1; leave wrapping zero
			break
		}
		ctx.Lo = signExtend32to64(uint32(a / b))
		ctx.Hi = signExtend32to64(uint32(a % b))
	case fnDIVU:
		a, b := uint32(ctx.Reg(rs)), uint32(ctx.Reg(rt))
		if b == 0 {
			ctx.Lo, ctx.Hi = 0, 0
			break
		}
		ctx.Lo = signExtend32to64(a / b)
		ctx.Hi = signExtend32to64(a % b)
	case fnDMULT:
		hi, lo := mul128signed(int64(ctx.Reg(rs)), int64(ctx.Reg(rt)))
		ctx.Hi, ctx.Lo = hi, lo
	case fnDMULTU:
		hi, lo := mul128unsigned(ctx.Reg(rs), ctx.Reg(rt))
		ctx.Hi, ctx.Lo = hi, lo
	case fnDDIV:
		a, b := int64(ctx.Reg(rs)), int64(ctx.Reg(rt))
		if b == 0 {
			ctx.Lo, ctx.Hi = 0, 0
			break
		}
		ctx.Lo = uint64(a / b)
		ctx.Hi = uint64(a % b)
	case fnDDIVU:
		a, b := ctx.Reg(rs), ctx.Reg(rt)
		if b == 0 {
			ctx.Lo, ctx.Hi = 0, 0
			break
		}
		ctx.Lo = a / b
		ctx.Hi = a % b

	case fnADD:
		sum, overflow := addOverflow32(int32(ctx.Reg(rs)), int32(ctx.Reg(rt)))
		if overflow {
			m.trapOverflow()
			return
		}
		ctx.SetReg(rd, signExtend32to64(uint32(sum)))
	case fnADDU:
		ctx.SetReg(rd, signExtend32to64(uint32(ctx.Reg(rs))+uint32(ctx.Reg(rt))))
	case fnSUB:
		diff, overflow := subOverflow32(int32(ctx.Reg(rs)), int32(ctx.Reg(rt)))
		if overflow {
			m.trapOverflow()
			return
		}
		ctx.SetReg(rd, signExtend32to64(uint32(diff)))
	case fnSUBU:
		ctx.SetReg(rd, signExtend32to64(uint32(ctx.Reg(rs))-uint32(ctx.Reg(rt))))
	case fnAND:
		ctx.SetReg(rd, ctx.Reg(rs)&ctx.Reg(rt))
	case fnOR:
		ctx.SetReg(rd, ctx.Reg(rs)|ctx.Reg(rt))
	case fnXOR:
		ctx.SetReg(rd, ctx.Reg(rs)^ctx.Reg(rt))
	case fnNOR:
		ctx.SetReg(rd, ^(ctx.Reg(rs) | ctx.Reg(rt)))
	case fnSLT:
		ctx.SetReg(rd, boolToU64(int64(ctx.Reg(rs)) < int64(ctx.Reg(rt))))
	case fnSLTU:
		ctx.SetReg(rd, boolToU64(ctx.Reg(rs) < ctx.Reg(rt)))

	case fnDADD:
		sum, overflow := addOverflow64(int64(ctx.Reg(rs)), int64(ctx.Reg(rt)))
		if overflow {
			m.trapOverflow()
			return
		}
		ctx.SetReg(rd, uint64(sum))
	case fnDADDU:
		ctx.SetReg(rd, ctx.Reg(rs)+ctx.Reg(rt))
	case fnDSUB:
		diff, overflow := subOverflow64(int64(ctx.Reg(rs)), int64(ctx.Reg(rt)))
		if overflow {
			m.trapOverflow()
			return
		}
		ctx.SetReg(rd, uint64(diff))
	case fnDSUBU:
		ctx.SetReg(rd, ctx.Reg(rs)-ctx.Reg(rt))

	case fnDSLL:
		ctx.SetReg(rd, ctx.Reg(rt)<<sa)
	case fnDSRL:
		ctx.SetReg(rd, ctx.Reg(rt)>>sa)
	case fnDSRA:
		ctx.SetReg(rd, uint64(int64(ctx.Reg(rt))>>sa))
	case fnDSLL32:
		ctx.SetReg(rd, ctx.Reg(rt)<<(sa+32))
	case fnDSRL32:
		ctx.SetReg(rd, ctx.Reg(rt)>>(sa+32))
	case fnDSRA32:
		ctx.SetReg(rd, uint64(int64(ctx.Reg(rt))>>(sa+32)))

	default:
		panic(fmt.Sprintf("n64core: reserved SPECIAL funct %#02x at PC=%#x", funct, ctx.PC))
	}
}

func (m *Mips) executeRegimm(rs, rt int, sximm32 uint32) {
	ctx := m.Ctx
	tgt := branchTarget(ctx.PC, sximm32)
	cond := int64(ctx.Reg(rs)) < 0
	switch rt {
	case rtBLTZ:
		ctx.Branch(cond, tgt, false)
	case rtBGEZ:
		ctx.Branch(!cond, tgt, false)
	case rtBLTZL:
		ctx.Branch(cond, tgt, true)
	case rtBGEZL:
		ctx.Branch(!cond, tgt, true)
	case rtBLTZAL:
		ctx.SetReg(31, uint64(ctx.PC+4))
		ctx.Branch(cond, tgt, false)
	case rtBGEZAL:
		ctx.SetReg(31, uint64(ctx.PC+4))
		ctx.Branch(!cond, tgt, false)
	case rtBLTZALL:
		ctx.SetReg(31, uint64(ctx.PC+4))
		ctx.Branch(cond, tgt, true)
	case rtBGEZALL:
		ctx.SetReg(31, uint64(ctx.PC+4))
		ctx.Branch(!cond, tgt, true)
	default:
		panic(fmt.Sprintf("n64core: reserved REGIMM rt %#02x at PC=%#x", rt, ctx.PC))
	}
}

// trapOverflow is the fatal treatment mandated by spec.md §7/§9 until Cop0
// routes an overflow exception: the open question is resolved in favor of
// treating it as a bug, matching the source's unimplemented!() panic.
func (m *Mips) trapOverflow() {
	panic(fmt.Sprintf("n64core: arithmetic overflow trap (unimplemented Cop0 routing) at PC=%#x", m.Ctx.PC))
}

func (m *Mips) execLWL(rs, rt int, sximm32 uint32) {
	ctx := m.Ctx
	ea := effAddr(ctx.Reg(rs), sximm32)
	aligned := ea &^ 3
	word := m.Bus.Read32(aligned)
	shiftL := (ea & 3) * 8
	maskL := (uint32(1) << shiftL) - 1
	old := uint32(ctx.Reg(rt))
	ctx.SetReg(rt, signExtend32to64((word<<shiftL)|(old&maskL)))
}

func (m *Mips) execLWR(rs, rt int, sximm32 uint32) {
	ctx := m.Ctx
	ea := effAddr(ctx.Reg(rs), sximm32)
	aligned := ea &^ 3
	word := m.Bus.Read32(aligned)
	shiftR := (^ea & 3) * 8
	maskR := ^uint32(0) << (32 - shiftR)
	old := uint32(ctx.Reg(rt))
	ctx.SetReg(rt, signExtend32to64((word>>shiftR)|(old&maskR)))
}

func (m *Mips) execSWL(rs, rt int, sximm32 uint32) {
	ctx := m.Ctx
	ea := effAddr(ctx.Reg(rs), sximm32)
	aligned := ea &^ 3
	shiftL := (ea & 3) * 8
	maskL := ^uint32(0) >> shiftL
	old := m.Bus.Read32(aligned)
	reg := uint32(ctx.Reg(rt))
	m.Bus.Write32(aligned, (old&^maskL)|(reg>>shiftL))
}

func (m *Mips) execSWR(rs, rt int, sximm32 uint32) {
	ctx := m.Ctx
	ea := effAddr(ctx.Reg(rs), sximm32)
	aligned := ea &^ 3
	shiftR := (^ea & 3) * 8
	maskR := ^uint32(0) << shiftR
	old := m.Bus.Read32(aligned)
	reg := uint32(ctx.Reg(rt))
	m.Bus.Write32(aligned, (old&^maskR)|(reg<<shiftR))
}

// branchTarget computes btgt = pc + sximm32*4, where pc has already been
// advanced past the branch instruction (spec.md §4.4).
func branchTarget(pc uint32, sximm32 uint32) uint32 {
	return pc + sximm32*4
}

// effAddr computes ea = rs + sximm32 with correct 32-bit wraparound
// (spec.md §4.4).
func effAddr(rs uint64, sximm32 uint32) uint32 {
	return uint32(rs) + sximm32
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// addOverflow32 adds two 32-bit signed values and reports two's-complement
// overflow via the classic sign-bit XOR trick.
func addOverflow32(a, b int32) (int32, bool) {
	sum := a + b
	overflow := ((a ^ sum) & (b ^ sum)) < 0
	return sum, overflow
}

func subOverflow32(a, b int32) (int32, bool) {
	diff := a - b
	overflow := ((a ^ b) & (a ^ diff)) < 0
	return diff, overflow
}

func addOverflow64(a, b int64) (int64, bool) {
	sum := a + b
	overflow := ((a ^ sum) & (b ^ sum)) < 0
	return sum, overflow
}

func subOverflow64(a, b int64) (int64, bool) {
	diff := a - b
	overflow := ((a ^ b) & (a ^ diff)) < 0
	return diff, overflow
}

// mul128unsigned computes the full 128-bit product of two uint64 operands,
// split into (hi, lo), for DMULTU.
func mul128unsigned(a, b uint64) (hi, lo uint64) {
	aLo, aHi := a&0xFFFFFFFF, a>>32
	bLo, bHi := b&0xFFFFFFFF, b>>32

	ll := aLo * bLo
	lh := aLo * bHi
	hl := aHi * bLo
	hh := aHi * bHi

	mid := lh + hl + (ll >> 32)
	lo = (ll & 0xFFFFFFFF) | (mid << 32)
	hi = hh + (mid >> 32)
	if mid < lh { // carry out of lh+hl
		hi += 1 << 32
	}
	return hi, lo
}

// mul128signed computes the full 128-bit signed product of two int64
// operands, split into (hi, lo), for DMULT.
func mul128signed(a, b int64) (hi, lo uint64) {
	negative := (a < 0) != (b < 0)
	ua, ub := uint64(a), uint64(b)
	if a < 0 {
		ua = uint64(-a)
	}
	if b < 0 {
		ub = uint64(-b)
	}
	hi, lo = mul128unsigned(ua, ub)
	if negative {
		lo = ^lo
		hi = ^hi
		lo++
		if lo == 0 {
			hi++
		}
	}
	return hi, lo
}
