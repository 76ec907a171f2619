// mips_opcodes.go - MIPS64 field decode and opcode/funct/rt constants

package main

// Primary opcodes (bits 31:26), per spec.md §4.4.1.
const (
	opSPECIAL = 0x00
	opREGIMM  = 0x01
	opJ       = 0x02
	opJAL     = 0x03
	opBEQ     = 0x04
	opBNE     = 0x05
	opBLEZ    = 0x06
	opBGTZ    = 0x07
	opADDI    = 0x08
	opADDIU   = 0x09
	opSLTI    = 0x0A
	opSLTIU   = 0x0B
	opANDI    = 0x0C
	opORI     = 0x0D
	opXORI    = 0x0E
	opLUI     = 0x0F
	opCOP0    = 0x10
	opCOP1    = 0x11
	opCOP2    = 0x12
	opCOP3    = 0x13
	opBEQL    = 0x14
	opBNEL    = 0x15
	opBLEZL   = 0x16
	opBGTZL   = 0x17
	opDADDI   = 0x18
	opDADDIU  = 0x19
	opLB      = 0x20
	opLH      = 0x21
	opLWL     = 0x22
	opLW      = 0x23
	opLBU     = 0x24
	opLHU     = 0x25
	opLWR     = 0x26
	opLWU     = 0x27
	opSB      = 0x28
	opSH      = 0x29
	opSWL     = 0x2A
	opSW      = 0x2B
	opSWR     = 0x2E
	opCACHE   = 0x2F
	opLWC1    = 0x31
	opLWC2    = 0x32
	opLD      = 0x37
	opLDC1    = 0x35
	opLDC2    = 0x36
	opSWC1    = 0x39
	opSWC2    = 0x3A
	opSDC1    = 0x3D
	opSDC2    = 0x3E
	opSD      = 0x3F
)

// SPECIAL function codes (bits 5:0), per spec.md §4.4.1.
const (
	fnSLL     = 0x00
	fnSRL     = 0x02
	fnSRA     = 0x03
	fnSLLV    = 0x04
	fnSRLV    = 0x06
	fnSRAV    = 0x07
	fnJR      = 0x08
	fnJALR    = 0x09
	fnBREAK   = 0x0D
	fnSYNC    = 0x0F
	fnMFHI    = 0x10
	fnMTHI    = 0x11
	fnMFLO    = 0x12
	fnMTLO    = 0x13
	fnDSLLV   = 0x14
	fnDSRLV   = 0x16
	fnDSRAV   = 0x17
	fnMULT    = 0x18
	fnMULTU   = 0x19
	fnDIV     = 0x1A
	fnDIVU    = 0x1B
	fnDMULT   = 0x1C
	fnDMULTU  = 0x1D
	fnDDIV    = 0x1E
	fnDDIVU   = 0x1F
	fnADD     = 0x20
	fnADDU    = 0x21
	fnSUB     = 0x22
	fnSUBU    = 0x23
	fnAND     = 0x24
	fnOR      = 0x25
	fnXOR     = 0x26
	fnNOR     = 0x27
	fnSLT     = 0x2A
	fnSLTU    = 0x2B
	fnDADD    = 0x2C
	fnDADDU   = 0x2D
	fnDSUB    = 0x2E
	fnDSUBU   = 0x2F
	fnDSLL    = 0x38
	fnDSRL    = 0x3A
	fnDSRA    = 0x3B
	fnDSLL32  = 0x3C
	fnDSRL32  = 0x3E
	fnDSRA32  = 0x3F
)

// REGIMM rt codes (bits 20:16), per spec.md §4.4.1.
const (
	rtBLTZ    = 0x00
	rtBGEZ    = 0x01
	rtBLTZL   = 0x02
	rtBGEZL   = 0x03
	rtBLTZAL  = 0x10
	rtBGEZAL  = 0x11
	rtBLTZALL = 0x12
	rtBGEZALL = 0x13
)

func fieldOp(instr uint32) int    { return int(instr >> 26) }
func fieldRS(instr uint32) int    { return int((instr >> 21) & 0x1F) }
func fieldRT(instr uint32) int    { return int((instr >> 16) & 0x1F) }
func fieldRD(instr uint32) int    { return int((instr >> 11) & 0x1F) }
func fieldSA(instr uint32) uint   { return uint((instr >> 6) & 0x1F) }
func fieldFunct(instr uint32) int { return int(instr & 0x3F) }
func fieldImm(instr uint32) uint16 { return uint16(instr & 0xFFFF) }
func fieldJimm(instr uint32) uint32 { return instr & 0x03FF_FFFF }

func signExtend16to32(imm uint16) uint32 {
	return uint32(int32(int16(imm)))
}

func signExtend16to64(imm uint16) uint64 {
	return uint64(int64(int16(imm)))
}

func zeroExtend16to64(imm uint16) uint64 {
	return uint64(imm)
}

func signExtend32to64(v uint32) uint64 {
	return uint64(int64(int32(v)))
}
