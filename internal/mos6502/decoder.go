package mos6502

import (
	"fmt"

	"disasmcore/core"
)

// Decoder implements core.Decoder for the 6502. It carries no mutable
// state: every method is a pure function of its arguments, so one
// Decoder may be shared read-only.
type Decoder struct{}

// New returns a ready-to-use 6502 Decoder.
func New() *Decoder { return &Decoder{} }

// DisassembleOneLine decodes the instruction at bytes[offset], if any.
func (d *Decoder) DisassembleOneLine(bytes []byte, offset int, pc uint64) (*core.Match, int, bool) {
	if offset < 0 || offset >= len(bytes) {
		return nil, offset, false
	}
	op, ok := opcodesByValue[bytes[offset]]
	if !ok || offset+op.Length > len(bytes) {
		return nil, offset, false
	}

	m := &core.Match{
		Key:      op.Key,
		Vars:     map[string]int64{"mode": int64(op.Mode)},
		Opcodes:  [3]uint16{uint16(bytes[offset]), 0, 0},
		NumBytes: op.Length,
		PC:       pc,
	}
	switch op.Length {
	case 2:
		m.Vars["operand"] = int64(bytes[offset+1])
	case 3:
		m.Vars["operand"] = int64(bytes[offset+1]) | int64(bytes[offset+2])<<8
	}
	return m, offset + op.Length, true
}

// DisassembleAsData reports that one byte at a time can always be
// treated as data when no opcode matches - the 6502 opcode space has
// no byte value that can never make forward progress.
func (d *Decoder) DisassembleAsData(bytes []byte, offset int) int {
	if offset < 0 || offset >= len(bytes) {
		return 0
	}
	return 1
}

// IsFinalInstruction reports whether m ends linear control flow: a
// return (RTS/RTI), an unconditional jump (JMP), or the software
// interrupt (BRK, this architecture's trap-like instruction).
func (d *Decoder) IsFinalInstruction(m *core.Match) bool {
	op, ok := opcodesByValue[byte(m.Opcodes[0])]
	if !ok {
		return false
	}
	switch op.Name {
	case "RTS", "RTI", "JMP", "BRK":
		return true
	default:
		return false
	}
}

// MatchAddresses returns the absolute target of a JSR/JMP (MAF_CODE),
// a conditional branch's computed target (MAF_CODE), or an absolute
// operand's address (MAF_ABSOLUTE). Indirect JMP, zero-page, and
// immediate operands yield no address - their target/operand is not a
// full 16-bit address worth tracking.
func (d *Decoder) MatchAddresses(m *core.Match) map[uint64]core.MatchFlag {
	op, ok := opcodesByValue[byte(m.Opcodes[0])]
	if !ok {
		return nil
	}
	mode := addrMode(m.Vars["mode"])
	operand := m.Vars["operand"]

	switch {
	case op.Name == "JSR" || (op.Name == "JMP" && mode == modeAbsolute):
		return map[uint64]core.MatchFlag{uint64(operand): core.MAFCode}
	case op.Name == "JMP" && mode == modeIndirect:
		return nil
	case mode == modeRelative:
		return map[uint64]core.MatchFlag{branchTarget(m.PC, operand): core.MAFCode}
	case mode == modeAbsolute || mode == modeAbsoluteX || mode == modeAbsoluteY:
		return map[uint64]core.MatchFlag{uint64(operand): core.MAFAbsolute}
	default:
		return nil
	}
}

func branchTarget(pc uint64, operand int64) uint64 {
	// A forward branch of N skips the following N bytes, so the
	// effective displacement is relative to pc+2 (see the 6502.org
	// branch tutorial).
	boff := int8(operand)
	return uint64(int64(pc) + 2 + int64(boff))
}

// InstructionString renders m's mnemonic.
func (d *Decoder) InstructionString(m *core.Match) string {
	op, ok := opcodesByValue[byte(m.Opcodes[0])]
	if !ok {
		return "???"
	}
	return op.Name
}

// OperandString renders m's single operand (the 6502 has at most one).
func (d *Decoder) OperandString(m *core.Match, operand int, lookup func(uint64) (string, bool)) string {
	if _, ok := opcodesByValue[byte(m.Opcodes[0])]; !ok {
		return ""
	}
	mode := addrMode(m.Vars["mode"])
	val := m.Vars["operand"]

	switch mode {
	case modeNone:
		return ""
	case modeAccumulator:
		return "A"
	case modeImmediate:
		return fmt.Sprintf("#$%02X", val)
	case modeZeroPage:
		return fmt.Sprintf("$%02X", val)
	case modeZeroPageX:
		return fmt.Sprintf("$%02X,X", val)
	case modeZeroPageY:
		return fmt.Sprintf("$%02X,Y", val)
	case modeIndirectX:
		return fmt.Sprintf("($%02X,X)", val)
	case modeIndirectY:
		return fmt.Sprintf("($%02X),Y", val)
	case modeRelative:
		target := branchTarget(m.PC, val)
		if name, ok := lookup(target); ok {
			return name
		}
		return fmt.Sprintf("$%04X", target)
	case modeAbsolute, modeAbsoluteX, modeAbsoluteY, modeIndirect:
		target := uint64(val)
		text := fmt.Sprintf("$%04X", target)
		if name, ok := lookup(target); ok {
			text = name
		}
		if mode == modeIndirect {
			return fmt.Sprintf("(%s)", text)
		}
		suffix := ""
		switch mode {
		case modeAbsoluteX:
			suffix = ",X"
		case modeAbsoluteY:
			suffix = ",Y"
		}
		return text + suffix
	default:
		return ""
	}
}
