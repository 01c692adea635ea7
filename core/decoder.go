package core

// MatchFlag classifies an address a decoded instruction refers to:
// MAF_CODE marks a control-flow target, MAF_ABSOLUTE
// marks an absolute data-style reference, MAF_UNCERTAIN marks a target
// the decoder isn't confident is really an address.
type MatchFlag uint8

const (
	MAFCode      MatchFlag = 1 << 0
	MAFAbsolute  MatchFlag = 1 << 1
	MAFUncertain MatchFlag = 1 << 2
)

// Has reports whether f is set in the receiver.
func (m MatchFlag) Has(f MatchFlag) bool { return m&f == f }

// Match is the decoder's description of one successfully decoded
// instruction. Vars and Opcodes carry whatever architecture-specific
// operand data the decoder needs to re-render the instruction later;
// the core never interprets them beyond passing them back to the
// decoder.
type Match struct {
	Key      string         // mnemonic group key, e.g. "Bcc", "DBcc", "TRAP"
	Vars     map[string]int64
	Opcodes  [3]uint16
	NumBytes int
	PC       uint64
}

// Decoder is the per-architecture instruction decoder the core invokes
// but does not implement. One concrete decoder (internal/mos6502)
// ships with this module to exercise the contract end to end; the
// decoder for any other architecture is the caller's responsibility.
type Decoder interface {
	// DisassembleOneLine attempts to decode one instruction starting at
	// bytes[offset], executing at address pc. ok is false if no
	// instruction matched.
	DisassembleOneLine(bytes []byte, offset int, pc uint64) (match *Match, newOffset int, ok bool)

	// DisassembleAsData reports how many bytes at bytes[offset] should
	// be treated as data because no instruction could be matched. A
	// return of 0 means even that much progress could not be made.
	DisassembleAsData(bytes []byte, offset int) int

	// IsFinalInstruction reports whether decoding must stop after m:
	// a return, unconditional branch, or trap-like instruction.
	IsFinalInstruction(m *Match) bool

	// MatchAddresses returns every address m's operands plausibly
	// refer to, each tagged with the MatchFlag bits that classify it.
	MatchAddresses(m *Match) map[uint64]MatchFlag

	// InstructionString renders m's mnemonic, independent of operands.
	InstructionString(m *Match) string

	// OperandString renders operand index i of m. lookup resolves an
	// address to a symbol name, returning ok=false when no symbol is
	// registered for it.
	OperandString(m *Match, operand int, lookup func(addr uint64) (string, bool)) string
}
