// Package mos6502 implements core.Decoder for the 6502, the one
// concrete decoder this module ships.
package mos6502

// addrMode enumerates the 6502 addressing modes.
type addrMode int

const (
	modeNone addrMode = iota
	modeAccumulator
	modeImmediate
	modeAbsolute
	modeZeroPage
	modeZeroPageX
	modeZeroPageY
	modeIndirect
	modeAbsoluteX
	modeAbsoluteY
	modeIndirectX
	modeIndirectY
	modeRelative
)

// opcodeDef describes one opcode. Key is the generic group key the
// core's trailing-blank-line display options match on: conditional
// branches report "Bcc" and BRK reports "TRAP" regardless of the
// underlying mnemonic.
type opcodeDef struct {
	Value  byte
	Name   string
	Length int
	Mode   addrMode
	Key    string
}

const (
	opJMPAbsolute = 0x4C
	opJMPIndirect = 0x6C
	opJSRAbsolute = 0x20
	opBRK         = 0x00
	opRTS         = 0x60
	opRTI         = 0x40
)

// opcodes lists every 6502 opcode this decoder recognizes. Most opcodes
// from http://www.6502.org/tutorials/6502opcodes.html; ANC, SLO, SRE
// (undocumented) from https://github.com/mattgodbolt/jsbeeb/blob/master/6502.opcodes.js.
var opcodes = []opcodeDef{
	{0x69, "ADC", 2, modeImmediate, "ADC"},
	{0x65, "ADC", 2, modeZeroPage, "ADC"},
	{0x75, "ADC", 2, modeZeroPageX, "ADC"},
	{0x6D, "ADC", 3, modeAbsolute, "ADC"},
	{0x7D, "ADC", 3, modeAbsoluteX, "ADC"},
	{0x79, "ADC", 3, modeAbsoluteY, "ADC"},
	{0x61, "ADC", 2, modeIndirectX, "ADC"},
	{0x71, "ADC", 2, modeIndirectY, "ADC"},

	{0x0B, "ANC", 2, modeImmediate, "ANC"},
	{0x2B, "ANC", 2, modeImmediate, "ANC"},

	{0x29, "AND", 2, modeImmediate, "AND"},
	{0x25, "AND", 2, modeZeroPage, "AND"},
	{0x35, "AND", 2, modeZeroPageX, "AND"},
	{0x2D, "AND", 3, modeAbsolute, "AND"},
	{0x3D, "AND", 3, modeAbsoluteX, "AND"},
	{0x39, "AND", 3, modeAbsoluteY, "AND"},
	{0x21, "AND", 2, modeIndirectX, "AND"},
	{0x31, "AND", 2, modeIndirectY, "AND"},

	{0x0A, "ASL", 1, modeAccumulator, "ASL"},
	{0x06, "ASL", 2, modeZeroPage, "ASL"},
	{0x16, "ASL", 2, modeZeroPageX, "ASL"},
	{0x0E, "ASL", 3, modeAbsolute, "ASL"},
	{0x1E, "ASL", 3, modeAbsoluteX, "ASL"},

	{0x24, "BIT", 2, modeZeroPage, "BIT"},
	{0x2C, "BIT", 3, modeAbsolute, "BIT"},

	{0x10, "BPL", 2, modeRelative, "Bcc"},
	{0x30, "BMI", 2, modeRelative, "Bcc"},
	{0x50, "BVC", 2, modeRelative, "Bcc"},
	{0x70, "BVS", 2, modeRelative, "Bcc"},
	{0x90, "BCC", 2, modeRelative, "Bcc"},
	{0xB0, "BCS", 2, modeRelative, "Bcc"},
	{0xD0, "BNE", 2, modeRelative, "Bcc"},
	{0xF0, "BEQ", 2, modeRelative, "Bcc"},

	{opBRK, "BRK", 1, modeNone, "TRAP"},

	{0xC9, "CMP", 2, modeImmediate, "CMP"},
	{0xC5, "CMP", 2, modeZeroPage, "CMP"},
	{0xD5, "CMP", 2, modeZeroPageX, "CMP"},
	{0xCD, "CMP", 3, modeAbsolute, "CMP"},
	{0xDD, "CMP", 3, modeAbsoluteX, "CMP"},
	{0xD9, "CMP", 3, modeAbsoluteY, "CMP"},
	{0xC1, "CMP", 2, modeIndirectX, "CMP"},
	{0xD1, "CMP", 2, modeIndirectY, "CMP"},

	{0xE0, "CPX", 2, modeImmediate, "CPX"},
	{0xE4, "CPX", 2, modeZeroPage, "CPX"},
	{0xEC, "CPX", 3, modeAbsolute, "CPX"},

	{0xC0, "CPY", 2, modeImmediate, "CPY"},
	{0xC4, "CPY", 2, modeZeroPage, "CPY"},
	{0xCC, "CPY", 3, modeAbsolute, "CPY"},

	{0xC6, "DEC", 2, modeZeroPage, "DEC"},
	{0xD6, "DEC", 2, modeZeroPageX, "DEC"},
	{0xCE, "DEC", 3, modeAbsolute, "DEC"},
	{0xDE, "DEC", 3, modeAbsoluteX, "DEC"},

	{0x49, "EOR", 2, modeImmediate, "EOR"},
	{0x45, "EOR", 2, modeZeroPage, "EOR"},
	{0x55, "EOR", 2, modeZeroPageX, "EOR"},
	{0x4D, "EOR", 3, modeAbsolute, "EOR"},
	{0x5D, "EOR", 3, modeAbsoluteX, "EOR"},
	{0x59, "EOR", 3, modeAbsoluteY, "EOR"},
	{0x41, "EOR", 2, modeIndirectX, "EOR"},
	{0x51, "EOR", 2, modeIndirectY, "EOR"},

	{0x18, "CLC", 1, modeNone, "CLC"},
	{0x38, "SEC", 1, modeNone, "SEC"},
	{0x58, "CLI", 1, modeNone, "CLI"},
	{0x78, "SEI", 1, modeNone, "SEI"},
	{0xB8, "CLV", 1, modeNone, "CLV"},
	{0xD8, "CLD", 1, modeNone, "CLD"},
	{0xF8, "SED", 1, modeNone, "SED"},

	{0xE6, "INC", 2, modeZeroPage, "INC"},
	{0xF6, "INC", 2, modeZeroPageX, "INC"},
	{0xEE, "INC", 3, modeAbsolute, "INC"},
	{0xFE, "INC", 3, modeAbsoluteX, "INC"},

	{opJMPAbsolute, "JMP", 3, modeAbsolute, "JMP"},
	{opJMPIndirect, "JMP", 3, modeIndirect, "JMP"},

	{opJSRAbsolute, "JSR", 3, modeAbsolute, "JSR"},

	{0xA9, "LDA", 2, modeImmediate, "LDA"},
	{0xA5, "LDA", 2, modeZeroPage, "LDA"},
	{0xB5, "LDA", 2, modeZeroPageX, "LDA"},
	{0xAD, "LDA", 3, modeAbsolute, "LDA"},
	{0xBD, "LDA", 3, modeAbsoluteX, "LDA"},
	{0xB9, "LDA", 3, modeAbsoluteY, "LDA"},
	{0xA1, "LDA", 2, modeIndirectX, "LDA"},
	{0xB1, "LDA", 2, modeIndirectY, "LDA"},

	{0xA2, "LDX", 2, modeImmediate, "LDX"},
	{0xA6, "LDX", 2, modeZeroPage, "LDX"},
	{0xB6, "LDX", 2, modeZeroPageY, "LDX"},
	{0xAE, "LDX", 3, modeAbsolute, "LDX"},
	{0xBE, "LDX", 3, modeAbsoluteY, "LDX"},

	{0xA0, "LDY", 2, modeImmediate, "LDY"},
	{0xA4, "LDY", 2, modeZeroPage, "LDY"},
	{0xB4, "LDY", 2, modeZeroPageX, "LDY"},
	{0xAC, "LDY", 3, modeAbsolute, "LDY"},
	{0xBC, "LDY", 3, modeAbsoluteX, "LDY"},

	{0x4A, "LSR", 1, modeAccumulator, "LSR"},
	{0x46, "LSR", 2, modeZeroPage, "LSR"},
	{0x56, "LSR", 2, modeZeroPageX, "LSR"},
	{0x4E, "LSR", 3, modeAbsolute, "LSR"},
	{0x5E, "LSR", 3, modeAbsoluteX, "LSR"},

	{0xEA, "NOP", 1, modeNone, "NOP"},

	{0x09, "ORA", 2, modeImmediate, "ORA"},
	{0x05, "ORA", 2, modeZeroPage, "ORA"},
	{0x15, "ORA", 2, modeZeroPageX, "ORA"},
	{0x0D, "ORA", 3, modeAbsolute, "ORA"},
	{0x1D, "ORA", 3, modeAbsoluteX, "ORA"},
	{0x19, "ORA", 3, modeAbsoluteY, "ORA"},
	{0x01, "ORA", 2, modeIndirectX, "ORA"},
	{0x11, "ORA", 2, modeIndirectY, "ORA"},

	{0xAA, "TAX", 1, modeNone, "TAX"},
	{0x8A, "TXA", 1, modeNone, "TXA"},
	{0xCA, "DEX", 1, modeNone, "DEX"},
	{0xE8, "INX", 1, modeNone, "INX"},
	{0xA8, "TAY", 1, modeNone, "TAY"},
	{0x98, "TYA", 1, modeNone, "TYA"},
	{0x88, "DEY", 1, modeNone, "DEY"},
	{0xC8, "INY", 1, modeNone, "INY"},

	{0x2A, "ROL", 1, modeAccumulator, "ROL"},
	{0x26, "ROL", 2, modeZeroPage, "ROL"},
	{0x36, "ROL", 2, modeZeroPageX, "ROL"},
	{0x2E, "ROL", 3, modeAbsolute, "ROL"},
	{0x3E, "ROL", 3, modeAbsoluteX, "ROL"},

	{0x6A, "ROR", 1, modeAccumulator, "ROR"},
	{0x66, "ROR", 2, modeZeroPage, "ROR"},
	{0x76, "ROR", 2, modeZeroPageX, "ROR"},
	{0x6E, "ROR", 3, modeAbsolute, "ROR"},
	{0x7E, "ROR", 3, modeAbsoluteX, "ROR"},

	{opRTI, "RTI", 1, modeNone, "RTI"},
	{opRTS, "RTS", 1, modeNone, "RTS"},

	{0xE9, "SBC", 2, modeImmediate, "SBC"},
	{0xE5, "SBC", 2, modeZeroPage, "SBC"},
	{0xF5, "SBC", 2, modeZeroPageX, "SBC"},
	{0xED, "SBC", 3, modeAbsolute, "SBC"},
	{0xFD, "SBC", 3, modeAbsoluteX, "SBC"},
	{0xF9, "SBC", 3, modeAbsoluteY, "SBC"},
	{0xE1, "SBC", 2, modeIndirectX, "SBC"},
	{0xF1, "SBC", 2, modeIndirectY, "SBC"},

	{0x47, "SRE", 2, modeZeroPage, "SRE"},
	{0x57, "SRE", 2, modeZeroPageX, "SRE"},
	{0x4F, "SRE", 3, modeAbsolute, "SRE"},
	{0x5F, "SRE", 3, modeAbsoluteX, "SRE"},
	{0x5B, "SRE", 3, modeAbsoluteY, "SRE"},
	{0x43, "SRE", 2, modeIndirectX, "SRE"},
	{0x53, "SRE", 2, modeIndirectY, "SRE"},

	{0x85, "STA", 2, modeZeroPage, "STA"},
	{0x95, "STA", 2, modeZeroPageX, "STA"},
	{0x8D, "STA", 3, modeAbsolute, "STA"},
	{0x9D, "STA", 3, modeAbsoluteX, "STA"},
	{0x99, "STA", 3, modeAbsoluteY, "STA"},
	{0x81, "STA", 2, modeIndirectX, "STA"},
	{0x91, "STA", 2, modeIndirectY, "STA"},

	{0x9A, "TXS", 1, modeNone, "TXS"},
	{0xBA, "TSX", 1, modeNone, "TSX"},
	{0x48, "PHA", 1, modeNone, "PHA"},
	{0x68, "PLA", 1, modeNone, "PLA"},
	{0x08, "PHP", 1, modeNone, "PHP"},
	{0x28, "PLP", 1, modeNone, "PLP"},

	{0x07, "SLO", 2, modeZeroPage, "SLO"},
	{0x17, "SLO", 2, modeZeroPageX, "SLO"},
	{0x0F, "SLO", 3, modeAbsolute, "SLO"},
	{0x1F, "SLO", 3, modeAbsoluteX, "SLO"},
	{0x1B, "SLO", 3, modeAbsoluteY, "SLO"},
	{0x03, "SLO", 2, modeIndirectX, "SLO"},
	{0x13, "SLO", 2, modeIndirectY, "SLO"},

	{0x86, "STX", 2, modeZeroPage, "STX"},
	{0x96, "STX", 2, modeZeroPageY, "STX"},
	{0x8E, "STX", 3, modeAbsolute, "STX"},

	{0x84, "STY", 2, modeZeroPage, "STY"},
	{0x94, "STY", 2, modeZeroPageX, "STY"},
	{0x8C, "STY", 3, modeAbsolute, "STY"},
}

var opcodesByValue map[byte]opcodeDef

func init() {
	opcodesByValue = make(map[byte]opcodeDef, len(opcodes))
	for _, op := range opcodes {
		opcodesByValue[op.Value] = op
	}
}
