package mos6502

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disasmcore/core"
)

func TestDisassembleOneLine(t *testing.T) {
	d := New()

	// LDA #$41
	m, next, ok := d.DisassembleOneLine([]byte{0xA9, 0x41}, 0, 0x2000)
	require.True(t, ok)
	assert.Equal(t, 2, next)
	assert.Equal(t, 2, m.NumBytes)
	assert.Equal(t, "LDA", d.InstructionString(m))
	assert.Equal(t, "#$41", d.OperandString(m, 0, noSymbols))

	// STA $2000
	m, next, ok = d.DisassembleOneLine([]byte{0x8D, 0x00, 0x20}, 0, 0x2010)
	require.True(t, ok)
	assert.Equal(t, 3, next)
	assert.Equal(t, "STA", d.InstructionString(m))
	assert.Equal(t, "$2000", d.OperandString(m, 0, noSymbols))
}

func TestDisassembleOneLineTruncated(t *testing.T) {
	d := New()
	// Absolute STA needs three bytes; only two are available.
	_, _, ok := d.DisassembleOneLine([]byte{0x8D, 0x00}, 0, 0x2000)
	assert.False(t, ok)

	_, _, ok = d.DisassembleOneLine([]byte{0xA9}, 1, 0x2000)
	assert.False(t, ok)
}

func TestDisassembleAsData(t *testing.T) {
	d := New()
	assert.Equal(t, 1, d.DisassembleAsData([]byte{0xFF}, 0))
	assert.Equal(t, 0, d.DisassembleAsData([]byte{0xFF}, 1))
}

func TestIsFinalInstruction(t *testing.T) {
	d := New()
	tests := []struct {
		bytes []byte
		want  bool
	}{
		{[]byte{0x60}, true},             // RTS
		{[]byte{0x40}, true},             // RTI
		{[]byte{0x4C, 0x00, 0x20}, true}, // JMP
		{[]byte{0x00}, true},             // BRK
		{[]byte{0xEA}, false},            // NOP
		{[]byte{0x20, 0x00, 0x20}, false}, // JSR falls through
	}
	for _, tt := range tests {
		m, _, ok := d.DisassembleOneLine(tt.bytes, 0, 0x2000)
		require.True(t, ok)
		assert.Equal(t, tt.want, d.IsFinalInstruction(m), "opcode %02X", tt.bytes[0])
	}
}

func TestMatchAddresses(t *testing.T) {
	d := New()

	// JSR $FFEE: code target.
	m, _, _ := d.DisassembleOneLine([]byte{0x20, 0xEE, 0xFF}, 0, 0x2000)
	assert.Equal(t, map[uint64]core.MatchFlag{0xFFEE: core.MAFCode}, d.MatchAddresses(m))

	// BNE -2: branches back to its own address.
	m, _, _ = d.DisassembleOneLine([]byte{0xD0, 0xFE}, 0, 0x2000)
	assert.Equal(t, map[uint64]core.MatchFlag{0x2000: core.MAFCode}, d.MatchAddresses(m))

	// BEQ +4 at $2000 lands at $2006.
	m, _, _ = d.DisassembleOneLine([]byte{0xF0, 0x04}, 0, 0x2000)
	assert.Equal(t, map[uint64]core.MatchFlag{0x2006: core.MAFCode}, d.MatchAddresses(m))

	// LDA $3000: absolute data reference.
	m, _, _ = d.DisassembleOneLine([]byte{0xAD, 0x00, 0x30}, 0, 0x2000)
	assert.Equal(t, map[uint64]core.MatchFlag{0x3000: core.MAFAbsolute}, d.MatchAddresses(m))

	// JMP ($0200): indirect target is unknowable statically.
	m, _, _ = d.DisassembleOneLine([]byte{0x6C, 0x00, 0x02}, 0, 0x2000)
	assert.Nil(t, d.MatchAddresses(m))

	// Immediate operands carry no address.
	m, _, _ = d.DisassembleOneLine([]byte{0xA9, 0x41}, 0, 0x2000)
	assert.Nil(t, d.MatchAddresses(m))
}

func TestOperandStringSymbols(t *testing.T) {
	d := New()
	lookup := func(addr uint64) (string, bool) {
		if addr == 0xFFEE {
			return "OSWRCH", true
		}
		return "", false
	}

	m, _, _ := d.DisassembleOneLine([]byte{0x20, 0xEE, 0xFF}, 0, 0x2000)
	assert.Equal(t, "OSWRCH", d.OperandString(m, 0, lookup))

	m, _, _ = d.DisassembleOneLine([]byte{0x6C, 0xEE, 0xFF}, 0, 0x2000)
	assert.Equal(t, "(OSWRCH)", d.OperandString(m, 0, lookup))

	m, _, _ = d.DisassembleOneLine([]byte{0xBD, 0x00, 0x30}, 0, 0x2000)
	assert.Equal(t, "$3000,X", d.OperandString(m, 0, lookup))

	// Branch operand renders the resolved target.
	m, _, _ = d.DisassembleOneLine([]byte{0xD0, 0x02}, 0, 0x2000)
	assert.Equal(t, "$2004", d.OperandString(m, 0, lookup))
}

func TestOperandStringModes(t *testing.T) {
	d := New()
	tests := []struct {
		bytes []byte
		want  string
	}{
		{[]byte{0x0A}, "A"},               // ASL accumulator
		{[]byte{0xEA}, ""},                // NOP implied
		{[]byte{0xA5, 0x10}, "$10"},       // zero page
		{[]byte{0xB5, 0x10}, "$10,X"},     // zero page,X
		{[]byte{0xB6, 0x10}, "$10,Y"},     // zero page,Y
		{[]byte{0xA1, 0x10}, "($10,X)"},   // (indirect,X)
		{[]byte{0xB1, 0x10}, "($10),Y"},   // (indirect),Y
		{[]byte{0xB9, 0x00, 0x30}, "$3000,Y"},
	}
	for _, tt := range tests {
		m, _, ok := d.DisassembleOneLine(tt.bytes, 0, 0x2000)
		require.True(t, ok, "opcode %02X", tt.bytes[0])
		assert.Equal(t, tt.want, d.OperandString(m, 0, noSymbols), "opcode %02X", tt.bytes[0])
	}
}

func noSymbols(addr uint64) (string, bool) { return "", false }
