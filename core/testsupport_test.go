package core

import "fmt"

// testDecoder is a tiny synthetic architecture for exercising the core
// without dragging a real instruction set into these tests. Opcodes:
//
//	0xA0  4 bytes  RET   final instruction
//	0x10  4 bytes  BRA   code target in bytes 1..2 (little endian)
//	0x50  4 bytes  Bcc   code target in bytes 1..2
//	0x40  4 bytes  TRAP
//	0x30  4 bytes  LEA   absolute data target in bytes 1..2
//	0x01  1 byte   NOP
//
// Any other byte fails to decode; DisassembleAsData skips one byte,
// except 0xFF which it gives up on entirely.
type testDecoder struct{}

func (testDecoder) DisassembleOneLine(data []byte, offset int, pc uint64) (*Match, int, bool) {
	if offset < 0 || offset >= len(data) {
		return nil, offset, false
	}
	var length int
	var key string
	switch data[offset] {
	case 0xA0:
		length, key = 4, "RET"
	case 0x10:
		length, key = 4, "BRA"
	case 0x50:
		length, key = 4, "Bcc"
	case 0x40:
		length, key = 4, "TRAP"
	case 0x30:
		length, key = 4, "LEA"
	case 0x01:
		length, key = 1, "NOP"
	default:
		return nil, offset, false
	}
	if offset+length > len(data) {
		return nil, offset, false
	}

	m := &Match{Key: key, NumBytes: length, PC: pc, Vars: map[string]int64{}}
	m.Opcodes[0] = uint16(data[offset])
	if length == 4 {
		m.Vars["target"] = int64(data[offset+1]) | int64(data[offset+2])<<8
	}
	return m, offset + length, true
}

func (testDecoder) DisassembleAsData(data []byte, offset int) int {
	if offset < 0 || offset >= len(data) || data[offset] == 0xFF {
		return 0
	}
	return 1
}

func (testDecoder) IsFinalInstruction(m *Match) bool { return m.Key == "RET" }

func (testDecoder) MatchAddresses(m *Match) map[uint64]MatchFlag {
	target := uint64(m.Vars["target"])
	switch m.Key {
	case "BRA", "Bcc":
		return map[uint64]MatchFlag{target: MAFCode}
	case "LEA":
		return map[uint64]MatchFlag{target: MAFAbsolute}
	default:
		return nil
	}
}

func (testDecoder) InstructionString(m *Match) string { return m.Key }

func (testDecoder) OperandString(m *Match, operand int, lookup func(uint64) (string, bool)) string {
	switch m.Key {
	case "BRA", "Bcc", "LEA":
		target := uint64(m.Vars["target"])
		if name, found := lookup(target); found {
			return name
		}
		return fmt.Sprintf("$%04X", target)
	default:
		return ""
	}
}

// testLoader renders a fixed two-word section directive when headers
// are enabled.
type testLoader struct{ headers bool }

func (l testLoader) HasSegmentHeaders(systemName string) bool { return l.headers }

func (l testLoader) SegmentHeader(systemName string, segmentID uint32, internalData interface{}) string {
	return fmt.Sprintf("SECTION seg%d,{address}", segmentID)
}

// recordingObserver captures every hook invocation for assertions.
type recordingObserver struct {
	symbols   []string
	pres      []LineChangeEvent
	posts     []LineChangeEvent
	refEvents []RetypeEvent
}

func (o *recordingObserver) SymbolInserted(addr uint64, name string)   { o.symbols = append(o.symbols, name) }
func (o *recordingObserver) PreLineChange(ev LineChangeEvent)          { o.pres = append(o.pres, ev) }
func (o *recordingObserver) PostLineChange(ev LineChangeEvent)         { o.posts = append(o.posts, ev) }
func (o *recordingObserver) UncertainReferencesChanged(ev RetypeEvent) { o.refEvents = append(o.refEvents, ev) }

const testBase = 0x1000

// newTestProject loads a single segment at testBase and runs discovery
// from entry. Pass entry 0 to keep discovery away from the bytes.
func newTestProject(data []byte, entry uint64, headers bool, symbols map[uint64]string) *Project {
	seg := Segment{
		ID:          1,
		BaseAddress: testBase,
		FileLength:  uint32(len(data)),
		TotalLength: uint32(len(data)),
		Data:        data,
		Symbols:     symbols,
	}
	return NewProject([]Segment{seg}, NewProjectOptions{
		Loader:     testLoader{headers: headers},
		Decoder:    testDecoder{},
		SystemName: "test",
		Entrypoint: entry,
		IsBinary:   true,
	})
}

// checkPartition asserts the block-store invariants hold: sorted,
// gap-free within a segment, positive lengths, parallel arrays in sync.
func checkPartition(t interface {
	Errorf(format string, args ...interface{})
	Helper()
}, p *Project) {
	t.Helper()
	s := p.store
	for i := 0; i < s.Len(); i++ {
		b := s.At(i)
		if b.Length == 0 {
			t.Errorf("block %d at %08X has zero length", i, b.Address)
		}
		if s.blockAddresses[i] != b.Address {
			t.Errorf("parallel address array out of sync at %d", i)
		}
		if i == 0 {
			continue
		}
		prev := s.At(i - 1)
		if prev.Address >= b.Address {
			t.Errorf("blocks %d/%d out of order", i-1, i)
		}
		if prev.SegmentID == b.SegmentID && prev.EndAddress() != b.Address {
			t.Errorf("gap between blocks %d and %d: %08X != %08X", i-1, i, prev.EndAddress(), b.Address)
		}
	}
}
