package core

// DataType classifies the bytes of a block. ALLOC and PROCESSED are
// separate booleans on Block rather than flag bits packed alongside
// the type.
type DataType int

const (
	DataCode DataType = iota
	DataASCII
	DataByte
	DataWord
	DataLongword
)

func (t DataType) String() string {
	switch t {
	case DataCode:
		return "CODE"
	case DataASCII:
		return "ASCII"
	case DataByte:
		return "BYTE"
	case DataWord:
		return "WORD"
	case DataLongword:
		return "LONGWORD"
	default:
		return "UNKNOWN"
	}
}

// WidthBytes returns the unit width in bytes of a numeric data type.
// It panics for CODE/ASCII, which have no fixed width.
func (t DataType) WidthBytes() int {
	switch t {
	case DataByte:
		return 1
	case DataWord:
		return 2
	case DataLongword:
		return 4
	default:
		panic("WidthBytes called on a non-numeric data type")
	}
}

// CodeLineKind discriminates the entries of a CODE block's line data.
type CodeLineKind int

const (
	// CLInstruction is an instruction entry; discovery stores the
	// decoded Match with it when it creates the entry.
	// Offset/Length live outside Match so the partition invariants
	// hold without consulting it.
	CLInstruction CodeLineKind = iota
	// CLEquLocationRelative is a zero-byte pseudo-entry marking a
	// symbol that falls strictly inside the preceding instruction.
	CLEquLocationRelative
	// CLFullLineComment is a zero-byte pseudo-entry carrying free text.
	CLFullLineComment
)

// CodeLine is one entry of a CODE block's line data.
type CodeLine struct {
	Kind CodeLineKind

	// Offset is block-relative. For CLInstruction it is the
	// instruction's first byte; for CLEquLocationRelative it is the
	// byte the EQU labels.
	Offset int

	// Length is the instruction's byte length for CLInstruction, else
	// 0 (pseudo-entries consume no bytes; the block-length check sums
	// only byte-consuming entries).
	Length int

	// Delta is the "*-N" value an EQU renders (see BlockStore.Split): the
	// distance from the end of the straddled instruction back to
	// Offset.
	Delta int

	// Match is the decoder's result for this instruction, set by the
	// discovery engine when it creates the entry; nothing in the core
	// decodes an entry later. An entry with a nil Match renders empty
	// instruction and operand columns.
	Match *Match

	Comment string
}

// AsciiRange is one NUL/width-bounded run of an ASCII block, rendered
// as a single line.
type AsciiRange struct {
	ByteOffset int
	ByteLength int
}

// UncertainRef is a byte pattern or absolute operand that plausibly
// refers to another address without the system being sure it is
// intended as such (GLOSSARY).
type UncertainRef struct {
	InstrAddress uint64
	Target       uint64
	Rendered     string
}

// Block is the central entity of the partition: a maximal run of bytes
// in one segment treated uniformly.
type Block struct {
	SegmentID     uint32
	SegmentOffset uint32
	Address       uint64
	Length        uint32

	DataType DataType
	Alloc    bool
	// Processed marks that the code-discovery engine has visited this
	// block; no further code pass touches it unless explicitly cleared.
	Processed bool

	// oldDataType is the type just before the most recent retype,
	// consumed by the retype engine's uncertain-reference rebuild.
	oldDataType DataType

	CodeLines   []CodeLine
	AsciiRanges []AsciiRange

	// lineCount is cached; 0 means stale and must be recomputed.
	lineCount int

	// refs caches this block's uncertain references.
	refs []UncertainRef
}

// EndAddress returns the address one past the block's last byte.
func (b *Block) EndAddress() uint64 { return b.Address + uint64(b.Length) }

// Contains reports whether addr falls within [Address, EndAddress).
func (b *Block) Contains(addr uint64) bool {
	return addr >= b.Address && addr < b.EndAddress()
}

// clearLineCount marks the block's cached line count stale.
func (b *Block) clearLineCount() { b.lineCount = 0 }

// clone returns a deep-enough copy for the retype engine's
// build-a-temporary-copy-then-write-back pattern.
func (b *Block) clone() *Block {
	nb := *b
	if b.CodeLines != nil {
		nb.CodeLines = append([]CodeLine(nil), b.CodeLines...)
	}
	if b.AsciiRanges != nil {
		nb.AsciiRanges = append([]AsciiRange(nil), b.AsciiRanges...)
	}
	nb.refs = nil
	return &nb
}
