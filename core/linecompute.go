package core

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Column identifies one rendered field of a line.
type Column int

const (
	LIOffset Column = iota
	LIBytes
	LILabel
	LIInstruction
	LIOperands
	// LIAnnotations is accepted as a column but renders empty for
	// every line; no annotation text is produced.
	LIAnnotations
)

// DisplayConfiguration governs the optional trailing-blank-line
// behavior after trap and branch instructions.
type DisplayConfiguration struct {
	// TrailingLineTrap adds a blank line after a TRAP-keyed instruction.
	TrailingLineTrap bool
	// TrailingLineBranch adds a blank line after a Bcc/DBcc-keyed
	// instruction. Like TrailingLineTrap, the blank is added even after
	// the last entry of a block that ends its segment, where the
	// inter-segment blank then follows it.
	TrailingLineBranch bool
	// ShowAnnotations is not read by the line computer: LIAnnotations
	// renders empty whether it is set or not.
	ShowAnnotations bool
}

// BlockContext is everything about a block's position in the image
// that the line computer needs but cannot derive from the Block alone:
// segment placement, header policy, and the bytes backing it.
type BlockContext struct {
	Segment              *Segment
	HasSegmentHeader     bool
	EndsSegment          bool
	IsLastSegment        bool
	IsFinalBlockOfImage  bool
	PostSegmentAddresses []uint64
	SystemName           string
	InternalData         interface{}
	BigEndian            bool

	// Bytes is the block's raw backing bytes (nil for ALLOC blocks).
	Bytes []byte
}

// LineComputer is the pure per-call block-line computer: given
// block state plus its BlockContext, it produces a line count or
// renders one line's columns. It is parameterized over the decoder,
// loader and symbol table it is allowed to consult, since rendering
// code operands and labels requires them; none of them carry per-call
// state of their own.
type LineComputer struct {
	Decoder Decoder
	Loader  Loader
	Symbols *SymbolTable
	// Refs gates absolute-operand symbol resolution on a recorded
	// referrer relationship (see operandLookup).
	Refs *ReferenceRegistry
	// IsBinary selects which suppression evidence absolute operands
	// need: a recorded referrer (bare binary) or a relocation-marked
	// instruction byte (executable, via Relocatable).
	IsBinary    bool
	Relocatable func(addr uint64) bool
	Cfg         DisplayConfiguration
}

// operandLookup resolves a symbol for an operand of m, the instruction
// at instrAddr. Non-absolute operands (branch displacements, targets
// the decoder does not flag MAF_ABSOLUTE) resolve unconditionally. An
// absolute operand resolves only with evidence the value really is an
// address: for a bare binary, this instruction must be a recorded
// referrer of the target; for an executable, some byte of the
// instruction must lie at a relocation-marked position. An operand
// value that merely happens to equal a symbol's address stays numeric.
func (lc *LineComputer) operandLookup(m *Match, instrAddr uint64) func(uint64) (string, bool) {
	return func(target uint64) (string, bool) {
		name, ok := lc.Symbols.Label(target)
		if !ok {
			return "", false
		}
		if lc.Refs == nil || lc.Decoder == nil {
			return name, true
		}
		if !lc.Decoder.MatchAddresses(m)[target].Has(MAFAbsolute) {
			return name, true
		}

		if lc.IsBinary {
			if lc.Refs.HasReferrer(RefBranch, target, instrAddr) ||
				lc.Refs.HasReferrer(RefData, target, instrAddr) {
				return name, true
			}
			return "", false
		}
		if lc.Relocatable != nil {
			for i := 0; i < m.NumBytes; i++ {
				if lc.Relocatable(instrAddr + uint64(i)) {
					return name, true
				}
			}
		}
		return "", false
	}
}

func headerLineCount(ctx BlockContext) int {
	if ctx.HasSegmentHeader {
		return 2
	}
	return 0
}

func (lc *LineComputer) bodyLineCount(block *Block) int {
	switch block.DataType {
	case DataCode:
		n := 0
		for _, cl := range block.CodeLines {
			n++
			n += lc.codeTrailingBlank(cl)
		}
		return n
	case DataASCII:
		return len(block.AsciiRanges)
	default:
		return numericBodyLines(block.DataType, block.Length, block.Alloc)
	}
}

func (lc *LineComputer) codeTrailingBlank(cl CodeLine) int {
	if cl.Kind != CLInstruction || cl.Match == nil {
		return 0
	}
	key := cl.Match.Key
	if lc.Cfg.TrailingLineTrap && key == "TRAP" {
		return 1
	}
	if lc.Cfg.TrailingLineBranch && (key == "Bcc" || key == "DBcc") {
		return 1
	}
	return 0
}

func numericBodyLines(dt DataType, length uint32, alloc bool) int {
	widths := widthsFor(dt)
	remaining := int(length)
	lines := 0
	for _, w := range widths {
		if remaining <= 0 {
			break
		}
		count := remaining / w
		remaining -= count * w
		if count == 0 {
			continue
		}
		if alloc {
			lines++
		} else {
			lines += count
		}
	}
	return lines
}

func widthsFor(dt DataType) []int {
	switch dt {
	case DataLongword:
		return []int{4, 2, 1}
	case DataWord:
		return []int{2, 1}
	case DataByte:
		return []int{1}
	default:
		return nil
	}
}

// footerLineCounts returns (blank, end, postSegment) per the footer
// rule: a blank "inter-segment" line if the block ends its segment and
// the segment is not the last; otherwise, if this is the final block
// of the whole image and no such blank was emitted, a blank then an
// END line. Post-segment label lines always follow, one per recorded
// address, but only once - at the block that actually ends the
// segment they were registered against.
func footerLineCounts(block *Block, ctx BlockContext) (blank, end, postSegment int) {
	if ctx.EndsSegment && !ctx.IsLastSegment {
		blank = 1
	} else if ctx.IsFinalBlockOfImage {
		blank = 1
		end = 1
	}
	if ctx.EndsSegment {
		postSegment = len(ctx.PostSegmentAddresses)
	}
	return
}

// LineCount computes and caches block's total line count.
func (lc *LineComputer) LineCount(block *Block, ctx BlockContext) int {
	if block.lineCount != 0 {
		return block.lineCount
	}
	blank, end, postSeg := footerLineCounts(block, ctx)
	n := headerLineCount(ctx) + lc.bodyLineCount(block) + blank + end + postSeg
	block.lineCount = n
	return n
}

// RenderColumn renders column col of the lineIdx-th line (0-based,
// relative to the block's own span) of block.
func (lc *LineComputer) RenderColumn(block *Block, ctx BlockContext, lineIdx int, col Column) string {
	h := headerLineCount(ctx)
	if lineIdx < h {
		return lc.renderHeader(ctx, lineIdx, col)
	}
	lineIdx -= h

	b := lc.bodyLineCount(block)
	if lineIdx < b {
		return lc.renderBody(block, ctx, lineIdx, col)
	}
	lineIdx -= b

	blank, end, postSeg := footerLineCounts(block, ctx)
	if blank > 0 {
		if lineIdx == 0 {
			return ""
		}
		lineIdx--
	}
	if end > 0 {
		if lineIdx == 0 {
			if col == LIInstruction {
				return "END"
			}
			return ""
		}
		lineIdx--
	}
	if lineIdx < postSeg {
		return lc.renderPostSegmentLine(ctx.PostSegmentAddresses[lineIdx], col)
	}
	return ""
}

// renderHeader renders the first of the two segment-header lines (the
// second is blank). The loader's "DIRECTIVE REMAINDER" string splits at
// the first space: the directive word lands in the instruction column,
// the remainder - with any {address} placeholder replaced by the
// segment's base address - in the operand column.
func (lc *LineComputer) renderHeader(ctx BlockContext, lineIdx int, col Column) string {
	if lineIdx == 1 || lc.Loader == nil {
		return ""
	}
	header := lc.Loader.SegmentHeader(ctx.SystemName, ctx.Segment.ID, ctx.InternalData)
	directive, remainder := header, ""
	if i := strings.IndexByte(header, ' '); i >= 0 {
		directive, remainder = header[:i], header[i+1:]
	}

	switch col {
	case LIInstruction:
		return directive
	case LIOperands:
		if ctx.Segment != nil {
			remainder = strings.ReplaceAll(remainder, "{address}", fmt.Sprintf("$%X", ctx.Segment.BaseAddress))
		}
		return remainder
	default:
		return ""
	}
}

func (lc *LineComputer) renderPostSegmentLine(addr uint64, col Column) string {
	switch col {
	case LIOffset:
		return fmt.Sprintf("%08X", addr)
	case LILabel:
		if name, ok := lc.Symbols.Label(addr); ok {
			return name
		}
		return ""
	case LIInstruction:
		return "EQU"
	case LIOperands:
		return "*"
	default:
		return ""
	}
}

func (lc *LineComputer) renderBody(block *Block, ctx BlockContext, bodyIdx int, col Column) string {
	switch block.DataType {
	case DataCode:
		return lc.renderCodeLine(block, ctx, bodyIdx, col)
	case DataASCII:
		return lc.renderAsciiLine(block, ctx, bodyIdx, col)
	default:
		return lc.renderNumericLine(block, ctx, bodyIdx, col)
	}
}

// codeLineEntryIndex maps a body row index back to its CodeLines
// index, accounting for codeTrailingBlank's synthetic blank rows.
// blank is true when bodyIdx lands on the synthetic blank row that
// follows entry entryIdx; entryIdx is -1 when bodyIdx is past the
// last row.
func (lc *LineComputer) codeLineEntryIndex(block *Block, bodyIdx int) (entryIdx int, blank bool) {
	row := 0
	for i, cl := range block.CodeLines {
		if row == bodyIdx {
			return i, false
		}
		row++
		extra := lc.codeTrailingBlank(cl)
		if extra > 0 && row == bodyIdx {
			return i, true
		}
		row += extra
	}
	return -1, false
}

func (lc *LineComputer) renderCodeLine(block *Block, ctx BlockContext, bodyIdx int, col Column) string {
	idx, blank := lc.codeLineEntryIndex(block, bodyIdx)
	if idx < 0 {
		return ""
	}
	cl := block.CodeLines[idx]
	addr := block.Address + uint64(cl.Offset)

	if blank {
		return ""
	}

	switch cl.Kind {
	case CLFullLineComment:
		switch col {
		case LIInstruction:
			return cl.Comment
		default:
			return ""
		}
	case CLEquLocationRelative:
		switch col {
		case LIOffset:
			return fmt.Sprintf("%08X", addr)
		case LILabel:
			if name, ok := lc.Symbols.Label(addr); ok {
				return name
			}
			return ""
		case LIInstruction:
			return "EQU"
		case LIOperands:
			return fmt.Sprintf("*-%d", cl.Delta)
		default:
			return ""
		}
	default: // CLInstruction
		switch col {
		case LIOffset:
			return fmt.Sprintf("%08X", addr)
		case LIBytes:
			if ctx.Bytes == nil || cl.Offset+cl.Length > len(ctx.Bytes) {
				return ""
			}
			return hexBytes(ctx.Bytes[cl.Offset : cl.Offset+cl.Length])
		case LILabel:
			if name, ok := lc.Symbols.Label(addr); ok {
				return name
			}
			return ""
		case LIInstruction:
			if cl.Match == nil || lc.Decoder == nil {
				return ""
			}
			return lc.Decoder.InstructionString(cl.Match)
		case LIOperands:
			if cl.Match == nil || lc.Decoder == nil {
				return ""
			}
			return lc.Decoder.OperandString(cl.Match, 0, lc.operandLookup(cl.Match, addr))
		default:
			return ""
		}
	}
}

func (lc *LineComputer) renderAsciiLine(block *Block, ctx BlockContext, bodyIdx int, col Column) string {
	r := block.AsciiRanges[bodyIdx]
	addr := block.Address + uint64(r.ByteOffset)
	switch col {
	case LIOffset:
		return fmt.Sprintf("%08X", addr)
	case LIBytes:
		if ctx.Bytes == nil || r.ByteOffset+r.ByteLength > len(ctx.Bytes) {
			return ""
		}
		return hexBytes(ctx.Bytes[r.ByteOffset : r.ByteOffset+r.ByteLength])
	case LILabel:
		if name, ok := lc.Symbols.Label(addr); ok {
			return name
		}
		return ""
	case LIInstruction:
		return "DC.B"
	case LIOperands:
		if ctx.Bytes == nil {
			return ""
		}
		return RenderAsciiOperand(ctx.Bytes[r.ByteOffset : r.ByteOffset+r.ByteLength])
	default:
		return ""
	}
}

// numericLineForOffset returns the body-row index whose rendered unit
// contains byte offset. It returns as soon as the current width's
// slice contains the address.
func numericLineForOffset(dt DataType, alloc bool, length uint32, offset int) int {
	widths := widthsFor(dt)
	remaining := int(length)
	consumed := 0
	line := 0
	for _, w := range widths {
		if remaining <= 0 {
			break
		}
		count := remaining / w
		remaining -= count * w
		if count == 0 {
			continue
		}
		span := count * w
		if offset < consumed+span {
			if alloc {
				return line
			}
			return line + (offset-consumed)/w
		}
		if alloc {
			line++
		} else {
			line += count
		}
		consumed += span
	}
	return line
}

// numericOffsetForLine is the inverse of numericLineForOffset: given a
// body-row index, the byte offset of its first byte and its width.
func numericOffsetForLine(dt DataType, alloc bool, length uint32, line int) (offset, width int) {
	widths := widthsFor(dt)
	remaining := int(length)
	consumed := 0
	row := 0
	for _, w := range widths {
		if remaining <= 0 {
			break
		}
		count := remaining / w
		remaining -= count * w
		if count == 0 {
			continue
		}
		if alloc {
			if row == line {
				return consumed, w
			}
			row++
		} else {
			if line < row+count {
				return consumed + (line-row)*w, w
			}
			row += count
		}
		consumed += count * w
	}
	return consumed, 1
}

func (lc *LineComputer) renderNumericLine(block *Block, ctx BlockContext, bodyIdx int, col Column) string {
	offset, width := numericOffsetForLine(block.DataType, block.Alloc, block.Length, bodyIdx)
	addr := block.Address + uint64(offset)
	mnemonicWidth := map[int]string{1: "B", 2: "W", 4: "L"}[width]

	switch col {
	case LIOffset:
		return fmt.Sprintf("%08X", addr)
	case LIBytes:
		if block.Alloc || ctx.Bytes == nil || offset+width > len(ctx.Bytes) {
			return ""
		}
		return hexBytes(ctx.Bytes[offset : offset+width])
	case LILabel:
		if name, ok := lc.Symbols.Label(addr); ok {
			return name
		}
		return ""
	case LIInstruction:
		if block.Alloc {
			return "DS." + mnemonicWidth
		}
		return "DC." + mnemonicWidth
	case LIOperands:
		if block.Alloc {
			remaining := int(block.Length) - offset
			return fmt.Sprintf("%d", remaining/width)
		}
		return lc.renderNumericOperand(block, ctx, offset, width)
	default:
		return ""
	}
}

func (lc *LineComputer) renderNumericOperand(block *Block, ctx BlockContext, offset, width int) string {
	if ctx.Bytes == nil || offset+width > len(ctx.Bytes) {
		return ""
	}
	val := readUint(ctx.Bytes[offset:offset+width], ctx.BigEndian)

	if width == 4 && ctx.Segment != nil {
		relOffset := block.SegmentOffset + uint32(offset)
		if ctx.Segment.Relocations[relOffset] {
			if name, ok := lc.Symbols.Label(val); ok {
				return name
			}
		}
	}

	return fmt.Sprintf("$%0*X", width*2, val)
}

func readUint(b []byte, bigEndian bool) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		if bigEndian {
			return uint64(binary.BigEndian.Uint16(b))
		}
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		if bigEndian {
			return uint64(binary.BigEndian.Uint32(b))
		}
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return 0
	}
}

func hexBytes(b []byte) string {
	out := make([]byte, 0, len(b)*2)
	const hex = "0123456789ABCDEF"
	for _, v := range b {
		out = append(out, hex[v>>4], hex[v&0xF])
	}
	return string(out)
}
