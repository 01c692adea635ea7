package core

import (
	"crypto/sha256"
	"sort"

	"github.com/pkg/errors"
)

// Project owns all analysis state for one loaded image: every
// operation in this package takes a *Project rather than touching
// process-wide singletons.
type Project struct {
	store     *BlockStore
	lineIndex *LineIndex
	computer  *LineComputer

	symbols *SymbolTable
	refs    *ReferenceRegistry
	addrs   *AddressRangeTable

	segments     map[uint32]*Segment
	segmentOrder []uint32 // ascending by BaseAddress
	// postSegmentAddrs holds targets that land exactly one past a
	// segment's end and render as EQU lines after it.
	postSegmentAddrs map[uint32][]uint64

	decoder    Decoder
	loader     Loader
	observer   Observer
	cfg        DisplayConfiguration
	systemName string
	bigEndian  bool

	entrypoint uint64
	isBinary   bool // bare binary (referrer-set lookup) vs relocatable executable

	// pendingLabels tracks reference targets seen during discovery that
	// have not yet been assigned a symbol.
	pendingLabels map[uint64]bool

	log Logger

	fileChecksum [32]byte
	fileSize     int64
}

// NewProjectOptions bundles the construction-time knobs NewProject
// needs beyond the segment table itself.
type NewProjectOptions struct {
	Loader       Loader
	Decoder      Decoder
	Observer     Observer
	Cfg          DisplayConfiguration
	SystemName   string
	BigEndian    bool
	Entrypoint   uint64
	IsBinary     bool // true: referrer-set lookup; false: relocation-set lookup
	OriginalData []byte
	Log          Logger
	// WorkState, if non-nil, is polled by the load-time discovery pass
	// so a caller can cancel or watch progress on a large image.
	WorkState *WorkState
}

// NewProject builds a project from a loader-delivered segment table:
// one block per file-backed region plus an ALLOC tail for each
// segment whose total length exceeds its file length, known symbols
// inserted, then the
// code-discovery engine seeded with the entrypoint and every relocated
// address and run to fixpoint.
func NewProject(segments []Segment, opts NewProjectOptions) *Project {
	if opts.Observer == nil {
		opts.Observer = NoopObserver{}
	}
	if opts.Log == nil {
		opts.Log = noopLogger{}
	}

	p := &Project{
		store:            NewBlockStore(),
		symbols:          NewSymbolTable(),
		refs:             NewReferenceRegistry(),
		addrs:            NewAddressRangeTable(segments),
		segments:         make(map[uint32]*Segment, len(segments)),
		postSegmentAddrs: make(map[uint32][]uint64),
		decoder:          opts.Decoder,
		loader:           opts.Loader,
		observer:         opts.Observer,
		cfg:              opts.Cfg,
		systemName:       opts.SystemName,
		bigEndian:        opts.BigEndian,
		entrypoint:       opts.Entrypoint,
		isBinary:         opts.IsBinary,
		pendingLabels:    make(map[uint64]bool),
		log:              opts.Log,
	}
	if len(opts.OriginalData) > 0 {
		p.fileChecksum = sha256.Sum256(opts.OriginalData)
		p.fileSize = int64(len(opts.OriginalData))
	}

	p.symbols.SetInsertCallback(func(addr uint64, name string) {
		p.observer.SymbolInserted(addr, name)
	})

	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].BaseAddress < sorted[j].BaseAddress })

	var seeds []uint64
	for i := range sorted {
		seg := sorted[i]
		p.segments[seg.ID] = &seg
		p.segmentOrder = append(p.segmentOrder, seg.ID)

		if seg.FileLength > 0 {
			p.store.Append(&Block{
				SegmentID: seg.ID,
				Address:   seg.BaseAddress,
				Length:    seg.FileLength,
				DataType:  DataLongword,
				Alloc:     seg.IsBSS,
			})
		}
		if seg.TotalLength > seg.FileLength {
			p.store.Append(&Block{
				SegmentID:     seg.ID,
				SegmentOffset: seg.FileLength,
				Address:       seg.BaseAddress + uint64(seg.FileLength),
				Length:        seg.TotalLength - seg.FileLength,
				DataType:      DataLongword,
				Alloc:         true,
			})
		}

		for addr, name := range seg.Symbols {
			p.symbols.Insert(addr, name, p.addrs.Contains(addr))
		}

		for off := range seg.Relocations {
			seeds = append(seeds, seg.BaseAddress+uint64(off))
		}
	}

	p.computer = &LineComputer{
		Decoder:     p.decoder,
		Loader:      p.loader,
		Symbols:     p.symbols,
		Refs:        p.refs,
		IsBinary:    p.isBinary,
		Relocatable: p.relocatableAt,
		Cfg:         p.cfg,
	}
	p.lineIndex = NewLineIndex(p.store, p.computer)

	seeds = append(seeds, opts.Entrypoint)
	p.runDiscovery(seeds, opts.WorkState)
	p.synthesizeDefaultLabels()

	return p
}

// blockContext derives the BlockContext the line computer needs for
// the block at idx from the project's segment/post-segment state.
func (p *Project) blockContext(idx int) BlockContext {
	block := p.store.At(idx)
	seg := p.segments[block.SegmentID]

	endsSegment := seg != nil && block.EndAddress() == seg.BaseAddress+uint64(seg.TotalLength)
	isLastSegment := len(p.segmentOrder) > 0 && p.segmentOrder[len(p.segmentOrder)-1] == block.SegmentID

	ctx := BlockContext{
		Segment:             seg,
		HasSegmentHeader:    block.SegmentOffset == 0 && p.loader != nil && p.loader.HasSegmentHeaders(p.systemName),
		EndsSegment:         endsSegment,
		IsLastSegment:       isLastSegment,
		IsFinalBlockOfImage: idx == p.store.Len()-1,
		SystemName:          p.systemName,
		BigEndian:           p.bigEndian,
	}
	if seg != nil {
		ctx.InternalData = seg.InternalData
		if !block.Alloc && seg.Data != nil {
			start := int(block.SegmentOffset)
			end := start + int(block.Length)
			if end <= len(seg.Data) {
				ctx.Bytes = seg.Data[start:end]
			}
		}
	}
	if endsSegment {
		ctx.PostSegmentAddresses = p.postSegmentAddrs[block.SegmentID]
	}
	return ctx
}

func (p *Project) contexts(idx int) BlockContext { return p.blockContext(idx) }

// relocatableAt reports whether the byte at addr sits at a
// relocation-marked position in its segment.
func (p *Project) relocatableAt(addr uint64) bool {
	block, _, ok := p.store.FindByAddress(addr)
	if !ok || !block.Contains(addr) {
		return false
	}
	seg := p.segments[block.SegmentID]
	if seg == nil || seg.Relocations == nil {
		return false
	}
	return seg.Relocations[block.SegmentOffset+uint32(addr-block.Address)]
}

// recomputeAll forces the line index up to date using the project's own
// context function.
func (p *Project) recomputeAll() { p.lineIndex.Recompute(p.contexts) }

// FileLineCount returns the total number of rendered lines.
func (p *Project) FileLineCount() int { return p.lineIndex.TotalLines(p.contexts) }

// EntrypointAddress returns the address discovery was originally
// seeded from.
func (p *Project) EntrypointAddress() uint64 { return p.entrypoint }

// AddressForLine returns the address of the first byte rendered at
// line n, or ok=false if n is out of range.
func (p *Project) AddressForLine(n int) (addr uint64, ok bool) {
	p.recomputeAll()
	block, idx, found := p.store.FindByLine(n)
	if !found {
		return 0, false
	}
	localLine := n - p.store.Line0(idx)
	return p.addressForBodyLine(block, localLine), true
}

// addressForBodyLine finds the byte address corresponding to a
// block-relative line index, accounting for header/body/footer layout
// the way RenderColumn does.
func (p *Project) addressForBodyLine(block *Block, localLine int) uint64 {
	ctx := p.blockContext(p.mustIndexOf(block))
	h := 0
	if ctx.HasSegmentHeader {
		h = 2
	}
	if localLine < h {
		return block.Address
	}
	localLine -= h

	switch block.DataType {
	case DataCode:
		idx, _ := p.computer.codeLineEntryIndex(block, localLine)
		if idx < 0 {
			return block.Address
		}
		return block.Address + uint64(block.CodeLines[idx].Offset)
	case DataASCII:
		if localLine >= 0 && localLine < len(block.AsciiRanges) {
			return block.Address + uint64(block.AsciiRanges[localLine].ByteOffset)
		}
		return block.Address
	default:
		offset, _ := numericOffsetForLine(block.DataType, block.Alloc, block.Length, localLine)
		return block.Address + uint64(offset)
	}
}

func (p *Project) mustIndexOf(block *Block) int {
	_, idx, ok := p.store.FindByAddress(block.Address)
	if !ok {
		return 0
	}
	return idx
}

// LineForAddress returns the line number an address renders at. An
// address inside an instruction maps to the same line as the start of
// that instruction.
func (p *Project) LineForAddress(addr uint64) (int, bool) {
	p.recomputeAll()
	block, idx, ok := p.store.FindByAddress(addr)
	if !ok {
		return 0, false
	}
	offset := int(addr - block.Address)
	ctx := p.blockContext(idx)
	h := 0
	if ctx.HasSegmentHeader {
		h = 2
	}

	var local int
	switch block.DataType {
	case DataCode:
		local = codeLocalLineForOffset(block, offset, p.computer)
	case DataASCII:
		local = asciiLocalLineForOffset(block, offset)
	default:
		local = numericLineForOffset(block.DataType, block.Alloc, block.Length, offset)
	}
	return p.store.Line0(idx) + h + local, true
}

func codeLocalLineForOffset(block *Block, offset int, lc *LineComputer) int {
	// An EQU pseudo-entry at exactly this offset wins over the
	// instruction that straddles it, so a labeled mid-instruction
	// address maps to its own EQU line.
	row := 0
	for _, cl := range block.CodeLines {
		if cl.Kind == CLEquLocationRelative && cl.Offset == offset {
			return row
		}
		row++
		row += lc.codeTrailingBlank(cl)
	}

	row = 0
	for _, cl := range block.CodeLines {
		start := cl.Offset
		end := cl.Offset + cl.Length
		if offset >= start && (offset < end || (cl.Length == 0 && offset == start)) {
			return row
		}
		row++
		row += lc.codeTrailingBlank(cl)
	}
	return 0
}

func asciiLocalLineForOffset(block *Block, offset int) int {
	for i, r := range block.AsciiRanges {
		if offset >= r.ByteOffset && offset < r.ByteOffset+r.ByteLength {
			return i
		}
	}
	return 0
}

// FileLine renders column col of line n.
func (p *Project) FileLine(n int, col Column) (string, bool) {
	p.recomputeAll()
	block, idx, ok := p.store.FindByLine(n)
	if !ok {
		return "", false
	}
	local := n - p.store.Line0(idx)
	ctx := p.blockContext(idx)
	return p.computer.RenderColumn(block, ctx, local, col), true
}

// ReferencedSymbolAddressesForLine returns the addresses a given line's
// operands reference (at most one for the line-oriented model here),
// useful for a UI that wants to let the user navigate to a target.
func (p *Project) ReferencedSymbolAddressesForLine(n int) []uint64 {
	addr, ok := p.AddressForLine(n)
	if !ok {
		return nil
	}
	block, _, ok := p.store.FindByAddress(addr)
	if !ok || block.DataType != DataCode || p.decoder == nil {
		return nil
	}
	for _, cl := range block.CodeLines {
		if cl.Kind == CLInstruction && block.Address+uint64(cl.Offset) == addr && cl.Match != nil {
			out := make([]uint64, 0, len(p.decoder.MatchAddresses(cl.Match)))
			for target := range p.decoder.MatchAddresses(cl.Match) {
				out = append(out, target)
			}
			return out
		}
	}
	return nil
}

// UncertainCodeReferences returns every uncertain reference recorded
// against CODE blocks, across the whole partition.
func (p *Project) UncertainCodeReferences() []UncertainRef {
	return p.collectRefs(DataCode)
}

// UncertainDataReferences returns every uncertain reference recorded
// against non-CODE blocks.
func (p *Project) UncertainDataReferences() []UncertainRef {
	var out []UncertainRef
	for i := 0; i < p.store.Len(); i++ {
		b := p.store.At(i)
		if b.DataType != DataCode {
			out = append(out, b.refs...)
		}
	}
	return out
}

func (p *Project) collectRefs(dt DataType) []UncertainRef {
	var out []UncertainRef
	for i := 0; i < p.store.Len(); i++ {
		b := p.store.At(i)
		if b.DataType == dt {
			out = append(out, b.refs...)
		}
	}
	return out
}

// SetSymbol installs a user-chosen label at addr, rejecting unknown
// addresses.
func (p *Project) SetSymbol(addr uint64, name string) error {
	if !p.symbols.Insert(addr, name, p.addrs.Contains(addr)) {
		return errors.Wrapf(ErrUnknownAddress, "set symbol %q at %08X", name, addr)
	}
	return nil
}

// ReferringAddresses returns the union of branch and data referrers
// recorded against target.
func (p *Project) ReferringAddresses(target uint64) []uint64 {
	return p.refs.AllReferrers(target)
}

// DataTypeAt returns the data type of the block containing addr
// without going through the line API.
func (p *Project) DataTypeAt(addr uint64) (DataType, bool) {
	block, _, ok := p.store.FindByAddress(addr)
	if !ok {
		return 0, false
	}
	return block.DataType, true
}

// NextDataLine steps from the block containing line forward (dir>0)
// or backward (dir<0) and returns the first line of the nearest other
// block that is not CODE. Returns ok=false if none exists in that
// direction.
func (p *Project) NextDataLine(line int, dir int) (int, bool) {
	p.recomputeAll()
	n := p.store.Len()
	_, idx, ok := p.store.FindByLine(line)
	if !ok {
		return 0, false
	}
	for i := idx; i >= 0 && i < n; i += sign(dir) {
		b := p.store.At(i)
		if b.DataType != DataCode {
			if i == idx {
				continue
			}
			return p.store.Line0(i), true
		}
	}
	return 0, false
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}

// SuspectedCodeBlocks is a best-effort, never-mutating heuristic:
// it flags non-ALLOC LONGWORD blocks whose bytes plausibly still
// contain undiscovered code, for a UI hint dock. A block is flagged
// when the decoder can walk it from its first byte without a decode
// failure until it reaches a final instruction or the block's end;
// bytes after a final instruction are not examined.
func (p *Project) SuspectedCodeBlocks() []uint64 {
	if p.decoder == nil {
		return nil
	}
	var out []uint64
	for i := 0; i < p.store.Len(); i++ {
		b := p.store.At(i)
		if b.DataType != DataLongword || b.Alloc {
			continue
		}
		ctx := p.blockContext(i)
		if ctx.Bytes == nil || len(ctx.Bytes) == 0 {
			continue
		}
		if looksLikeCode(p.decoder, ctx.Bytes, b.Address) {
			out = append(out, b.Address)
		}
	}
	return out
}

func looksLikeCode(d Decoder, data []byte, base uint64) bool {
	offset := 0
	matched := 0
	for offset < len(data) {
		m, newOffset, ok := d.DisassembleOneLine(data, offset, base+uint64(offset))
		if !ok || newOffset <= offset {
			return false
		}
		matched++
		offset = newOffset
		if d.IsFinalInstruction(m) {
			break
		}
	}
	return matched > 0
}

// FileChecksum returns the SHA-256 of the bytes the project was loaded
// from.
func (p *Project) FileChecksum() [32]byte { return p.fileChecksum }

// FileSize returns the byte length of the file the project was loaded
// from.
func (p *Project) FileSize() int64 { return p.fileSize }

// VerifyAgainstBytes checks data against the checksum/size recorded at
// load time, for a persistence layer reloading a saved project against
// a possibly-changed copy of the original file.
func (p *Project) VerifyAgainstBytes(data []byte) error {
	if int64(len(data)) != p.fileSize {
		return errors.Errorf("file size mismatch: have %d, want %d", len(data), p.fileSize)
	}
	if sha256.Sum256(data) != p.fileChecksum {
		return errors.New("file checksum mismatch")
	}
	return nil
}

// Symbols exposes the project's symbol table for callers that need the
// case-insensitive label->address back-lookup directly.
func (p *Project) Symbols() *SymbolTable { return p.symbols }
