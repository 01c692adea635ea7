package core

import "sort"

// BlockStore holds the ordered, gap-free partition of the segment
// address space into Blocks. blocks/blockAddresses/blockLine0 are kept
// as parallel arrays purely so bisection is cheap;
// callers never see the arrays directly.
type BlockStore struct {
	blocks         []*Block
	blockAddresses []uint64
	blockLine0     []int

	// dirtyCursor is the smallest index from which cumulative line
	// numbers are stale. Mutating operations only ever push this
	// earlier; recompute (lineindex.go) is the sole consumer.
	dirtyCursor int
}

// NewBlockStore builds an empty store. Blocks are added with Insert.
func NewBlockStore() *BlockStore {
	return &BlockStore{dirtyCursor: 0}
}

// Len returns the number of blocks.
func (s *BlockStore) Len() int { return len(s.blocks) }

// At returns the block at index idx.
func (s *BlockStore) At(idx int) *Block { return s.blocks[idx] }

// DirtyCursor returns the current recompute cursor (for lineindex.go).
func (s *BlockStore) DirtyCursor() int { return s.dirtyCursor }

// SetDirtyCursor pushes the recompute cursor no later than idx.
func (s *BlockStore) SetDirtyCursor(idx int) {
	if idx < s.dirtyCursor {
		s.dirtyCursor = idx
	}
}

// SetLine0 is used only by the line-index recompute pass.
func (s *BlockStore) SetLine0(idx, value int) { s.blockLine0[idx] = value }

// Line0 returns the first line number of block idx. Callers needing an
// up-to-date value must have already triggered a recompute.
func (s *BlockStore) Line0(idx int) int { return s.blockLine0[idx] }

// ClearDirtyCursor marks the index range fully recomputed.
func (s *BlockStore) ClearDirtyCursor(n int) { s.dirtyCursor = n }

// FindByAddress bisects on block start addresses and returns the
// right-most block whose address is <= addr. That block contains addr
// only if addr is below its EndAddress; callers that need containment
// check Block.Contains. ok is false if the store is empty or addr lies
// below the first block's address.
func (s *BlockStore) FindByAddress(addr uint64) (block *Block, idx int, ok bool) {
	if len(s.blockAddresses) == 0 {
		return nil, -1, false
	}
	i := sort.Search(len(s.blockAddresses), func(i int) bool { return s.blockAddresses[i] > addr })
	i--
	if i < 0 {
		return nil, -1, false
	}
	return s.blocks[i], i, true
}

// FindByLine bisects on first-line numbers. Callers must have run the
// line index recompute first; this method does not do it itself so
// that store.go stays free of the lineindex/linecompute dependency.
func (s *BlockStore) FindByLine(n int) (block *Block, idx int, ok bool) {
	if len(s.blockLine0) == 0 {
		return nil, -1, false
	}
	i := sort.Search(len(s.blockLine0), func(i int) bool { return s.blockLine0[i] > n })
	i--
	if i < 0 {
		return nil, -1, false
	}
	return s.blocks[i], i, true
}

// Insert places block at idx, shifting both parallel arrays, and marks
// the line index dirty from idx onward.
func (s *BlockStore) Insert(idx int, block *Block) {
	s.blocks = append(s.blocks, nil)
	copy(s.blocks[idx+1:], s.blocks[idx:])
	s.blocks[idx] = block

	s.blockAddresses = append(s.blockAddresses, 0)
	copy(s.blockAddresses[idx+1:], s.blockAddresses[idx:])
	s.blockAddresses[idx] = block.Address

	s.blockLine0 = append(s.blockLine0, 0)
	copy(s.blockLine0[idx+1:], s.blockLine0[idx:])
	s.blockLine0[idx] = 0

	s.SetDirtyCursor(idx)
}

// Append adds block at the end of the store (used while loading).
func (s *BlockStore) Append(block *Block) {
	s.Insert(len(s.blocks), block)
}

// Split carves the block containing addr into two at addr. For a CODE
// block whose instructions straddle addr, it returns ErrSplitMidInstruction
// unless claimMidInstruction is set, in which case a zero-byte
// CLEquLocationRelative entry is inserted into the existing block and no
// split actually happens - the caller only wanted a label point.
//
// On success (including the ErrSplitExisting case) it returns the block
// now starting at addr and its index; in the claimed mid-instruction
// case it returns the unsplit block that gained the EQU entry.
func (s *BlockStore) Split(addr uint64, claimMidInstruction bool) (*Block, int, error) {
	block, idx, ok := s.FindByAddress(addr)
	if !ok {
		return nil, -1, ErrSplitOutOfBounds
	}
	if addr == block.Address {
		return block, idx, ErrSplitExisting
	}
	if addr < block.Address || addr >= block.EndAddress() {
		return nil, -1, ErrSplitOutOfBounds
	}

	offset := int(addr - block.Address)

	if block.DataType == DataCode {
		straddleIdx, delta, straddles := findStraddlingInstruction(block, offset)
		if straddles {
			if !claimMidInstruction {
				return nil, -1, ErrSplitMidInstruction
			}
			eq := CodeLine{Kind: CLEquLocationRelative, Offset: offset, Delta: delta}
			// Insert just after the instruction it straddles so
			// rendering order still follows address order.
			cl := block.CodeLines
			out := make([]CodeLine, 0, len(cl)+1)
			out = append(out, cl[:straddleIdx+1]...)
			out = append(out, eq)
			out = append(out, cl[straddleIdx+1:]...)
			block.CodeLines = out
			block.clearLineCount()
			s.SetDirtyCursor(idx + 1)
			return block, idx, nil
		}
	}

	newBlock := &Block{
		SegmentID:     block.SegmentID,
		SegmentOffset: block.SegmentOffset + uint32(offset),
		Address:       addr,
		Length:        block.Length - uint32(offset),
		DataType:      block.DataType,
		Alloc:         block.Alloc,
		Processed:     block.Processed,
	}
	block.Length = uint32(offset)

	switch block.DataType {
	case DataCode:
		var keep, moved []CodeLine
		for _, cl := range block.CodeLines {
			if cl.Offset < offset {
				keep = append(keep, cl)
			} else {
				cl.Offset -= offset
				moved = append(moved, cl)
			}
		}
		block.CodeLines = keep
		newBlock.CodeLines = moved
	case DataASCII:
		var keep, moved []AsciiRange
		for _, r := range block.AsciiRanges {
			if r.ByteOffset < offset {
				keep = append(keep, r)
			} else {
				r.ByteOffset -= offset
				moved = append(moved, r)
			}
		}
		block.AsciiRanges = keep
		newBlock.AsciiRanges = moved
	}

	var keepRefs, movedRefs []UncertainRef
	for _, r := range block.refs {
		if r.Target >= addr {
			movedRefs = append(movedRefs, r)
		} else {
			keepRefs = append(keepRefs, r)
		}
	}
	block.refs = keepRefs
	newBlock.refs = movedRefs

	block.clearLineCount()
	newBlock.clearLineCount()

	s.Insert(idx+1, newBlock)
	return newBlock, idx + 1, nil
}

// findStraddlingInstruction walks a CODE block's instruction entries
// summing offsets, looking for the one whose byte range contains
// offset strictly inside it (not at its start). delta is the distance
// from the end of that instruction back to offset, i.e. the value an
// EQU would render as "*-delta".
func findStraddlingInstruction(block *Block, offset int) (entryIdx int, delta int, straddles bool) {
	for i, cl := range block.CodeLines {
		if cl.Kind != CLInstruction || cl.Length == 0 {
			continue
		}
		end := cl.Offset + cl.Length
		if offset > cl.Offset && offset < end {
			return i, end - offset, true
		}
	}
	return -1, 0, false
}
