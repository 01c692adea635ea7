package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numericStore(length uint32) *BlockStore {
	s := NewBlockStore()
	s.Append(&Block{SegmentID: 1, Address: testBase, Length: length, DataType: DataLongword})
	return s
}

func TestFindByAddress(t *testing.T) {
	s := NewBlockStore()
	s.Append(&Block{Address: 0x1000, Length: 8})
	s.Append(&Block{Address: 0x1008, Length: 8})

	b, idx, ok := s.FindByAddress(0x1000)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, uint64(0x1000), b.Address)

	b, idx, ok = s.FindByAddress(0x100B)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, uint64(0x1008), b.Address)

	_, _, ok = s.FindByAddress(0x0FFF)
	assert.False(t, ok)
}

func TestSplitAtExistingBoundary(t *testing.T) {
	s := numericStore(16)
	b, idx, err := s.Split(testBase, false)
	assert.Equal(t, ErrSplitExisting, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, uint64(testBase), b.Address)
	assert.Equal(t, 1, s.Len())
}

func TestSplitOutOfBounds(t *testing.T) {
	s := numericStore(16)
	_, _, err := s.Split(testBase+0x100, false)
	assert.Equal(t, ErrSplitOutOfBounds, err)
}

func TestSplitDataBlock(t *testing.T) {
	s := numericStore(16)
	nb, idx, err := s.Split(testBase+6, false)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, uint64(testBase+6), nb.Address)
	assert.Equal(t, uint32(10), nb.Length)
	assert.Equal(t, uint32(6), nb.SegmentOffset)

	first := s.At(0)
	assert.Equal(t, uint32(6), first.Length)
	assert.Equal(t, first.EndAddress(), nb.Address)
	assert.Equal(t, first.DataType, nb.DataType)
}

func TestSplitInheritsFlags(t *testing.T) {
	s := NewBlockStore()
	s.Append(&Block{Address: testBase, Length: 8, DataType: DataWord, Alloc: true, Processed: true})
	nb, _, err := s.Split(testBase+4, false)
	require.NoError(t, err)
	assert.Equal(t, DataWord, nb.DataType)
	assert.True(t, nb.Alloc)
	assert.True(t, nb.Processed)
}

func codeStore() *BlockStore {
	s := NewBlockStore()
	s.Append(&Block{
		Address:  testBase,
		Length:   8,
		DataType: DataCode,
		CodeLines: []CodeLine{
			{Kind: CLInstruction, Offset: 0, Length: 4},
			{Kind: CLInstruction, Offset: 4, Length: 4},
		},
	})
	return s
}

func TestSplitCodeAtInstructionBoundary(t *testing.T) {
	s := codeStore()
	nb, _, err := s.Split(testBase+4, false)
	require.NoError(t, err)
	require.Len(t, nb.CodeLines, 1)
	assert.Equal(t, 0, nb.CodeLines[0].Offset) // rebased
	assert.Len(t, s.At(0).CodeLines, 1)
}

func TestSplitCodeMidInstruction(t *testing.T) {
	s := codeStore()
	_, _, err := s.Split(testBase+6, false)
	assert.Equal(t, ErrSplitMidInstruction, err)
	assert.Equal(t, 1, s.Len())
}

func TestSplitCodeMidInstructionClaimed(t *testing.T) {
	s := codeStore()
	b, _, err := s.Split(testBase+6, true)
	require.NoError(t, err)
	// No actual split: the block just gains an EQU pseudo-entry after
	// the straddled instruction.
	assert.Equal(t, 1, s.Len())
	require.Len(t, b.CodeLines, 3)
	eq := b.CodeLines[2]
	assert.Equal(t, CLEquLocationRelative, eq.Kind)
	assert.Equal(t, 6, eq.Offset)
	assert.Equal(t, 2, eq.Delta)
	assert.Equal(t, 0, eq.Length)
}

func TestSplitPartitionsRefs(t *testing.T) {
	s := numericStore(16)
	s.At(0).refs = []UncertainRef{
		{InstrAddress: testBase, Target: testBase + 2},
		{InstrAddress: testBase + 4, Target: testBase + 12},
	}
	nb, _, err := s.Split(testBase+8, false)
	require.NoError(t, err)
	require.Len(t, s.At(0).refs, 1)
	assert.Equal(t, uint64(testBase+2), s.At(0).refs[0].Target)
	require.Len(t, nb.refs, 1)
	assert.Equal(t, uint64(testBase+12), nb.refs[0].Target)
}

func TestInsertMarksLineIndexDirty(t *testing.T) {
	s := numericStore(16)
	s.ClearDirtyCursor(s.Len())
	_, idx, err := s.Split(testBase+8, false)
	require.NoError(t, err)
	assert.Equal(t, idx, s.DirtyCursor())
}
