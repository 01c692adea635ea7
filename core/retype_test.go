package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dataOnlyProject loads data as a single segment that discovery never
// touches (entry 0 is outside the image).
func dataOnlyProject(data []byte, obs Observer) *Project {
	seg := Segment{ID: 1, BaseAddress: testBase, FileLength: uint32(len(data)), TotalLength: uint32(len(data)), Data: data}
	return NewProject([]Segment{seg}, NewProjectOptions{
		Loader:     testLoader{},
		Decoder:    testDecoder{},
		SystemName: "test",
		Entrypoint: 0,
		IsBinary:   true,
		Observer:   obs,
	})
}

func TestRetypeToAscii(t *testing.T) {
	data := []byte{0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x00, 0x57, 0x6F, 0x72, 0x6C, 0x64, 0x00}
	p := dataOnlyProject(data, nil)

	affected, err := p.SetDataType(testBase, DataASCII, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{testBase}, affected)

	block := p.store.At(0)
	assert.Equal(t, DataASCII, block.DataType)
	require.Len(t, block.AsciiRanges, 2)
	assert.Equal(t, AsciiRange{ByteOffset: 0, ByteLength: 6}, block.AsciiRanges[0])
	assert.Equal(t, AsciiRange{ByteOffset: 6, ByteLength: 6}, block.AsciiRanges[1])

	first, _ := p.FileLine(0, LIOperands)
	assert.Equal(t, "'Hello',0", first)
	second, _ := p.FileLine(1, LIOperands)
	assert.Equal(t, "'World',0", second)

	instr, _ := p.FileLine(0, LIInstruction)
	assert.Equal(t, "DC.B", instr)

	checkPartition(t, p)
	checkLineTotals(t, p)
}

func TestRetypeIdempotent(t *testing.T) {
	obs := &recordingObserver{}
	p := dataOnlyProject(make([]byte, 8), obs)

	_, err := p.SetDataType(testBase, DataByte, nil)
	require.NoError(t, err)
	events := len(obs.posts)

	affected, err := p.SetDataType(testBase, DataByte, nil)
	require.NoError(t, err)
	assert.Empty(t, affected)
	assert.Len(t, obs.posts, events) // no further events
}

func TestRetypePublishesLineDelta(t *testing.T) {
	obs := &recordingObserver{}
	p := dataOnlyProject(make([]byte, 16), obs)

	// 16 bytes: LONGWORD renders 4 lines, BYTE renders 16.
	before := p.FileLineCount()
	require.Equal(t, 4+2, before) // body + blank + END

	_, err := p.SetDataType(testBase, DataByte, nil)
	require.NoError(t, err)

	require.NotEmpty(t, obs.pres)
	require.NotEmpty(t, obs.posts)
	pre := obs.pres[len(obs.pres)-1]
	post := obs.posts[len(obs.posts)-1]
	assert.Equal(t, 0, pre.FirstLine)
	assert.Equal(t, -(4 + 2), pre.Delta)
	assert.Equal(t, 0, post.FirstLine)
	assert.Equal(t, 16+2, post.Delta)

	assert.Equal(t, 16+2, p.FileLineCount())
	checkLineTotals(t, p)
}

func TestRetypeSplitsBlock(t *testing.T) {
	p := dataOnlyProject(make([]byte, 16), nil)

	affected, err := p.SetDataType(testBase+8, DataWord, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{testBase + 8}, affected)

	require.Equal(t, 2, p.store.Len())
	assert.Equal(t, DataLongword, p.store.At(0).DataType)
	assert.Equal(t, DataWord, p.store.At(1).DataType)
	checkPartition(t, p)
	checkLineTotals(t, p)
}

func TestRetypeMidInstructionFails(t *testing.T) {
	p := newTestProject([]byte{0xA0, 0xB0, 0xC0, 0xD0}, testBase, false, nil)

	_, err := p.SetDataType(testBase+2, DataByte, nil)
	assert.ErrorIs(t, err, ErrSplitMidInstruction)
}

func TestRetypeOutOfBoundsFails(t *testing.T) {
	p := dataOnlyProject(make([]byte, 8), nil)
	_, err := p.SetDataType(0x9000, DataByte, nil)
	assert.ErrorIs(t, err, ErrSplitOutOfBounds)
}

func TestRetypeAllocRestrictions(t *testing.T) {
	seg := Segment{ID: 1, BaseAddress: testBase, FileLength: 0, TotalLength: 16, IsBSS: true}
	p := NewProject([]Segment{seg}, NewProjectOptions{
		Loader:     testLoader{},
		Decoder:    testDecoder{},
		Entrypoint: 0,
	})

	require.Equal(t, 1, p.store.Len())
	require.True(t, p.store.At(0).Alloc)

	_, err := p.SetDataType(testBase, DataASCII, nil)
	assert.Error(t, err)
	_, err = p.SetDataType(testBase, DataCode, nil)
	assert.Error(t, err)

	// Numeric widths remain legal for ALLOC blocks.
	_, err = p.SetDataType(testBase, DataWord, nil)
	assert.NoError(t, err)
}

func TestRetypeToCode(t *testing.T) {
	data := []byte{
		0x01, 0x01, 0x01, 0x01, // NOPs
		0xA0, 0x00, 0x00, 0x00, // RET
	}
	p := dataOnlyProject(data, nil)
	require.Equal(t, DataLongword, p.store.At(0).DataType)

	affected, err := p.SetDataType(testBase, DataCode, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, affected)

	dt, ok := p.DataTypeAt(testBase)
	require.True(t, ok)
	assert.Equal(t, DataCode, dt)

	block := p.store.At(0)
	require.Len(t, block.CodeLines, 5)
	assert.Equal(t, "RET", block.CodeLines[4].Match.Key)

	// Retyping to code again is a no-op.
	affected, err = p.SetDataType(testBase, DataCode, nil)
	require.NoError(t, err)
	assert.Empty(t, affected)

	checkPartition(t, p)
	checkLineTotals(t, p)
}

func TestRetypeCancellation(t *testing.T) {
	data := []byte{
		0x01, 0x01, 0x01, 0x01,
		0xA0, 0x00, 0x00, 0x00,
	}
	p := dataOnlyProject(data, nil)

	ws := &WorkState{ShouldExit: true}
	_, err := p.SetDataType(testBase, DataCode, ws)
	require.NoError(t, err)

	// Cancellation leaves the partition valid and the line view
	// finite; the block was not converted.
	checkPartition(t, p)
	checkLineTotals(t, p)
	assert.Equal(t, DataLongword, p.store.At(0).DataType)
	assert.Positive(t, p.FileLineCount())

	// Re-invoking without cancellation completes the conversion.
	_, err = p.SetDataType(testBase, DataCode, nil)
	require.NoError(t, err)
	dt, _ := p.DataTypeAt(testBase)
	assert.Equal(t, DataCode, dt)
}

func TestCancellationMidDecode(t *testing.T) {
	// Enough single-byte instructions to cross the 256-instruction poll
	// window, then a terminator.
	data := make([]byte, 600)
	for i := range data {
		data[i] = 0x01
	}
	copy(data[596:], []byte{0xA0, 0x00, 0x00, 0x00})
	p := dataOnlyProject(data, nil)

	ws := &WorkState{}
	ws.Progress = func(fraction float64, statusKey string) {
		if statusKey == "decoding" {
			ws.ShouldExit = true
		}
	}
	_, err := p.SetDataType(testBase, DataCode, ws)
	require.NoError(t, err)

	// The decoded prefix committed as a consistent code block whose
	// instructions cover exactly its byte range; the remainder was
	// split off as unprocessed data.
	checkPartition(t, p)
	checkLineTotals(t, p)
	require.Equal(t, 2, p.store.Len())

	prefix := p.store.At(0)
	assert.Equal(t, DataCode, prefix.DataType)
	covered := 0
	for _, cl := range prefix.CodeLines {
		covered += cl.Length
	}
	assert.Equal(t, int(prefix.Length), covered)

	rest := p.store.At(1)
	assert.Equal(t, DataLongword, rest.DataType)
	assert.False(t, rest.Processed)

	// Resuming at the remainder completes the conversion.
	_, err = p.SetDataType(rest.Address, DataCode, nil)
	require.NoError(t, err)
	dt, _ := p.DataTypeAt(rest.Address)
	assert.Equal(t, DataCode, dt)
	checkPartition(t, p)
	checkLineTotals(t, p)
}

func TestUncertainDataReferences(t *testing.T) {
	// Little-endian 32-bit value 0x00001005 points back into the
	// segment; the 2-byte-step sweep should surface it.
	data := []byte{0x05, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	p := dataOnlyProject(data, nil)

	_, err := p.SetDataType(testBase, DataWord, nil)
	require.NoError(t, err)

	refs := p.UncertainDataReferences()
	require.NotEmpty(t, refs)
	assert.Equal(t, uint64(testBase), refs[0].InstrAddress)
	assert.Equal(t, uint64(0x1005), refs[0].Target)
}

func TestRetypeNotifiesUncertainRefChanges(t *testing.T) {
	obs := &recordingObserver{}
	data := []byte{0x05, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	p := dataOnlyProject(data, obs)

	_, err := p.SetDataType(testBase, DataWord, nil)
	require.NoError(t, err)

	require.NotEmpty(t, obs.refEvents)
	ev := obs.refEvents[len(obs.refEvents)-1]
	assert.Equal(t, DataLongword, ev.OldType)
	assert.Equal(t, DataWord, ev.NewType)
	assert.Equal(t, uint64(testBase), ev.Address)
}
