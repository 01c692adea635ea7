package core

import "sort"

// Segment is the fixed shape the executable-format loader delivers.
// Data may be shorter than FileLength or entirely absent for a BSS
// tail; TotalLength is always >= FileLength, the remainder being
// uninitialized (ALLOC) space.
type Segment struct {
	ID          uint32
	BaseAddress uint64
	FileLength  uint32
	TotalLength uint32
	Data        []byte
	IsBSS       bool

	// Relocations marks, by segment-relative byte offset, every byte
	// position the loader's relocation table patches a pointer into
	// (the "relocatable" address positions of the GLOSSARY). The bool
	// value is unused; presence is the signal.
	Relocations map[uint32]bool

	// Symbols are names the loader already knows for addresses inside
	// this segment (e.g. an OS call table), inserted into the project's
	// symbol registry at load time.
	Symbols map[uint64]string

	// Name is the segment's display name. The core does not read it;
	// Loader.SegmentHeader receives the segment ID and InternalData.
	Name string

	// InternalData is whatever loader-private value was stashed on the
	// segment at load time; the core never interprets it, only
	// passes it back to Loader.SegmentHeader.
	InternalData interface{}
}

// Loader is the external executable-format loader collaborator. Its
// only core-visible responsibility beyond delivering Segments is
// describing how segment header directives should render.
type Loader interface {
	// HasSegmentHeaders reports whether systemName's format carries
	// named sections that should render as a two-line header at the
	// start of each segment.
	HasSegmentHeaders(systemName string) bool

	// SegmentHeader renders the "DIRECTIVE REMAINDER" text for a
	// segment header line. The renderer splits it at the first space -
	// directive into the instruction column, remainder into the operand
	// column - and substitutes any {address} placeholder in the
	// remainder with the segment's base address. internalData is
	// whatever loader-private value was stashed on the segment at load
	// time.
	SegmentHeader(systemName string, segmentID uint32, internalData interface{}) string
}

// addressRange is one maximal run of contiguous segments.
type addressRange struct {
	start, end uint64 // inclusive-exclusive: [start, end)
	segmentIDs []uint32
}

// AddressRangeTable answers "is this a plausible address in our
// image?" in O(log n) and recognizes the address exactly one past the
// final segment's end (the "known-adjacent" class).
type AddressRangeTable struct {
	ranges []addressRange
	// lastEnd is the address one past the final byte of the final
	// segment; an address exactly equal to it is known-adjacent.
	lastEnd       uint64
	lastSegmentID uint32
	hasSegments   bool
}

// NewAddressRangeTable builds the table from the segments a loader
// produced, coalescing adjacent segments into maximal runs.
func NewAddressRangeTable(segments []Segment) *AddressRangeTable {
	t := &AddressRangeTable{}
	if len(segments) == 0 {
		return t
	}

	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].BaseAddress < sorted[j].BaseAddress })

	for _, s := range sorted {
		end := s.BaseAddress + uint64(s.TotalLength)
		if n := len(t.ranges); n > 0 && t.ranges[n-1].end == s.BaseAddress {
			t.ranges[n-1].end = end
			t.ranges[n-1].segmentIDs = append(t.ranges[n-1].segmentIDs, s.ID)
		} else {
			t.ranges = append(t.ranges, addressRange{start: s.BaseAddress, end: end, segmentIDs: []uint32{s.ID}})
		}
	}

	last := sorted[len(sorted)-1]
	t.lastEnd = last.BaseAddress + uint64(last.TotalLength)
	t.lastSegmentID = last.ID
	t.hasSegments = true
	return t
}

// Contains reports whether addr falls within some segment's range.
func (t *AddressRangeTable) Contains(addr uint64) bool {
	ok, _ := t.find(addr)
	return ok
}

// ContainsOrAdjacent reports whether addr is a known address, or is
// exactly one past the end of the image (known-adjacent), in which
// case it also returns the predecessor segment id.
func (t *AddressRangeTable) ContainsOrAdjacent(addr uint64) (known bool, predecessorSegmentID uint32, adjacent bool) {
	if ok, _ := t.find(addr); ok {
		return true, 0, false
	}
	if t.hasSegments && addr == t.lastEnd {
		return true, t.lastSegmentID, true
	}
	return false, 0, false
}

func (t *AddressRangeTable) find(addr uint64) (bool, addressRange) {
	i := sort.Search(len(t.ranges), func(i int) bool { return t.ranges[i].end > addr })
	if i < len(t.ranges) && t.ranges[i].start <= addr {
		return true, t.ranges[i]
	}
	return false, addressRange{}
}
