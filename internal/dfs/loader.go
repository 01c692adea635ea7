package dfs

import (
	"fmt"

	"disasmcore/core"
)

// Loader implements core.Loader for BBC Micro DFS programs. DFS carries
// no named sections, so it never advertises segment headers; it
// renders a plain ORG directive for a UI/printer that wants one anyway.
type Loader struct{}

// HasSegmentHeaders reports that DFS programs have no section headers.
func (Loader) HasSegmentHeaders(systemName string) bool { return false }

// SegmentHeader renders an ORG directive from the segment's stashed
// load address, for callers that choose to show one regardless.
func (Loader) SegmentHeader(systemName string, segmentID uint32, internalData interface{}) string {
	addr, _ := internalData.(uint64)
	return fmt.Sprintf("ORG $%04X", addr)
}

// addressToOSCallName maps well-known BBC Micro OS call entry points to
// names.
var addressToOSCallName = map[uint64]string{
	0xFFB9: "OSRDRM",
	0xFFBF: "OSEVEN",
	0xFFC2: "GSINIT",
	0xFFC5: "GSREAD",
	0xFFC8: "NVRDCH",
	0xFFCB: "NVWRCH",
	0xFFCE: "OSFIND",
	0xFFE0: "OSRDCH",
	0xFFE3: "OSASCI",
	0xFFE7: "OSNEWL",
	0xFFEE: "OSWRCH",
	0xFFF1: "OSWORD",
	0xFFF4: "OSBYTE",
	0xFFF7: "OSCLI",
}

// osVectorAddresses maps OS vector addresses to their conventional
// names.
var osVectorAddresses = map[uint64]string{
	0x200: "USERV",
	0x202: "BRKV",
	0x204: "IRQ1V",
	0x206: "IRQ2V",
	0x208: "CLIV",
	0x20A: "BYTEV",
	0x20C: "WORDV",
	0x20E: "WRCHV",
	0x210: "RDCHV",
	0x212: "FILEV",
	0x214: "ARGV",
	0x216: "BGETV",
	0x218: "BPUTV",
	0x21A: "GBPBV",
	0x21C: "FINDV",
	0x21E: "FSCV",
	0x220: "EVENTV",
	0x222: "UPTV",
	0x224: "NETV",
	0x226: "VDUV",
	0x228: "KEYV",
	0x22A: "INSV",
	0x22C: "REMV",
	0x22E: "CNPV",
	0x230: "IND1V",
	0x232: "IND2V",
	0x234: "IND3V",
}

// ProgramSegments builds the core.Segment table for a single DFS
// catalog entry's contents: the loaded program itself, plus two
// read-only, data-less segments covering the BBC Micro's fixed OS
// vector table and OS call entry points, whose only purpose is to
// carry the well-known symbol names above into the project's symbol
// registry so operand rendering picks them up like any other symbol.
func ProgramSegments(entry Catalog, data []byte) []core.Segment {
	program := core.Segment{
		ID:           1,
		BaseAddress:  uint64(entry.LoadAddr),
		FileLength:   uint32(len(data)),
		TotalLength:  uint32(len(data)),
		Data:         data,
		Name:         entry.Filename,
		InternalData: uint64(entry.LoadAddr),
	}

	vectors := core.Segment{
		ID:          2,
		BaseAddress: 0x0200,
		TotalLength: 0x0236 - 0x0200,
		IsBSS:       true,
		Name:        "OS_VECTORS",
		Symbols:     osVectorAddresses,
	}

	osCalls := core.Segment{
		ID:          3,
		BaseAddress: 0xFFB9,
		TotalLength: 0xFFF8 - 0xFFB9,
		IsBSS:       true,
		Name:        "OS_CALLS",
		Symbols:     addressToOSCallName,
	}

	return []core.Segment{program, vectors, osCalls}
}
