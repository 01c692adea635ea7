// Package dfs parses Acorn DFS disk images and adapts a catalog entry
// into the core.Segment/core.Loader shape the analysis core consumes.
package dfs

import "strings"

// Image represents an Acorn DFS disk image.
//
// Resources: http://mdfs.net/Docs/Comp/Disk/Format/DFS,
// http://chrisacorns.computinghistory.org.uk/docs/Acorn/Manuals/Acorn_DiscSystemUGI2.pdf
type Image struct {
	Title   string
	Sectors int
	BootOpt int
	Cycle   int
	Files   []Catalog
}

// Catalog is one file entry in a DFS disk image.
type Catalog struct {
	Filename    string
	Dir         string
	Length      int
	LoadAddr    int
	ExecAddr    int
	StartSector int
	Attr        byte
}

// ParseImage reads the disk and file catalogs from raw DFS bytes.
func ParseImage(data []byte) *Image {
	img := &Image{}

	nfiles := int(data[0x105]) / 8
	img.Title = strings.TrimRight(string(data[0:8])+string(data[0x100:0x104]), "\000")
	img.Sectors = int(data[0x107]) + int(data[0x106]&3)*256
	img.BootOpt = int(data[0x106]&48) >> 4
	img.Cycle = int(data[0x104])
	img.Files = make([]Catalog, nfiles)

	for i := 0; i < nfiles; i++ {
		file := &img.Files[i]

		offset := 0x008 + i*8
		file.Filename, file.Attr = readFilename(data[offset : offset+7])
		file.Dir = string(data[offset+7])

		offset = 0x108 + i*8
		file.Length = int(data[offset+4]) + int(data[offset+5])*256 + int(data[offset+6]&0b110000)*4096
		file.LoadAddr = int(data[offset+0]) + int(data[offset+1])*256 + int(data[offset+6]&0b1100)*16384
		file.ExecAddr = int(data[offset+2]) + int(data[offset+3])*256 + int(data[offset+6]&0b11000000)*1024
		file.StartSector = int(data[offset+7]) + int(data[offset+6]&0b11)*256
	}

	return img
}

// Contents returns the raw file bytes for entry, sliced out of the
// disk image.
func (img *Image) Contents(disk []byte, entry Catalog) []byte {
	offset := entry.StartSector * 256
	return disk[offset : offset+entry.Length]
}

func readFilename(block []byte) (string, byte) {
	if len(block) < 7 {
		panic("block is too short")
	}

	name := make([]byte, len(block))
	var attr byte
	for i, v := range block {
		attr |= (v & 0x80) >> (7 - i)
		name[i] = v & 0x7f
	}

	return strings.TrimRight(string(name), " "), attr
}
