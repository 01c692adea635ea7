package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ShapeAscii walks an N-byte range producing (byteOffset, byteLength)
// runs. A new range starts when appending the next character
// would exceed 40 rendered characters, or when the previous byte was
// non-NUL and the next is NUL (NUL terminates a string and flushes).
// The final partial range is flushed at the end.
func ShapeAscii(data []byte) []AsciiRange {
	var ranges []AsciiRange
	if len(data) == 0 {
		return ranges
	}

	start := 0
	width := 0
	prevNonNul := false

	flush := func(end int) {
		if end > start {
			ranges = append(ranges, AsciiRange{ByteOffset: start, ByteLength: end - start})
		}
	}

	for i, b := range data {
		w := renderedWidth(b)
		if width > 0 && width+w > 40 {
			flush(i)
			start = i
			width = 0
		}
		width += w

		// A NUL that terminates a non-empty string stays with the
		// string ('Hello',0) and flushes the range after itself.
		if b == 0 && prevNonNul {
			flush(i + 1)
			start = i + 1
			width = 0
		}
		prevNonNul = b != 0
	}
	flush(len(data))
	return ranges
}

// renderedWidth approximates how many output characters byte b costs
// when collapsed into a quoted run, counting quote marks/commas the
// way the running-width tracker does.
func renderedWidth(b byte) int {
	if b >= 32 && b <= 126 {
		return 1
	}
	if b < 16 {
		return len(strconv.Itoa(int(b))) + 1 // +1 for the separating comma
	}
	return 4 // "$HH" plus comma
}

// RenderAsciiOperand renders data as the comma-delimited quoted-run
// format: printable bytes collapsed into '...' runs,
// non-printables emitted as decimal (byte<16) or $HH.
func RenderAsciiOperand(data []byte) string {
	var parts []string
	var run strings.Builder
	flushRun := func() {
		if run.Len() > 0 {
			parts = append(parts, "'"+run.String()+"'")
			run.Reset()
		}
	}

	for _, b := range data {
		if b >= 32 && b <= 126 {
			run.WriteByte(b)
			continue
		}
		flushRun()
		if b < 16 {
			parts = append(parts, strconv.Itoa(int(b)))
		} else {
			parts = append(parts, fmt.Sprintf("$%02X", b))
		}
	}
	flushRun()

	return strings.Join(parts, ",")
}
