package core

// LineIndex recomputes the cumulative first-line number of every block
// lazily from a dirty cursor. It holds no state of its own
// beyond the store it operates on; recompute is idempotent.
type LineIndex struct {
	store    *BlockStore
	computer *LineComputer
}

// NewLineIndex binds a store and the pure line-counter used to
// recompute each block's contribution.
func NewLineIndex(store *BlockStore, computer *LineComputer) *LineIndex {
	return &LineIndex{store: store, computer: computer}
}

// Recompute brings block_line0 up to date for every index >=
// dirtyCursor, then clears the cursor. Mutating operations never call
// this eagerly; only queries by line number do.
func (li *LineIndex) Recompute(contexts func(idx int) BlockContext) {
	n := li.store.Len()
	start := li.store.DirtyCursor()
	if start >= n {
		li.store.ClearDirtyCursor(n)
		return
	}
	if start < 0 {
		start = 0
	}

	for i := start; i < n; i++ {
		var prevEnd int
		if i == 0 {
			prevEnd = 0
		} else {
			prevEnd = li.store.Line0(i-1) + li.computer.LineCount(li.store.At(i-1), contexts(i-1))
		}
		li.store.SetLine0(i, prevEnd)
	}
	li.store.ClearDirtyCursor(n)
}

// TotalLines returns block_line0[last] + line_count(last) + footer,
// where footer here is already folded into the last block's own line
// count by LineComputer (its footer handles the final-block/END case),
// so TotalLines is simply the end of the last block's span.
func (li *LineIndex) TotalLines(contexts func(idx int) BlockContext) int {
	n := li.store.Len()
	if n == 0 {
		return 0
	}
	li.Recompute(contexts)
	last := n - 1
	return li.store.Line0(last) + li.computer.LineCount(li.store.At(last), contexts(last))
}
