package core

import "github.com/pkg/errors"

// SetDataType retypes the region starting at addr: split so
// it is a block boundary, then either re-invoke code discovery (new
// type CODE) or swap the data type in place and re-shape ASCII line
// data. It returns the set of block start addresses affected, for a
// caller that wants to know which blocks to re-query.
func (p *Project) SetDataType(addr uint64, newType DataType, ws *WorkState) ([]uint64, error) {
	block, idx, err := p.store.Split(addr, false)
	if err != nil && err != ErrSplitExisting {
		return nil, errors.Wrapf(err, "set data type at %08X", addr)
	}

	if newType == DataCode {
		return p.retypeToCode(block, idx, ws)
	}
	return p.retypeToData(block, idx, newType)
}

// retypeToCode clears PROCESSED and re-invokes discovery at addr,
// considering every resulting block within the original byte range
// affected.
func (p *Project) retypeToCode(block *Block, idx int, ws *WorkState) ([]uint64, error) {
	if block.DataType == DataCode && block.Processed {
		return nil, nil // already code; idempotent
	}
	if block.Alloc {
		return nil, errors.New("cannot retype an ALLOC block to CODE")
	}

	start := block.Address
	end := block.EndAddress()
	block.Processed = false
	p.log.Debugf("retype to code at %08X", start)

	p.runDiscovery([]uint64{start}, ws)
	p.synthesizeDefaultLabels()

	var affected []uint64
	for i := 0; i < p.store.Len(); i++ {
		b := p.store.At(i)
		if b.Address >= start && b.Address < end {
			affected = append(affected, b.Address)
			p.refreshRefs(b)
		}
	}
	return affected, nil
}

// retypeToData handles the non-CODE target types: build a
// temporary copy, apply the type change, re-shape ASCII or clear line
// data, recompute the line count, publish pre/post events around the
// swap, then write back.
func (p *Project) retypeToData(block *Block, idx int, newType DataType) ([]uint64, error) {
	if block.DataType == newType {
		return nil, nil // already this type; idempotent
	}
	if newType != DataByte && newType != DataWord && newType != DataLongword && newType != DataASCII {
		return nil, errors.Errorf("invalid data type %v", newType)
	}
	if block.Alloc && newType == DataASCII {
		return nil, errors.New("cannot retype an ALLOC block to ASCII")
	}

	tmp := block.clone()
	tmp.oldDataType = block.DataType
	tmp.DataType = newType
	tmp.CodeLines = nil

	ctx := p.blockContext(idx)
	if newType == DataASCII {
		tmp.AsciiRanges = ShapeAscii(ctx.Bytes)
	} else {
		tmp.AsciiRanges = nil
	}
	tmp.clearLineCount()
	newCount := p.computer.LineCount(tmp, ctx)

	oldCount := p.computer.LineCount(block, ctx)
	p.lineIndex.Recompute(p.contexts)
	firstLine := p.store.Line0(idx)
	p.observer.PreLineChange(LineChangeEvent{FirstLine: firstLine, Delta: -oldCount})

	*block = *tmp
	block.clearLineCount()
	p.computer.LineCount(block, ctx)

	p.observer.PostLineChange(LineChangeEvent{FirstLine: firstLine, Delta: newCount})
	p.store.SetDirtyCursor(idx + 1)

	p.refreshRefs(block)
	return []uint64{block.Address}, nil
}

// refreshRefs recomputes a block's uncertain-reference list (code refs
// for CODE blocks, data refs otherwise) and notifies the observer if it
// changed.
func (p *Project) refreshRefs(block *Block) {
	old := block.refs
	var fresh []UncertainRef
	if block.DataType == DataCode {
		fresh = p.computeCodeRefs(block)
	} else {
		fresh = p.computeDataRefs(block)
	}
	block.refs = fresh

	if refsChanged(old, fresh) {
		p.observer.UncertainReferencesChanged(RetypeEvent{
			OldType: block.oldDataType,
			NewType: block.DataType,
			Address: block.Address,
			Length:  block.Length,
		})
	}
}

func refsChanged(a, b []UncertainRef) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}

// computeDataRefs is the data-block half of the uncertain-reference
// scanner: sweep the block's bytes in 2-byte steps, reading a
// 32-bit value at each step and recording it if it is a known address.
func (p *Project) computeDataRefs(block *Block) []UncertainRef {
	if block.Alloc {
		return nil
	}
	_, idx, ok := p.store.FindByAddress(block.Address)
	if !ok {
		return nil
	}
	ctx := p.blockContext(idx)
	data := ctx.Bytes
	if data == nil {
		return nil
	}

	var out []UncertainRef
	for off := 0; off+4 <= len(data); off += 2 {
		val := readUint(data[off:off+4], ctx.BigEndian)
		if p.addrs.Contains(val) {
			out = append(out, UncertainRef{InstrAddress: block.Address + uint64(off), Target: val})
		}
	}
	return out
}
