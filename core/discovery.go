package core

import "fmt"

// runDiscovery drives the worklist-based recursive disassembler to a
// fixpoint. seeds are pushed in order (entrypoint plus every
// relocated address at load, or a single address on retype-to-code);
// ws, if non-nil, is polled cooperatively every few hundred
// instructions and at block boundaries.
func (p *Project) runDiscovery(seeds []uint64, ws *WorkState) {
	worklist := append([]uint64(nil), seeds...)
	instrCount := 0
	p.log.Debugf("discovery: %d seed addresses", len(seeds))

	for len(worklist) > 0 {
		addr := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if ws.poll(0, "discovering") {
			p.log.Infof("discovery: cancelled with %d addresses pending", len(worklist)+1)
			return
		}

		more := p.processAddressAsCode(addr, ws, &instrCount)
		worklist = append(worklist, more...)
	}
}

// processAddressAsCode implements one worklist iteration: locate and
// possibly split the block at addr, skip if already code/processed,
// then decode forward until a terminator, decode failure, or the
// block's end. It returns the new targets discovered from this block's
// instructions, to be pushed onto the caller's worklist.
func (p *Project) processAddressAsCode(addr uint64, ws *WorkState, instrCount *int) []uint64 {
	block, idx, ok := p.store.FindByAddress(addr)
	if !ok {
		return nil
	}

	if addr > block.Address {
		b, i, err := p.store.Split(addr, false)
		switch err {
		case nil:
			block, idx = b, i
		case ErrSplitExisting:
			block, idx = b, i
		default:
			// ErrSplitOutOfBounds or ErrSplitMidInstruction: skip.
			return nil
		}
	}

	if block.DataType == DataCode || block.Processed {
		return nil
	}

	oldCtx := p.blockContext(idx)
	oldCount := p.computer.LineCount(block, oldCtx)
	p.lineIndex.Recompute(p.contexts)
	firstLine := p.store.Line0(idx)
	p.observer.PreLineChange(LineChangeEvent{FirstLine: firstLine, Delta: -oldCount})

	targets := p.decodeBlockAsCode(block, idx, ws, instrCount)

	block.clearLineCount()
	newCtx := p.blockContext(idx)
	newCount := p.computer.LineCount(block, newCtx)
	p.observer.PostLineChange(LineChangeEvent{FirstLine: firstLine, Delta: newCount})
	p.store.SetDirtyCursor(idx + 1)

	return targets
}

// decodeBlockAsCode performs the decode loop against
// one block (which may end up split into a code prefix and a data/code
// remainder), committing CodeLines and data-type changes as it goes,
// and returns the new worklist targets.
func (p *Project) decodeBlockAsCode(block *Block, idx int, ws *WorkState, instrCount *int) []uint64 {
	ctx := p.blockContext(idx)
	data := ctx.Bytes
	if data == nil {
		// ALLOC or unbacked block: nothing to decode, leave as-is but
		// mark processed so it isn't retried forever.
		block.Processed = true
		return nil
	}

	block.Processed = true

	var lines []CodeLine
	offset := 0
	var targets []uint64

	for offset < len(data) {
		*instrCount++
		if *instrCount%256 == 0 && ws.poll(0, "decoding") {
			// Cancelled mid-decode. Commit only the instructions walked
			// so far and split the rest off as an unprocessed data
			// block, so the partition stays consistent and a later pass
			// can resume there.
			if offset == 0 {
				block.Processed = false
				return targets
			}
			block.CodeLines = withMidInstructionEqus(lines, p.symbols, block.Address)
			block.DataType = DataCode
			targets = append(targets, p.pushMatchTargets(block, lines)...)
			if nb, _, err := p.store.Split(block.Address+uint64(offset), false); err == nil {
				nb.DataType = DataLongword
				nb.Processed = false
				targets = append(targets, nb.Address)
			}
			block.refs = p.computeCodeRefs(block)
			return targets
		}

		m, newOffset, ok := p.decoder.DisassembleOneLine(data, offset, block.Address+uint64(offset))
		if !ok {
			if offset == 0 {
				skip := p.decoder.DisassembleAsData(data, offset)
				if skip <= 0 {
					// ErrDecodeFailure: abandon this byte range as
					// non-code; leave the whole block LONGWORD.
					p.log.Warnf("discovery: no forward progress at %08X, leaving block as data", block.Address)
					block.DataType = DataLongword
					return targets
				}
				if skip < len(data) {
					if nb, _, err := p.store.Split(block.Address+uint64(skip), false); err == nil || err == ErrSplitExisting {
						// The split inherits this block's PROCESSED mark;
						// clear it so the continuation actually decodes.
						nb.Processed = false
						targets = append(targets, nb.Address)
					}
				}
				block.DataType = DataLongword
				return targets
			}
			// Partial progress then failure: split at the instruction
			// boundary reached so far; the trailing remainder becomes a
			// non-code, already-PROCESSED block.
			p.log.Warnf("discovery: decode failed at %08X after %d instructions", block.Address+uint64(offset), len(lines))
			block.CodeLines = withMidInstructionEqus(lines, p.symbols, block.Address)
			block.DataType = DataCode
			if offset < len(data) {
				if nb, _, err := p.store.Split(block.Address+uint64(offset), false); err == nil {
					nb.DataType = DataLongword
					nb.Processed = true
				}
			}
			targets = append(targets, p.pushMatchTargets(block, lines)...)
			block.refs = p.computeCodeRefs(block)
			return targets
		}

		lines = append(lines, CodeLine{Kind: CLInstruction, Offset: offset, Length: newOffset - offset, Match: m})
		offset = newOffset

		if p.decoder.IsFinalInstruction(m) {
			if offset == len(data) {
				break
			}
			// Terminating instruction found but bytes remain: split the
			// trailer, retype it to LONGWORD, and leave it unprocessed
			// only if something still reaches it. References from this
			// block's own instructions count, so record them first.
			block.CodeLines = withMidInstructionEqus(lines, p.symbols, block.Address)
			block.DataType = DataCode
			targets = append(targets, p.pushMatchTargets(block, lines)...)
			trailerAddr := block.Address + uint64(offset)
			if nb, _, err := p.store.Split(trailerAddr, false); err == nil {
				nb.DataType = DataLongword
				nb.Processed = !p.refs.HasAnyReference(trailerAddr)
			}
			block.refs = p.computeCodeRefs(block)
			return targets
		}
	}

	block.CodeLines = withMidInstructionEqus(lines, p.symbols, block.Address)
	block.DataType = DataCode
	targets = append(targets, p.pushMatchTargets(block, lines)...)
	block.refs = p.computeCodeRefs(block)
	return targets
}

// withMidInstructionEqus inserts a CLEquLocationRelative entry after
// any instruction that a symbol address falls strictly inside of.
func withMidInstructionEqus(lines []CodeLine, symbols *SymbolTable, base uint64) []CodeLine {
	out := make([]CodeLine, 0, len(lines))
	for _, cl := range lines {
		out = append(out, cl)
		for sub := cl.Offset + 1; sub < cl.Offset+cl.Length; sub++ {
			if _, ok := symbols.Label(base + uint64(sub)); ok {
				out = append(out, CodeLine{Kind: CLEquLocationRelative, Offset: sub, Delta: cl.Offset + cl.Length - sub})
			}
		}
	}
	return out
}

// pushMatchTargets consults the decoder's match addresses for every
// decoded instruction, recording branch or data references and
// returning the MAF_CODE targets to push back onto the worklist.
func (p *Project) pushMatchTargets(block *Block, lines []CodeLine) []uint64 {
	var targets []uint64
	for _, cl := range lines {
		if cl.Kind != CLInstruction || cl.Match == nil {
			continue
		}
		instrAddr := block.Address + uint64(cl.Offset)
		for target, flags := range p.decoder.MatchAddresses(cl.Match) {
			known, predSeg, adjacent := p.addrs.ContainsOrAdjacent(target)
			if adjacent {
				p.registerPostSegment(predSeg, target)
			}

			switch {
			case flags.Has(MAFCode):
				if p.refs.Insert(RefBranch, target, instrAddr, known) {
					p.markPending(target)
					targets = append(targets, target)
				}
			case flags.Has(MAFAbsolute):
				if p.instructionOverlapsRelocatable(block, cl) || (p.isBinary && known) {
					if p.refs.Insert(RefData, target, instrAddr, known) {
						p.markPending(target)
					}
				}
			default:
				if p.refs.Insert(RefData, target, instrAddr, known) {
					p.markPending(target)
				}
			}
		}
	}
	return targets
}

// instructionOverlapsRelocatable reports whether any byte of cl's
// instruction lies at a relocation-marked offset in block's segment
// (the relocatable-address evidence used for executables).
func (p *Project) instructionOverlapsRelocatable(block *Block, cl CodeLine) bool {
	seg := p.segments[block.SegmentID]
	if seg == nil || seg.Relocations == nil {
		return false
	}
	base := block.SegmentOffset + uint32(cl.Offset)
	for i := 0; i < cl.Length; i++ {
		if seg.Relocations[base+uint32(i)] {
			return true
		}
	}
	return false
}

func (p *Project) registerPostSegment(segID uint32, addr uint64) {
	for _, a := range p.postSegmentAddrs[segID] {
		if a == addr {
			return
		}
	}
	p.postSegmentAddrs[segID] = append(p.postSegmentAddrs[segID], addr)
}

func (p *Project) markPending(target uint64) {
	if _, ok := p.symbols.Label(target); ok {
		return
	}
	p.pendingLabels[target] = true
}

// synthesizeDefaultLabels runs after a discovery pass: for every pending
// target without a symbol, split its containing block (claiming a
// mid-instruction label point if needed) and synthesize a default
// label lbX<addr> where X classifies the containing block's data type.
// A mid-instruction target that still can't be split gets a SYM<addr>
// label; a target with no containing block at all gets lbZ<addr>.
func (p *Project) synthesizeDefaultLabels() {
	for target := range p.pendingLabels {
		delete(p.pendingLabels, target)
		if _, ok := p.symbols.Label(target); ok {
			continue
		}

		block, _, found := p.store.FindByAddress(target)
		if !found || !block.Contains(target) {
			// Out of bounds, or one past a segment's end (the
			// post-segment EQU case).
			p.symbols.Insert(target, fmt.Sprintf("lbZ%06X", target), true)
			continue
		}

		if target != block.Address {
			nb, _, err := p.store.Split(target, true)
			switch err {
			case nil, ErrSplitExisting:
				block = nb
			default:
				p.symbols.Insert(target, fmt.Sprintf("SYM%06X", target), true)
				continue
			}
		}

		p.symbols.Insert(target, fmt.Sprintf("lb%c%06X", labelClass(block.DataType), target), true)
	}
}

func labelClass(dt DataType) byte {
	switch dt {
	case DataCode:
		return 'C'
	case DataASCII:
		return 'A'
	case DataByte:
		return 'B'
	case DataWord:
		return 'W'
	case DataLongword:
		return 'L'
	default:
		return 'L'
	}
}

// computeCodeRefs is the code-block half of the uncertain-reference
// scanner: operands flagged MAF_ABSOLUTE by the decoder.
func (p *Project) computeCodeRefs(block *Block) []UncertainRef {
	if p.decoder == nil {
		return nil
	}
	var out []UncertainRef
	for _, cl := range block.CodeLines {
		if cl.Kind != CLInstruction || cl.Match == nil {
			continue
		}
		instrAddr := block.Address + uint64(cl.Offset)
		for target, flags := range p.decoder.MatchAddresses(cl.Match) {
			if !flags.Has(MAFAbsolute) {
				continue
			}
			rendered := p.decoder.OperandString(cl.Match, 0, p.computer.operandLookup(cl.Match, instrAddr))
			out = append(out, UncertainRef{InstrAddress: instrAddr, Target: target, Rendered: rendered})
		}
	}
	return out
}
