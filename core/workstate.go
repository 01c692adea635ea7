package core

// WorkState is the cooperative cancellation/progress handle long-running
// mutators (discovery, large retypes) poll at progress points - each
// address taken from the discovery worklist, and every 256 decoded
// instructions. The zero value never
// cancels and reports no progress; embed it in a caller's own struct to
// drive a real progress bar.
type WorkState struct {
	// ShouldExit is polled by the engine; setting it from another
	// goroutine causes the current pass to unwind at the next poll. The
	// block partition remains a valid partition regardless of where
	// cancellation lands.
	ShouldExit bool

	// Progress, if set, is called with a fraction in [0,1] and a short
	// status key at each poll point.
	Progress func(fraction float64, statusKey string)
}

// poll reports the current should-exit state, invoking the progress
// callback if one is registered.
func (w *WorkState) poll(fraction float64, statusKey string) bool {
	if w == nil {
		return false
	}
	if w.Progress != nil {
		w.Progress(fraction, statusKey)
	}
	return w.ShouldExit
}
