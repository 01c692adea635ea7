package core

// LineChangeEvent carries the (first-affected-line, +/-delta) pair a
// mutation publishes so a UI can patch its display instead of
// redrawing from scratch. Pre is published before the mutation is applied (Delta
// reflects the span about to be invalidated), Post after (Delta
// reflects the span that replaced it).
type LineChangeEvent struct {
	FirstLine int
	Delta     int
}

// RetypeEvent is the (old_type, new_type, address, length) notification
// fired for every block whose uncertain-reference set changed as a
// result of a retype.
type RetypeEvent struct {
	OldType DataType
	NewType DataType
	Address uint64
	Length  uint32
}

// Observer bundles the notification hooks a UI registers against a
// project. Any method may be left as a no-op by embedding NoopObserver.
type Observer interface {
	SymbolInserted(addr uint64, name string)
	PreLineChange(ev LineChangeEvent)
	PostLineChange(ev LineChangeEvent)
	UncertainReferencesChanged(ev RetypeEvent)
}

// NoopObserver implements Observer with no-ops; embed it to implement
// only the callbacks a caller cares about.
type NoopObserver struct{}

func (NoopObserver) SymbolInserted(addr uint64, name string)  {}
func (NoopObserver) PreLineChange(ev LineChangeEvent)         {}
func (NoopObserver) PostLineChange(ev LineChangeEvent)        {}
func (NoopObserver) UncertainReferencesChanged(ev RetypeEvent) {}
