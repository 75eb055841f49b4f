package treedoc

// Selection exposes the document's current user selection (spec.md §6).
type Selection interface {
	GetRanges() []Range
	IsBackward() bool
	SetRanges(ranges []Range, isBackward bool)
}

// ChangeEvent is the tuple the change stream delivers after a batch has
// been fully applied and recorded (spec.md §6, "(kind, changes, batch)").
type ChangeEvent struct {
	Kind    BatchKind
	Changes int // number of operations applied, for diagnostics/logging
	Batch   *Batch
}

// History is the append-only log of deltas applied to the document, plus
// the operational-transform primitive that rebases a delta onto the
// current tip (spec.md §3/§6).
type History interface {
	// CurrentVersion returns the version at the tip of history.
	CurrentVersion() int
	// GetDeltas returns, in application order, every delta appended at or
	// after sinceBaseVersion.
	GetDeltas(sinceBaseVersion int) []Delta
	// GetTransformedDelta rebases delta onto the current tip of history,
	// returning zero or more deltas (a delta may need to split to remain
	// valid against intervening edits; an empty result means history has
	// fully obsoleted it).
	GetTransformedDelta(delta Delta) ([]Delta, error)
}

// Document is the host editor's document, as the undo/redo core observes
// it (spec.md §6).
type Document interface {
	// EnqueueChange runs fn with exclusive mutation access and bundles
	// every operation fn applies into a single batch, deferring the
	// change-stream event until fn returns (spec.md §5).
	EnqueueChange(kind BatchKind, fn func() error) (*Batch, error)
	// ApplyOperation applies one operation to the live tree. Only valid
	// inside an EnqueueChange scope.
	ApplyOperation(op Operation) error
	// Selection exposes the current selection.
	Selection() Selection
	// History exposes the document's history log.
	History() History
	// Graveyard returns the root identity used for deleted content.
	Graveyard() RootID
	// IsDocumentRoot reports whether root is one of the document's
	// attached roots (including the graveyard), as opposed to a detached
	// fragment that never entered the document (spec.md §4.3).
	IsDocumentRoot(root RootID) bool
	// Subscribe registers handler on the document's change stream; handler
	// is invoked synchronously, in registration order, once a batch has
	// been fully applied and recorded (spec.md §5 ordering guarantee). The
	// returned func removes the subscription.
	Subscribe(handler func(ChangeEvent)) (unsubscribe func())
}
