package treedoc

// BatchKind tags the provenance of a Batch (spec.md §3). The zero value,
// KindUser, is the default for externally-created batches so the
// classification rule in spec.md §4.3 ("user if kind is the default/unset
// value") falls out of Go's zero-value semantics without extra bookkeeping.
type BatchKind int

const (
	// KindUser is the default: a batch created directly by the user.
	KindUser BatchKind = iota
	// KindUndo tags a batch emitted by an undo step.
	KindUndo
	// KindRedo tags a batch emitted by a redo step.
	KindRedo
)

func (k BatchKind) String() string {
	switch k {
	case KindUndo:
		return "undo"
	case KindRedo:
		return "redo"
	default:
		return "user"
	}
}

// Batch is an atomic, ordered sequence of deltas (spec.md §3). Kind is
// mutable: the controller sets it right before emitting a reversion batch.
type Batch struct {
	ID     BatchID
	Kind   BatchKind
	Deltas []Delta
}

// NewBatch builds a batch with a fresh identity and KindUser.
func NewBatch(deltas ...Delta) *Batch {
	return &Batch{ID: NewBatchID(), Kind: KindUser, Deltas: deltas}
}

// IsEmpty reports whether the batch carries no deltas (such batches never
// enter a HistoryStack, per spec.md §3 invariants).
func (b *Batch) IsEmpty() bool {
	return b == nil || len(b.Deltas) == 0
}

// AffectsDocumentRoot reports whether any delta in the batch touches an
// attached root of doc, as opposed to touching only detached fragments.
func (b *Batch) AffectsDocumentRoot(doc Document) bool {
	for _, d := range b.Deltas {
		if d.AffectsDocumentRoot(doc) {
			return true
		}
	}
	return false
}
