package treedoc

// Delta is an ordered, semantically meaningful group of operations
// (spec.md GLOSSARY). BaseVersion records the history version the delta
// was produced against, used to pick the slice of intervening history to
// rebase against (spec.md §3, "Base version").
type Delta struct {
	ID          DeltaID
	BaseVersion int
	Operations  []Operation
	// BatchKind records the kind of the batch this delta belongs to, once
	// it has been appended to history. Stage B's move-conflict post-fix
	// (spec.md §4.2) only consults history deltas with BatchKind Undo or
	// Redo, since only those carry known provenance.
	BatchKind BatchKind
}

// NewDelta wraps operations into a delta with a fresh identity.
func NewDelta(baseVersion int, ops ...Operation) Delta {
	return Delta{ID: NewDeltaID(), BaseVersion: baseVersion, Operations: ops}
}

// GetReversed returns a delta that semantically inverts d: its operations
// are d's operations reversed in order, each individually inverted
// (spec.md §3, Batch.getReversed; applied here at delta granularity since
// that is the unit Stage A reverses). The result's BaseVersion is set to
// just after d itself, not d's own BaseVersion: the reversal must rebase
// against history that happened since d was applied, never against d, or
// it would shift its own source position by the width of the edit it is
// meant to undo.
func (d Delta) GetReversed() Delta {
	ops := make([]Operation, len(d.Operations))
	for i, op := range d.Operations {
		ops[len(d.Operations)-1-i] = op.Reversed()
	}
	return Delta{ID: NewDeltaID(), BaseVersion: d.BaseVersion + 1, Operations: ops}
}

// IsSingleMove reports whether the delta is exactly one move/remove/
// reinsert operation — the shape Stage B's post-fix inspects.
func (d Delta) IsSingleMove() bool {
	return len(d.Operations) == 1 && d.Operations[0].IsMoveLike()
}

// AffectsDocumentRoot reports whether any operation in the delta touches a
// root doc considers attached (spec.md §4.3 empty-batch guard).
func (d Delta) AffectsDocumentRoot(doc Document) bool {
	for _, op := range d.Operations {
		if doc.IsDocumentRoot(op.Position.Root) {
			return true
		}
		if op.Kind != OpInsert && doc.IsDocumentRoot(op.Target.Root) {
			return true
		}
	}
	return false
}
