package undocore

import "github.com/coreseekdev/treeundo/pkg/treedoc"

// SelectionSnapshot captures the user's selection at the moment a batch
// was recorded (spec.md §3). Immutable once captured.
type SelectionSnapshot struct {
	Ranges     []treedoc.Range
	IsBackward bool
}

// CaptureSelection snapshots sel's current state.
func CaptureSelection(sel treedoc.Selection) SelectionSnapshot {
	return SelectionSnapshot{
		Ranges:     append([]treedoc.Range(nil), sel.GetRanges()...),
		IsBackward: sel.IsBackward(),
	}
}

// Restore writes the snapshot back onto sel, honoring the persisted
// direction (spec.md §9 Open Question: implement the variant that carries
// isBackward through undo/redo).
func (s SelectionSnapshot) Restore(sel treedoc.Selection) {
	sel.SetRanges(s.Ranges, s.IsBackward)
}
