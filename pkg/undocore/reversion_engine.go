package undocore

import (
	"fmt"

	"github.com/coreseekdev/treeundo/pkg/treedoc"
)

// RevertResult is what ReversionEngine.Revert produces (spec.md §4.2):
// the reversion batch it built, and the selection to restore — or a nil
// selection if every original range collapsed into the graveyard.
type RevertResult struct {
	ReversionBatch       *treedoc.Batch
	TransformedSelection *SelectionSnapshot
}

// ReversionEngine is C2 (spec.md §4.2). It is stateless between calls:
// Stage B's provenance (spec.md §9, "OriginalDeltaMap lifetime") is
// carried on each reversion Operation's Origin field instead of a map
// local to the call, since that is what survives a round trip through
// Document.EnqueueChange into history.
type ReversionEngine struct{}

// NewReversionEngine creates a ReversionEngine. It has no fields; the type
// exists so the controller can hold and pass around a reference the way it
// holds the two HistoryStacks.
func NewReversionEngine() *ReversionEngine { return &ReversionEngine{} }

// Revert implements spec.md §4.2's three-stage algorithm: reverse and
// rebase item's deltas against history (Stage A), apply the move-conflict
// post-fix (Stage B), and transform item's saved selection across the same
// history (Stage C). It applies every reversion operation to doc as it
// goes — callers are expected to invoke Revert from inside a
// doc.EnqueueChange scope tagged with kindTag (spec.md §4.3).
func (e *ReversionEngine) Revert(doc treedoc.Document, item HistoryItem, kindTag treedoc.BatchKind) (*RevertResult, error) {
	history := doc.History()

	var reversionDeltas []treedoc.Delta

	// Stage A — reverse the batch's deltas in reverse order, rebase each
	// onto the current tip, then post-fix and apply.
	deltas := item.Batch.Deltas
	for i := len(deltas) - 1; i >= 0; i-- {
		original := deltas[i]
		reversed := original.GetReversed()

		rebased, err := history.GetTransformedDelta(reversed)
		if err != nil {
			return nil, fmt.Errorf("undocore: rebasing reversed delta: %w", err)
		}
		if len(rebased) == 0 {
			// TransformFailure (spec.md §7): this delta has been fully
			// obsoleted by intervening history. Skip it; the item is
			// still consumed.
			continue
		}

		sincePostFix := history.GetDeltas(original.BaseVersion)
		for _, r := range rebased {
			if len(r.Operations) == 1 && r.Operations[0].IsMoveLike() && len(reversed.Operations) == 1 {
				origin := reversed.Operations[0].Position
				r.Operations[0].Origin = &origin
			}

			fixed := e.postFixMoveConflict(r, sincePostFix)

			if err := e.applyDelta(doc, fixed); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrApplicationFailure, err)
			}
			reversionDeltas = append(reversionDeltas, fixed)
		}
	}

	if len(reversionDeltas) == 0 {
		return nil, ErrTransformFailure
	}

	reversionBatch := &treedoc.Batch{ID: treedoc.NewBatchID(), Kind: kindTag, Deltas: reversionDeltas}

	// Transform the saved selection across history since just after item's
	// batch was applied, not since the batch's own base version: the
	// batch's deltas are exactly what this call is in the middle of
	// undoing, so folding them into the "since" window would double-count
	// the edit being reverted.
	afterItemBatch := item.Batch.Deltas[0].BaseVersion + len(item.Batch.Deltas)
	selection := e.transformSelection(item.Selection, doc, afterItemBatch)

	return &RevertResult{ReversionBatch: reversionBatch, TransformedSelection: selection}, nil
}

func (e *ReversionEngine) applyDelta(doc treedoc.Document, delta treedoc.Delta) error {
	for _, op := range delta.Operations {
		if err := doc.ApplyOperation(op); err != nil {
			return err
		}
	}
	return nil
}

// postFixMoveConflict is Stage B (spec.md §4.2). u is a single rebased
// delta just produced by Stage A; sinceOriginalBaseVersion is the history
// that occurred after the ORIGINAL (un-reversed) delta's base version.
// Only single-move deltas are ever adjusted, and only against history
// entries whose batch kind is undo or redo — spec.md §9 flags this filter
// as intentional and not to be generalized.
func (e *ReversionEngine) postFixMoveConflict(u treedoc.Delta, sinceOriginalBaseVersion []treedoc.Delta) treedoc.Delta {
	if !u.IsSingleMove() {
		return u
	}
	uOp := u.Operations[0]
	if uOp.Origin == nil {
		return u
	}
	upPos := *uOp.Origin

	for _, h := range sinceOriginalBaseVersion {
		if !h.IsSingleMove() {
			continue
		}
		if h.BatchKind != treedoc.KindUndo && h.BatchKind != treedoc.KindRedo {
			continue
		}
		hOp := h.Operations[0]
		if hOp.Origin == nil {
			continue
		}
		if !uOp.Target.IsEqual(hOp.Target) {
			continue
		}
		hPos := *hOp.Origin
		if upPos.IsAfter(hPos) {
			uOp.Target = uOp.Target.ShiftedBy(hOp.HowMany)
		}
	}

	u.Operations = []treedoc.Operation{uOp}
	return u
}

// transformSelection is Stage C (spec.md §4.2). It walks every operation
// of every delta recorded since sinceBaseVersion, transforming each
// original range in turn, then coalesces touching pieces and keeps only
// the first surviving (non-graveyard) piece per original range.
func (e *ReversionEngine) transformSelection(snapshot SelectionSnapshot, doc treedoc.Document, sinceBaseVersion int) *SelectionSnapshot {
	deltas := doc.History().GetDeltas(sinceBaseVersion)
	graveyard := doc.Graveyard()

	var survivors []treedoc.Range
	for _, original := range snapshot.Ranges {
		transformed := []treedoc.Range{original}

		for _, delta := range deltas {
			for _, op := range delta.Operations {
				i := 0
				for i < len(transformed) {
					result := transformRangeByOperation(transformed[i], op)
					if result == nil {
						i++
						continue
					}
					transformed = append(transformed[:i], append(result, transformed[i+1:]...)...)
					i += len(result)
				}
			}
		}

		sortRangesByStart(transformed)
		transformed = coalesceTouching(transformed)

		for _, r := range transformed {
			if r.Start.Root != graveyard {
				survivors = append(survivors, r)
				break
			}
		}
	}

	if len(survivors) == 0 {
		return nil
	}
	return &SelectionSnapshot{Ranges: survivors, IsBackward: snapshot.IsBackward}
}

// transformRangeByOperation applies one operation's transform to r,
// returning the replacement range(s), or nil if op does not affect
// ranges (spec.md §4.2 Stage C step 2).
func transformRangeByOperation(r treedoc.Range, op treedoc.Operation) []treedoc.Range {
	switch op.Kind {
	case treedoc.OpInsert:
		return r.GetTransformedByInsertion(op.Position, len(op.Nodes), true)
	case treedoc.OpMove, treedoc.OpRemove, treedoc.OpReinsert:
		return r.GetTransformedByMove(op.Position, op.Target, op.HowMany, true)
	default:
		return nil
	}
}

func sortRangesByStart(ranges []treedoc.Range) {
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0 && ranges[j].Start.IsBefore(ranges[j-1].Start); j-- {
			ranges[j], ranges[j-1] = ranges[j-1], ranges[j]
		}
	}
}

// coalesceTouching merges consecutive ranges where one ends exactly where
// the next begins (spec.md §4.2 Stage C step 4), done before graveyard
// filtering so a range split by a delete-then-reinsert survives as one
// piece (spec.md §9).
func coalesceTouching(ranges []treedoc.Range) []treedoc.Range {
	if len(ranges) == 0 {
		return ranges
	}
	out := []treedoc.Range{ranges[0]}
	for _, r := range ranges[1:] {
		last := &out[len(out)-1]
		if last.IsTouching(r) {
			last.End = r.End
			continue
		}
		out = append(out, r)
	}
	return out
}
