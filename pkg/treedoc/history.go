package treedoc

import (
	"fmt"
	"sync"
)

// Log is the reference History implementation: a simple append-only slice
// of deltas, rebased with the operation-level transform helpers defined in
// position.go/operation.go. Grounded on the teacher's
// pkg/concordia/history.go revision log (monotonic append, current tip
// tracked as an index) generalized from a parent/lastChild revision tree
// to the flat, OT-rebased log spec.md §3 describes.
type Log struct {
	mu     sync.RWMutex
	deltas []Delta
}

// NewLog creates an empty history log.
func NewLog() *Log {
	return &Log{}
}

// CurrentVersion returns the number of deltas recorded so far, which also
// doubles as the BaseVersion a freshly produced delta should carry.
func (l *Log) CurrentVersion() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.deltas)
}

// Append records every delta of batch, stamping each with its BaseVersion
// (the tip at the moment it is appended) and the batch's kind.
func (l *Log) Append(batch *Batch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, d := range batch.Deltas {
		d.BaseVersion = len(l.deltas)
		d.BatchKind = batch.Kind
		l.deltas = append(l.deltas, d)
	}
}

// GetDeltas returns every delta appended at or after sinceBaseVersion, in
// application order.
func (l *Log) GetDeltas(sinceBaseVersion int) []Delta {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if sinceBaseVersion < 0 {
		sinceBaseVersion = 0
	}
	if sinceBaseVersion >= len(l.deltas) {
		return nil
	}
	out := make([]Delta, len(l.deltas)-sinceBaseVersion)
	copy(out, l.deltas[sinceBaseVersion:])
	return out
}

// GetTransformedDelta rebases delta onto the current tip by transforming
// it, operation by operation, against every history operation recorded
// since delta.BaseVersion. An operation is dropped only when it carries
// nothing: an insert of zero nodes or a move of zero nodes. A move whose
// source was removed by history is not dropped; its source is re-addressed
// like any other position (into the graveyard, for a removal). If every
// operation is dropped the delta carries no further meaning and an empty
// slice is returned (spec.md §7 TransformFailure).
func (l *Log) GetTransformedDelta(delta Delta) ([]Delta, error) {
	if delta.BaseVersion < 0 {
		return nil, fmt.Errorf("treedoc: delta has invalid base version %d", delta.BaseVersion)
	}
	since := l.GetDeltas(delta.BaseVersion)

	cur := delta
	for _, hd := range since {
		cur = transformDeltaByDelta(cur, hd)
		if len(cur.Operations) == 0 {
			return nil, nil
		}
	}
	cur.BaseVersion = l.CurrentVersion()
	return []Delta{cur}, nil
}

func transformDeltaByDelta(d Delta, by Delta) Delta {
	for _, hop := range by.Operations {
		d = transformDeltaByOperation(d, hop)
	}
	return d
}

func transformDeltaByOperation(d Delta, hop Operation) Delta {
	newOps := make([]Operation, 0, len(d.Operations))
	for _, op := range d.Operations {
		var t Operation
		if hop.Kind == OpInsert {
			t = op.getTransformedByInsertion(hop.Position, len(hop.Nodes))
		} else {
			t = op.getTransformedByMove(hop.Position, hop.Target, hop.HowMany)
		}
		if t.Kind == OpInsert {
			if len(t.Nodes) == 0 {
				continue
			}
		} else if t.HowMany == 0 {
			continue
		}
		newOps = append(newOps, t)
	}
	d.Operations = newOps
	return d
}
