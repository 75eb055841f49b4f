package undocore

import (
	"sync"

	"github.com/coreseekdev/treeundo/pkg/changestream"
	"github.com/coreseekdev/treeundo/pkg/treedoc"
)

// HistoryItem pairs a recorded batch with the selection snapshot captured
// when it was recorded (spec.md §3).
type HistoryItem struct {
	Batch     *treedoc.Batch
	Selection SelectionSnapshot
}

// HistoryStack is C1 (spec.md §4.1): an ordered collection of HistoryItems
// with a companion identity set for deduplication. Grounded on the
// teacher's pkg/ot/undo_manager.go, which keeps the same shape — a
// mutex-guarded slice stack with Clear/CanUndo-style predicates — though
// there it stacks bare operations rather than (batch, selection) pairs.
type HistoryStack struct {
	mu      sync.Mutex
	items   []HistoryItem
	ids     map[treedoc.BatchID]struct{}
	changed *changestream.Bus[struct{}]
}

// NewHistoryStack creates an empty stack.
func NewHistoryStack() *HistoryStack {
	return &HistoryStack{
		ids:     make(map[treedoc.BatchID]struct{}),
		changed: changestream.NewBus[struct{}](),
	}
}

// OnChange registers a handler invoked after every mutation (record, pop,
// clear) so the host editor can refresh enabled/disabled command state
// (spec.md §4.1's "emits a state-changed signal"). The returned func
// removes the subscription.
func (s *HistoryStack) OnChange(handler func()) (unsubscribe func()) {
	return s.changed.Subscribe(func(struct{}) { handler() })
}

// Record appends a HistoryItem for batch/selection. A no-op, invariant
// preserving: empty batches never enter a stack, and a batch already
// present is not re-recorded (its stored selection is left untouched)
// (spec.md §4.1).
func (s *HistoryStack) Record(batch *treedoc.Batch, selection SelectionSnapshot) {
	if batch.IsEmpty() {
		return
	}

	s.mu.Lock()
	if _, ok := s.ids[batch.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.ids[batch.ID] = struct{}{}
	s.items = append(s.items, HistoryItem{Batch: batch, Selection: selection})
	s.mu.Unlock()

	s.changed.Publish(struct{}{})
}

// Clear drops every item and empties the identity set.
func (s *HistoryStack) Clear() {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return
	}
	s.items = nil
	s.ids = make(map[treedoc.BatchID]struct{})
	s.mu.Unlock()

	s.changed.Publish(struct{}{})
}

// PopItem removes and returns the item whose batch matches target by
// identity, or the top item when target is nil. The popped batch's
// identity is removed from the set so it may be recorded again later —
// this is what makes redo-of-undo and undo-of-redo possible (spec.md
// §4.1). Returns ErrEmptyStack or ErrNotFound (spec.md §4.1 error
// conditions).
func (s *HistoryStack) PopItem(target *treedoc.Batch) (HistoryItem, error) {
	s.mu.Lock()

	if len(s.items) == 0 {
		s.mu.Unlock()
		return HistoryItem{}, ErrEmptyStack
	}

	idx := len(s.items) - 1
	if target != nil {
		idx = -1
		for i, it := range s.items {
			if it.Batch.ID == target.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			s.mu.Unlock()
			return HistoryItem{}, ErrNotFound
		}
	}

	item := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	delete(s.ids, item.Batch.ID)
	s.mu.Unlock()

	s.changed.Publish(struct{}{})
	return item, nil
}

// IsEmpty reports whether the stack has no items. Drives command-enabled
// state (spec.md §4.1).
func (s *HistoryStack) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// Len returns the number of items currently in the stack.
func (s *HistoryStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Contains reports whether id currently identifies an item in the stack.
func (s *HistoryStack) Contains(id treedoc.BatchID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}
