package undocore

import (
	"errors"

	"github.com/coreseekdev/treeundo/pkg/changestream"
	"github.com/coreseekdev/treeundo/pkg/treedoc"
)

// UndoController is C3 (spec.md §4.3): the twin-stack protocol that turns a
// document's change stream into undo/redo commands. Grounded on the
// teacher's pkg/ot/undo_manager.go, which wires a single undo stack off an
// operation log the same way — subscribe, classify, push/pop — generalized
// here to the two-stack (undo/redo) shape spec.md names.
type UndoController struct {
	doc       treedoc.Document
	undoStack *HistoryStack
	redoStack *HistoryStack
	engine    *ReversionEngine

	reverted    *changestream.Bus[*treedoc.Batch]
	unsubscribe func()
}

// NewUndoController wires a controller onto doc's change stream. The
// returned controller starts observing immediately; call Close to detach.
func NewUndoController(doc treedoc.Document) *UndoController {
	c := &UndoController{
		doc:       doc,
		undoStack: NewHistoryStack(),
		redoStack: NewHistoryStack(),
		engine:    NewReversionEngine(),
		reverted:  changestream.NewBus[*treedoc.Batch](),
	}
	c.unsubscribe = doc.Subscribe(c.onChange)
	return c
}

// Close detaches the controller from its document's change stream.
func (c *UndoController) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// OnReverted registers handler to be called with the original batch every
// time UndoStep or RedoStep successfully reverts it (spec.md §4.3, host
// editors use this to refresh toolbars/history UIs).
func (c *UndoController) OnReverted(handler func(*treedoc.Batch)) (unsubscribe func()) {
	return c.reverted.Subscribe(handler)
}

// OnStateChange registers handler to be called whenever CanUndo/CanRedo may
// have changed. The returned func removes both underlying subscriptions.
func (c *UndoController) OnStateChange(handler func()) (unsubscribe func()) {
	unsubUndo := c.undoStack.OnChange(handler)
	unsubRedo := c.redoStack.OnChange(handler)
	return func() {
		unsubUndo()
		unsubRedo()
	}
}

// onChange classifies a freshly recorded batch (spec.md §4.3): a plain
// user edit goes on the undo stack and clears redo; an undo-produced batch
// goes on the redo stack; a redo-produced batch goes back on the undo
// stack. Batches that never touch an attached document root (detached
// fragment edits) are ignored entirely.
func (c *UndoController) onChange(ev treedoc.ChangeEvent) {
	if ev.Batch == nil || !ev.Batch.AffectsDocumentRoot(c.doc) {
		return
	}
	selection := CaptureSelection(c.doc.Selection())

	switch ev.Kind {
	case treedoc.KindUndo:
		c.redoStack.Record(ev.Batch, selection)
	case treedoc.KindRedo:
		c.undoStack.Record(ev.Batch, selection)
	default:
		c.undoStack.Record(ev.Batch, selection)
		c.redoStack.Clear()
	}
}

// CanUndo reports whether UndoStep has anything to revert.
func (c *UndoController) CanUndo() bool { return !c.undoStack.IsEmpty() }

// CanRedo reports whether RedoStep has anything to revert.
func (c *UndoController) CanRedo() bool { return !c.redoStack.IsEmpty() }

// HasUndo reports whether id currently names an item on the undo stack,
// the predicate a host editor uses to enable a specific history entry's
// "undo to here" command.
func (c *UndoController) HasUndo(id treedoc.BatchID) bool { return c.undoStack.Contains(id) }

// HasRedo is HasUndo's redo-stack counterpart.
func (c *UndoController) HasRedo(id treedoc.BatchID) bool { return c.redoStack.Contains(id) }

// UndoStep reverts the most recent batch on the undo stack, or the batch
// identified by target if non-nil (spec.md §4.3).
func (c *UndoController) UndoStep(target *treedoc.Batch) error {
	return c.step(c.undoStack, treedoc.KindUndo, target)
}

// RedoStep reverts the most recent batch on the redo stack, or the batch
// identified by target if non-nil (spec.md §4.3).
func (c *UndoController) RedoStep(target *treedoc.Batch) error {
	return c.step(c.redoStack, treedoc.KindRedo, target)
}

// step is UndoStep/RedoStep's shared body. It pops an item, runs the
// reversion engine inside one EnqueueChange scope, and restores the
// transformed selection. ErrTransformFailure means the item's reversion
// was fully obsoleted by intervening history: nothing was applied, but
// the item is still consumed rather than requeued (spec.md §7). Only
// ErrApplicationFailure — where EnqueueChange's snapshot rolled back a
// partial reversion — pushes the item back onto stack, since that is the
// one failure mode where the item is still genuinely pending.
func (c *UndoController) step(stack *HistoryStack, kind treedoc.BatchKind, target *treedoc.Batch) error {
	item, err := stack.PopItem(target)
	if err != nil {
		return err
	}

	var revertErr error
	_, applyErr := c.doc.EnqueueChange(kind, func() error {
		result, err := c.engine.Revert(c.doc, item, kind)
		if err != nil {
			revertErr = err
			return err
		}
		if result.TransformedSelection != nil {
			result.TransformedSelection.Restore(c.doc.Selection())
		}
		return nil
	})

	if applyErr == nil {
		c.reverted.Publish(item.Batch)
		return nil
	}

	if errors.Is(revertErr, ErrApplicationFailure) {
		stack.Record(item.Batch, item.Selection)
	}
	return applyErr
}
