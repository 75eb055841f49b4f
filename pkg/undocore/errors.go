// Package undocore is the undo/redo core of a tree-structured document
// editor: C1 HistoryStack, C2 ReversionEngine, and C3 UndoController from
// spec.md. It depends only on the pkg/treedoc interfaces (Document,
// History, Range, Position) — never on any concrete document
// implementation — so it can sit in front of any host editor that
// satisfies those interfaces.
package undocore

import "errors"

// Error kinds spec.md §7 names. Distinguish them with errors.Is, the way
// the teacher's pkg/ot/operation.go exposes ErrCannotUndo/ErrCannotRedo as
// package-level sentinels rather than a custom error-code type.
var (
	// ErrEmptyStack is returned when a step is triggered with nothing to
	// revert. The caller should have left the command disabled.
	ErrEmptyStack = errors.New("undocore: stack is empty")
	// ErrNotFound is returned by PopItem/undoStep/redoStep when a
	// specifically targeted batch is not present in the stack.
	ErrNotFound = errors.New("undocore: batch not found in stack")
	// ErrTransformFailure is returned when the history transform leaves a
	// reversion with no operations left to apply — the original edit has
	// been fully obsoleted by intervening history.
	ErrTransformFailure = errors.New("undocore: history transform produced no deltas")
	// ErrApplicationFailure wraps a document-layer rejection of one of the
	// reversion's operations.
	ErrApplicationFailure = errors.New("undocore: document rejected a reversion operation")
)
