// Package treedoc models the tree-structured document that the undocore
// package edits: positions and ranges addressed by root + path, primitive
// operations (insert, move, remove, reinsert), deltas composed of
// operations, batches of deltas, and a growable history log that can
// rebase a delta onto the current tip (operational transformation).
//
// treedoc plays the role spec.md calls "external collaborators": the
// undo/redo core in pkg/undocore only ever talks to the interfaces defined
// here (Document, History, Range, Position). Tree implements those
// interfaces well enough to drive the property tests and the CLI demo.
package treedoc

import "github.com/google/uuid"

// BatchID identifies a Batch. Mirrors the session/operation ID scheme the
// teacher uses in pkg/transport (uuid-keyed sessions and patches).
type BatchID uuid.UUID

// NewBatchID mints a fresh batch identity.
func NewBatchID() BatchID { return BatchID(uuid.New()) }

func (id BatchID) String() string { return uuid.UUID(id).String() }

// DeltaID identifies a Delta.
type DeltaID uuid.UUID

// NewDeltaID mints a fresh delta identity.
func NewDeltaID() DeltaID { return DeltaID(uuid.New()) }

func (id DeltaID) String() string { return uuid.UUID(id).String() }
