package treedoc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coreseekdev/treeundo/pkg/changestream"
)

// ErrNotInScope is returned by ApplyOperation when called outside an
// EnqueueChange scope.
var ErrNotInScope = errors.New("treedoc: ApplyOperation called outside EnqueueChange scope")

// selectionState is the reference Selection implementation: plain slice of
// ranges plus a direction flag (spec.md §9 Open Question: persist
// isBackward).
type selectionState struct {
	ranges     []Range
	isBackward bool
}

func (s *selectionState) GetRanges() []Range { return append([]Range(nil), s.ranges...) }
func (s *selectionState) IsBackward() bool   { return s.isBackward }
func (s *selectionState) SetRanges(ranges []Range, isBackward bool) {
	s.ranges = append([]Range(nil), ranges...)
	s.isBackward = isBackward
}

// Tree is the reference Document implementation used by pkg/undocore's
// tests and the cmd/treeundo-demo walkthrough. Grounded on the teacher's
// pkg/document.StringDocument test double, generalized from a flat string
// to a node tree with a dedicated graveyard root (spec.md §3).
type Tree struct {
	mu        sync.Mutex
	roots     map[RootID]*Node
	graveyard RootID
	history   *Log
	selection *selectionState
	bus       *changestream.Bus[ChangeEvent]

	inScope  bool
	scopeOps []Operation
}

// NewTree creates a document with the given attached root names (the
// graveyard root is added automatically).
func NewTree(rootNames ...RootID) *Tree {
	t := &Tree{
		roots:     make(map[RootID]*Node),
		graveyard: GraveyardRoot,
		history:   NewLog(),
		selection: &selectionState{},
		bus:       changestream.NewBus[ChangeEvent](),
	}
	for _, name := range rootNames {
		t.roots[name] = ElementNode("root")
	}
	t.roots[t.graveyard] = ElementNode("root")
	return t
}

// Bus exposes the underlying change-stream bus for consumers that attach to
// it directly: the websocket broadcaster (a callback subscriber), or
// anything that wants channel-based delivery through SubscribeChan.
func (t *Tree) Bus() *changestream.Bus[ChangeEvent] { return t.bus }

func (t *Tree) Graveyard() RootID { return t.graveyard }

func (t *Tree) IsDocumentRoot(root RootID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.roots[root]
	return ok
}

func (t *Tree) Selection() Selection { return t.selection }
func (t *Tree) History() History     { return t.history }

func (t *Tree) Subscribe(handler func(ChangeEvent)) (unsubscribe func()) {
	return t.bus.Subscribe(handler)
}

// EnqueueChange runs fn with exclusive mutation access, collecting every
// operation fn applies via ApplyOperation into one batch tagged kind. The
// batch is recorded in history and published on the change stream only
// after fn returns successfully (spec.md §5, §7 ApplicationFailure).
func (t *Tree) EnqueueChange(kind BatchKind, fn func() error) (*Batch, error) {
	t.mu.Lock()
	if t.inScope {
		t.mu.Unlock()
		return nil, fmt.Errorf("treedoc: EnqueueChange scopes cannot nest")
	}
	// Snapshot the tree so a failure partway through fn can be rolled back
	// without a partial reversion ever becoming observable (spec.md §7
	// ApplicationFailure).
	snapshot := make(map[RootID]*Node, len(t.roots))
	for k, v := range t.roots {
		snapshot[k] = v.Clone()
	}
	t.inScope = true
	t.scopeOps = nil
	baseVersion := t.history.CurrentVersion()
	t.mu.Unlock()

	err := fn()

	t.mu.Lock()
	ops := t.scopeOps
	t.scopeOps = nil
	t.inScope = false
	if err != nil {
		t.roots = snapshot
	}
	t.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, nil
	}

	batch := &Batch{ID: NewBatchID(), Kind: kind, Deltas: []Delta{NewDelta(baseVersion, ops...)}}
	t.history.Append(batch)
	t.bus.Publish(ChangeEvent{Kind: kind, Changes: len(ops), Batch: batch})
	return batch, nil
}

// ApplyOperation applies op to the live tree. Must be called from inside
// an EnqueueChange scope.
func (t *Tree) ApplyOperation(op Operation) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.inScope {
		return ErrNotInScope
	}
	if err := t.apply(op); err != nil {
		return err
	}
	t.scopeOps = append(t.scopeOps, op)
	return nil
}

func (t *Tree) apply(op Operation) error {
	switch op.Kind {
	case OpInsert:
		return t.insertAt(op.Position, cloneList(op.Nodes))
	case OpMove, OpRemove, OpReinsert:
		nodes, err := t.removeAt(op.Position, op.HowMany)
		if err != nil {
			return err
		}
		return t.insertAt(op.Target, nodes)
	default:
		return fmt.Errorf("treedoc: unknown operation kind %v", op.Kind)
	}
}

func (t *Tree) parentAndIndex(pos Position) (*Node, int, error) {
	root, ok := t.roots[pos.Root]
	if !ok {
		return nil, 0, fmt.Errorf("treedoc: unknown root %q", pos.Root)
	}
	node := root
	if len(pos.Path) == 0 {
		return nil, 0, fmt.Errorf("treedoc: position %s has no offset", pos)
	}
	for _, idx := range pos.Path[:len(pos.Path)-1] {
		if idx < 0 || idx >= len(node.Children) {
			return nil, 0, fmt.Errorf("treedoc: path index %d out of range at %s", idx, pos)
		}
		node = node.Children[idx]
	}
	offset := pos.Path[len(pos.Path)-1]
	if offset < 0 || offset > len(node.Children) {
		return nil, 0, fmt.Errorf("treedoc: offset %d out of range at %s", offset, pos)
	}
	return node, offset, nil
}

func (t *Tree) insertAt(pos Position, nodes []*Node) error {
	parent, offset, err := t.parentAndIndex(pos)
	if err != nil {
		return err
	}
	parent.Children = append(parent.Children[:offset], append(nodes, parent.Children[offset:]...)...)
	return nil
}

func (t *Tree) removeAt(pos Position, howMany int) ([]*Node, error) {
	parent, offset, err := t.parentAndIndex(pos)
	if err != nil {
		return nil, err
	}
	if offset+howMany > len(parent.Children) {
		return nil, fmt.Errorf("treedoc: cannot remove %d nodes at %s: only %d available", howMany, pos, len(parent.Children)-offset)
	}
	removed := append([]*Node(nil), parent.Children[offset:offset+howMany]...)
	rest := append([]*Node(nil), parent.Children[offset+howMany:]...)
	parent.Children = append(parent.Children[:offset], rest...)
	return removed, nil
}

// Text renders the text content of root's descendants, depth-first, for
// assertions in tests and the demo CLI.
func (t *Tree) Text(root RootID) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.roots[root]
	if !ok {
		return ""
	}
	var b []byte
	var walk func(*Node)
	walk = func(node *Node) {
		if node.Kind == NodeText {
			b = append(b, node.Text...)
			return
		}
		for _, c := range node.Children {
			walk(c)
		}
	}
	walk(n)
	return string(b)
}

// ReplaceText diffs root's current text against newText and applies the
// resulting insert/remove operations as one batch tagged kind, the way a
// host editor turns a paste or a find-and-replace into tree operations
// instead of hand-writing them (spec.md §9). Grounded on the teacher's
// pkg/transport/patch_manager.go, which drives the same diff-match-patch
// library off a before/after string pair.
func (t *Tree) ReplaceText(kind BatchKind, root RootID, newText string) (*Batch, error) {
	oldText := t.Text(root)
	return t.EnqueueChange(kind, func() error {
		baseVersion := t.history.CurrentVersion()
		for _, op := range BuildReplaceOperations(root, nil, 0, oldText, newText, baseVersion) {
			if err := t.ApplyOperation(op); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len returns the number of direct children of root, used to compute
// offsets/positions in tests without hardcoding tree shape.
func (t *Tree) Len(root RootID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.roots[root]
	if !ok {
		return 0
	}
	return len(n.Children)
}
