package treedoc

import "fmt"

// RootID names one of the document's attached roots. GraveyardRoot is the
// special root that holds logically deleted content (spec.md §3).
type RootID string

// GraveyardRoot is the root identity used for removed content.
const GraveyardRoot RootID = "$graveyard"

// Position addresses a point in the document tree: a root plus a path of
// child indices. The last path element is the offset within its parent,
// so Path{2, 0} means "before the 0th child of the node at child index 2
// of the root".
type Position struct {
	Root RootID
	Path []int
}

// NewPosition builds a Position from a root and a path. The path is copied
// so callers can reuse their slice.
func NewPosition(root RootID, path []int) Position {
	cp := make([]int, len(path))
	copy(cp, path)
	return Position{Root: root, Path: cp}
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%v", p.Root, p.Path)
}

// Offset returns the last path element, i.e. the position's index within
// its parent.
func (p Position) Offset() int {
	if len(p.Path) == 0 {
		return 0
	}
	return p.Path[len(p.Path)-1]
}

// ParentPath returns the path to the position's parent node.
func (p Position) ParentPath() []int {
	if len(p.Path) == 0 {
		return nil
	}
	return p.Path[:len(p.Path)-1]
}

// shiftedBy returns the position with its offset increased by delta,
// leaving the parent path untouched.
func (p Position) shiftedBy(delta int) Position {
	np := NewPosition(p.Root, p.Path)
	if len(np.Path) == 0 {
		np.Path = []int{delta}
		return np
	}
	np.Path[len(np.Path)-1] += delta
	return np
}

// ShiftedBy is the exported form of shiftedBy, for callers outside the
// package that need to slide a position's offset without a full transform —
// undocore's move-conflict post-fix (spec.md §4.2 Stage B) shifts a target
// position by another move's HowMany this way.
func (p Position) ShiftedBy(delta int) Position {
	return p.shiftedBy(delta)
}

// comparePaths orders two paths the way tree addresses order: a path that
// is a strict prefix of another sorts before it (it names an ancestor
// opening before the descendant), otherwise the first differing index
// decides.
func comparePaths(a, b []int) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// IsBefore reports whether p sorts strictly before other. Positions in
// different roots are never ordered relative to each other.
func (p Position) IsBefore(other Position) bool {
	return p.Root == other.Root && comparePaths(p.Path, other.Path) < 0
}

// IsAfter reports whether p sorts strictly after other.
func (p Position) IsAfter(other Position) bool {
	return p.Root == other.Root && comparePaths(p.Path, other.Path) > 0
}

// IsEqual reports whether p and other address the same point.
func (p Position) IsEqual(other Position) bool {
	return p.Root == other.Root && comparePaths(p.Path, other.Path) == 0
}

// isAffectedBy reports whether insertOrMovePos names a node that is a
// sibling-or-ancestor-branch of p at the depth where the insertion/move
// happens, i.e. whether shifting at insertOrMovePos could move p. It
// returns the index in the path where the shift would apply.
func isAffectedBy(p, insertOrMovePos Position) (idx int, affected bool) {
	if p.Root != insertOrMovePos.Root {
		return 0, false
	}
	n := len(insertOrMovePos.Path)
	if n == 0 || len(p.Path) < n {
		return 0, false
	}
	for i := 0; i < n-1; i++ {
		if p.Path[i] != insertOrMovePos.Path[i] {
			return 0, false
		}
	}
	return n - 1, true
}

// getTransformedByInsertion returns p transformed by an insertion of
// howMany nodes at insertPos. spread decides the tie-break when p sits
// exactly at insertPos: true pushes p after the inserted content, false
// keeps p where it is. Range transforms pass true for both endpoints of a
// non-collapsed range, and pass their caller's spread through for a
// collapsed one.
func (p Position) getTransformedByInsertion(insertPos Position, howMany int, spread bool) Position {
	idx, ok := isAffectedBy(p, insertPos)
	if !ok {
		return p
	}
	insertOffset := insertPos.Path[idx]
	thisOffset := p.Path[idx]
	if insertOffset < thisOffset || (insertOffset == thisOffset && spread) {
		np := NewPosition(p.Root, p.Path)
		np.Path[idx] += howMany
		return np
	}
	return p
}

// getTransformedByDeletion returns p transformed by removing howMany nodes
// starting at deletePos, or nil if p itself was inside the removed range
// (and therefore ceases to exist at its old address).
func (p Position) getTransformedByDeletion(deletePos Position, howMany int) *Position {
	idx, ok := isAffectedBy(p, deletePos)
	if !ok {
		return &p
	}
	deleteOffset := deletePos.Path[idx]
	thisOffset := p.Path[idx]

	if thisOffset >= deleteOffset+howMany {
		np := NewPosition(p.Root, p.Path)
		np.Path[idx] -= howMany
		return &np
	}
	if thisOffset >= deleteOffset {
		// p addressed a node that got removed, or a point strictly inside
		// the removed range at a deeper path.
		if idx == len(p.Path)-1 {
			return nil
		}
		return nil
	}
	return &p
}

// getTransformedByMove returns p transformed by moving howMany nodes from
// sourcePos to targetPos, as a single combined deletion-then-insertion.
func (p Position) getTransformedByMove(sourcePos, targetPos Position, howMany int) Position {
	// Effective target position, as seen before the nodes are actually
	// removed from source (mirrors CKEditor5's "moved range start").
	movedStart := targetPos.getTransformedByDeletion(sourcePos, howMany)
	if movedStart == nil {
		movedStart = &targetPos
	}

	srcIdx, affectedBySource := isAffectedBy(p, sourcePos)
	if affectedBySource {
		offset := sourcePos.Path[srcIdx]
		thisOffset := p.Path[srcIdx]
		if thisOffset >= offset && thisOffset < offset+howMany && srcIdx == len(sourcePos.Path)-1 {
			// p was inside the half-open moved range [offset, offset+howMany):
			// re-anchor it under the new location, preserving how far into
			// the moved block it sat — not just the block's own new offset,
			// or every position inside a multi-node move would collapse to
			// the same address.
			delta := thisOffset - offset
			rel := append([]int(nil), p.Path[srcIdx+1:]...)
			newPath := append([]int(nil), movedStart.Path...)
			if len(newPath) == 0 {
				newPath = []int{delta}
			} else {
				newPath[len(newPath)-1] += delta
			}
			newPath = append(newPath, rel...)
			return NewPosition(movedStart.Root, newPath)
		}
	}

	after := p.getTransformedByDeletion(sourcePos, howMany)
	if after == nil {
		// Defensive: fall back to the moved-range re-anchoring above, which
		// should already have handled containment.
		after = &p
	}
	return after.getTransformedByInsertion(*movedStart, howMany, true)
}
