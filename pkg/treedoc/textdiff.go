package treedoc

import "github.com/sergi/go-diff/diffmatchpatch"

// BuildReplaceOperations computes the insert/remove operations that turn
// the run of text nodes currently at parentPath's children
// [startOffset, startOffset+graphemes(oldText)) from oldText into newText,
// using the diff-match-patch algorithm the teacher's
// pkg/transport/patch_manager.go is built on (there, to compute compact
// patches for version history; here, to let tests and the demo CLI build
// batches from plain before/after strings instead of hand-writing
// operations).
func BuildReplaceOperations(root RootID, parentPath []int, startOffset int, oldText, newText string, baseVersion int) []Operation {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)

	var ops []Operation
	offset := startOffset
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			offset += len(SegmentText(d.Text))
		case diffmatchpatch.DiffDelete:
			n := len(SegmentText(d.Text))
			pos := NewPosition(root, append(append([]int(nil), parentPath...), offset))
			ops = append(ops, NewRemoveOperation(pos, NewPosition(GraveyardRoot, []int{0}), n, baseVersion))
		case diffmatchpatch.DiffInsert:
			pos := NewPosition(root, append(append([]int(nil), parentPath...), offset))
			nodes := TextNodeList(d.Text)
			ops = append(ops, NewInsertOperation(pos, nodes, baseVersion))
			offset += len(nodes)
		}
	}
	return ops
}
