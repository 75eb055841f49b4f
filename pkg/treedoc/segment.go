package treedoc

import "github.com/clipperhouse/uax29/graphemes"

// SegmentText splits text into grapheme clusters (user-perceived
// characters), the same way the teacher's pkg/rope/graphemes.go does for
// cursor-safe rope editing. TextNodeList uses this so a combining-mark
// grapheme is never split across an insert/remove boundary, keeping
// insert/remove/reinsert operations — and their inverses — aligned on
// character boundaries a user would actually select.
func SegmentText(text string) []string {
	return graphemes.SegmentAllString(text)
}

// TextNodeList builds one text node per grapheme cluster of text, the
// node-list shape InsertOperation expects.
func TextNodeList(text string) []*Node {
	segments := SegmentText(text)
	nodes := make([]*Node, len(segments))
	for i, s := range segments {
		nodes[i] = TextNode(s)
	}
	return nodes
}
