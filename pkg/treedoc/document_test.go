package treedoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree_InsertAndText(t *testing.T) {
	tr := NewTree("main")

	batch, err := tr.EnqueueChange(KindUser, func() error {
		return tr.ApplyOperation(NewInsertOperation(NewPosition("main", []int{0}), TextNodeList("hi"), tr.History().CurrentVersion()))
	})
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, "hi", tr.Text("main"))
	assert.Equal(t, 1, tr.History().CurrentVersion())
}

func TestTree_EmptyBatchIsNotRecorded(t *testing.T) {
	tr := NewTree("main")

	batch, err := tr.EnqueueChange(KindUser, func() error { return nil })
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.Equal(t, 0, tr.History().CurrentVersion())
}

func TestTree_ApplyOperationOutsideScopeFails(t *testing.T) {
	tr := NewTree("main")
	err := tr.ApplyOperation(NewInsertOperation(NewPosition("main", []int{0}), TextNodeList("x"), 0))
	assert.ErrorIs(t, err, ErrNotInScope)
}

func TestTree_FailurePartwayThroughRollsBack(t *testing.T) {
	tr := NewTree("main")

	_, err := tr.EnqueueChange(KindUser, func() error {
		if err := tr.ApplyOperation(NewInsertOperation(NewPosition("main", []int{0}), TextNodeList("ok"), 0)); err != nil {
			return err
		}
		// A removal that asks for more nodes than exist must fail, and the
		// preceding insert in this same scope must not remain observable.
		return tr.ApplyOperation(NewRemoveOperation(NewPosition("main", []int{0}), NewPosition(GraveyardRoot, []int{0}), 99, 0))
	})
	require.Error(t, err)
	assert.Equal(t, "", tr.Text("main"))
	assert.Equal(t, 0, tr.History().CurrentVersion())
}

func TestTree_SubscribeReceivesChangeEventInOrder(t *testing.T) {
	tr := NewTree("main")
	var order []int

	unsub1 := tr.Subscribe(func(ChangeEvent) { order = append(order, 1) })
	defer unsub1()
	unsub2 := tr.Subscribe(func(ChangeEvent) { order = append(order, 2) })
	defer unsub2()

	_, err := tr.EnqueueChange(KindUser, func() error {
		return tr.ApplyOperation(NewInsertOperation(NewPosition("main", []int{0}), TextNodeList("a"), tr.History().CurrentVersion()))
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, order)
}

func TestTree_EnqueueChangeDoesNotNest(t *testing.T) {
	tr := NewTree("main")
	var nestedErr error

	_, err := tr.EnqueueChange(KindUser, func() error {
		_, nestedErr = tr.EnqueueChange(KindUser, func() error { return nil })
		return nil
	})
	require.NoError(t, err)
	assert.Error(t, nestedErr)
}

func TestTree_IsDocumentRootIncludesGraveyard(t *testing.T) {
	tr := NewTree("main")
	assert.True(t, tr.IsDocumentRoot("main"))
	assert.True(t, tr.IsDocumentRoot(tr.Graveyard()))
	assert.False(t, tr.IsDocumentRoot("nonexistent"))
}

func TestLog_GetTransformedDelta_RebasesAgainstInterveningHistory(t *testing.T) {
	log := NewLog()

	// History already inserted 3 nodes at offset 0.
	recorded := NewDelta(0, NewInsertOperation(NewPosition("main", []int{0}), TextNodeList("abc"), 0))
	log.Append(&Batch{ID: NewBatchID(), Kind: KindUser, Deltas: []Delta{recorded}})

	// A delta produced against the same base version, inserting at offset
	// 5, must be pushed past the 3 nodes history already placed ahead of it.
	pending := NewDelta(0, NewInsertOperation(NewPosition("main", []int{5}), TextNodeList("x"), 0))

	out, err := log.GetTransformedDelta(pending)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].Operations, 1)
	assert.Equal(t, []int{8}, out[0].Operations[0].Position.Path)
	assert.Equal(t, 1, out[0].BaseVersion)
}

func TestBatch_AffectsDocumentRoot(t *testing.T) {
	tr := NewTree("main")
	inDoc := NewBatch(NewDelta(0, NewInsertOperation(NewPosition("main", []int{0}), TextNodeList("x"), 0)))
	assert.True(t, inDoc.AffectsDocumentRoot(tr))

	detached := NewBatch(NewDelta(0, NewInsertOperation(NewPosition("detached-fragment", []int{0}), TextNodeList("x"), 0)))
	assert.False(t, detached.AffectsDocumentRoot(tr))
}
