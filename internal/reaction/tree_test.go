package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v uint64) *uint64 { return &v }

func ids(nodes []*CommentNode) []uint64 {
	out := make([]uint64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestBuildCommentTree_OrphanBecomesRoot(t *testing.T) {
	roots := BuildCommentTree([]*CommentNode{
		{ID: 1},
		{ID: 2, ParentID: ptr(1)},
		{ID: 3, ParentID: ptr(999)},
	})

	require.Len(t, roots, 2)
	assert.Equal(t, []uint64{1, 3}, ids(roots))
	assert.Equal(t, []uint64{2}, ids(roots[0].Children))
	assert.Empty(t, roots[1].Children)
}

func TestBuildCommentTree_KeepsInputOrder(t *testing.T) {
	roots := BuildCommentTree([]*CommentNode{
		{ID: 5},
		{ID: 1},
		{ID: 9, ParentID: ptr(1)},
		{ID: 4, ParentID: ptr(1)},
		{ID: 7, ParentID: ptr(4)},
		{ID: 2, ParentID: ptr(5)},
	})

	assert.Equal(t, []uint64{5, 1}, ids(roots))
	assert.Equal(t, []uint64{2}, ids(roots[0].Children))
	assert.Equal(t, []uint64{9, 4}, ids(roots[1].Children))
	assert.Equal(t, []uint64{7}, ids(roots[1].Children[1].Children))
}

func TestBuildCommentTree_ReplyBeforeParent(t *testing.T) {
	roots := BuildCommentTree([]*CommentNode{
		{ID: 2, ParentID: ptr(1)},
		{ID: 1},
	})

	assert.Equal(t, []uint64{1}, ids(roots))
	assert.Equal(t, []uint64{2}, ids(roots[0].Children))
}

func TestBuildCommentTree_Empty(t *testing.T) {
	roots := BuildCommentTree(nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}

func TestBuildCommentTree_SelfParent(t *testing.T) {
	roots := BuildCommentTree([]*CommentNode{{ID: 1, ParentID: ptr(1)}})

	assert.Equal(t, []uint64{1}, ids(roots))
	assert.Empty(t, roots[0].Children)
}
