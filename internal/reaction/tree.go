package reaction

import (
	"time"
)

type CommentNode struct {
	ID             uint64         `json:"comment_id"`
	BookID         uint64         `json:"book_id"`
	ParentID       *uint64        `json:"parent_id"`
	WriterID       uint64         `json:"writer_id"`
	WriterNickname string         `json:"writer_nickname"`
	Content        string         `json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Children       []*CommentNode `json:"children"`
}

// BuildCommentTree links flat comments into reply trees in a single pass.
// A comment whose parent is not in the input becomes a root. Roots and
// children keep the input order.
func BuildCommentTree(flat []*CommentNode) []*CommentNode {
	byID := make(map[uint64]*CommentNode, len(flat))
	for _, node := range flat {
		node.Children = make([]*CommentNode, 0)
		byID[node.ID] = node
	}

	roots := make([]*CommentNode, 0)
	for _, node := range flat {
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := byID[*node.ParentID]
		if !ok || parent == node {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}
