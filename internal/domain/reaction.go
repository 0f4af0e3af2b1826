package domain

import (
	"time"

	"gorm.io/gorm"
)

type VoteType string

const (
	VoteLike    VoteType = "LIKE"
	VoteDislike VoteType = "DISLIKE"
)

func (v VoteType) Valid() bool {
	return v == VoteLike || v == VoteDislike
}

type TargetType string

const (
	TargetBook     TargetType = "BOOK"
	TargetSentence TargetType = "SENTENCE"
)

// Target identifies what a vote is cast on.
type Target struct {
	Type TargetType
	ID   uint64
}

func BookTarget(id uint64) Target     { return Target{Type: TargetBook, ID: id} }
func SentenceTarget(id uint64) Target { return Target{Type: TargetSentence, ID: id} }

type BookVote struct {
	ID        uint64   `gorm:"primaryKey"`
	BookID    uint64   `gorm:"not null;uniqueIndex:idx_book_vote_voter"`
	VoterID   uint64   `gorm:"not null;uniqueIndex:idx_book_vote_voter"`
	VoteType  VoteType `gorm:"size:10;not null"`
	CreatedAt time.Time
}

type SentenceVote struct {
	ID         uint64   `gorm:"primaryKey"`
	SentenceID uint64   `gorm:"not null;uniqueIndex:idx_sentence_vote_voter"`
	VoterID    uint64   `gorm:"not null;uniqueIndex:idx_sentence_vote_voter"`
	VoteType   VoteType `gorm:"size:10;not null"`
	CreatedAt  time.Time
}

// Vote is the flavor-independent view of a book or sentence vote row.
type Vote struct {
	ID       uint64
	TargetID uint64
	VoterID  uint64
	VoteType VoteType
}

type VoteCounts struct {
	LikeCount    int64 `json:"like_count"`
	DislikeCount int64 `json:"dislike_count"`
}

type Comment struct {
	ID        uint64         `gorm:"primaryKey" json:"comment_id"`
	BookID    uint64         `gorm:"not null;index" json:"book_id"`
	WriterID  uint64         `gorm:"not null;index" json:"writer_id"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	ParentID  *uint64        `gorm:"index" json:"parent_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
