package notify

import "time"

type EventType string

const (
	EventBookCreated      EventType = "BOOK_CREATED"
	EventBookCompleted    EventType = "BOOK_COMPLETED"
	EventSentenceAppended EventType = "SENTENCE_APPENDED"
	EventSentenceUpdated  EventType = "SENTENCE_UPDATED"
	EventSentenceDeleted  EventType = "SENTENCE_DELETED"
	EventVoteUpdated      EventType = "VOTE_UPDATED"
	EventCommentCreated   EventType = "COMMENT_CREATED"
	EventTyping           EventType = "TYPING"
)

// SentenceEvent is published on SentenceTopic for every change to a book's
// sentence sequence.
type SentenceEvent struct {
	Type            EventType `json:"type"`
	BookID          uint64    `json:"book_id"`
	SentenceID      uint64    `json:"sentence_id,omitempty"`
	SequenceNo      int       `json:"sequence_no"`
	WriterID        uint64    `json:"writer_id,omitempty"`
	WriterNickname  string    `json:"writer_nickname,omitempty"`
	Content         string    `json:"content,omitempty"`
	CurrentSequence int       `json:"current_sequence"`
	Completed       bool      `json:"completed"`
}

// VoteEvent carries the aggregate counts recomputed after a vote mutation.
type VoteEvent struct {
	Type         EventType `json:"type"`
	TargetID     uint64    `json:"target_id"`
	TargetType   string    `json:"target_type"`
	LikeCount    int64     `json:"like_count"`
	DislikeCount int64     `json:"dislike_count"`
}

type CommentEvent struct {
	Type      EventType `json:"type"`
	CommentID uint64    `json:"comment_id"`
	BookID    uint64    `json:"book_id"`
	ParentID  *uint64   `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}

// TypingEvent relays that a member started or stopped composing a sentence
// or comment. It is never stored.
type TypingEvent struct {
	Type     EventType `json:"type"`
	BookID   uint64    `json:"book_id"`
	UserID   uint64    `json:"user_id"`
	Nickname string    `json:"user_nickname"`
	Typing   bool      `json:"typing"`
}
