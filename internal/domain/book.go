package domain

import (
	"time"
)

type BookStatus string

const (
	BookStatusWriting   BookStatus = "WRITING"
	BookStatusCompleted BookStatus = "COMPLETED"
)

const (
	MinMaxSequence    = 10
	MaxMaxSequence    = 100
	MaxSentenceLength = 200
	MaxTitleLength    = 200
)

type Category struct {
	ID   string `gorm:"primaryKey;size:20" json:"category_id"`
	Name string `gorm:"size:50;not null" json:"category_name"`
}

type Book struct {
	ID               uint64     `gorm:"primaryKey" json:"book_id"`
	WriterID         uint64     `gorm:"not null;index" json:"writer_id"`
	CategoryID       string     `gorm:"size:20;not null" json:"category_id"`
	Title            string     `gorm:"size:200;not null" json:"title"`
	Status           BookStatus `gorm:"size:20;not null;default:WRITING" json:"status"`
	CurrentSequence  int        `gorm:"not null;default:0" json:"current_sequence"`
	MaxSequence      int        `gorm:"not null" json:"max_sequence"`
	LastWriterUserID *uint64    `json:"last_writer_user_id"`
	Sentences        []Sentence `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsWriting reports whether the book still accepts sentences.
func (b *Book) IsWriting() bool {
	return b.Status == BookStatusWriting
}

// LastSequenceNo is the sequence number of the only sentence that may be
// edited or deleted, or -1 for an empty book.
func (b *Book) LastSequenceNo() int {
	return b.CurrentSequence - 1
}

// WrittenLastBy reports whether userID authored the most recent sentence.
func (b *Book) WrittenLastBy(userID uint64) bool {
	return b.LastWriterUserID != nil && *b.LastWriterUserID == userID
}

type Sentence struct {
	ID         uint64    `gorm:"primaryKey" json:"sentence_id"`
	BookID     uint64    `gorm:"not null;uniqueIndex:idx_sentence_book_seq" json:"book_id"`
	WriterID   uint64    `gorm:"not null;index" json:"writer_id"`
	Content    string    `gorm:"size:200;not null" json:"content"`
	SequenceNo int       `gorm:"not null;uniqueIndex:idx_sentence_book_seq" json:"sequence_no"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
