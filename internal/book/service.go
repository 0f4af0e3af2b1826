package book

import (
	"context"
	defError "errors"
	"relay-story-server/internal/domain"
	"relay-story-server/internal/errors"
	"relay-story-server/internal/notify"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service interface {
	CreateBook(ctx context.Context, identity domain.Identity, input CreateBookInput) (*domain.Book, error)
	AppendSentence(ctx context.Context, bookID uint64, identity domain.Identity, content string) (*SentenceDTO, error)
	CompleteBook(ctx context.Context, bookID uint64, identity domain.Identity) (*domain.Book, error)
	UpdateBookTitle(ctx context.Context, bookID uint64, identity domain.Identity, title string) (*domain.Book, error)
	UpdateSentence(ctx context.Context, bookID, sentenceID uint64, identity domain.Identity, content string) (*SentenceDTO, error)
	DeleteBook(ctx context.Context, bookID uint64, identity domain.Identity) error
	DeleteSentence(ctx context.Context, bookID, sentenceID uint64, identity domain.Identity) error
	GetBook(ctx context.Context, bookID uint64) (*BookDetail, error)
	BookIDForSentence(ctx context.Context, sentenceID uint64) (uint64, error)
	ReportTyping(ctx context.Context, bookID uint64, identity domain.Identity, area TypingArea, typing bool) error
}

// TypingArea selects which composer a typing signal belongs to.
type TypingArea string

const (
	TypingSentence TypingArea = "SENTENCE"
	TypingComment  TypingArea = "COMMENT"
)

// NicknameResolver maps writer ids to display names, falling back to a
// placeholder when the member directory cannot answer.
type NicknameResolver interface {
	Nickname(ctx context.Context, userID uint64) string
	Nicknames(ctx context.Context, userIDs []uint64) map[uint64]string
}

// VoteCounter reports like/dislike totals for a vote target.
type VoteCounter interface {
	CountVotes(ctx context.Context, target domain.Target) (domain.VoteCounts, error)
}

type DefaultService struct {
	repository Repository
	votes      VoteCounter
	nicknames  NicknameResolver
	notifier   notify.Notifier
}

func NewService(
	repository Repository,
	votes VoteCounter,
	nicknames NicknameResolver,
	notifier notify.Notifier,
) Service {
	return &DefaultService{
		repository: repository,
		votes:      votes,
		nicknames:  nicknames,
		notifier:   notifier,
	}
}

type CreateBookInput struct {
	Title         string
	CategoryID    string
	MaxSequence   int
	FirstSentence string
}

type SentenceDTO struct {
	ID             uint64    `json:"sentence_id"`
	BookID         uint64    `json:"book_id"`
	WriterID       uint64    `json:"writer_id"`
	WriterNickname string    `json:"writer_nickname"`
	Content        string    `json:"content"`
	SequenceNo     int       `json:"sequence_no"`
	CreatedAt      time.Time `json:"created_at"`
}

type BookDetail struct {
	domain.Book
	WriterNickname string        `json:"writer_nickname"`
	Sentences      []SentenceDTO `json:"sentences"`
	LikeCount      int64         `json:"like_count"`
	DislikeCount   int64         `json:"dislike_count"`
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.InvalidInput("Sentence cannot be empty", nil)
	}
	if utf8.RuneCountInString(content) > domain.MaxSentenceLength {
		return errors.InvalidInput("Sentence must be at most 200 characters", nil)
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.InvalidInput("Title cannot be empty", nil)
	}
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return errors.InvalidInput("Title must be at most 200 characters", nil)
	}
	return nil
}

func bookNotFound(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Book not found", err)
	}
	return err
}

func sentenceNotFound(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Sentence not found", err)
	}
	return err
}

func (s *DefaultService) CreateBook(ctx context.Context, identity domain.Identity, input CreateBookInput) (*domain.Book, error) {
	if err := validateTitle(input.Title); err != nil {
		return nil, err
	}
	if input.MaxSequence < domain.MinMaxSequence || input.MaxSequence > domain.MaxMaxSequence {
		return nil, errors.InvalidInput("Max sequence must be between 10 and 100", nil)
	}
	if err := validateContent(input.FirstSentence); err != nil {
		return nil, err
	}

	exists, err := s.repository.CategoryExists(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.InvalidInput("Unknown category", nil)
	}

	writerID := identity.UserID
	book := &domain.Book{
		WriterID:         writerID,
		CategoryID:       input.CategoryID,
		Title:            input.Title,
		Status:           domain.BookStatusWriting,
		CurrentSequence:  1,
		MaxSequence:      input.MaxSequence,
		LastWriterUserID: &writerID,
		Sentences: []domain.Sentence{{
			WriterID:   writerID,
			Content:    input.FirstSentence,
			SequenceNo: 0,
		}},
	}
	if err := s.repository.CreateBook(ctx, book); err != nil {
		return nil, err
	}

	first := book.Sentences[0]
	s.notifier.Notify(notify.SentenceTopic(book.ID), notify.SentenceEvent{
		Type:            notify.EventBookCreated,
		BookID:          book.ID,
		SentenceID:      first.ID,
		SequenceNo:      first.SequenceNo,
		WriterID:        writerID,
		Content:         first.Content,
		CurrentSequence: book.CurrentSequence,
	})
	log.Info().Uint64("book_id", book.ID).Uint64("writer_id", writerID).Msg("book created")

	book.Sentences = nil
	return book, nil
}

func (s *DefaultService) AppendSentence(ctx context.Context, bookID uint64, identity domain.Identity, content string) (*SentenceDTO, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	var (
		sentence *domain.Sentence
		after    domain.Book
	)
	err := s.repository.Transaction(ctx, func(repo Repository) error {
		book, err := repo.FindBookForUpdate(ctx, bookID)
		if err != nil {
			return bookNotFound(err)
		}
		if !book.IsWriting() {
			return errors.AlreadyCompleted("Book is already completed")
		}
		if !identity.IsAdmin && book.WrittenLastBy(identity.UserID) {
			return errors.ConsecutiveWriting("You cannot write two sentences in a row")
		}

		sentence = &domain.Sentence{
			BookID:     book.ID,
			WriterID:   identity.UserID,
			Content:    content,
			SequenceNo: book.CurrentSequence,
		}
		if err := repo.CreateSentence(ctx, sentence); err != nil {
			return err
		}

		writerID := identity.UserID
		book.LastWriterUserID = &writerID
		book.CurrentSequence++
		// one sentence past the threshold is accepted and completes the book
		if book.CurrentSequence > book.MaxSequence {
			book.Status = domain.BookStatusCompleted
		}
		if err := repo.SaveBookState(ctx, book); err != nil {
			return err
		}
		after = *book
		return nil
	})
	if err != nil {
		return nil, err
	}

	nickname := s.nicknames.Nickname(ctx, identity.UserID)
	s.notifier.Notify(notify.SentenceTopic(bookID), notify.SentenceEvent{
		Type:            notify.EventSentenceAppended,
		BookID:          bookID,
		SentenceID:      sentence.ID,
		SequenceNo:      sentence.SequenceNo,
		WriterID:        sentence.WriterID,
		WriterNickname:  nickname,
		Content:         sentence.Content,
		CurrentSequence: after.CurrentSequence,
		Completed:       !after.IsWriting(),
	})
	if !after.IsWriting() {
		log.Info().Uint64("book_id", bookID).Int("sentences", after.CurrentSequence).Msg("book auto-completed")
	}

	return toSentenceDTO(sentence, nickname), nil
}

func (s *DefaultService) CompleteBook(ctx context.Context, bookID uint64, identity domain.Identity) (*domain.Book, error) {
	var completed *domain.Book
	err := s.repository.Transaction(ctx, func(repo Repository) error {
		book, err := repo.FindBookForUpdate(ctx, bookID)
		if err != nil {
			return bookNotFound(err)
		}
		// administrators are not allowed to complete someone else's book
		if book.WriterID != identity.UserID {
			return errors.NotOwner("Only the book owner can complete it")
		}
		if !book.IsWriting() {
			return errors.AlreadyCompleted("Book is already completed")
		}

		book.Status = domain.BookStatusCompleted
		if err := repo.SaveBookState(ctx, book); err != nil {
			return err
		}
		completed = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(notify.SentenceTopic(bookID), notify.SentenceEvent{
		Type:            notify.EventBookCompleted,
		BookID:          bookID,
		SequenceNo:      completed.LastSequenceNo(),
		CurrentSequence: completed.CurrentSequence,
		Completed:       true,
	})
	return completed, nil
}

func (s *DefaultService) UpdateBookTitle(ctx context.Context, bookID uint64, identity domain.Identity, title string) (*domain.Book, error) {
	book, err := s.repository.FindBook(ctx, bookID)
	if err != nil {
		return nil, bookNotFound(err)
	}
	if !identity.CanModify(book.WriterID) {
		return nil, errors.NotOwner("Only the owner or an administrator can rename the book")
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	if err := s.repository.UpdateTitle(ctx, bookID, title); err != nil {
		return nil, bookNotFound(err)
	}
	book.Title = title
	return book, nil
}

func (s *DefaultService) UpdateSentence(ctx context.Context, bookID, sentenceID uint64, identity domain.Identity, content string) (*SentenceDTO, error) {
	book, err := s.repository.FindBook(ctx, bookID)
	if err != nil {
		return nil, bookNotFound(err)
	}
	sentence, err := s.repository.FindSentence(ctx, sentenceID)
	if err != nil {
		return nil, sentenceNotFound(err)
	}
	if sentence.BookID != book.ID {
		return nil, errors.NotFound("Sentence not found in this book", nil)
	}
	if !identity.CanModify(sentence.WriterID) {
		return nil, errors.NotOwner("Only the writer or an administrator can edit the sentence")
	}
	if sentence.SequenceNo != book.LastSequenceNo() {
		return nil, errors.SequenceMismatch("Only the last sentence can be edited")
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	// an append may have landed since the check above
	err = s.repository.UpdateLastSentenceContent(ctx, bookID, sentenceID, content)
	if defError.Is(err, ErrNotLastSentence) {
		return nil, errors.SequenceMismatch("Only the last sentence can be edited")
	}
	if err != nil {
		return nil, err
	}
	sentence.Content = content

	nickname := s.nicknames.Nickname(ctx, sentence.WriterID)
	s.notifier.Notify(notify.SentenceTopic(bookID), notify.SentenceEvent{
		Type:            notify.EventSentenceUpdated,
		BookID:          bookID,
		SentenceID:      sentence.ID,
		SequenceNo:      sentence.SequenceNo,
		WriterID:        sentence.WriterID,
		WriterNickname:  nickname,
		Content:         content,
		CurrentSequence: book.CurrentSequence,
		Completed:       !book.IsWriting(),
	})
	return toSentenceDTO(sentence, nickname), nil
}

func (s *DefaultService) DeleteBook(ctx context.Context, bookID uint64, identity domain.Identity) error {
	book, err := s.repository.FindBook(ctx, bookID)
	if err != nil {
		return bookNotFound(err)
	}
	if !identity.CanModify(book.WriterID) {
		return errors.NotOwner("Only the owner or an administrator can delete the book")
	}

	if err := s.repository.DeleteBook(ctx, bookID); err != nil {
		return bookNotFound(err)
	}
	log.Info().Uint64("book_id", bookID).Uint64("requester_id", identity.UserID).Msg("book deleted")
	return nil
}

func (s *DefaultService) DeleteSentence(ctx context.Context, bookID, sentenceID uint64, identity domain.Identity) error {
	var after domain.Book
	var removed domain.Sentence
	err := s.repository.Transaction(ctx, func(repo Repository) error {
		book, err := repo.FindBookForUpdate(ctx, bookID)
		if err != nil {
			return bookNotFound(err)
		}
		sentence, err := repo.FindSentence(ctx, sentenceID)
		if err != nil {
			return sentenceNotFound(err)
		}
		if sentence.BookID != book.ID {
			return errors.NotFound("Sentence not found in this book", nil)
		}
		if !identity.CanModify(sentence.WriterID) {
			return errors.NotOwner("Only the writer or an administrator can delete the sentence")
		}
		if sentence.SequenceNo != book.LastSequenceNo() {
			return errors.SequenceMismatch("Only the last sentence can be deleted")
		}

		if err := repo.DeleteSentence(ctx, sentence.ID); err != nil {
			return err
		}
		if err := repo.ShiftSequencesAfter(ctx, book.ID, sentence.SequenceNo); err != nil {
			return err
		}
		book.CurrentSequence--

		book.LastWriterUserID = nil
		previous, err := repo.FindSentenceBySequence(ctx, book.ID, book.LastSequenceNo())
		switch {
		case err == nil:
			writerID := previous.WriterID
			book.LastWriterUserID = &writerID
		case !defError.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := repo.SaveBookState(ctx, book); err != nil {
			return err
		}
		after = *book
		removed = *sentence
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(notify.SentenceTopic(bookID), notify.SentenceEvent{
		Type:            notify.EventSentenceDeleted,
		BookID:          bookID,
		SentenceID:      removed.ID,
		SequenceNo:      removed.SequenceNo,
		WriterID:        removed.WriterID,
		CurrentSequence: after.CurrentSequence,
		Completed:       !after.IsWriting(),
	})
	return nil
}

func (s *DefaultService) GetBook(ctx context.Context, bookID uint64) (*BookDetail, error) {
	book, err := s.repository.FindBook(ctx, bookID)
	if err != nil {
		return nil, bookNotFound(err)
	}
	sentences, err := s.repository.ListSentences(ctx, bookID)
	if err != nil {
		return nil, err
	}
	counts, err := s.votes.CountVotes(ctx, domain.BookTarget(bookID))
	if err != nil {
		return nil, err
	}

	writerIDs := []uint64{book.WriterID}
	for _, sentence := range sentences {
		writerIDs = append(writerIDs, sentence.WriterID)
	}
	names := s.nicknames.Nicknames(ctx, writerIDs)

	dtos := make([]SentenceDTO, 0, len(sentences))
	for i := range sentences {
		dtos = append(dtos, *toSentenceDTO(&sentences[i], names[sentences[i].WriterID]))
	}

	return &BookDetail{
		Book:           *book,
		WriterNickname: names[book.WriterID],
		Sentences:      dtos,
		LikeCount:      counts.LikeCount,
		DislikeCount:   counts.DislikeCount,
	}, nil
}

func (s *DefaultService) BookIDForSentence(ctx context.Context, sentenceID uint64) (uint64, error) {
	sentence, err := s.repository.FindSentence(ctx, sentenceID)
	if err != nil {
		return 0, sentenceNotFound(err)
	}
	return sentence.BookID, nil
}

// ReportTyping relays a typing signal to the book's watchers.
func (s *DefaultService) ReportTyping(ctx context.Context, bookID uint64, identity domain.Identity, area TypingArea, typing bool) error {
	if _, err := s.repository.FindBook(ctx, bookID); err != nil {
		return bookNotFound(err)
	}

	topic := notify.TypingTopic(bookID)
	switch area {
	case TypingSentence, "":
	case TypingComment:
		topic = notify.CommentTypingTopic(bookID)
	default:
		return errors.InvalidInput("Unknown typing area", nil)
	}

	s.notifier.Notify(topic, notify.TypingEvent{
		Type:     notify.EventTyping,
		BookID:   bookID,
		UserID:   identity.UserID,
		Nickname: s.nicknames.Nickname(ctx, identity.UserID),
		Typing:   typing,
	})
	return nil
}

func toSentenceDTO(s *domain.Sentence, nickname string) *SentenceDTO {
	return &SentenceDTO{
		ID:             s.ID,
		BookID:         s.BookID,
		WriterID:       s.WriterID,
		WriterNickname: nickname,
		Content:        s.Content,
		SequenceNo:     s.SequenceNo,
		CreatedAt:      s.CreatedAt,
	}
}
