package reaction

import (
	"context"
	defError "errors"
	"relay-story-server/internal/domain"
	"relay-story-server/internal/errors"
	"relay-story-server/internal/notify"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const MaxCommentLength = 1000

type Service interface {
	VoteBook(ctx context.Context, bookID, voterID uint64, voteType domain.VoteType) (bool, error)
	VoteSentence(ctx context.Context, sentenceID, voterID uint64, voteType domain.VoteType) (bool, error)
	VoteSummary(ctx context.Context, target domain.Target) (domain.VoteCounts, error)

	GetComments(ctx context.Context, bookID uint64) ([]*CommentNode, error)
	AddComment(ctx context.Context, identity domain.Identity, bookID uint64, parentID *uint64, content string) (*CommentNode, error)
	UpdateComment(ctx context.Context, commentID uint64, identity domain.Identity, content string) (*CommentNode, error)
	DeleteComment(ctx context.Context, commentID uint64, identity domain.Identity) error
}

// BookResolver finds the book a sentence belongs to. It may live in another
// process and fail independently of the vote store.
type BookResolver interface {
	BookIDForSentence(ctx context.Context, sentenceID uint64) (uint64, error)
}

type NicknameResolver interface {
	Nickname(ctx context.Context, userID uint64) string
	Nicknames(ctx context.Context, userIDs []uint64) map[uint64]string
}

type DefaultService struct {
	repository Repository
	books      BookResolver
	nicknames  NicknameResolver
	notifier   notify.Notifier
}

func NewService(
	repository Repository,
	books BookResolver,
	nicknames NicknameResolver,
	notifier notify.Notifier,
) Service {
	return &DefaultService{
		repository: repository,
		books:      books,
		nicknames:  nicknames,
		notifier:   notifier,
	}
}

func (s *DefaultService) VoteBook(ctx context.Context, bookID, voterID uint64, voteType domain.VoteType) (bool, error) {
	exists, err := s.repository.BookExists(ctx, bookID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, errors.NotFound("Book not found", nil)
	}

	target := domain.BookTarget(bookID)
	active, err := s.toggle(ctx, target, voterID, voteType)
	if err != nil {
		return false, err
	}

	s.broadcastVotes(ctx, bookID, target)
	return active, nil
}

func (s *DefaultService) VoteSentence(ctx context.Context, sentenceID, voterID uint64, voteType domain.VoteType) (bool, error) {
	exists, err := s.repository.SentenceExists(ctx, sentenceID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, errors.NotFound("Sentence not found", nil)
	}

	target := domain.SentenceTarget(sentenceID)
	active, err := s.toggle(ctx, target, voterID, voteType)
	if err != nil {
		return false, err
	}

	bookID, err := s.books.BookIDForSentence(ctx, sentenceID)
	if err != nil {
		log.Error().Err(err).Uint64("sentence_id", sentenceID).Msg("failed to resolve book for sentence vote broadcast")
		return active, nil
	}
	s.broadcastVotes(ctx, bookID, target)
	return active, nil
}

// toggle applies one vote request: a fresh vote is recorded, repeating the
// current type withdraws it and a different type replaces it.
func (s *DefaultService) toggle(ctx context.Context, target domain.Target, voterID uint64, voteType domain.VoteType) (bool, error) {
	if !voteType.Valid() {
		return false, errors.InvalidInput("Vote type must be LIKE or DISLIKE", nil)
	}

	existing, err := s.repository.FindVote(ctx, target, voterID)
	if err != nil && !defError.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if existing != nil && existing.VoteType == voteType {
		err := s.repository.DeleteVote(ctx, target, voterID)
		// a concurrent request already withdrew it
		if err != nil && !defError.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		return false, nil
	}

	if err := s.repository.UpsertVote(ctx, target, voterID, voteType); err != nil {
		return false, err
	}
	return true, nil
}

// broadcastVotes recounts the target after the winning write and publishes
// the totals on the book's vote topic. Failures are only logged.
func (s *DefaultService) broadcastVotes(ctx context.Context, bookID uint64, target domain.Target) {
	counts, err := s.repository.CountVotes(ctx, target)
	if err != nil {
		log.Error().Err(err).Uint64("target_id", target.ID).Msg("failed to count votes for broadcast")
		return
	}

	s.notifier.Notify(notify.VoteTopic(bookID), notify.VoteEvent{
		Type:         notify.EventVoteUpdated,
		TargetID:     target.ID,
		TargetType:   string(target.Type),
		LikeCount:    counts.LikeCount,
		DislikeCount: counts.DislikeCount,
	})
}

func (s *DefaultService) VoteSummary(ctx context.Context, target domain.Target) (domain.VoteCounts, error) {
	return s.repository.CountVotes(ctx, target)
}

func (s *DefaultService) GetComments(ctx context.Context, bookID uint64) ([]*CommentNode, error) {
	exists, err := s.repository.BookExists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFound("Book not found", nil)
	}

	comments, err := s.repository.ListComments(ctx, bookID)
	if err != nil {
		return nil, err
	}

	writerIDs := make([]uint64, 0, len(comments))
	for _, c := range comments {
		writerIDs = append(writerIDs, c.WriterID)
	}
	names := s.nicknames.Nicknames(ctx, writerIDs)

	nodes := make([]*CommentNode, 0, len(comments))
	for i := range comments {
		nodes = append(nodes, toNode(&comments[i], names[comments[i].WriterID]))
	}
	return BuildCommentTree(nodes), nil
}

func validateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.InvalidInput("Comment cannot be empty", nil)
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return errors.InvalidInput("Comment must be at most 1000 characters", nil)
	}
	return nil
}

func commentNotFound(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Comment not found", err)
	}
	return err
}

func (s *DefaultService) AddComment(ctx context.Context, identity domain.Identity, bookID uint64, parentID *uint64, content string) (*CommentNode, error) {
	if err := validateComment(content); err != nil {
		return nil, err
	}

	exists, err := s.repository.BookExists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFound("Book not found", nil)
	}

	if parentID != nil {
		parent, err := s.repository.FindComment(ctx, *parentID)
		if err != nil {
			return nil, commentNotFound(err)
		}
		if parent.BookID != bookID {
			return nil, errors.InvalidInput("Parent comment belongs to another book", nil)
		}
	}

	comment := &domain.Comment{
		BookID:   bookID,
		WriterID: identity.UserID,
		Content:  content,
		ParentID: parentID,
	}
	if err := s.repository.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	nickname := s.nicknames.Nickname(ctx, identity.UserID)
	s.notifier.Notify(notify.CommentTopic(bookID), notify.CommentEvent{
		Type:      notify.EventCommentCreated,
		CommentID: comment.ID,
		BookID:    bookID,
		ParentID:  parentID,
		Content:   content,
		Nickname:  nickname,
		CreatedAt: comment.CreatedAt,
	})
	return toNode(comment, nickname), nil
}

func (s *DefaultService) UpdateComment(ctx context.Context, commentID uint64, identity domain.Identity, content string) (*CommentNode, error) {
	comment, err := s.repository.FindComment(ctx, commentID)
	if err != nil {
		return nil, commentNotFound(err)
	}
	// editing is reserved to the writer, administrators included
	if comment.WriterID != identity.UserID {
		return nil, errors.NotOwner("Only the writer can edit the comment")
	}
	if err := validateComment(content); err != nil {
		return nil, err
	}

	if err := s.repository.UpdateCommentContent(ctx, commentID, content); err != nil {
		return nil, commentNotFound(err)
	}
	comment.Content = content
	return toNode(comment, s.nicknames.Nickname(ctx, comment.WriterID)), nil
}

func (s *DefaultService) DeleteComment(ctx context.Context, commentID uint64, identity domain.Identity) error {
	comment, err := s.repository.FindComment(ctx, commentID)
	if err != nil {
		return commentNotFound(err)
	}
	if !identity.CanModify(comment.WriterID) {
		return errors.NotOwner("Only the writer or an administrator can delete the comment")
	}

	if err := s.repository.DeleteComment(ctx, commentID); err != nil {
		return commentNotFound(err)
	}
	return nil
}

func toNode(c *domain.Comment, nickname string) *CommentNode {
	return &CommentNode{
		ID:             c.ID,
		BookID:         c.BookID,
		ParentID:       c.ParentID,
		WriterID:       c.WriterID,
		WriterNickname: nickname,
		Content:        c.Content,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		Children:       []*CommentNode{},
	}
}
