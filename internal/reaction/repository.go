package reaction

import (
	"context"
	"fmt"
	"relay-story-server/internal/domain"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository stores votes and comments. Lookups of missing rows return
// gorm.ErrRecordNotFound.
type Repository interface {
	BookExists(ctx context.Context, bookID uint64) (bool, error)
	SentenceExists(ctx context.Context, sentenceID uint64) (bool, error)

	FindVote(ctx context.Context, target domain.Target, voterID uint64) (*domain.Vote, error)
	// UpsertVote writes the voter's vote on target. A concurrent insert for
	// the same (target, voter) key is resolved by overwriting its type.
	UpsertVote(ctx context.Context, target domain.Target, voterID uint64, voteType domain.VoteType) error
	DeleteVote(ctx context.Context, target domain.Target, voterID uint64) error
	CountVotes(ctx context.Context, target domain.Target) (domain.VoteCounts, error)

	CreateComment(ctx context.Context, comment *domain.Comment) error
	FindComment(ctx context.Context, id uint64) (*domain.Comment, error)
	// ListComments returns the live comments of a book in creation order.
	ListComments(ctx context.Context, bookID uint64) ([]domain.Comment, error)
	UpdateCommentContent(ctx context.Context, id uint64, content string) error
	DeleteComment(ctx context.Context, id uint64) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new reaction repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// voteTable maps a target type onto its vote table and target column.
func voteTable(target domain.Target) (model any, column string, err error) {
	switch target.Type {
	case domain.TargetBook:
		return &domain.BookVote{}, "book_id", nil
	case domain.TargetSentence:
		return &domain.SentenceVote{}, "sentence_id", nil
	default:
		return nil, "", fmt.Errorf("unknown vote target type %q", target.Type)
	}
}

func (r *RepositoryImpl) BookExists(ctx context.Context, bookID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Book{}).
		Where("id = ?", bookID).
		Count(&count).Error
	return count > 0, err
}

func (r *RepositoryImpl) SentenceExists(ctx context.Context, sentenceID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Sentence{}).
		Where("id = ?", sentenceID).
		Count(&count).Error
	return count > 0, err
}

func (r *RepositoryImpl) FindVote(ctx context.Context, target domain.Target, voterID uint64) (*domain.Vote, error) {
	model, column, err := voteTable(target)
	if err != nil {
		return nil, err
	}

	columns := "id, " + column + " AS target_id, voter_id, vote_type"
	var vote domain.Vote
	result := r.db.WithContext(ctx).
		Model(model).
		Select(columns).
		Where(column+" = ? AND voter_id = ?", target.ID, voterID).
		Limit(1).
		Scan(&vote)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &vote, nil
}

func (r *RepositoryImpl) UpsertVote(ctx context.Context, target domain.Target, voterID uint64, voteType domain.VoteType) error {
	conflict := clause.OnConflict{
		DoUpdates: clause.AssignmentColumns([]string{"vote_type"}),
	}
	now := time.Now().UTC()

	switch target.Type {
	case domain.TargetBook:
		conflict.Columns = []clause.Column{{Name: "book_id"}, {Name: "voter_id"}}
		return r.db.WithContext(ctx).Clauses(conflict).Create(&domain.BookVote{
			BookID:    target.ID,
			VoterID:   voterID,
			VoteType:  voteType,
			CreatedAt: now,
		}).Error
	case domain.TargetSentence:
		conflict.Columns = []clause.Column{{Name: "sentence_id"}, {Name: "voter_id"}}
		return r.db.WithContext(ctx).Clauses(conflict).Create(&domain.SentenceVote{
			SentenceID: target.ID,
			VoterID:    voterID,
			VoteType:   voteType,
			CreatedAt:  now,
		}).Error
	default:
		return fmt.Errorf("unknown vote target type %q", target.Type)
	}
}

func (r *RepositoryImpl) DeleteVote(ctx context.Context, target domain.Target, voterID uint64) error {
	model, column, err := voteTable(target)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Where(column+" = ? AND voter_id = ?", target.ID, voterID).
		Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RepositoryImpl) CountVotes(ctx context.Context, target domain.Target) (domain.VoteCounts, error) {
	var counts domain.VoteCounts
	model, column, err := voteTable(target)
	if err != nil {
		return counts, err
	}

	var rows []struct {
		VoteType domain.VoteType
		Total    int64
	}
	err = r.db.WithContext(ctx).
		Model(model).
		Select("vote_type, COUNT(*) AS total").
		Where(column+" = ?", target.ID).
		Group("vote_type").
		Scan(&rows).Error
	if err != nil {
		return counts, err
	}

	for _, row := range rows {
		switch row.VoteType {
		case domain.VoteLike:
			counts.LikeCount = row.Total
		case domain.VoteDislike:
			counts.DislikeCount = row.Total
		}
	}
	return counts, nil
}

func (r *RepositoryImpl) CreateComment(ctx context.Context, comment *domain.Comment) error {
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *RepositoryImpl) FindComment(ctx context.Context, id uint64) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.db.WithContext(ctx).First(&comment, id).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *RepositoryImpl) ListComments(ctx context.Context, bookID uint64) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *RepositoryImpl) UpdateCommentContent(ctx context.Context, id uint64, content string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"content":    content,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteComment soft-deletes the comment. Replies keep their parent id and
// surface as roots once the parent is filtered out.
func (r *RepositoryImpl) DeleteComment(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&domain.Comment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
