package book

import (
	"context"
	defError "errors"
	"fmt"
	"relay-story-server/internal/domain"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotLastSentence is returned by UpdateLastSentenceContent when the
// sentence is missing or no longer the last one of its book.
var ErrNotLastSentence = defError.New("sentence is not the last of its book")

// Repository is the book and sentence store. Lookups of missing rows return
// gorm.ErrRecordNotFound.
type Repository interface {
	// Transaction runs fn against a repository bound to one database
	// transaction. Row locks taken inside fn are held until it returns.
	Transaction(ctx context.Context, fn func(repo Repository) error) error

	CategoryExists(ctx context.Context, categoryID string) (bool, error)

	CreateBook(ctx context.Context, book *domain.Book) error
	FindBook(ctx context.Context, id uint64) (*domain.Book, error)
	// FindBookForUpdate reads the book and holds an exclusive row lock on it
	// for the rest of the enclosing transaction.
	FindBookForUpdate(ctx context.Context, id uint64) (*domain.Book, error)
	SaveBookState(ctx context.Context, book *domain.Book) error
	UpdateTitle(ctx context.Context, id uint64, title string) error
	DeleteBook(ctx context.Context, id uint64) error

	CreateSentence(ctx context.Context, sentence *domain.Sentence) error
	FindSentence(ctx context.Context, id uint64) (*domain.Sentence, error)
	FindSentenceBySequence(ctx context.Context, bookID uint64, sequenceNo int) (*domain.Sentence, error)
	ListSentences(ctx context.Context, bookID uint64) ([]domain.Sentence, error)
	// UpdateLastSentenceContent rewrites the sentence only while it is still
	// the last one of bookID.
	UpdateLastSentenceContent(ctx context.Context, bookID, id uint64, content string) error
	DeleteSentence(ctx context.Context, id uint64) error
	// ShiftSequencesAfter moves every sentence of bookID with a sequence
	// number above sequenceNo down by one.
	ShiftSequencesAfter(ctx context.Context, bookID uint64, sequenceNo int) error
}

type RepositoryImpl struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewRepository creates a new book repository
func NewRepository(db *gorm.DB, lockTimeout time.Duration) Repository {
	return &RepositoryImpl{db: db, lockTimeout: lockTimeout}
}

func (r *RepositoryImpl) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// bound the wait on book row locks; a timeout aborts the transaction
		if r.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(&RepositoryImpl{db: tx, lockTimeout: r.lockTimeout})
	})
}

func (r *RepositoryImpl) CategoryExists(ctx context.Context, categoryID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("id = ?", categoryID).
		Count(&count).Error
	return count > 0, err
}

// CreateBook inserts the book together with its sentences.
func (r *RepositoryImpl) CreateBook(ctx context.Context, book *domain.Book) error {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now
	return r.db.WithContext(ctx).Create(book).Error
}

func (r *RepositoryImpl) FindBook(ctx context.Context, id uint64) (*domain.Book, error) {
	var book domain.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *RepositoryImpl) FindBookForUpdate(ctx context.Context, id uint64) (*domain.Book, error) {
	var book domain.Book
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *RepositoryImpl) SaveBookState(ctx context.Context, book *domain.Book) error {
	var lastWriter any = gorm.Expr("NULL")
	if book.LastWriterUserID != nil {
		lastWriter = *book.LastWriterUserID
	}

	return r.db.WithContext(ctx).
		Model(&domain.Book{}).
		Where("id = ?", book.ID).
		Updates(map[string]any{
			"status":              book.Status,
			"current_sequence":    book.CurrentSequence,
			"last_writer_user_id": lastWriter,
			"updated_at":          time.Now().UTC(),
		}).Error
}

func (r *RepositoryImpl) UpdateTitle(ctx context.Context, id uint64, title string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Book{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":      title,
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

func (r *RepositoryImpl) DeleteBook(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&domain.Sentence{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *RepositoryImpl) CreateSentence(ctx context.Context, sentence *domain.Sentence) error {
	now := time.Now().UTC()
	sentence.CreatedAt = now
	sentence.UpdatedAt = now
	return r.db.WithContext(ctx).Create(sentence).Error
}

func (r *RepositoryImpl) FindSentence(ctx context.Context, id uint64) (*domain.Sentence, error) {
	var sentence domain.Sentence
	err := r.db.WithContext(ctx).First(&sentence, id).Error
	if err != nil {
		return nil, err
	}
	return &sentence, nil
}

func (r *RepositoryImpl) FindSentenceBySequence(ctx context.Context, bookID uint64, sequenceNo int) (*domain.Sentence, error) {
	var sentence domain.Sentence
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND sequence_no = ?", bookID, sequenceNo).
		First(&sentence).Error
	if err != nil {
		return nil, err
	}
	return &sentence, nil
}

func (r *RepositoryImpl) ListSentences(ctx context.Context, bookID uint64) ([]domain.Sentence, error) {
	var sentences []domain.Sentence
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("sequence_no ASC").
		Find(&sentences).Error
	return sentences, err
}

func (r *RepositoryImpl) UpdateLastSentenceContent(ctx context.Context, bookID, id uint64, content string) error {
	db := r.db.WithContext(ctx)
	lastSeq := db.Model(&domain.Book{}).Select("current_sequence - 1").Where("id = ?", bookID)

	result := db.Model(&domain.Sentence{}).
		Where("id = ? AND book_id = ? AND sequence_no = (?)", id, bookID, lastSeq).
		Updates(map[string]any{
			"content":    content,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotLastSentence
	}
	return nil
}

func (r *RepositoryImpl) DeleteSentence(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&domain.Sentence{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RepositoryImpl) ShiftSequencesAfter(ctx context.Context, bookID uint64, sequenceNo int) error {
	// (book_id, sequence_no) is unique and checked row by row, so park the
	// affected rows on negative numbers before moving them into place.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Sentence{}).
			Where("book_id = ? AND sequence_no > ?", bookID, sequenceNo).
			Update("sequence_no", gorm.Expr("-sequence_no")).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Sentence{}).
			Where("book_id = ? AND sequence_no < 0", bookID).
			Update("sequence_no", gorm.Expr("-sequence_no - 1")).Error
	})
}
