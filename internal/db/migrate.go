package db

import (
	"relay-story-server/internal/domain"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCategories are the genres a book can be filed under.
var DefaultCategories = []domain.Category{
	{ID: "THRILLER", Name: "스릴러"},
	{ID: "ROMANCE", Name: "로맨스"},
	{ID: "FANTASY", Name: "판타지"},
	{ID: "SF", Name: "SF"},
	{ID: "DAILY", Name: "일상"},
	{ID: "MYSTERY", Name: "미스터리"},
	{ID: "HORROR", Name: "공포"},
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Category{},
		&domain.Book{},
		&domain.Sentence{},
		&domain.BookVote{},
		&domain.SentenceVote{},
		&domain.Comment{},
	)
	if err != nil {
		return err
	}

	log.Info().Msg("database schema migrated successfully")
	return nil
}

// SeedCategories inserts the default categories, leaving existing rows as
// they are.
func SeedCategories(db *gorm.DB) error {
	categories := append([]domain.Category(nil), DefaultCategories...)
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories)
	if result.Error != nil {
		return result.Error
	}
	log.Info().Int64("inserted", result.RowsAffected).Msg("categories seeded")
	return nil
}
