package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	// CompareAndSetStatus applies change only when the stored status and version still match.
	// It reports false when another writer got there first.
	CompareAndSetStatus(ctx context.Context, db *gorm.DB, change StatusChange) (bool, error)
}

// Sequencer hands out the per-day counter behind human-readable order numbers.
type Sequencer interface {
	Next(ctx context.Context, day string) (int64, error)
}

// Notifier is told about every new terminal payment transition.
type Notifier interface {
	OrderSettled(ctx context.Context, order *Order) error
}
