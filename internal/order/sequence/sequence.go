// Package sequence hands out per-day counters for human-readable order numbers. Counters
// live in Redis when it is configured and in the order_sequences table otherwise, so every
// instance draws from the same sequence.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/railzwaylabs/orderpay/internal/order/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DayLayout = "20060102"
	keyPrefix = "orderpay:order_seq:"
	keyTTL    = 48 * time.Hour
)

// Format renders an order number such as ORD-20261015-000042.
func Format(prefix string, at time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%06d", prefix, at.UTC().Format(DayLayout), n)
}

// New picks the Redis sequencer when a client is available.
func New(db *gorm.DB, client *redis.Client, log *zap.Logger) domain.Sequencer {
	if client != nil {
		log.Named("order.sequence").Info("order numbers backed by redis")
		return NewRedis(client)
	}
	log.Named("order.sequence").Info("order numbers backed by database")
	return NewDB(db)
}

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Next(ctx context.Context, day string) (int64, error) {
	key := keyPrefix + day
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, keyTTL).Err(); err != nil {
			return 0, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return n, nil
}

// Counter is one row per calendar day.
type Counter struct {
	Day   string `gorm:"primaryKey;size:8"`
	Value int64  `gorm:"not null;default:0"`
}

func (Counter) TableName() string {
	return "order_sequences"
}

type DB struct {
	db *gorm.DB
}

func NewDB(db *gorm.DB) *DB {
	return &DB{db: db}
}

func (s *DB) Next(ctx context.Context, day string) (int64, error) {
	var next int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Counter{Day: day}).Error; err != nil {
			return err
		}
		if err := tx.Model(&Counter{}).
			Where("day = ?", day).
			UpdateColumn("value", gorm.Expr("value + 1")).Error; err != nil {
			return err
		}
		var c Counter
		if err := tx.Where("day = ?", day).Take(&c).Error; err != nil {
			return err
		}
		next = c.Value
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("next order sequence for %s: %w", day, err)
	}
	return next, nil
}
