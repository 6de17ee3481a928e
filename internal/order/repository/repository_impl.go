package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/orderpay/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	if order == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).Where("id = ?", id).Take(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *repo) CompareAndSetStatus(ctx context.Context, db *gorm.DB, change domain.StatusChange) (bool, error) {
	updates := map[string]any{
		"status":     change.ToStatus,
		"version":    gorm.Expr("version + 1"),
		"updated_at": change.UpdatedAt,
	}
	if change.TransactionID != nil {
		updates["transaction_id"] = *change.TransactionID
	}
	if change.PaidAt != nil {
		updates["paid_at"] = *change.PaidAt
	}
	if change.FailedAt != nil {
		updates["failed_at"] = *change.FailedAt
	}

	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ? AND version = ?", change.OrderID, change.FromStatus, change.FromVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
