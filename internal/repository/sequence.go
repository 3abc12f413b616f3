package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopfront/internal/model"
)

type SequenceRepository interface {
	// Assign gives the order its invoice number, inserting into the
	// sequence table. When a concurrent transition already inserted the
	// row, the unique constraint fires and the existing number is read
	// back; there is no retry loop.
	Assign(ctx context.Context, tx *gorm.DB, orderID string) (int64, error)
	Lookup(ctx context.Context, orderID string) (int64, error)
}

type sequenceRepoImpl struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepoImpl{db: db}
}

func (r *sequenceRepoImpl) Assign(ctx context.Context, tx *gorm.DB, orderID string) (int64, error) {
	row := model.OrderSequence{OrderID: orderID}
	err := tx.WithContext(ctx).Create(&row).Error
	if err == nil {
		return row.Seq, nil
	}
	if !isDuplicateKey(err) {
		return 0, err
	}
	var existing model.OrderSequence
	if err := tx.WithContext(ctx).Where("order_id = ?", orderID).First(&existing).Error; err != nil {
		return 0, err
	}
	return existing.Seq, nil
}

func (r *sequenceRepoImpl) Lookup(ctx context.Context, orderID string) (int64, error) {
	var row model.OrderSequence
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, model.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return row.Seq, nil
}
