package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopfront/internal/model"
)

type StockRepository interface {
	Get(ctx context.Context, itemID, variantID uint) (*model.StockRecord, error)
	ForProduct(ctx context.Context, itemID uint) ([]model.StockRecord, error)
	Upsert(ctx context.Context, tx *gorm.DB, rec *model.StockRecord) error

	// Reserve adds qty to the reserved count. With enforce set, the update
	// only applies while onhand-reserved covers qty; a zero-row update
	// reports ErrInsufficientStock. The check and the increment are one
	// statement, so concurrent reservations cannot oversell.
	Reserve(ctx context.Context, tx *gorm.DB, itemID, variantID uint, qty int, enforce bool) error
	// Release returns qty from reserved, floored at zero.
	Release(ctx context.Context, tx *gorm.DB, itemID, variantID uint, qty int) error
	// RecordPurchase converts a reservation into an onhand decrement. With
	// floor set, onhand never drops below zero.
	RecordPurchase(ctx context.Context, tx *gorm.DB, itemID, variantID uint, qty int, floor bool) error
}

type stockRepoImpl struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepoImpl{db: db}
}

func (r *stockRepoImpl) Get(ctx context.Context, itemID, variantID uint) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND variant_id = ?", itemID, variantID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *stockRepoImpl) ForProduct(ctx context.Context, itemID uint) ([]model.StockRecord, error) {
	var recs []model.StockRecord
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *stockRepoImpl) Upsert(ctx context.Context, tx *gorm.DB, rec *model.StockRecord) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "item_id"}, {Name: "variant_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"on_hand":    rec.OnHand,
			"reserved":   rec.Reserved,
			"reorder":    rec.Reorder,
			"updated_at": time.Now(),
		}),
	}).Create(rec).Error
}

func (r *stockRepoImpl) Reserve(ctx context.Context, tx *gorm.DB, itemID, variantID uint, qty int, enforce bool) error {
	q := tx.WithContext(ctx).Model(&model.StockRecord{}).
		Where("item_id = ? AND variant_id = ?", itemID, variantID)
	if enforce {
		q = q.Where("on_hand - reserved >= ?", qty)
	}
	result := q.Updates(map[string]interface{}{
		"reserved":   gorm.Expr("reserved + ?", qty),
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if enforce {
			return model.ErrInsufficientStock
		}
		return model.ErrNotFound
	}
	return nil
}

func (r *stockRepoImpl) Release(ctx context.Context, tx *gorm.DB, itemID, variantID uint, qty int) error {
	return tx.WithContext(ctx).Model(&model.StockRecord{}).
		Where("item_id = ? AND variant_id = ?", itemID, variantID).
		Updates(map[string]interface{}{
			"reserved":   gorm.Expr("MAX(reserved - ?, 0)", qty),
			"updated_at": time.Now(),
		}).Error
}

func (r *stockRepoImpl) RecordPurchase(ctx context.Context, tx *gorm.DB, itemID, variantID uint, qty int, floor bool) error {
	onhand := gorm.Expr("on_hand - ?", qty)
	if floor {
		onhand = gorm.Expr("MAX(on_hand - ?, 0)", qty)
	}
	return tx.WithContext(ctx).Model(&model.StockRecord{}).
		Where("item_id = ? AND variant_id = ?", itemID, variantID).
		Updates(map[string]interface{}{
			"on_hand":    onhand,
			"reserved":   gorm.Expr("MAX(reserved - ?, 0)", qty),
			"updated_at": time.Now(),
		}).Error
}
