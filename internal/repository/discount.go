package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopfront/internal/model"
)

type DiscountRepository interface {
	FindByCode(ctx context.Context, code string) (*model.DiscountCode, error)
	IncrementUse(ctx context.Context, tx *gorm.DB, codeID uint) error
	Save(ctx context.Context, tx *gorm.DB, code *model.DiscountCode) error
}

type discountRepoImpl struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepoImpl{db: db}
}

func (r *discountRepoImpl) FindByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	var dc model.DiscountCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&dc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dc, nil
}

func (r *discountRepoImpl) IncrementUse(ctx context.Context, tx *gorm.DB, codeID uint) error {
	return tx.WithContext(ctx).Model(&model.DiscountCode{}).
		Where("id = ?", codeID).
		Update("use_count", gorm.Expr("use_count + 1")).Error
}

func (r *discountRepoImpl) Save(ctx context.Context, tx *gorm.DB, code *model.DiscountCode) error {
	return tx.WithContext(ctx).Save(code).Error
}
