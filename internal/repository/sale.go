package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shopfront/internal/model"
)

type SaleRepository interface {
	// ActiveForProduct returns sales attached directly to the product that
	// cover the instant.
	ActiveForProduct(ctx context.Context, productID uint, at time.Time) ([]model.Sale, error)
	// ActiveForCategory returns sales attached to the given category that
	// cover the instant.
	ActiveForCategory(ctx context.Context, categoryID uint, at time.Time) ([]model.Sale, error)
	Save(ctx context.Context, tx *gorm.DB, sale *model.Sale) error
}

type saleRepoImpl struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepoImpl{db: db}
}

func (r *saleRepoImpl) ActiveForProduct(ctx context.Context, productID uint, at time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND starts_at <= ? AND ends_at > ?", productID, at, at).
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *saleRepoImpl) ActiveForCategory(ctx context.Context, categoryID uint, at time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND starts_at <= ? AND ends_at > ?", categoryID, at, at).
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *saleRepoImpl) Save(ctx context.Context, tx *gorm.DB, sale *model.Sale) error {
	return tx.WithContext(ctx).Save(sale).Error
}
