package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopfront/internal/model"
)

type VariantRepository interface {
	FindByID(ctx context.Context, variantID uint) (*model.ProductVariant, error)
	FindByProduct(ctx context.Context, productID uint) ([]model.ProductVariant, error)
	// ReplaceForProduct swaps the product's whole variant matrix.
	ReplaceForProduct(ctx context.Context, tx *gorm.DB, productID uint, variants []model.ProductVariant) error
}

type variantRepoImpl struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) VariantRepository {
	return &variantRepoImpl{db: db}
}

func (r *variantRepoImpl) FindByID(ctx context.Context, variantID uint) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Options").
		Where("id = ?", variantID).
		First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *variantRepoImpl) FindByProduct(ctx context.Context, productID uint) ([]model.ProductVariant, error) {
	var variants []model.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Options").
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *variantRepoImpl) ReplaceForProduct(ctx context.Context, tx *gorm.DB, productID uint, variants []model.ProductVariant) error {
	var old []model.ProductVariant
	if err := tx.WithContext(ctx).Where("product_id = ?", productID).Find(&old).Error; err != nil {
		return err
	}
	for i := range old {
		if err := tx.WithContext(ctx).Model(&old[i]).Association("Options").Clear(); err != nil {
			return err
		}
	}
	if err := tx.WithContext(ctx).Where("product_id = ?", productID).Delete(&model.ProductVariant{}).Error; err != nil {
		return err
	}
	if len(variants) == 0 {
		return nil
	}
	for i := range variants {
		variants[i].ProductID = productID
	}
	return tx.WithContext(ctx).Create(&variants).Error
}
