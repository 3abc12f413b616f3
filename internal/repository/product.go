package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"shopfront/internal/model"
)

type ProductRepository interface {
	FindByID(ctx context.Context, productID uint) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	List(ctx context.Context) ([]*model.Product, error)
	Save(ctx context.Context, tx *gorm.DB, product *model.Product) error
	// CategoryPath returns the category ids from the product's own category
	// up to the root, nearest first.
	CategoryPath(ctx context.Context, categoryID uint) ([]uint, error)
	TiersForProduct(ctx context.Context, productID uint) ([]model.QuantityTier, error)
	ReplaceTiers(ctx context.Context, tx *gorm.DB, productID uint, tiers []model.QuantityTier) error
	Seed(ctx context.Context) error
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{db: db}
}

func (r *productRepoImpl) FindByID(ctx context.Context, productID uint) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("OptionGroups.Values").
		Where("id = ?", productID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepoImpl) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepoImpl) List(ctx context.Context) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).Where("active = ?", true).Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepoImpl) Save(ctx context.Context, tx *gorm.DB, product *model.Product) error {
	err := tx.WithContext(ctx).Save(product).Error
	if isDuplicateKey(err) {
		return model.ErrDuplicateSKU
	}
	return err
}

func (r *productRepoImpl) CategoryPath(ctx context.Context, categoryID uint) ([]uint, error) {
	var path []uint
	id := categoryID
	for id != 0 {
		var cat model.Category
		err := r.db.WithContext(ctx).Where("id = ?", id).First(&cat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		path = append(path, id)
		if cat.ParentID == nil {
			break
		}
		id = *cat.ParentID
	}
	return path, nil
}

func (r *productRepoImpl) TiersForProduct(ctx context.Context, productID uint) ([]model.QuantityTier, error) {
	var tiers []model.QuantityTier
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("min_qty ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *productRepoImpl) ReplaceTiers(ctx context.Context, tx *gorm.DB, productID uint, tiers []model.QuantityTier) error {
	if err := tx.WithContext(ctx).Where("product_id = ?", productID).Delete(&model.QuantityTier{}).Error; err != nil {
		return err
	}
	if len(tiers) == 0 {
		return nil
	}
	for i := range tiers {
		tiers[i].ProductID = productID
	}
	return tx.WithContext(ctx).Create(&tiers).Error
}

// Seed installs a small demo catalog on an empty database: one tracked
// physical product with a size group and one virtual download.
func (r *productRepoImpl) Seed(ctx context.Context) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tee := &model.Product{
		SKU: "TEE", Name: "Logo tee", Kind: model.ProductKindCatalog,
		BasePrice: mustDecimal("19.00"), Currency: "USD",
		Taxable: true, Physical: true, TrackStock: true,
		Oversell: model.OversellDeny, Active: true,
		OptionGroups: []model.OptionGroup{
			{Name: "Size", Type: model.OptionGroupSelect, Position: 1, Values: []model.OptionValue{
				{Label: "M", SKUFragment: "M", PriceDelta: mustDecimal("0")},
				{Label: "XL", SKUFragment: "XL", PriceDelta: mustDecimal("2.00")},
			}},
		},
	}
	guide := &model.Product{
		SKU: "GUIDE", Name: "City guide (PDF)", Kind: model.ProductKindCatalog,
		BasePrice: mustDecimal("9.50"), Currency: "USD",
		Taxable: false, Physical: false, TrackStock: false,
		Oversell: model.OversellAllow, Active: true,
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tee).Error; err != nil {
			return err
		}
		if err := tx.Create(guide).Error; err != nil {
			return err
		}
		return tx.Create(&model.StockRecord{ItemID: tee.ID, OnHand: 100}).Error
	})
}

// isDuplicateKey matches both gorm's translated error and the raw sqlite
// message, which the translator misses for composite indexes.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint")
}
