package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopfront/internal/model"
)

type TaxRepository interface {
	// FindRate resolves the jurisdiction row for a location, falling back
	// from (country, region) to the country-wide row.
	FindRate(ctx context.Context, country, region string) (*model.TaxRate, error)
	FindShipper(ctx context.Context, shipperID uint) (*model.Shipper, error)
	Seed(ctx context.Context) error
}

type taxRepoImpl struct {
	db *gorm.DB
}

func NewTaxRepository(db *gorm.DB) TaxRepository {
	return &taxRepoImpl{db: db}
}

func (r *taxRepoImpl) FindRate(ctx context.Context, country, region string) (*model.TaxRate, error) {
	var rate model.TaxRate
	err := r.db.WithContext(ctx).
		Where("country = ? AND region = ?", country, region).
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = r.db.WithContext(ctx).
			Where("country = ? AND region = ''", country).
			First(&rate).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *taxRepoImpl) FindShipper(ctx context.Context, shipperID uint) (*model.Shipper, error) {
	var shipper model.Shipper
	err := r.db.WithContext(ctx).Where("id = ?", shipperID).First(&shipper).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &shipper, nil
}

func (r *taxRepoImpl) Seed(ctx context.Context) error {
	rates := []model.TaxRate{
		{Country: "US", Region: "CA", Rate: mustDecimal("0.0725"), TaxShipping: false},
		{Country: "US", Region: "NY", Rate: mustDecimal("0.08875"), TaxShipping: true},
		{Country: "US", Region: "TX", Rate: mustDecimal("0.0625"), TaxShipping: true},
		{Country: "US", Region: "", Rate: mustDecimal("0")},
		{Country: "DE", Region: "", Rate: mustDecimal("0.19"), TaxShipping: true, TaxHandling: true},
	}
	for i := range rates {
		err := r.db.WithContext(ctx).
			Where("country = ? AND region = ?", rates[i].Country, rates[i].Region).
			FirstOrCreate(&rates[i]).Error
		if err != nil {
			return err
		}
	}
	return nil
}
