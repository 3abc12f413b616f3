package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopfront/internal/model"
)

type StatusRepository interface {
	Get(ctx context.Context, code string) (*model.StatusEntry, error)
	All(ctx context.Context) ([]model.StatusEntry, error)
	Seed(ctx context.Context) error
	LogTransition(ctx context.Context, tx *gorm.DB, entry *model.StatusLog) error
	// GrantAffiliateBonus inserts the bonus row for the order; granted is
	// false when a bonus already exists. Insert-or-ignore on the unique
	// order id makes repeated transitions grant at most once.
	GrantAffiliateBonus(ctx context.Context, tx *gorm.DB, orderID, status string) (bool, error)
}

type statusRepoImpl struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepoImpl{db: db}
}

func (r *statusRepoImpl) Get(ctx context.Context, code string) (*model.StatusEntry, error) {
	var entry model.StatusEntry
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *statusRepoImpl) All(ctx context.Context) ([]model.StatusEntry, error) {
	var entries []model.StatusEntry
	if err := r.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Seed installs the default status registry. Deployments extend the set by
// inserting their own rows; codes are an open set.
func (r *statusRepoImpl) Seed(ctx context.Context) error {
	entries := []model.StatusEntry{
		{Code: model.StatusCart, Label: "Shopping cart"},
		{Code: model.StatusPending, Label: "Pending"},
		{Code: model.StatusInvoiced, Label: "Invoiced", Final: true, NotifyBuyer: true},
		{Code: model.StatusProcessing, Label: "Processing", Final: true, NotifyBuyer: true, NotifyAdmin: true, AffiliateEligible: true},
		{Code: model.StatusShipped, Label: "Shipped", Final: true, NotifyBuyer: true},
		{Code: model.StatusClosed, Label: "Closed", Final: true, AffiliateEligible: true},
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entries).Error
}

func (r *statusRepoImpl) LogTransition(ctx context.Context, tx *gorm.DB, entry *model.StatusLog) error {
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *statusRepoImpl) GrantAffiliateBonus(ctx context.Context, tx *gorm.DB, orderID, status string) (bool, error) {
	bonus := model.AffiliateBonus{OrderID: orderID, Status: status}
	result := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&bonus)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
