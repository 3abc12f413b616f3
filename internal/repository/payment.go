package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"shopfront/internal/model"
)

type PaymentRepository interface {
	Add(ctx context.Context, tx *gorm.DB, payment *model.Payment) error
	// TotalPaid sums the payment ledger for the order.
	TotalPaid(ctx context.Context, orderID string) (decimal.Decimal, error)
}

type paymentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepoImpl{db: db}
}

func (r *paymentRepoImpl) Add(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepoImpl) TotalPaid(ctx context.Context, orderID string) (decimal.Decimal, error) {
	var total sql.NullString
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Select("SUM(amount)").
		Where("order_id = ?", orderID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	paid, err := decimal.NewFromString(total.String)
	if err != nil {
		return decimal.Zero, errors.New("payment ledger sum is not numeric")
	}
	return paid, nil
}
