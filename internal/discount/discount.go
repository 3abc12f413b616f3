// Package discount validates percentage discount codes against an order.
package discount

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopfront/internal/model"
	"shopfront/internal/repository"
)

type Validator struct {
	codes repository.DiscountRepository
	now   func() time.Time
}

func NewValidator(codes repository.DiscountRepository) *Validator {
	return &Validator{codes: codes, now: time.Now}
}

// Validate returns the percentage a code is worth against the order
// snapshot: zero for unknown, inactive, out-of-window, exhausted or
// below-minimum codes, a positive percent otherwise. Callers own the
// short-circuit for an unchanged code.
func (v *Validator) Validate(ctx context.Context, code string, order *model.Order) (decimal.Decimal, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return decimal.Zero, nil
	}
	dc, err := v.codes.FindByCode(ctx, code)
	if errors.Is(err, model.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !Applicable(dc, order, v.now()) {
		return decimal.Zero, nil
	}
	return dc.Percent, nil
}

// Applicable checks the code's window, usage quota and minimum-order
// condition against the order's gross item total.
func Applicable(dc *model.DiscountCode, order *model.Order, at time.Time) bool {
	if !dc.Active || dc.Percent.LessThanOrEqual(decimal.Zero) {
		return false
	}
	if at.Before(dc.StartsAt) || !at.Before(dc.EndsAt) {
		return false
	}
	if dc.MaxUses > 0 && dc.UseCount >= dc.MaxUses {
		return false
	}
	if dc.MinOrder.GreaterThan(decimal.Zero) && order.GrossItems.LessThan(dc.MinOrder) {
		return false
	}
	return true
}
