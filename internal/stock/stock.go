// Package stock is the inventory ledger: reservations, purchase
// decrements and the oversell policy.
package stock

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"shopfront/internal/cache"
	"shopfront/internal/catalog"
	"shopfront/internal/model"
	"shopfront/internal/repository"
)

type Ledger struct {
	stock  repository.StockRepository
	cache  cache.Cache
	log    *slog.Logger
	maxQty int
}

func NewLedger(stock repository.StockRepository, c cache.Cache, log *slog.Logger, maxQty int) *Ledger {
	return &Ledger{stock: stock, cache: c, log: log, maxQty: maxQty}
}

// Reserve holds qty against the (product, variant) record while the item
// sits in a cart. Under DENY and HIDE the hold only succeeds while
// available stock covers it; under ALLOW it always succeeds, creating the
// record when missing.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, product *model.Product, variantID uint, qty int) error {
	if !product.TrackStock {
		return nil
	}
	enforce := product.Oversell != model.OversellAllow
	err := l.stock.Reserve(ctx, tx, product.ID, variantID, qty, enforce)
	if errors.Is(err, model.ErrNotFound) && !enforce {
		err = l.stock.Upsert(ctx, tx, &model.StockRecord{ItemID: product.ID, VariantID: variantID, Reserved: qty})
	}
	if errors.Is(err, model.ErrNotFound) {
		// tracking on, no record: nothing to sell
		return model.ErrInsufficientStock
	}
	if err != nil {
		return err
	}
	l.invalidate(ctx, product.ID)
	return nil
}

// Release returns a reservation when a cart item is removed or shrunk.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, product *model.Product, variantID uint, qty int) error {
	if !product.TrackStock || qty <= 0 {
		return nil
	}
	if err := l.stock.Release(ctx, tx, product.ID, variantID, qty); err != nil {
		return err
	}
	l.invalidate(ctx, product.ID)
	return nil
}

// RecordPurchase converts the reservation into an onhand decrement on
// payment completion. Under DENY and HIDE, onhand is floored at zero.
func (l *Ledger) RecordPurchase(ctx context.Context, tx *gorm.DB, product *model.Product, variantID uint, qty int) error {
	if !product.TrackStock {
		return nil
	}
	floor := product.Oversell != model.OversellAllow
	if err := l.stock.RecordPurchase(ctx, tx, product.ID, variantID, qty, floor); err != nil {
		return err
	}
	l.invalidate(ctx, product.ID)
	return nil
}

// IsInStock reports whether the product can be shown as purchasable. With
// variants, any variant with onhand > 0 qualifies; without, the
// product-level record decides. Untracked products are always in stock.
func (l *Ledger) IsInStock(ctx context.Context, product *model.Product) (bool, error) {
	if !product.TrackStock {
		return true, nil
	}
	recs, err := l.stock.ForProduct(ctx, product.ID)
	if err != nil {
		return false, err
	}
	if len(recs) == 0 {
		return false, nil
	}
	hasVariantRecords := false
	for _, rec := range recs {
		if rec.VariantID != 0 {
			hasVariantRecords = true
			if rec.OnHand > 0 {
				return true, nil
			}
		}
	}
	if hasVariantRecords {
		return false, nil
	}
	for _, rec := range recs {
		if rec.VariantID == 0 {
			return rec.OnHand > 0, nil
		}
	}
	return false, nil
}

// Visible reports whether the product appears in listings at all: HIDE
// pulls it once stock is gone, ALLOW and DENY keep it listed.
func (l *Ledger) Visible(ctx context.Context, product *model.Product) (bool, error) {
	if product.Oversell != model.OversellHide {
		return true, nil
	}
	return l.IsInStock(ctx, product)
}

// MaxOrderQuantity caps a single line's quantity: the configured ceiling,
// tightened to available onhand when tracking is on and the policy is not
// ALLOW.
func (l *Ledger) MaxOrderQuantity(ctx context.Context, product *model.Product, variantID uint) (int, error) {
	if !product.TrackStock || product.Oversell == model.OversellAllow {
		return l.maxQty, nil
	}
	rec, err := l.stock.Get(ctx, product.ID, variantID)
	if errors.Is(err, model.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if rec.OnHand < l.maxQty {
		return rec.OnHand, nil
	}
	return l.maxQty, nil
}

// Adjust sets the record outright (administrative correction).
func (l *Ledger) Adjust(ctx context.Context, tx *gorm.DB, rec *model.StockRecord) error {
	if err := l.stock.Upsert(ctx, tx, rec); err != nil {
		return err
	}
	l.invalidate(ctx, rec.ItemID)
	return nil
}

func (l *Ledger) invalidate(ctx context.Context, productID uint) {
	if err := l.cache.InvalidateTag(ctx, catalog.ProductTag(productID)); err != nil {
		l.log.Warn("stock cache invalidation failed", "product_id", productID, "error", err)
	}
}
