// Package pricing composes base price, sale pricing, quantity-discount
// tiers and option deltas into a unit price.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"shopfront/internal/cache"
	"shopfront/internal/model"
	"shopfront/internal/repository"
)

var hundred = decimal.NewFromInt(100)

type Engine struct {
	products repository.ProductRepository
	sales    repository.SaleRepository
	cache    cache.Cache
	log      *slog.Logger
	now      func() time.Time
}

func NewEngine(products repository.ProductRepository, sales repository.SaleRepository, c cache.Cache, log *slog.Logger) *Engine {
	return &Engine{products: products, sales: sales, cache: c, log: log, now: time.Now}
}

// UnitPrice prices one unit of the product in its resolved variant.
//
// An override price short-circuits everything else when the product kind
// permits it. Otherwise the unit price is base + variant delta + option
// deltas, with the effective sale applied, then the best satisfied
// quantity tier, rounded half-up at the currency's precision.
func (e *Engine) UnitPrice(ctx context.Context, product *model.Product, variant *model.ProductVariant, optionDeltas []decimal.Decimal, qty int, override *decimal.Decimal) (decimal.Decimal, error) {
	if override != nil && product.AllowOverride {
		return model.RoundMoney(*override, product.Currency), nil
	}

	price := product.BasePrice.Add(variant.PriceDelta)
	for _, delta := range optionDeltas {
		price = price.Add(delta)
	}

	sale, err := e.effectiveSale(ctx, product)
	if err != nil {
		return decimal.Zero, err
	}
	price = ApplySale(price, sale)

	tiers, err := e.products.TiersForProduct(ctx, product.ID)
	if err != nil {
		return decimal.Zero, err
	}
	pct := TierPercent(tiers, qty)
	if !pct.IsZero() {
		price = price.Mul(hundred.Sub(pct)).Div(hundred)
	}

	return model.RoundMoney(price, product.Currency), nil
}

// ApplySale applies a sale to a unit price. Nil means no effective sale.
func ApplySale(price decimal.Decimal, sale *model.Sale) decimal.Decimal {
	if sale == nil {
		return price
	}
	switch sale.Kind {
	case model.SaleFixed:
		return sale.Amount
	case model.SalePercent:
		return price.Mul(hundred.Sub(sale.Amount)).Div(hundred)
	}
	return price
}

// TierPercent scans tiers in ascending threshold order and keeps the last
// one whose minimum quantity is satisfied. No satisfied tier means 0%.
func TierPercent(tiers []model.QuantityTier, qty int) decimal.Decimal {
	pct := decimal.Zero
	for _, tier := range tiers {
		if tier.MinQty <= qty {
			pct = tier.Percent
		}
	}
	return pct
}

// effectiveSale resolves the one sale in effect for the product: a sale
// attached to the product itself wins, then the nearest category ancestor
// carrying one. The result is cached under the product's tag.
func (e *Engine) effectiveSale(ctx context.Context, product *model.Product) (*model.Sale, error) {
	key := fmt.Sprintf("sale:%d", product.ID)
	var cached []model.Sale
	ok, err := e.cache.Get(ctx, key, &cached)
	if err != nil {
		e.log.Warn("sale cache read failed", "product_id", product.ID, "error", err)
	}
	if ok {
		if len(cached) == 0 {
			return nil, nil
		}
		return &cached[0], nil
	}

	sale, err := e.lookupSale(ctx, product)
	if err != nil {
		return nil, err
	}
	entry := []model.Sale{}
	if sale != nil {
		entry = append(entry, *sale)
	}
	if err := e.cache.Set(ctx, fmt.Sprintf("product:%d", product.ID), key, entry); err != nil {
		e.log.Warn("sale cache write failed", "product_id", product.ID, "error", err)
	}
	return sale, nil
}

func (e *Engine) lookupSale(ctx context.Context, product *model.Product) (*model.Sale, error) {
	now := e.now()
	sales, err := e.sales.ActiveForProduct(ctx, product.ID, now)
	if err != nil {
		return nil, err
	}
	if len(sales) > 0 {
		return &sales[0], nil
	}
	if product.CategoryID == nil {
		return nil, nil
	}
	path, err := e.products.CategoryPath(ctx, *product.CategoryID)
	if err != nil {
		return nil, err
	}
	for _, categoryID := range path { // nearest ancestor first
		sales, err := e.sales.ActiveForCategory(ctx, categoryID, now)
		if err != nil {
			return nil, err
		}
		if len(sales) > 0 {
			return &sales[0], nil
		}
	}
	return nil, nil
}
