package pricing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopfront/internal/cache"
	"shopfront/internal/db"
	"shopfront/internal/model"
	"shopfront/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func newEngine(t *testing.T, gdb *gorm.DB) *Engine {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(
		repository.NewProductRepository(gdb),
		repository.NewSaleRepository(gdb),
		cache.NewMemory(),
		log,
	)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTierPercent(t *testing.T) {
	tiers := []model.QuantityTier{
		{MinQty: 5, Percent: dec("5")},
		{MinQty: 10, Percent: dec("10")},
		{MinQty: 25, Percent: dec("15")},
	}

	t.Run("no tier satisfied means zero", func(t *testing.T) {
		require.True(t, TierPercent(tiers, 4).IsZero())
	})

	t.Run("keeps the highest satisfied threshold, not the first", func(t *testing.T) {
		require.True(t, TierPercent(tiers, 12).Equal(dec("10")))
		require.True(t, TierPercent(tiers, 25).Equal(dec("15")))
	})

	t.Run("discount is monotonic in quantity", func(t *testing.T) {
		prev := decimal.Zero
		for qty := 1; qty <= 40; qty++ {
			cur := TierPercent(tiers, qty)
			require.True(t, cur.GreaterThanOrEqual(prev), "qty %d", qty)
			prev = cur
		}
	})
}

func TestUnitPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("base plus variant delta with tier discount", func(t *testing.T) {
		gdb := newTestDB(t)
		engine := newEngine(t, gdb)

		product := &model.Product{SKU: "SHIRT", Name: "Shirt", BasePrice: dec("20.00"), Currency: "USD"}
		require.NoError(t, gdb.Create(product).Error)
		require.NoError(t, gdb.Create(&model.QuantityTier{ProductID: product.ID, MinQty: 10, Percent: dec("10")}).Error)

		variant := &model.ProductVariant{ProductID: product.ID, SKU: "SHIRT-XL", PriceDelta: dec("5.00")}

		price, err := engine.UnitPrice(ctx, product, variant, nil, 12, nil)
		require.NoError(t, err)
		require.True(t, price.Equal(dec("22.50")), "got %s", price)
	})

	t.Run("option deltas are included", func(t *testing.T) {
		gdb := newTestDB(t)
		engine := newEngine(t, gdb)

		product := &model.Product{SKU: "MUG", Name: "Mug", BasePrice: dec("8.00"), Currency: "USD"}
		require.NoError(t, gdb.Create(product).Error)

		price, err := engine.UnitPrice(ctx, product, &model.NoVariant, []decimal.Decimal{dec("1.50"), dec("0.25")}, 1, nil)
		require.NoError(t, err)
		require.True(t, price.Equal(dec("9.75")), "got %s", price)
	})

	t.Run("override bypasses all rules when permitted", func(t *testing.T) {
		gdb := newTestDB(t)
		engine := newEngine(t, gdb)

		product := &model.Product{SKU: "CUSTOM", Name: "Custom", BasePrice: dec("100.00"), Currency: "USD", AllowOverride: true}
		require.NoError(t, gdb.Create(product).Error)
		require.NoError(t, gdb.Create(&model.QuantityTier{ProductID: product.ID, MinQty: 1, Percent: dec("50")}).Error)

		override := dec("42.424")
		price, err := engine.UnitPrice(ctx, product, &model.NoVariant, nil, 5, &override)
		require.NoError(t, err)
		require.True(t, price.Equal(dec("42.42")), "got %s", price)
	})

	t.Run("override is ignored when the kind forbids it", func(t *testing.T) {
		gdb := newTestDB(t)
		engine := newEngine(t, gdb)

		product := &model.Product{SKU: "FIXED", Name: "Fixed", BasePrice: dec("10.00"), Currency: "USD", AllowOverride: false}
		require.NoError(t, gdb.Create(product).Error)

		override := dec("1.00")
		price, err := engine.UnitPrice(ctx, product, &model.NoVariant, nil, 1, &override)
		require.NoError(t, err)
		require.True(t, price.Equal(dec("10.00")), "got %s", price)
	})

	t.Run("rounds half up at currency precision", func(t *testing.T) {
		gdb := newTestDB(t)
		engine := newEngine(t, gdb)

		product := &model.Product{SKU: "ODD", Name: "Odd", BasePrice: dec("10.005"), Currency: "USD"}
		require.NoError(t, gdb.Create(product).Error)

		price, err := engine.UnitPrice(ctx, product, &model.NoVariant, nil, 1, nil)
		require.NoError(t, err)
		require.True(t, price.Equal(dec("10.01")), "got %s", price)
	})
}

func TestEffectiveSale(t *testing.T) {
	ctx := context.Background()
	window := func() (time.Time, time.Time) {
		return time.Now().Add(-time.Hour), time.Now().Add(time.Hour)
	}

	t.Run("product sale wins over category sale", func(t *testing.T) {
		gdb := newTestDB(t)
		engine := newEngine(t, gdb)

		cat := &model.Category{Name: "Apparel"}
		require.NoError(t, gdb.Create(cat).Error)
		product := &model.Product{SKU: "SALE1", Name: "Sale1", BasePrice: dec("50.00"), Currency: "USD", CategoryID: &cat.ID}
		require.NoError(t, gdb.Create(product).Error)

		starts, ends := window()
		require.NoError(t, gdb.Create(&model.Sale{CategoryID: &cat.ID, Kind: model.SalePercent, Amount: dec("50"), StartsAt: starts, EndsAt: ends}).Error)
		require.NoError(t, gdb.Create(&model.Sale{ProductID: &product.ID, Kind: model.SaleFixed, Amount: dec("30.00"), StartsAt: starts, EndsAt: ends}).Error)

		price, err := engine.UnitPrice(ctx, product, &model.NoVariant, nil, 1, nil)
		require.NoError(t, err)
		require.True(t, price.Equal(dec("30.00")), "got %s", price)
	})

	t.Run("nearest category ancestor wins", func(t *testing.T) {
		gdb := newTestDB(t)
		engine := newEngine(t, gdb)

		root := &model.Category{Name: "Root"}
		require.NoError(t, gdb.Create(root).Error)
		child := &model.Category{Name: "Child", ParentID: &root.ID}
		require.NoError(t, gdb.Create(child).Error)
		product := &model.Product{SKU: "SALE2", Name: "Sale2", BasePrice: dec("100.00"), Currency: "USD", CategoryID: &child.ID}
		require.NoError(t, gdb.Create(product).Error)

		starts, ends := window()
		require.NoError(t, gdb.Create(&model.Sale{CategoryID: &root.ID, Kind: model.SalePercent, Amount: dec("50"), StartsAt: starts, EndsAt: ends}).Error)
		require.NoError(t, gdb.Create(&model.Sale{CategoryID: &child.ID, Kind: model.SalePercent, Amount: dec("10"), StartsAt: starts, EndsAt: ends}).Error)

		price, err := engine.UnitPrice(ctx, product, &model.NoVariant, nil, 1, nil)
		require.NoError(t, err)
		require.True(t, price.Equal(dec("90.00")), "got %s", price)
	})

	t.Run("expired sale does not apply", func(t *testing.T) {
		gdb := newTestDB(t)
		engine := newEngine(t, gdb)

		product := &model.Product{SKU: "SALE3", Name: "Sale3", BasePrice: dec("40.00"), Currency: "USD"}
		require.NoError(t, gdb.Create(product).Error)
		require.NoError(t, gdb.Create(&model.Sale{
			ProductID: &product.ID,
			Kind:      model.SalePercent,
			Amount:    dec("25"),
			StartsAt:  time.Now().Add(-48 * time.Hour),
			EndsAt:    time.Now().Add(-24 * time.Hour),
		}).Error)

		price, err := engine.UnitPrice(ctx, product, &model.NoVariant, nil, 1, nil)
		require.NoError(t, err)
		require.True(t, price.Equal(dec("40.00")), "got %s", price)
	})
}
