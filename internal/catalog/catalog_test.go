package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

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

func newCatalog(t *testing.T, gdb *gorm.DB) *Catalog {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(
		gdb,
		repository.NewProductRepository(gdb),
		repository.NewVariantRepository(gdb),
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

// twoGroupProduct builds a product with Color (3 values) and Size
// (2 values) option groups, ids assigned by the database.
func twoGroupProduct(t *testing.T, gdb *gorm.DB) *model.Product {
	t.Helper()
	product := &model.Product{SKU: "TEE", Name: "Tee", BasePrice: dec("20.00"), Currency: "USD"}
	require.NoError(t, gdb.Create(product).Error)

	color := &model.OptionGroup{ProductID: product.ID, Name: "Color", Type: model.OptionGroupSelect, Position: 1}
	require.NoError(t, gdb.Create(color).Error)
	size := &model.OptionGroup{ProductID: product.ID, Name: "Size", Type: model.OptionGroupSelect, Position: 2}
	require.NoError(t, gdb.Create(size).Error)

	values := []*model.OptionValue{
		{GroupID: color.ID, Label: "Red", SKUFragment: "RD", PriceDelta: decimal.Zero, Position: 1},
		{GroupID: color.ID, Label: "Green", SKUFragment: "GN", PriceDelta: decimal.Zero, Position: 2},
		{GroupID: color.ID, Label: "Blue", SKUFragment: "BL", PriceDelta: decimal.Zero, Position: 3},
		{GroupID: size.ID, Label: "M", SKUFragment: "M", PriceDelta: decimal.Zero, Position: 1},
		{GroupID: size.ID, Label: "XL", SKUFragment: "XL", PriceDelta: dec("5.00"), Position: 2},
	}
	for _, v := range values {
		require.NoError(t, gdb.Create(v).Error)
	}

	loaded, err := repository.NewProductRepository(gdb).FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	return loaded
}

func selectionOf(product *model.Product) Selection {
	sel := Selection{}
	for _, g := range product.OptionGroups {
		for _, v := range g.Values {
			sel[g.ID] = append(sel[g.ID], v.ID)
		}
	}
	return sel
}

func TestBuildMatrix(t *testing.T) {
	t.Run("produces the full Cartesian product with unique value sets", func(t *testing.T) {
		gdb := newTestDB(t)
		product := twoGroupProduct(t, gdb)

		variants, err := BuildMatrix(product, selectionOf(product), nil)
		require.NoError(t, err)
		require.Len(t, variants, 6) // 3 colors x 2 sizes

		seen := map[string]bool{}
		for _, v := range variants {
			key := valueSetKey(v.Options)
			require.False(t, seen[key], "duplicate value set %s", key)
			seen[key] = true
			require.Len(t, v.Options, 2)
		}
	})

	t.Run("sku joins product sku with fragments in group order", func(t *testing.T) {
		gdb := newTestDB(t)
		product := twoGroupProduct(t, gdb)

		variants, err := BuildMatrix(product, selectionOf(product), nil)
		require.NoError(t, err)

		skus := map[string]bool{}
		for _, v := range variants {
			skus[v.SKU] = true
		}
		require.True(t, skus["TEE-RD-M"], "skus: %v", skus)
		require.True(t, skus["TEE-BL-XL"], "skus: %v", skus)
	})

	t.Run("price delta sums the combination deltas", func(t *testing.T) {
		gdb := newTestDB(t)
		product := twoGroupProduct(t, gdb)

		variants, err := BuildMatrix(product, selectionOf(product), nil)
		require.NoError(t, err)

		var xlCount int
		for _, v := range variants {
			for _, opt := range v.Options {
				if opt.Label == "XL" {
					require.True(t, v.PriceDelta.Equal(dec("5.00")), "got %s", v.PriceDelta)
					xlCount++
				}
			}
		}
		require.Equal(t, 3, xlCount)
	})

	t.Run("batch override replaces every delta", func(t *testing.T) {
		gdb := newTestDB(t)
		product := twoGroupProduct(t, gdb)

		override := dec("2.00")
		variants, err := BuildMatrix(product, selectionOf(product), &override)
		require.NoError(t, err)
		for _, v := range variants {
			require.True(t, v.PriceDelta.Equal(override))
		}
	})

	t.Run("placeholder values carry no option, delta or fragment", func(t *testing.T) {
		gdb := newTestDB(t)
		product := &model.Product{SKU: "CAP", Name: "Cap", BasePrice: dec("10.00"), Currency: "USD"}
		require.NoError(t, gdb.Create(product).Error)
		group := &model.OptionGroup{ProductID: product.ID, Name: "Logo", Type: model.OptionGroupSelect, Position: 1}
		require.NoError(t, gdb.Create(group).Error)
		none := &model.OptionValue{GroupID: group.ID, Label: "None", Placeholder: true}
		require.NoError(t, gdb.Create(none).Error)
		flame := &model.OptionValue{GroupID: group.ID, Label: "Flame", SKUFragment: "FL", PriceDelta: dec("3.00")}
		require.NoError(t, gdb.Create(flame).Error)

		loaded, err := repository.NewProductRepository(gdb).FindByID(context.Background(), product.ID)
		require.NoError(t, err)

		variants, err := BuildMatrix(loaded, selectionOf(loaded), nil)
		require.NoError(t, err)
		require.Len(t, variants, 2)

		for _, v := range variants {
			if len(v.Options) == 0 {
				require.Equal(t, "CAP", v.SKU)
				require.True(t, v.PriceDelta.IsZero())
			} else {
				require.Equal(t, "CAP-FL", v.SKU)
				require.True(t, v.PriceDelta.Equal(dec("3.00")))
			}
		}
	})

	t.Run("checkbox groups are excluded from the matrix", func(t *testing.T) {
		gdb := newTestDB(t)
		product := twoGroupProduct(t, gdb)

		gift := &model.OptionGroup{ProductID: product.ID, Name: "Gift wrap", Type: model.OptionGroupCheckbox, Position: 3}
		require.NoError(t, gdb.Create(gift).Error)
		wrap := &model.OptionValue{GroupID: gift.ID, Label: "Wrap", PriceDelta: dec("2.00")}
		require.NoError(t, gdb.Create(wrap).Error)

		loaded, err := repository.NewProductRepository(gdb).FindByID(context.Background(), product.ID)
		require.NoError(t, err)

		sel := selectionOf(loaded)
		variants, err := BuildMatrix(loaded, sel, nil)
		require.NoError(t, err)
		require.Len(t, variants, 6) // unchanged by the checkbox group
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Catalog, *model.Product, []model.ProductVariant) {
		gdb := newTestDB(t)
		product := twoGroupProduct(t, gdb)
		cat := newCatalog(t, gdb)

		var variants []model.ProductVariant
		err := gdb.Transaction(func(tx *gorm.DB) error {
			var err error
			variants, err = cat.Rebuild(ctx, tx, product, selectionOf(product), nil)
			return err
		})
		require.NoError(t, err)
		return cat, product, variants
	}

	t.Run("matches the exact value set", func(t *testing.T) {
		cat, product, variants := setup(t)

		want := variants[0]
		ids := make([]uint, len(want.Options))
		for i, opt := range want.Options {
			ids[i] = opt.ID
		}

		got, err := cat.Resolve(ctx, product.ID, ids)
		require.NoError(t, err)
		require.Equal(t, want.SKU, got.SKU)
	})

	t.Run("a subset of a variant's values does not match", func(t *testing.T) {
		cat, product, variants := setup(t)

		ids := []uint{variants[0].Options[0].ID}
		got, err := cat.Resolve(ctx, product.ID, ids)
		require.NoError(t, err)
		require.Zero(t, got.ID, "expected the no-variant sentinel")
		require.True(t, got.PriceDelta.IsZero())
	})

	t.Run("unknown ids yield the sentinel, not an error", func(t *testing.T) {
		cat, product, _ := setup(t)

		got, err := cat.Resolve(ctx, product.ID, []uint{9999, 9998})
		require.NoError(t, err)
		require.Zero(t, got.ID)
	})
}
