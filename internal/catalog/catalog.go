// Package catalog builds and resolves product variants: the combinations
// of option values a product is sold in.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"shopfront/internal/cache"
	"shopfront/internal/model"
	"shopfront/internal/repository"
)

type Catalog struct {
	db       *gorm.DB
	products repository.ProductRepository
	variants repository.VariantRepository
	cache    cache.Cache
	log      *slog.Logger
}

func New(db *gorm.DB, products repository.ProductRepository, variants repository.VariantRepository, c cache.Cache, log *slog.Logger) *Catalog {
	return &Catalog{db: db, products: products, variants: variants, cache: c, log: log}
}

// SaveProduct persists the product with its tiers and regenerates the
// variant matrix from the selection, in one transaction.
func (c *Catalog) SaveProduct(ctx context.Context, product *model.Product, selection Selection, override *decimal.Decimal, tiers []model.QuantityTier) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.products.Save(ctx, tx, product); err != nil {
			return err
		}
		if err := c.products.ReplaceTiers(ctx, tx, product.ID, tiers); err != nil {
			return err
		}
		if len(selection) > 0 {
			if _, err := c.Rebuild(ctx, tx, product, selection, override); err != nil {
				return err
			}
			return nil
		}
		if err := c.cache.InvalidateTag(ctx, ProductTag(product.ID)); err != nil {
			c.log.Warn("product cache invalidation failed", "product_id", product.ID, "error", err)
		}
		return nil
	})
}

// Selection names the option values chosen per group for matrix
// generation. Checkbox and text groups are ignored; those are priced per
// item, not baked into variants.
type Selection map[uint][]uint

// BuildMatrix computes the Cartesian product of the selected values, one
// variant per combination. Placeholder values participate in combinations
// but contribute no option association, no price delta and no sku
// fragment. A non-nil override replaces every combination's summed delta.
func BuildMatrix(product *model.Product, selection Selection, override *decimal.Decimal) ([]model.ProductVariant, error) {
	groups := make([]model.OptionGroup, 0, len(product.OptionGroups))
	for _, g := range product.OptionGroups {
		if g.Type == model.OptionGroupCheckbox || g.Type == model.OptionGroupText {
			continue
		}
		if len(selection[g.ID]) == 0 {
			continue
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Position < groups[j].Position })

	valuesByID := make(map[uint]model.OptionValue)
	for _, g := range product.OptionGroups {
		for _, v := range g.Values {
			valuesByID[v.ID] = v
		}
	}

	combos := [][]model.OptionValue{{}}
	for _, g := range groups {
		next := make([][]model.OptionValue, 0, len(combos)*len(selection[g.ID]))
		for _, valueID := range selection[g.ID] {
			v, ok := valuesByID[valueID]
			if !ok || v.GroupID != g.ID {
				return nil, model.Invalid("option_value", fmt.Sprintf("value %d does not belong to group %d", valueID, g.ID))
			}
			for _, combo := range combos {
				row := make([]model.OptionValue, len(combo), len(combo)+1)
				copy(row, combo)
				next = append(next, append(row, v))
			}
		}
		combos = next
	}

	seen := make(map[string]struct{}, len(combos))
	variants := make([]model.ProductVariant, 0, len(combos))
	for _, combo := range combos {
		variant := model.ProductVariant{ProductID: product.ID, PriceDelta: decimal.Zero, WeightDelta: decimal.Zero}
		fragments := []string{product.SKU}
		for _, v := range combo {
			if v.Placeholder {
				continue
			}
			variant.Options = append(variant.Options, v)
			variant.PriceDelta = variant.PriceDelta.Add(v.PriceDelta)
			if v.SKUFragment != "" {
				fragments = append(fragments, v.SKUFragment)
			}
		}
		if override != nil {
			variant.PriceDelta = *override
		}
		variant.SKU = strings.Join(fragments, "-")

		key := valueSetKey(variant.Options)
		if _, dup := seen[key]; dup {
			return nil, model.Invalid("variants", "two combinations share the same option value set")
		}
		seen[key] = struct{}{}
		variants = append(variants, variant)
	}
	return variants, nil
}

func valueSetKey(values []model.OptionValue) string {
	ids := make([]int, len(values))
	for i, v := range values {
		ids[i] = int(v.ID)
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}

// Rebuild regenerates the product's variant matrix from the selection and
// replaces the stored one.
func (c *Catalog) Rebuild(ctx context.Context, tx *gorm.DB, product *model.Product, selection Selection, override *decimal.Decimal) ([]model.ProductVariant, error) {
	variants, err := BuildMatrix(product, selection, override)
	if err != nil {
		return nil, err
	}
	if err := c.variants.ReplaceForProduct(ctx, tx, product.ID, variants); err != nil {
		return nil, err
	}
	if err := c.cache.InvalidateTag(ctx, ProductTag(product.ID)); err != nil {
		c.log.Warn("variant cache invalidation failed", "product_id", product.ID, "error", err)
	}
	c.log.Info("variant matrix rebuilt", "product_id", product.ID, "variants", len(variants))
	return variants, nil
}

// Resolve finds the variant matching the supplied option values exactly:
// every id present and no extra ids on the variant. No match returns the
// no-variant sentinel; stock and option validation catch real mismatches
// later.
func (c *Catalog) Resolve(ctx context.Context, productID uint, optionValueIDs []uint) (*model.ProductVariant, error) {
	variants, err := c.variantsFor(ctx, productID)
	if err != nil {
		return nil, err
	}
	want := make(map[uint]struct{}, len(optionValueIDs))
	for _, id := range optionValueIDs {
		want[id] = struct{}{}
	}
	for i := range variants {
		if len(variants[i].Options) != len(want) {
			continue
		}
		matched := true
		for _, v := range variants[i].Options {
			if _, ok := want[v.ID]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return &variants[i], nil
		}
	}
	sentinel := model.NoVariant
	return &sentinel, nil
}

// VariantByID loads a single stored variant with its option values.
func (c *Catalog) VariantByID(ctx context.Context, variantID uint) (*model.ProductVariant, error) {
	return c.variants.FindByID(ctx, variantID)
}

func ProductTag(productID uint) string {
	return fmt.Sprintf("product:%d", productID)
}

func (c *Catalog) variantsFor(ctx context.Context, productID uint) ([]model.ProductVariant, error) {
	key := fmt.Sprintf("variants:%d", productID)
	var cached []model.ProductVariant
	ok, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.log.Warn("variant cache read failed", "product_id", productID, "error", err)
	}
	if ok {
		return cached, nil
	}
	variants, err := c.variants.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, ProductTag(productID), key, variants); err != nil {
		c.log.Warn("variant cache write failed", "product_id", productID, "error", err)
	}
	return variants, nil
}
