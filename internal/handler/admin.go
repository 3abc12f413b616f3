package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"shopfront/internal/catalog"
	"shopfront/internal/dto"
	"shopfront/internal/model"
	"shopfront/internal/repository"
	"shopfront/internal/stock"
)

// AdminHandler is the thin administrative surface: product save with
// matrix regeneration, stock corrections, catalog listing.
type AdminHandler struct {
	db       *gorm.DB
	products repository.ProductRepository
	catalog  *catalog.Catalog
	ledger   *stock.Ledger
	currency string
}

func NewAdminHandler(db *gorm.DB, products repository.ProductRepository, cat *catalog.Catalog, ledger *stock.Ledger, currency string) *AdminHandler {
	return &AdminHandler{db: db, products: products, catalog: cat, ledger: ledger, currency: currency}
}

func (h *AdminHandler) SaveProduct(c echo.Context) error {
	ctx := c.Request().Context()
	var req dto.SaveProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	product := &model.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Kind:          model.ProductKind(req.Kind),
		CategoryID:    req.CategoryID,
		BasePrice:     req.BasePrice,
		Currency:      h.currency,
		Taxable:       req.Taxable,
		Physical:      req.Physical,
		TrackStock:    req.TrackStock,
		Oversell:      model.OversellPolicy(req.Oversell),
		AllowOverride: req.AllowOverride,
		Active:        true,
	}
	if product.Kind == "" {
		product.Kind = model.ProductKindCatalog
	}
	if product.Oversell == "" {
		product.Oversell = model.OversellDeny
	}

	if existing, err := h.products.FindBySKU(ctx, req.SKU); err == nil {
		product.ID = existing.ID
		product.CreatedAt = existing.CreatedAt
		// option groups live on the stored product; reload for generation
		full, err := h.products.FindByID(ctx, existing.ID)
		if err != nil {
			return httpError(err)
		}
		product.OptionGroups = full.OptionGroups
	}

	tiers := make([]model.QuantityTier, len(req.Tiers))
	for i, t := range req.Tiers {
		tiers[i] = model.QuantityTier{MinQty: t.MinQty, Percent: t.Percent}
	}

	err := h.catalog.SaveProduct(ctx, product, req.Selection, req.OverrideDelta, tiers)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *AdminHandler) AdjustStock(c echo.Context) error {
	ctx := c.Request().Context()
	var req dto.AdjustStockRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	rec := &model.StockRecord{
		ItemID:    req.ProductID,
		VariantID: req.VariantID,
		OnHand:    req.OnHand,
		Reserved:  req.Reserved,
		Reorder:   req.Reorder,
	}
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return h.ledger.Adjust(ctx, tx, rec)
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ListCatalog returns active products, excluding those the HIDE policy
// pulls from view once stock is gone.
func (h *AdminHandler) ListCatalog(c echo.Context) error {
	ctx := c.Request().Context()
	products, err := h.products.List(ctx)
	if err != nil {
		return httpError(err)
	}
	visible := make([]*model.Product, 0, len(products))
	for _, p := range products {
		ok, err := h.ledger.Visible(ctx, p)
		if err != nil {
			return httpError(err)
		}
		if ok {
			visible = append(visible, p)
		}
	}
	return c.JSON(http.StatusOK, visible)
}
