// Package order owns the cart/order aggregate: item mutation, derived
// totals and the status machine.
package order

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"shopfront/internal/catalog"
	"shopfront/internal/discount"
	"shopfront/internal/gateway"
	"shopfront/internal/model"
	"shopfront/internal/pricing"
	"shopfront/internal/repository"
	"shopfront/internal/stock"
	"shopfront/internal/tax"
)

var hundred = decimal.NewFromInt(100)

type Service struct {
	db        *gorm.DB
	orders    repository.OrderRepository
	products  repository.ProductRepository
	payments  repository.PaymentRepository
	discounts repository.DiscountRepository
	catalog   *catalog.Catalog
	pricing   *pricing.Engine
	taxes     *tax.Calculator
	validator *discount.Validator
	ledger    *stock.Ledger
	machine   *StatusMachine
	gateway   gateway.PaymentGateway
	log       *slog.Logger
	currency  string
}

func NewService(
	db *gorm.DB,
	orders repository.OrderRepository,
	products repository.ProductRepository,
	payments repository.PaymentRepository,
	discounts repository.DiscountRepository,
	cat *catalog.Catalog,
	engine *pricing.Engine,
	taxes *tax.Calculator,
	validator *discount.Validator,
	ledger *stock.Ledger,
	machine *StatusMachine,
	gw gateway.PaymentGateway,
	log *slog.Logger,
	currency string,
) *Service {
	return &Service{
		db:        db,
		orders:    orders,
		products:  products,
		payments:  payments,
		discounts: discounts,
		catalog:   cat,
		pricing:   engine,
		taxes:     taxes,
		validator: validator,
		ledger:    ledger,
		machine:   machine,
		gateway:   gw,
		log:       log,
		currency:  currency,
	}
}

func (s *Service) Create(ctx context.Context, uid string) (*model.Order, error) {
	order := &model.Order{
		UID:          uid,
		Status:       model.StatusCart,
		Currency:     s.currency,
		Tax:          decimal.Zero,
		ShippingCost: decimal.Zero,
		Handling:     decimal.Zero,
		DiscountPct:  decimal.Zero,
		GrossItems:   decimal.Zero,
		NetTaxable:   decimal.Zero,
		NetNontax:    decimal.Zero,
		OrderTotal:   decimal.Zero,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.orders.Create(ctx, tx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.log.Info("order created", "order_id", order.OrderID, "uid", uid)
	return order, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*model.Order, error) {
	return s.orders.FindByID(ctx, orderID)
}

func (s *Service) GetByToken(ctx context.Context, token string) (*model.Order, error) {
	return s.orders.FindByToken(ctx, token)
}

type AddItemInput struct {
	ProductID      uint
	OptionValueIDs []uint
	TextOptions    map[uint]string // group id -> free text
	Quantity       int
	OverridePrice  *decimal.Decimal
}

// AddItem resolves the variant, reserves stock, prices the line and
// recomputes the order totals, all in one transaction.
func (s *Service) AddItem(ctx context.Context, orderID string, in AddItemInput) (*model.Order, error) {
	if in.Quantity <= 0 {
		return nil, model.Invalid("quantity", "must be positive")
	}
	order, err := s.mutableOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	variantIDs, deltas, optionRows, err := splitOptions(product, in.OptionValueIDs, in.TextOptions)
	if err != nil {
		return nil, err
	}
	variant, err := s.catalog.Resolve(ctx, product.ID, variantIDs)
	if err != nil {
		return nil, err
	}

	maxQty, err := s.ledger.MaxOrderQuantity(ctx, product, variant.ID)
	if err != nil {
		return nil, err
	}
	if in.Quantity > maxQty {
		return nil, model.Invalid("quantity", fmt.Sprintf("at most %d may be ordered", maxQty))
	}

	unit, err := s.pricing.UnitPrice(ctx, product, variant, deltas, in.Quantity, in.OverridePrice)
	if err != nil {
		return nil, err
	}
	rate, err := s.taxes.RateFor(ctx, order, product.Physical)
	if err != nil {
		return nil, err
	}
	if !product.Taxable {
		rate = decimal.Zero
	}

	item := model.OrderItem{
		OrderID:       order.OrderID,
		ProductID:     product.ID,
		VariantID:     variant.ID,
		Quantity:      in.Quantity,
		BasePrice:     unit,
		Price:         s.netPrice(unit, order.DiscountPct),
		TaxRate:       rate,
		ShippingAlloc: decimal.Zero,
		HandlingAlloc: decimal.Zero,
		Taxable:       product.Taxable,
		Physical:      product.Physical,
		Valid:         true,
		Options:       optionRows,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.Reserve(ctx, tx, product, variant.ID, in.Quantity); err != nil {
			return err
		}
		if err := s.orders.AddItem(ctx, tx, &item); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
		return s.recalcAndSave(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("item added", "order_id", order.OrderID, "product_id", product.ID, "variant_id", variant.ID, "qty", in.Quantity)
	return order, nil
}

// UpdateItemQuantity re-reserves the difference and re-prices the line,
// since a new quantity can move it into a different discount tier.
func (s *Service) UpdateItemQuantity(ctx context.Context, orderID string, itemID uint, qty int) (*model.Order, error) {
	if qty <= 0 {
		return nil, model.Invalid("quantity", "must be positive")
	}
	order, err := s.mutableOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := findItem(order, itemID)
	if item == nil {
		return nil, model.ErrNotFound
	}
	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	variant := &model.NoVariant
	if item.VariantID != 0 {
		variant, err = s.catalog.VariantByID(ctx, item.VariantID)
		if err != nil {
			return nil, err
		}
	}

	// Only checkbox rows carry a delta of their own; the variant delta
	// covers the rest.
	checkboxGroups := make(map[uint]struct{})
	for _, g := range product.OptionGroups {
		if g.Type == model.OptionGroupCheckbox {
			checkboxGroups[g.ID] = struct{}{}
		}
	}
	deltas := make([]decimal.Decimal, 0, len(item.Options))
	for _, opt := range item.Options {
		if _, ok := checkboxGroups[opt.GroupID]; ok {
			deltas = append(deltas, opt.PriceDelta)
		}
	}
	unit, err := s.pricing.UnitPrice(ctx, product, variant, deltas, qty, nil)
	if err != nil {
		return nil, err
	}

	diff := qty - item.Quantity
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if diff > 0 {
			if err := s.ledger.Reserve(ctx, tx, product, item.VariantID, diff); err != nil {
				return err
			}
		} else if diff < 0 {
			if err := s.ledger.Release(ctx, tx, product, item.VariantID, -diff); err != nil {
				return err
			}
		}
		item.Quantity = qty
		item.BasePrice = unit
		item.Price = s.netPrice(unit, order.DiscountPct)
		if err := s.orders.SaveItem(ctx, tx, item); err != nil {
			return err
		}
		return s.recalcAndSave(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RemoveItem releases the reservation and drops the line.
func (s *Service) RemoveItem(ctx context.Context, orderID string, itemID uint) (*model.Order, error) {
	order, err := s.mutableOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := findItem(order, itemID)
	if item == nil {
		return nil, model.ErrNotFound
	}
	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.Release(ctx, tx, product, item.VariantID, item.Quantity); err != nil {
			return err
		}
		if err := s.orders.DeleteItem(ctx, tx, itemID); err != nil {
			return err
		}
		dropItem(order, itemID)
		return s.recalcAndSave(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// SetAddresses stores the billing/shipping pair and re-resolves every
// line's tax rate against the new destination.
func (s *Service) SetAddresses(ctx context.Context, orderID string, billing, shipping model.Address) (*model.Order, error) {
	order, err := s.mutableOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Billing = billing
	order.Shipping = shipping
	return s.retaxAndSave(ctx, order)
}

// SetShipper selects the carrier; its declared tax location can change
// every physical line's rate.
func (s *Service) SetShipper(ctx context.Context, orderID string, shipperID uint) (*model.Order, error) {
	order, err := s.mutableOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.ShipperID = &shipperID
	return s.retaxAndSave(ctx, order)
}

// SetCharges sets order-level shipping and handling.
func (s *Service) SetCharges(ctx context.Context, orderID string, shipping, handling decimal.Decimal) (*model.Order, error) {
	order, err := s.mutableOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.ShippingCost = shipping
	order.Handling = handling
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.recalcAndSave(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ApplyDiscountCode validates the code and reprices every line. An
// invalid or expired code resets the percentage to zero and still runs
// the same repricing pass, so totals stay consistent either way. An
// unchanged code with an unchanged percent is a no-op.
func (s *Service) ApplyDiscountCode(ctx context.Context, orderID, code string) (*model.Order, error) {
	order, err := s.mutableOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	pct, err := s.validator.Validate(ctx, code, order)
	if err != nil {
		return nil, err
	}
	if code == order.DiscountCode && pct.Equal(order.DiscountPct) {
		return order, nil
	}

	firstUse := pct.GreaterThan(decimal.Zero) && code != order.DiscountCode
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order.DiscountCode = code
		order.DiscountPct = pct
		for i := range order.Items {
			order.Items[i].Price = s.netPrice(order.Items[i].BasePrice, pct)
		}
		if err := s.orders.SaveItems(ctx, tx, order.Items); err != nil {
			return err
		}
		if firstUse {
			dc, err := s.discounts.FindByCode(ctx, code)
			if err != nil {
				return err
			}
			if err := s.discounts.IncrementUse(ctx, tx, dc.ID); err != nil {
				return err
			}
		}
		return s.recalcAndSave(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("discount code applied", "order_id", order.OrderID, "code", code, "pct", pct.String())
	return order, nil
}

// Checkout submits the cart.
func (s *Service) Checkout(ctx context.Context, orderID, actor string) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.machine.SetStatus(ctx, tx, order, model.StatusPending, actor, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// SetStatus is the administrative transition entry point.
func (s *Service) SetStatus(ctx context.Context, orderID, newStatus, actor string, forceNotify bool) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.machine.SetStatus(ctx, tx, order, newStatus, actor, forceNotify)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RecordPayment appends to the payment ledger and lets the status machine
// react. When the payment completes the order, reservations convert into
// onhand decrements.
func (s *Service) RecordPayment(ctx context.Context, orderID string, amount decimal.Decimal, method, reference string) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	wasOpen := order.Status == model.StatusCart || order.Status == model.StatusPending || order.Status == model.StatusInvoiced

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.payments.Add(ctx, tx, &model.Payment{
			OrderID:   orderID,
			Amount:    amount,
			Method:    method,
			Reference: reference,
		})
	})
	if err != nil {
		return nil, err
	}
	if err := s.machine.UpdatePaymentStatus(ctx, orderID, method); err != nil {
		return nil, err
	}

	order, err = s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if wasOpen && !order.Mutable() && order.Status != model.StatusInvoiced {
		if err := s.commitStock(ctx, order); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Delete removes a non-final order and returns its reservations. Invoiced
// orders are never deleted.
func (s *Service) Delete(ctx context.Context, orderID string) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Invoiced() {
		return model.ErrOrderInvoiced
	}
	if !order.Mutable() {
		return model.ErrOrderFinal
	}
	// A submitted order may hold an in-flight checkout at the provider.
	if order.Status == model.StatusPending && s.gateway.Supports("checkout") {
		if err := s.gateway.CancelCheckout(ctx, order); err != nil {
			return fmt.Errorf("cancel checkout with %s: %w", s.gateway.DisplayName(), err)
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range order.Items {
			product, err := s.products.FindByID(ctx, order.Items[i].ProductID)
			if err != nil {
				return err
			}
			if err := s.ledger.Release(ctx, tx, product, order.Items[i].VariantID, order.Items[i].Quantity); err != nil {
				return err
			}
		}
		return s.orders.Delete(ctx, tx, orderID)
	})
}

func (s *Service) commitStock(ctx context.Context, order *model.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range order.Items {
			product, err := s.products.FindByID(ctx, order.Items[i].ProductID)
			if err != nil {
				return err
			}
			if err := s.ledger.RecordPurchase(ctx, tx, product, order.Items[i].VariantID, order.Items[i].Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) mutableOrder(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Mutable() {
		return nil, model.ErrOrderFinal
	}
	return order, nil
}

func (s *Service) netPrice(unit, pct decimal.Decimal) decimal.Decimal {
	if pct.IsZero() {
		return unit
	}
	return model.RoundMoney(unit.Mul(hundred.Sub(pct)).Div(hundred), s.currency)
}

func (s *Service) retaxAndSave(ctx context.Context, order *model.Order) (*model.Order, error) {
	for i := range order.Items {
		if !order.Items[i].Taxable {
			continue
		}
		rate, err := s.taxes.RateFor(ctx, order, order.Items[i].Physical)
		if err != nil {
			return nil, err
		}
		order.Items[i].TaxRate = rate
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orders.SaveItems(ctx, tx, order.Items); err != nil {
			return err
		}
		return s.recalcAndSave(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// recalcAndSave recomputes the derived totals and persists the order.
// order_total = net items + tax + shipping + handling at currency
// precision.
func (s *Service) recalcAndSave(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	gross := decimal.Zero
	netTaxable := decimal.Zero
	netNontax := decimal.Zero
	itemTax := decimal.Zero

	for i := range order.Items {
		item := &order.Items[i]
		qty := decimal.NewFromInt(int64(item.Quantity))
		gross = gross.Add(item.BasePrice.Mul(qty))
		lineNet := item.Price.Mul(qty)
		if item.Taxable {
			netTaxable = netTaxable.Add(lineNet)
			itemTax = itemTax.Add(lineNet.Mul(item.TaxRate))
		} else {
			netNontax = netNontax.Add(lineNet)
		}
	}

	chargeTax := decimal.Zero
	jur, err := s.taxes.Jurisdiction(ctx, order)
	if err != nil {
		return err
	}
	if jur != nil {
		if jur.TaxShipping {
			chargeTax = chargeTax.Add(order.ShippingCost.Mul(jur.Rate))
		}
		if jur.TaxHandling {
			chargeTax = chargeTax.Add(order.Handling.Mul(jur.Rate))
		}
	}

	order.GrossItems = model.RoundMoney(gross, order.Currency)
	order.NetTaxable = model.RoundMoney(netTaxable, order.Currency)
	order.NetNontax = model.RoundMoney(netNontax, order.Currency)
	order.Tax = model.RoundMoney(itemTax.Add(chargeTax), order.Currency)
	order.OrderTotal = model.RoundMoney(
		order.NetTaxable.Add(order.NetNontax).Add(order.Tax).Add(order.ShippingCost).Add(order.Handling),
		order.Currency,
	)
	return s.orders.Save(ctx, tx, order)
}

func findItem(order *model.Order, itemID uint) *model.OrderItem {
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return &order.Items[i]
		}
	}
	return nil
}

func dropItem(order *model.Order, itemID uint) {
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			order.Items = append(order.Items[:i], order.Items[i+1:]...)
			return
		}
	}
}

func splitOptions(product *model.Product, valueIDs []uint, textOptions map[uint]string) (variantIDs []uint, deltas []decimal.Decimal, rows []model.OrderItemOption, err error) {
	type valueInfo struct {
		value model.OptionValue
		group model.OptionGroup
	}
	byID := make(map[uint]valueInfo)
	groupsByID := make(map[uint]model.OptionGroup)
	for _, g := range product.OptionGroups {
		groupsByID[g.ID] = g
		for _, v := range g.Values {
			byID[v.ID] = valueInfo{value: v, group: g}
		}
	}

	for _, id := range valueIDs {
		info, ok := byID[id]
		if !ok {
			return nil, nil, nil, model.Invalid("option_value", fmt.Sprintf("value %d does not belong to product %d", id, product.ID))
		}
		rows = append(rows, model.OrderItemOption{
			GroupID:    info.group.ID,
			ValueID:    info.value.ID,
			PriceDelta: info.value.PriceDelta,
		})
		// Checkbox groups are priced per line and never form the variant
		// key; all other deltas are already summed into the variant's own
		// price delta by matrix generation.
		if info.group.Type == model.OptionGroupCheckbox {
			deltas = append(deltas, info.value.PriceDelta)
		} else {
			variantIDs = append(variantIDs, id)
		}
	}

	for groupID, text := range textOptions {
		g, ok := groupsByID[groupID]
		if !ok || g.Type != model.OptionGroupText {
			return nil, nil, nil, model.Invalid("option_text", fmt.Sprintf("group %d is not a text group", groupID))
		}
		rows = append(rows, model.OrderItemOption{
			GroupID:    groupID,
			Text:       text,
			PriceDelta: decimal.Zero,
		})
	}
	return variantIDs, deltas, rows, nil
}
