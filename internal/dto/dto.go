package dto

import "github.com/shopspring/decimal"

type CreateOrderRequest struct {
	UID string `json:"uid"`
}

type AddItemRequest struct {
	ProductID      uint              `json:"product_id" validate:"required"`
	OptionValueIDs []uint            `json:"option_value_ids"`
	TextOptions    map[uint]string   `json:"text_options"`
	Quantity       int               `json:"quantity" validate:"required,gt=0"`
	OverridePrice  *decimal.Decimal  `json:"override_price"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type AddressRequest struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country" validate:"required,len=2"`
}

type SetAddressesRequest struct {
	Billing  AddressRequest `json:"billing" validate:"required"`
	Shipping AddressRequest `json:"shipping" validate:"required"`
}

type SetShipperRequest struct {
	ShipperID uint `json:"shipper_id" validate:"required"`
}

type SetChargesRequest struct {
	Shipping decimal.Decimal `json:"shipping"`
	Handling decimal.Decimal `json:"handling"`
}

type ApplyDiscountRequest struct {
	Code string `json:"code"`
}

type SetStatusRequest struct {
	Status      string `json:"status" validate:"required"`
	Actor       string `json:"actor"`
	ForceNotify bool   `json:"force_notify"`
}

type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Method    string          `json:"method" validate:"required"`
	Reference string          `json:"reference"`
}

type SaveProductRequest struct {
	SKU           string           `json:"sku" validate:"required"`
	Name          string           `json:"name" validate:"required"`
	Kind          string           `json:"kind"`
	CategoryID    *uint            `json:"category_id"`
	BasePrice     decimal.Decimal  `json:"base_price" validate:"required"`
	Taxable       bool             `json:"taxable"`
	Physical      bool             `json:"physical"`
	TrackStock    bool             `json:"track_stock"`
	Oversell      string           `json:"oversell"`
	AllowOverride bool             `json:"allow_override"`
	// Option value ids selected per group for variant generation.
	Selection     map[uint][]uint  `json:"selection"`
	OverrideDelta *decimal.Decimal `json:"override_delta"`
	Tiers         []TierRequest    `json:"tiers"`
}

type TierRequest struct {
	MinQty  int             `json:"min_qty" validate:"gt=0"`
	Percent decimal.Decimal `json:"percent"`
}

type AdjustStockRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	VariantID uint `json:"variant_id"`
	OnHand    int  `json:"onhand"`
	Reserved  int  `json:"reserved"`
	Reorder   int  `json:"reorder"`
}
