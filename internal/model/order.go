package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusCart       = "cart"
	StatusPending    = "pending"
	StatusInvoiced   = "invoiced"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusClosed     = "closed"
)

type Address struct {
	Name       string `gorm:"size:128"`
	Street     string `gorm:"size:255"`
	City       string `gorm:"size:128"`
	Region     string `gorm:"size:64"`
	PostalCode string `gorm:"size:32"`
	Country    string `gorm:"size:2"`
}

type Order struct {
	OrderID  string `gorm:"primaryKey;size:32"`
	UID      string `gorm:"size:64;index"`
	Status   string `gorm:"size:32;index;not null;default:cart"`
	Currency string `gorm:"size:8;not null"`
	Token    string `gorm:"size:64;uniqueIndex;not null"`
	Secret   string `gorm:"size:64;not null"`

	Billing  Address `gorm:"embedded;embeddedPrefix:bill_"`
	Shipping Address `gorm:"embedded;embeddedPrefix:ship_"`

	ShipperID *uint `gorm:"index"`

	Tax          decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Handling     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	DiscountCode string          `gorm:"size:64"`
	DiscountPct  decimal.Decimal `gorm:"type:decimal(6,3);not null"`

	GrossItems decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	NetTaxable decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	NetNontax  decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	OrderTotal decimal.Decimal `gorm:"type:decimal(12,4);not null"`

	// Invoice number, assigned once on the first transition to a final
	// status. Zero means not invoiced.
	OrderSeq int64 `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

// Mutable reports whether items may still be added, re-priced or removed.
func (o *Order) Mutable() bool {
	return o.Status == StatusCart || o.Status == StatusPending
}

func (o *Order) Invoiced() bool {
	return o.OrderSeq != 0
}

type OrderItem struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   string `gorm:"size:32;index;not null"`
	ProductID uint   `gorm:"index;not null"`
	VariantID uint   `gorm:"not null;default:0"` // 0 = no variant
	Quantity  int    `gorm:"not null"`

	BasePrice     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Price         decimal.Decimal `gorm:"type:decimal(12,4);not null"` // net unit price after discounts
	TaxRate       decimal.Decimal `gorm:"type:decimal(8,5);not null"`
	ShippingAlloc decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	HandlingAlloc decimal.Decimal `gorm:"type:decimal(12,4);not null"`

	Taxable  bool `gorm:"not null"`
	Physical bool `gorm:"not null"`
	Valid    bool `gorm:"not null"` // cleared by zone-rule checks

	CreatedAt time.Time

	Options []OrderItemOption `gorm:"foreignKey:OrderItemID"`
}

// OrderItemOption is a selected option value or a free-text custom field.
type OrderItemOption struct {
	ID          uint            `gorm:"primaryKey"`
	OrderItemID uint            `gorm:"index;not null"`
	GroupID     uint            `gorm:"not null"`
	ValueID     uint            `gorm:"not null;default:0"` // 0 for text fields
	Text        string          `gorm:"size:255"`
	PriceDelta  decimal.Decimal `gorm:"type:decimal(12,4);not null"`
}

// StatusEntry is one row of the status registry: an open set of status
// codes with per-status behavior flags. Final statuses trigger invoice
// sequencing and freeze the item list.
type StatusEntry struct {
	Code              string `gorm:"primaryKey;size:32"`
	Label             string `gorm:"size:64"`
	Final             bool   `gorm:"not null;default:false"`
	NotifyBuyer       bool   `gorm:"not null;default:false"`
	NotifyAdmin       bool   `gorm:"not null;default:false"`
	AffiliateEligible bool   `gorm:"not null;default:false"`
}

// OrderSequence maps an order to its invoice number. The autoincrement
// primary key is the sequence; the unique order id makes assignment a
// one-shot insert that loses cleanly to a concurrent winner.
type OrderSequence struct {
	Seq       int64  `gorm:"primaryKey;autoIncrement"`
	OrderID   string `gorm:"size:32;uniqueIndex;not null"`
	CreatedAt time.Time
}

type Payment struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   string          `gorm:"size:32;index;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Method    string          `gorm:"size:32"`
	Reference string          `gorm:"size:128"`
	CreatedAt time.Time
}

type StatusLog struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   string `gorm:"size:32;index;not null"`
	OldStatus string `gorm:"size:32"`
	NewStatus string `gorm:"size:32;not null"`
	Actor     string `gorm:"size:64"`
	CreatedAt time.Time
}

// AffiliateBonus records one bonus grant per order. The unique order id is
// the idempotency key for repeated transitions into eligible statuses.
type AffiliateBonus struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   string `gorm:"size:32;uniqueIndex;not null"`
	Status    string `gorm:"size:32;not null"`
	CreatedAt time.Time
}
