package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductKind string

const (
	ProductKindCatalog ProductKind = "CATALOG"
	ProductKindCoupon  ProductKind = "COUPON"
	ProductKindPlugin  ProductKind = "PLUGIN"
)

type OversellPolicy string

const (
	OversellAllow OversellPolicy = "ALLOW"
	OversellDeny  OversellPolicy = "DENY"
	OversellHide  OversellPolicy = "HIDE"
)

type OptionGroupType string

const (
	OptionGroupSelect   OptionGroupType = "SELECT"
	OptionGroupRadio    OptionGroupType = "RADIO"
	OptionGroupCheckbox OptionGroupType = "CHECKBOX"
	OptionGroupText     OptionGroupType = "TEXT"
)

type Category struct {
	ID       uint  `gorm:"primaryKey"`
	ParentID *uint `gorm:"index"`
	Name     string
}

type Product struct {
	ID            uint            `gorm:"primaryKey"`
	SKU           string          `gorm:"size:64;uniqueIndex;not null"`
	Name          string          `gorm:"size:255;not null"`
	Kind          ProductKind     `gorm:"size:16;not null;default:CATALOG"`
	CategoryID    *uint           `gorm:"index"`
	BasePrice     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Currency      string          `gorm:"size:8;not null;default:USD"`
	// Bool flags carry no column default: gorm omits zero-valued fields
	// that have one, silently turning false into the default on insert.
	Taxable       bool            `gorm:"not null"`
	Physical      bool            `gorm:"not null"`
	TrackStock    bool            `gorm:"not null"`
	Oversell      OversellPolicy  `gorm:"size:8;not null;default:DENY"`
	AllowOverride bool            `gorm:"not null"` // price override permitted for this kind
	Active        bool            `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	OptionGroups []OptionGroup    `gorm:"foreignKey:ProductID"`
	Variants     []ProductVariant `gorm:"foreignKey:ProductID"`
}

type OptionGroup struct {
	ID        uint            `gorm:"primaryKey"`
	ProductID uint            `gorm:"index;not null"`
	Name      string          `gorm:"size:128;not null"`
	Type      OptionGroupType `gorm:"size:16;not null;default:SELECT"`
	Position  int             `gorm:"not null;default:0"`

	Values []OptionValue `gorm:"foreignKey:GroupID"`
}

type OptionValue struct {
	ID          uint            `gorm:"primaryKey"`
	GroupID     uint            `gorm:"index;not null"`
	Label       string          `gorm:"size:128;not null"`
	PriceDelta  decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	SKUFragment string          `gorm:"size:32"`
	Placeholder bool            `gorm:"not null;default:false"` // "null/unset" choice, excluded from variants
	Position    int             `gorm:"not null;default:0"`
}

// ProductVariant is one generated combination of option values. The value
// set is immutable once generated; regeneration replaces the whole matrix.
type ProductVariant struct {
	ID            uint            `gorm:"primaryKey"`
	ProductID     uint            `gorm:"index;not null"`
	SKU           string          `gorm:"size:128;index;not null"`
	PriceDelta    decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	WeightDelta   decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	ShippingUnits int             `gorm:"not null;default:0"`
	ImageIDs      string          `gorm:"size:255"`
	CreatedAt     time.Time

	Options []OptionValue `gorm:"many2many:variant_options"`
}

// NoVariant is the sentinel returned when option values resolve to no
// generated variant; callers treat it as "product without variant".
var NoVariant = ProductVariant{}

type SaleKind string

const (
	SaleFixed   SaleKind = "FIXED"   // replaces the unit base price
	SalePercent SaleKind = "PERCENT" // percent off the unit base price
)

// Sale is a time-bounded price override attached to a product or inherited
// through the category tree.
type Sale struct {
	ID         uint            `gorm:"primaryKey"`
	ProductID  *uint           `gorm:"index"`
	CategoryID *uint           `gorm:"index"`
	Kind       SaleKind        `gorm:"size:8;not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	StartsAt   time.Time       `gorm:"not null"`
	EndsAt     time.Time       `gorm:"not null"`
}

func (s *Sale) EffectiveAt(t time.Time) bool {
	return !t.Before(s.StartsAt) && t.Before(s.EndsAt)
}

// QuantityTier gives a percent off when at least MinQty units are bought.
type QuantityTier struct {
	ID        uint            `gorm:"primaryKey"`
	ProductID uint            `gorm:"index;not null"`
	MinQty    int             `gorm:"not null"`
	Percent   decimal.Decimal `gorm:"type:decimal(6,3);not null"`
}

type DiscountCode struct {
	ID       uint            `gorm:"primaryKey"`
	Code     string          `gorm:"size:64;uniqueIndex;not null"`
	Percent  decimal.Decimal `gorm:"type:decimal(6,3);not null"`
	StartsAt time.Time       `gorm:"not null"`
	EndsAt   time.Time       `gorm:"not null"`
	MinOrder decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	MaxUses  int             `gorm:"not null;default:0"` // 0 = unlimited
	UseCount int             `gorm:"not null;default:0"`
	Active   bool            `gorm:"not null"`
}
