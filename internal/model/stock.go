package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockRecord tracks inventory per (product, variant). VariantID 0 means
// the product-level record for products without variants.
type StockRecord struct {
	ItemID    uint `gorm:"primaryKey;autoIncrement:false"`
	VariantID uint `gorm:"primaryKey;autoIncrement:false"`
	OnHand    int  `gorm:"not null;default:0"`
	Reserved  int  `gorm:"not null;default:0"`
	Reorder   int  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

func (r *StockRecord) Available() int {
	return r.OnHand - r.Reserved
}

type NexusPolicy string

const (
	NexusOrigin      NexusPolicy = "ORIGIN"
	NexusDestination NexusPolicy = "DESTINATION"
	NexusGeo         NexusPolicy = "GEO"
)

// TaxRate is a jurisdiction row keyed by country and region. TaxShipping
// and TaxHandling are properties of the buyer's jurisdiction, independent
// of the item rate.
type TaxRate struct {
	ID          uint            `gorm:"primaryKey"`
	Country     string          `gorm:"size:2;index:idx_tax_loc;not null"`
	Region      string          `gorm:"size:64;index:idx_tax_loc"`
	Rate        decimal.Decimal `gorm:"type:decimal(8,5);not null"`
	TaxShipping bool            `gorm:"not null;default:false"`
	TaxHandling bool            `gorm:"not null;default:false"`
}

// Shipper is a shipping carrier/method. A declared tax location overrides
// nexus resolution for physical items.
type Shipper struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"size:128;not null"`
	TaxCountry string `gorm:"size:2"`
	TaxRegion  string `gorm:"size:64"`
}
