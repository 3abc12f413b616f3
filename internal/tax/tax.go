// Package tax resolves applicable tax rates from a nexus policy and the
// order's addresses.
package tax

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"shopfront/internal/config"
	"shopfront/internal/model"
	"shopfront/internal/repository"
)

type Calculator struct {
	repo          repository.TaxRepository
	physicalNexus model.NexusPolicy
	virtualNexus  model.NexusPolicy
	origin        model.Address
	log           *slog.Logger
}

func NewCalculator(repo repository.TaxRepository, cfg config.Tax, log *slog.Logger) *Calculator {
	return &Calculator{
		repo:          repo,
		physicalNexus: model.NexusPolicy(cfg.PhysicalNexus),
		virtualNexus:  model.NexusPolicy(cfg.VirtualNexus),
		origin:        model.Address{Country: cfg.OriginCountry, Region: cfg.OriginRegion},
		log:           log,
	}
}

// RateFor resolves the item tax rate for an order line. The shipper's
// declared tax location takes precedence for physical items; otherwise the
// nexus policy for the product type picks the seller or buyer location.
// An unknown jurisdiction yields a zero rate, not an error.
func (c *Calculator) RateFor(ctx context.Context, order *model.Order, physical bool) (decimal.Decimal, error) {
	if physical && order.ShipperID != nil {
		shipper, err := c.repo.FindShipper(ctx, *order.ShipperID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return decimal.Zero, err
		}
		if shipper != nil && shipper.TaxCountry != "" {
			return c.rateAt(ctx, shipper.TaxCountry, shipper.TaxRegion)
		}
	}

	nexus := c.virtualNexus
	if physical {
		nexus = c.physicalNexus
	}
	loc := c.locationFor(nexus, order)
	if loc.Country == "" {
		return decimal.Zero, nil
	}
	return c.rateAt(ctx, loc.Country, loc.Region)
}

// Jurisdiction returns the buyer-jurisdiction row governing whether
// shipping and handling charges are themselves taxed. Nil when the buyer's
// location is unknown.
func (c *Calculator) Jurisdiction(ctx context.Context, order *model.Order) (*model.TaxRate, error) {
	if order.Shipping.Country == "" {
		return nil, nil
	}
	rate, err := c.repo.FindRate(ctx, order.Shipping.Country, order.Shipping.Region)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	return rate, err
}

func (c *Calculator) locationFor(nexus model.NexusPolicy, order *model.Order) model.Address {
	switch nexus {
	case model.NexusOrigin:
		return c.origin
	case model.NexusDestination:
		return order.Shipping
	case model.NexusGeo:
		// No geolocation source in this core; fall back to the shipping
		// address, then the seller origin.
		if order.Shipping.Country != "" {
			return order.Shipping
		}
		return c.origin
	}
	return order.Shipping
}

func (c *Calculator) rateAt(ctx context.Context, country, region string) (decimal.Decimal, error) {
	rate, err := c.repo.FindRate(ctx, country, region)
	if errors.Is(err, model.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return rate.Rate, nil
}
