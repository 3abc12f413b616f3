// Package gateway declares the collaborator contracts the order core
// consumes. Concrete payment providers and mailers live outside this
// module; the core only checks capabilities and delegates.
package gateway

import (
	"context"
	"log/slog"

	"shopfront/internal/model"
)

// PaymentGateway is the capability surface of a payment provider.
type PaymentGateway interface {
	Supports(serviceType string) bool
	CancelCheckout(ctx context.Context, order *model.Order) error
	DisplayName() string
}

// NotificationSender delivers status notifications. Fire and forget: the
// status machine does not depend on the outcome.
type NotificationSender interface {
	Notify(ctx context.Context, order *model.Order, status, message string)
}

// LogGateway is the default provider: it supports no service, so checkout
// cancellation is skipped, and it records any call it does receive.
type LogGateway struct {
	Log *slog.Logger
}

func (g *LogGateway) Supports(string) bool { return false }

func (g *LogGateway) CancelCheckout(_ context.Context, order *model.Order) error {
	g.Log.Info("checkout cancellation requested", "order_id", order.OrderID)
	return nil
}

func (g *LogGateway) DisplayName() string { return "log" }

// LogNotifier is the default sender: it records the notification and does
// nothing else.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) Notify(_ context.Context, order *model.Order, status, message string) {
	n.Log.Info("order notification",
		"order_id", order.OrderID,
		"status", status,
		"message", message,
	)
}
