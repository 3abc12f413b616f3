package order

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"shopfront/internal/gateway"
	"shopfront/internal/model"
	"shopfront/internal/repository"
)

// StatusMachine governs status transitions and their side effects:
// invoice sequencing, affiliate-bonus grants, transition logging and
// notification dispatch.
type StatusMachine struct {
	db                *gorm.DB
	orders            repository.OrderRepository
	statuses          repository.StatusRepository
	seqs              repository.SequenceRepository
	payments          repository.PaymentRepository
	notifier          gateway.NotificationSender
	log               *slog.Logger
	virtualPaidStatus string
	paidEpsilon       decimal.Decimal
}

func NewStatusMachine(
	db *gorm.DB,
	orders repository.OrderRepository,
	statuses repository.StatusRepository,
	seqs repository.SequenceRepository,
	payments repository.PaymentRepository,
	notifier gateway.NotificationSender,
	log *slog.Logger,
	virtualPaidStatus string,
	paidEpsilon decimal.Decimal,
) *StatusMachine {
	return &StatusMachine{
		db:                db,
		orders:            orders,
		statuses:          statuses,
		seqs:              seqs,
		payments:          payments,
		notifier:          notifier,
		log:               log,
		virtualPaidStatus: virtualPaidStatus,
		paidEpsilon:       paidEpsilon,
	}
}

// SetStatus moves the order to newStatus and runs the transition's side
// effects inside the caller's transaction. Setting the current status or
// an empty one is a no-op returning the unchanged status. An incoming
// "paid" is an alias for "processing".
func (m *StatusMachine) SetStatus(ctx context.Context, tx *gorm.DB, order *model.Order, newStatus, actor string, forceNotify bool) (string, error) {
	if newStatus == "" || newStatus == order.Status {
		return order.Status, nil
	}
	if newStatus == "paid" {
		newStatus = model.StatusProcessing
		if newStatus == order.Status {
			return order.Status, nil
		}
	}

	entry, err := m.statuses.Get(ctx, newStatus)
	if errors.Is(err, model.ErrNotFound) {
		return order.Status, model.Invalid("status", "unknown status code "+newStatus)
	}
	if err != nil {
		return order.Status, err
	}

	if entry.Final && !order.Invoiced() {
		seq, err := m.seqs.Assign(ctx, tx, order.OrderID)
		if err != nil {
			return order.Status, err
		}
		order.OrderSeq = seq
		m.log.Info("invoice sequence assigned", "order_id", order.OrderID, "seq", seq)
	}

	if entry.AffiliateEligible {
		granted, err := m.statuses.GrantAffiliateBonus(ctx, tx, order.OrderID, newStatus)
		if err != nil {
			return order.Status, err
		}
		if granted {
			m.log.Info("affiliate bonus granted", "order_id", order.OrderID, "status", newStatus)
		}
	}

	oldStatus := order.Status
	order.Status = newStatus
	if err := m.orders.Save(ctx, tx, order); err != nil {
		return oldStatus, err
	}
	if err := m.statuses.LogTransition(ctx, tx, &model.StatusLog{
		OrderID:   order.OrderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Actor:     actor,
	}); err != nil {
		return oldStatus, err
	}

	m.log.Info("order status changed",
		"order_id", order.OrderID, "old", oldStatus, "new", newStatus, "actor", actor)

	if forceNotify || entry.NotifyBuyer || entry.NotifyAdmin {
		m.notifier.Notify(ctx, order, newStatus, entry.Label)
	}
	return newStatus, nil
}

// UpdatePaymentStatus recomputes the amount paid from the payment ledger
// and, when a still-open order is fully paid, advances it: physical
// carts go to processing, all-virtual ones to the configured virtual-paid
// status.
func (m *StatusMachine) UpdatePaymentStatus(ctx context.Context, orderID, actor string) error {
	order, err := m.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	switch order.Status {
	case model.StatusCart, model.StatusPending, model.StatusInvoiced:
	default:
		return nil
	}

	paid, err := m.payments.TotalPaid(ctx, orderID)
	if err != nil {
		return err
	}
	balance := order.OrderTotal.Sub(paid)
	if balance.GreaterThanOrEqual(m.paidEpsilon) {
		return nil
	}

	target := m.virtualPaidStatus
	for _, item := range order.Items {
		if item.Physical {
			target = model.StatusProcessing
			break
		}
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := m.SetStatus(ctx, tx, order, target, actor, false)
		return err
	})
}
