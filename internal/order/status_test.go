package order

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopfront/internal/db"
	"shopfront/internal/gateway"
	"shopfront/internal/model"
	"shopfront/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type captureNotifier struct {
	statuses []string
}

func (n *captureNotifier) Notify(_ context.Context, _ *model.Order, status, _ string) {
	n.statuses = append(n.statuses, status)
}

func newMachine(t *testing.T, gdb *gorm.DB, notifier gateway.NotificationSender) *StatusMachine {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if notifier == nil {
		notifier = &gateway.LogNotifier{Log: log}
	}
	return NewStatusMachine(
		gdb,
		repository.NewOrderRepository(gdb),
		repository.NewStatusRepository(gdb),
		repository.NewSequenceRepository(gdb),
		repository.NewPaymentRepository(gdb),
		notifier,
		log,
		model.StatusClosed,
		dec("0.001"),
	)
}

func newOrder(t *testing.T, gdb *gorm.DB, status string, total decimal.Decimal) *model.Order {
	t.Helper()
	order := &model.Order{
		Status:       status,
		Currency:     "USD",
		Tax:          decimal.Zero,
		ShippingCost: decimal.Zero,
		Handling:     decimal.Zero,
		DiscountPct:  decimal.Zero,
		GrossItems:   total,
		NetTaxable:   decimal.Zero,
		NetNontax:    total,
		OrderTotal:   total,
	}
	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		return repository.NewOrderRepository(gdb).Create(context.Background(), tx, order)
	}))
	return order
}

func seqCount(t *testing.T, gdb *gorm.DB, orderID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, gdb.Model(&model.OrderSequence{}).Where("order_id = ?", orderID).Count(&count).Error)
	return count
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("first transition to a final status assigns the sequence once", func(t *testing.T) {
		gdb := newTestDB(t)
		require.NoError(t, repository.NewStatusRepository(gdb).Seed(ctx))
		machine := newMachine(t, gdb, nil)
		order := newOrder(t, gdb, model.StatusCart, dec("10.00"))

		var status string
		require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
			var err error
			status, err = machine.SetStatus(ctx, tx, order, model.StatusProcessing, "test", false)
			return err
		}))
		require.Equal(t, model.StatusProcessing, status)
		require.NotZero(t, order.OrderSeq)
		firstSeq := order.OrderSeq

		// repeat transition is a no-op
		require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
			var err error
			status, err = machine.SetStatus(ctx, tx, order, model.StatusProcessing, "test", false)
			return err
		}))
		require.Equal(t, model.StatusProcessing, status)
		require.Equal(t, firstSeq, order.OrderSeq)
		require.EqualValues(t, 1, seqCount(t, gdb, order.OrderID))
	})

	t.Run("empty status is a no-op", func(t *testing.T) {
		gdb := newTestDB(t)
		require.NoError(t, repository.NewStatusRepository(gdb).Seed(ctx))
		machine := newMachine(t, gdb, nil)
		order := newOrder(t, gdb, model.StatusCart, dec("10.00"))

		require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
			status, err := machine.SetStatus(ctx, tx, order, "", "test", false)
			require.Equal(t, model.StatusCart, status)
			return err
		}))
		require.Zero(t, seqCount(t, gdb, order.OrderID))
	})

	t.Run("paid aliases to processing", func(t *testing.T) {
		gdb := newTestDB(t)
		require.NoError(t, repository.NewStatusRepository(gdb).Seed(ctx))
		machine := newMachine(t, gdb, nil)
		order := newOrder(t, gdb, model.StatusPending, dec("10.00"))

		require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
			status, err := machine.SetStatus(ctx, tx, order, "paid", "gateway", false)
			require.Equal(t, model.StatusProcessing, status)
			return err
		}))
	})

	t.Run("unknown status is rejected and changes nothing", func(t *testing.T) {
		gdb := newTestDB(t)
		require.NoError(t, repository.NewStatusRepository(gdb).Seed(ctx))
		machine := newMachine(t, gdb, nil)
		order := newOrder(t, gdb, model.StatusCart, dec("10.00"))

		err := gdb.Transaction(func(tx *gorm.DB) error {
			_, err := machine.SetStatus(ctx, tx, order, "bogus", "test", false)
			return err
		})
		require.True(t, model.IsValidation(err))
		require.Equal(t, model.StatusCart, order.Status)
	})

	t.Run("affiliate bonus is granted exactly once per order", func(t *testing.T) {
		gdb := newTestDB(t)
		require.NoError(t, repository.NewStatusRepository(gdb).Seed(ctx))
		machine := newMachine(t, gdb, nil)
		order := newOrder(t, gdb, model.StatusCart, dec("10.00"))

		require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
			_, err := machine.SetStatus(ctx, tx, order, model.StatusProcessing, "test", false)
			return err
		}))
		// closed is affiliate-eligible too; no second grant
		require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
			_, err := machine.SetStatus(ctx, tx, order, model.StatusClosed, "test", false)
			return err
		}))

		var bonuses int64
		require.NoError(t, gdb.Model(&model.AffiliateBonus{}).Where("order_id = ?", order.OrderID).Count(&bonuses).Error)
		require.EqualValues(t, 1, bonuses)
	})

	t.Run("transitions are logged and notified per registry flags", func(t *testing.T) {
		gdb := newTestDB(t)
		require.NoError(t, repository.NewStatusRepository(gdb).Seed(ctx))
		notifier := &captureNotifier{}
		machine := newMachine(t, gdb, notifier)
		order := newOrder(t, gdb, model.StatusCart, dec("10.00"))

		require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
			_, err := machine.SetStatus(ctx, tx, order, model.StatusProcessing, "admin", false)
			return err
		}))

		var logs []model.StatusLog
		require.NoError(t, gdb.Where("order_id = ?", order.OrderID).Find(&logs).Error)
		require.Len(t, logs, 1)
		require.Equal(t, model.StatusCart, logs[0].OldStatus)
		require.Equal(t, model.StatusProcessing, logs[0].NewStatus)
		require.Equal(t, "admin", logs[0].Actor)

		require.Equal(t, []string{model.StatusProcessing}, notifier.statuses)
	})

	t.Run("closed does not notify unless forced", func(t *testing.T) {
		gdb := newTestDB(t)
		require.NoError(t, repository.NewStatusRepository(gdb).Seed(ctx))
		notifier := &captureNotifier{}
		machine := newMachine(t, gdb, notifier)
		order := newOrder(t, gdb, model.StatusCart, dec("10.00"))

		require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
			_, err := machine.SetStatus(ctx, tx, order, model.StatusClosed, "admin", false)
			return err
		}))
		require.Empty(t, notifier.statuses)

		order2 := newOrder(t, gdb, model.StatusCart, dec("10.00"))
		require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
			_, err := machine.SetStatus(ctx, tx, order2, model.StatusClosed, "admin", true)
			return err
		}))
		require.Equal(t, []string{model.StatusClosed}, notifier.statuses)
	})
}

func TestUpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()

	addPayment := func(t *testing.T, gdb *gorm.DB, orderID string, amount decimal.Decimal) {
		t.Helper()
		require.NoError(t, gdb.Create(&model.Payment{OrderID: orderID, Amount: amount, Method: "test"}).Error)
	}

	t.Run("fully paid all-virtual order closes and gets one sequence", func(t *testing.T) {
		gdb := newTestDB(t)
		require.NoError(t, repository.NewStatusRepository(gdb).Seed(ctx))
		machine := newMachine(t, gdb, nil)
		order := newOrder(t, gdb, model.StatusPending, dec("30.00"))
		require.NoError(t, gdb.Create(&model.OrderItem{
			OrderID: order.OrderID, ProductID: 1, Quantity: 1,
			BasePrice: dec("30.00"), Price: dec("30.00"),
			TaxRate: decimal.Zero, ShippingAlloc: decimal.Zero, HandlingAlloc: decimal.Zero,
			Physical: false, Taxable: false, Valid: true,
		}).Error)
		addPayment(t, gdb, order.OrderID, dec("30.00"))

		require.NoError(t, machine.UpdatePaymentStatus(ctx, order.OrderID, "gateway"))

		reloaded, err := repository.NewOrderRepository(gdb).FindByID(ctx, order.OrderID)
		require.NoError(t, err)
		require.Equal(t, model.StatusClosed, reloaded.Status)
		require.NotZero(t, reloaded.OrderSeq)
		require.EqualValues(t, 1, seqCount(t, gdb, order.OrderID))

		// second pass: already closed, nothing changes
		require.NoError(t, machine.UpdatePaymentStatus(ctx, order.OrderID, "gateway"))
		require.EqualValues(t, 1, seqCount(t, gdb, order.OrderID))
	})

	t.Run("physical item goes to processing", func(t *testing.T) {
		gdb := newTestDB(t)
		require.NoError(t, repository.NewStatusRepository(gdb).Seed(ctx))
		machine := newMachine(t, gdb, nil)
		order := newOrder(t, gdb, model.StatusPending, dec("30.00"))
		require.NoError(t, gdb.Create(&model.OrderItem{
			OrderID: order.OrderID, ProductID: 1, Quantity: 1,
			BasePrice: dec("30.00"), Price: dec("30.00"),
			TaxRate: decimal.Zero, ShippingAlloc: decimal.Zero, HandlingAlloc: decimal.Zero,
			Physical: true, Taxable: true, Valid: true,
		}).Error)
		addPayment(t, gdb, order.OrderID, dec("30.00"))

		require.NoError(t, machine.UpdatePaymentStatus(ctx, order.OrderID, "gateway"))

		reloaded, err := repository.NewOrderRepository(gdb).FindByID(ctx, order.OrderID)
		require.NoError(t, err)
		require.Equal(t, model.StatusProcessing, reloaded.Status)
	})

	t.Run("underpaid order stays put", func(t *testing.T) {
		gdb := newTestDB(t)
		require.NoError(t, repository.NewStatusRepository(gdb).Seed(ctx))
		machine := newMachine(t, gdb, nil)
		order := newOrder(t, gdb, model.StatusPending, dec("30.00"))
		addPayment(t, gdb, order.OrderID, dec("10.00"))

		require.NoError(t, machine.UpdatePaymentStatus(ctx, order.OrderID, "gateway"))

		reloaded, err := repository.NewOrderRepository(gdb).FindByID(ctx, order.OrderID)
		require.NoError(t, err)
		require.Equal(t, model.StatusPending, reloaded.Status)
		require.Zero(t, reloaded.OrderSeq)
	})
}
