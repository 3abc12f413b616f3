package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shopfront/internal/model"
)

type OrderRepository interface {
	// Create inserts the order, generating order id, token and secret. An
	// id collision regenerates and retries; it never surfaces.
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	FindByToken(ctx context.Context, token string) (*model.Order, error)
	Save(ctx context.Context, tx *gorm.DB, order *model.Order) error
	Delete(ctx context.Context, tx *gorm.DB, orderID string) error

	AddItem(ctx context.Context, tx *gorm.DB, item *model.OrderItem) error
	SaveItem(ctx context.Context, tx *gorm.DB, item *model.OrderItem) error
	DeleteItem(ctx context.Context, tx *gorm.DB, itemID uint) error
	SaveItems(ctx context.Context, tx *gorm.DB, items []model.OrderItem) error
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{db: db}
}

const orderIDAttempts = 5

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	order.Token = uuid.NewString()
	order.Secret = uuid.NewString()
	for attempt := 0; attempt < orderIDAttempts; attempt++ {
		order.OrderID = newOrderID()
		err := tx.WithContext(ctx).Create(order).Error
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) {
			return err
		}
	}
	return fmt.Errorf("could not allocate a unique order id after %d attempts", orderIDAttempts)
}

func newOrderID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:14])
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items.Options").
		Where("order_id = ?", orderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) FindByToken(ctx context.Context, token string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items.Options").
		Where("token = ?", token).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) Save(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	// Session save, not association save: item rows are written through the
	// item methods so a stale preload cannot clobber them.
	return tx.WithContext(ctx).Omit("Items").Save(order).Error
}

func (r *orderRepoImpl) Delete(ctx context.Context, tx *gorm.DB, orderID string) error {
	itemIDs := tx.Model(&model.OrderItem{}).Select("id").Where("order_id = ?", orderID)
	if err := tx.WithContext(ctx).Where("order_item_id IN (?)", itemIDs).Delete(&model.OrderItemOption{}).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Where("order_id = ?", orderID).Delete(&model.Order{}).Error
}

func (r *orderRepoImpl) AddItem(ctx context.Context, tx *gorm.DB, item *model.OrderItem) error {
	return tx.WithContext(ctx).Create(item).Error
}

func (r *orderRepoImpl) SaveItem(ctx context.Context, tx *gorm.DB, item *model.OrderItem) error {
	return tx.WithContext(ctx).Omit("Options").Save(item).Error
}

func (r *orderRepoImpl) DeleteItem(ctx context.Context, tx *gorm.DB, itemID uint) error {
	if err := tx.WithContext(ctx).Where("order_item_id = ?", itemID).Delete(&model.OrderItemOption{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Where("id = ?", itemID).Delete(&model.OrderItem{}).Error
}

func (r *orderRepoImpl) SaveItems(ctx context.Context, tx *gorm.DB, items []model.OrderItem) error {
	for i := range items {
		if err := r.SaveItem(ctx, tx, &items[i]); err != nil {
			return err
		}
	}
	return nil
}
