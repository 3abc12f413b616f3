package db

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopfront/internal/model"
)

func Open(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.OptionGroup{},
		&model.OptionValue{},
		&model.ProductVariant{},
		&model.Sale{},
		&model.QuantityTier{},
		&model.DiscountCode{},
		&model.StockRecord{},
		&model.TaxRate{},
		&model.Shipper{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderItemOption{},
		&model.StatusEntry{},
		&model.OrderSequence{},
		&model.Payment{},
		&model.StatusLog{},
		&model.AffiliateBonus{},
	)
}
