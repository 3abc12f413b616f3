package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"shopfront/internal/cache"
	"shopfront/internal/catalog"
	"shopfront/internal/config"
	"shopfront/internal/db"
	"shopfront/internal/discount"
	"shopfront/internal/gateway"
	"shopfront/internal/handler"
	"shopfront/internal/order"
	"shopfront/internal/pricing"
	"shopfront/internal/repository"
	"shopfront/internal/server"
	"shopfront/internal/stock"
	"shopfront/internal/tax"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}

	var store cache.Cache
	if cfg.RedisAddr != "" {
		store = cache.NewRedis(cfg.RedisAddr)
	} else {
		store = cache.NewMemory()
	}

	productRepo := repository.NewProductRepository(database)
	variantRepo := repository.NewVariantRepository(database)
	stockRepo := repository.NewStockRepository(database)
	orderRepo := repository.NewOrderRepository(database)
	statusRepo := repository.NewStatusRepository(database)
	seqRepo := repository.NewSequenceRepository(database)
	discountRepo := repository.NewDiscountRepository(database)
	saleRepo := repository.NewSaleRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)
	taxRepo := repository.NewTaxRepository(database)

	ctx := context.Background()
	if err := statusRepo.Seed(ctx); err != nil {
		log.Error("seed status registry", "error", err)
		os.Exit(1)
	}
	if err := taxRepo.Seed(ctx); err != nil {
		log.Error("seed tax rates", "error", err)
		os.Exit(1)
	}
	if err := productRepo.Seed(ctx); err != nil {
		log.Error("seed demo catalog", "error", err)
		os.Exit(1)
	}

	paidEpsilon, err := decimal.NewFromString(cfg.Store.PaidEpsilon)
	if err != nil {
		log.Error("parse STORE_PAID_EPSILON", "error", err)
		os.Exit(1)
	}

	cat := catalog.New(database, productRepo, variantRepo, store, log)
	engine := pricing.NewEngine(productRepo, saleRepo, store, log)
	taxes := tax.NewCalculator(taxRepo, cfg.Tax, log)
	validator := discount.NewValidator(discountRepo)
	ledger := stock.NewLedger(stockRepo, store, log, cfg.Store.MaxOrderQty)
	notifier := &gateway.LogNotifier{Log: log}
	paymentGateway := &gateway.LogGateway{Log: log}
	machine := order.NewStatusMachine(
		database, orderRepo, statusRepo, seqRepo, paymentRepo,
		notifier, log, cfg.Store.VirtualPaidStatus, paidEpsilon,
	)
	orderService := order.NewService(
		database, orderRepo, productRepo, paymentRepo, discountRepo,
		cat, engine, taxes, validator, ledger, machine, paymentGateway, log, cfg.Store.Currency,
	)

	orderHandler := handler.NewOrderHandler(orderService)
	adminHandler := handler.NewAdminHandler(database, productRepo, cat, ledger, cfg.Store.Currency)

	srv := server.NewServer(orderHandler, adminHandler)
	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	log.Info("starting HTTP server", "addr", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	if err := srv.Shutdown(); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Log) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
