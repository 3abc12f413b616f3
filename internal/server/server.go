package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"shopfront/internal/handler"
)

type Server struct {
	echo         *echo.Echo
	orderHandler *handler.OrderHandler
	adminHandler *handler.AdminHandler
}

func NewServer(orderHandler *handler.OrderHandler, adminHandler *handler.AdminHandler) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:         e,
		orderHandler: orderHandler,
		adminHandler: adminHandler,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api.GET("/catalog", s.adminHandler.ListCatalog)

	// -------- orders / carts --------
	orders := api.Group("/orders")
	orders.POST("", s.orderHandler.Create)
	orders.GET("/:orderID", s.orderHandler.Get)
	orders.DELETE("/:orderID", s.orderHandler.Delete)
	orders.POST("/:orderID/items", s.orderHandler.AddItem)
	orders.PUT("/:orderID/items/:itemID", s.orderHandler.UpdateItemQuantity)
	orders.DELETE("/:orderID/items/:itemID", s.orderHandler.RemoveItem)
	orders.PUT("/:orderID/addresses", s.orderHandler.SetAddresses)
	orders.PUT("/:orderID/shipper", s.orderHandler.SetShipper)
	orders.PUT("/:orderID/charges", s.orderHandler.SetCharges)
	orders.POST("/:orderID/discount", s.orderHandler.ApplyDiscount)
	orders.POST("/:orderID/checkout", s.orderHandler.Checkout)
	orders.PUT("/:orderID/status", s.orderHandler.SetStatus)
	orders.POST("/:orderID/payments", s.orderHandler.RecordPayment)

	api.GET("/track/:token", s.orderHandler.GetByToken)

	// -------- admin --------
	admin := api.Group("/admin")
	admin.POST("/products", s.adminHandler.SaveProduct)
	admin.POST("/stock", s.adminHandler.AdjustStock)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
