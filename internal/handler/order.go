package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shopfront/internal/dto"
	"shopfront/internal/model"
	"shopfront/internal/order"
)

type OrderHandler struct {
	orders *order.Service
}

func NewOrderHandler(orders *order.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	var req dto.CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.orders.Create(ctx, req.UID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) Get(c echo.Context) error {
	o, err := h.orders.Get(c.Request().Context(), c.Param("orderID"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) GetByToken(c echo.Context) error {
	o, err := h.orders.GetByToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	var req dto.AddItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.orders.AddItem(ctx, c.Param("orderID"), order.AddItemInput{
		ProductID:      req.ProductID,
		OptionValueIDs: req.OptionValueIDs,
		TextOptions:    req.TextOptions,
		Quantity:       req.Quantity,
		OverridePrice:  req.OverridePrice,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) UpdateItemQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	var req dto.UpdateQuantityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	itemID, err := uintParam(c, "itemID")
	if err != nil {
		return err
	}
	o, err := h.orders.UpdateItemQuantity(ctx, c.Param("orderID"), itemID, req.Quantity)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) RemoveItem(c echo.Context) error {
	itemID, err := uintParam(c, "itemID")
	if err != nil {
		return err
	}
	o, err := h.orders.RemoveItem(c.Request().Context(), c.Param("orderID"), itemID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) SetAddresses(c echo.Context) error {
	var req dto.SetAddressesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.orders.SetAddresses(c.Request().Context(), c.Param("orderID"),
		toAddress(req.Billing), toAddress(req.Shipping))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) SetShipper(c echo.Context) error {
	var req dto.SetShipperRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.orders.SetShipper(c.Request().Context(), c.Param("orderID"), req.ShipperID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) SetCharges(c echo.Context) error {
	var req dto.SetChargesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.orders.SetCharges(c.Request().Context(), c.Param("orderID"), req.Shipping, req.Handling)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) ApplyDiscount(c echo.Context) error {
	var req dto.ApplyDiscountRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.orders.ApplyDiscountCode(c.Request().Context(), c.Param("orderID"), req.Code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) Checkout(c echo.Context) error {
	o, err := h.orders.Checkout(c.Request().Context(), c.Param("orderID"), actorFrom(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) SetStatus(c echo.Context) error {
	var req dto.SetStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	actor := req.Actor
	if actor == "" {
		actor = actorFrom(c)
	}
	o, err := h.orders.SetStatus(c.Request().Context(), c.Param("orderID"), req.Status, actor, req.ForceNotify)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) RecordPayment(c echo.Context) error {
	var req dto.RecordPaymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.orders.RecordPayment(c.Request().Context(), c.Param("orderID"), req.Amount, req.Method, req.Reference)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) Delete(c echo.Context) error {
	if err := h.orders.Delete(c.Request().Context(), c.Param("orderID")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func toAddress(a dto.AddressRequest) model.Address {
	return model.Address{
		Name:       a.Name,
		Street:     a.Street,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
