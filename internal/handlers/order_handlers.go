package handlers

import (
	"net/http"
	"strings"

	"restopos/internal/common"
	"restopos/internal/models"
	"restopos/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// OrderHandlers exposes the order ledger to POS terminals.
type OrderHandlers struct {
	ledger services.OrderLedger
}

func NewOrderHandlers(ledger services.OrderLedger) *OrderHandlers {
	return &OrderHandlers{ledger: ledger}
}

type openOrderRequest struct {
	TableID    string `json:"table_id"`
	GuestCount int    `json:"guest_count"`
}

type addItemRequest struct {
	Product   models.Product    `json:"product"`
	Quantity  int               `json:"quantity"`
	Modifiers []models.Modifier `json:"modifiers"`
	Note      *string           `json:"note"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ratesRequest carries any subset of the order level adjustments.
type ratesRequest struct {
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	TaxPercent      *decimal.Decimal `json:"tax_percent"`
	ServiceCharge   *models.Money    `json:"service_charge"`
}

type advanceItemRequest struct {
	Status models.ItemStatus `json:"status"`
	Reason string            `json:"reason"`
}

type applyPromotionRequest struct {
	Code         *string             `json:"code"`
	CustomerTier models.CustomerTier `json:"customer_tier"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OpenOrder handles POST /orders
func (h *OrderHandlers) OpenOrder(c echo.Context) error {
	ctx := c.Request().Context()

	staffID, ok := common.GetStaffIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Staff not found")
	}

	var req openOrderRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	tableID, err := common.ValidateUUID(req.TableID, "table_id")
	if err != nil {
		return common.SendValidationError(c, "table_id", err.Error())
	}

	order, err := h.ledger.Open(ctx, tableID, staffID, req.GuestCount)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandlers) GetOrder(c echo.Context) error {
	orderID, err := common.ValidateUUID(c.Param("id"), "order_id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	order, err := h.ledger.Get(c.Request().Context(), orderID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// ListActiveOrders handles GET /orders
func (h *OrderHandlers) ListActiveOrders(c echo.Context) error {
	orders := h.ledger.ActiveOrders()
	return c.JSON(http.StatusOK, map[string]any{
		"orders": orders,
		"count":  len(orders),
	})
}

// AddItem handles POST /orders/:id/items
func (h *OrderHandlers) AddItem(c echo.Context) error {
	orderID, err := common.ValidateUUID(c.Param("id"), "order_id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	order, err := h.ledger.AddItem(c.Request().Context(), orderID, req.Product, req.Quantity, req.Modifiers, req.Note)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateItemQuantity handles PUT /orders/:id/items/:productId
func (h *OrderHandlers) UpdateItemQuantity(c echo.Context) error {
	orderID, productID, err := h.orderAndProduct(c)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	var req updateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	order, err := h.ledger.UpdateItemQuantity(c.Request().Context(), orderID, productID, req.Quantity)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// RemoveItem handles DELETE /orders/:id/items/:productId
func (h *OrderHandlers) RemoveItem(c echo.Context) error {
	orderID, productID, err := h.orderAndProduct(c)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	order, err := h.ledger.RemoveItem(c.Request().Context(), orderID, productID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// SetRates handles PUT /orders/:id/rates. Fields left out of the body are unchanged.
func (h *OrderHandlers) SetRates(c echo.Context) error {
	ctx := c.Request().Context()
	orderID, err := common.ValidateUUID(c.Param("id"), "order_id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req ratesRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.DiscountPercent == nil && req.TaxPercent == nil && req.ServiceCharge == nil {
		return common.SendValidationError(c, "rates", "at least one of discount_percent, tax_percent or service_charge is required")
	}

	var order *models.Order
	if req.DiscountPercent != nil {
		if order, err = h.ledger.SetDiscount(ctx, orderID, *req.DiscountPercent); err != nil {
			return common.SendDomainError(c, err)
		}
	}
	if req.TaxPercent != nil {
		if order, err = h.ledger.SetTax(ctx, orderID, *req.TaxPercent); err != nil {
			return common.SendDomainError(c, err)
		}
	}
	if req.ServiceCharge != nil {
		if order, err = h.ledger.SetServiceCharge(ctx, orderID, *req.ServiceCharge); err != nil {
			return common.SendDomainError(c, err)
		}
	}
	return c.JSON(http.StatusOK, order)
}

// SendToKitchen handles POST /orders/:id/send
func (h *OrderHandlers) SendToKitchen(c echo.Context) error {
	orderID, err := common.ValidateUUID(c.Param("id"), "order_id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	order, err := h.ledger.SendToKitchen(c.Request().Context(), orderID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// AdvanceItemStatus handles PUT /orders/:id/lines/:itemId/status
func (h *OrderHandlers) AdvanceItemStatus(c echo.Context) error {
	ctx := c.Request().Context()
	orderID, err := common.ValidateUUID(c.Param("id"), "order_id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	itemID, err := common.ValidateUUID(c.Param("itemId"), "item_id")
	if err != nil {
		return common.SendValidationError(c, "itemId", err.Error())
	}
	var req advanceItemRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	status := models.ItemStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))

	var actor *uuid.UUID
	if staffID, ok := common.GetStaffIDFromContext(ctx); ok {
		actor = &staffID
	}

	order, err := h.ledger.AdvanceItemStatus(ctx, orderID, itemID, status, actor, req.Reason)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// ApplyPromotion handles POST /orders/:id/promotion
func (h *OrderHandlers) ApplyPromotion(c echo.Context) error {
	orderID, err := common.ValidateUUID(c.Param("id"), "order_id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req applyPromotionRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.CustomerTier == "" {
		req.CustomerTier = models.TierRegular
	}
	if req.Code != nil && strings.TrimSpace(*req.Code) == "" {
		req.Code = nil
	}

	order, err := h.ledger.ApplyPromotion(c.Request().Context(), orderID, req.Code, req.CustomerTier)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// CompleteOrder handles POST /orders/:id/complete
func (h *OrderHandlers) CompleteOrder(c echo.Context) error {
	orderID, err := common.ValidateUUID(c.Param("id"), "order_id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	order, err := h.ledger.Complete(c.Request().Context(), orderID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// CancelOrder handles POST /orders/:id/cancel
func (h *OrderHandlers) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()

	staffID, ok := common.GetStaffIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Staff not found")
	}
	orderID, err := common.ValidateUUID(c.Param("id"), "order_id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req cancelOrderRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	order, err := h.ledger.Cancel(ctx, orderID, staffID, req.Reason)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// orderAndProduct parses the :id and :productId path parameters.
func (h *OrderHandlers) orderAndProduct(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	orderID, err := common.ValidateUUID(c.Param("id"), "order_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, common.NewValidationError("handlers.orderAndProduct", "%v", err)
	}
	productID, err := common.ValidateUUID(c.Param("productId"), "product_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, common.NewValidationError("handlers.orderAndProduct", "%v", err)
	}
	return orderID, productID, nil
}
