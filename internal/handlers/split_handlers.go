package handlers

import (
	"net/http"
	"strconv"

	"restopos/internal/common"
	"restopos/internal/models"
	"restopos/internal/services"

	"github.com/labstack/echo/v4"
)

type SplitHandlers struct {
	splits services.SplitBillService
}

func NewSplitHandlers(splits services.SplitBillService) *SplitHandlers {
	return &SplitHandlers{splits: splits}
}

type equalSplitRequest struct {
	OrderID string `json:"order_id"`
	Parts   int    `json:"parts"`
}

type customSplitRequest struct {
	OrderID string         `json:"order_id"`
	Amounts []models.Money `json:"amounts"`
}

type byItemSplitRequest struct {
	OrderID     string                    `json:"order_id"`
	Parts       int                       `json:"parts"`
	Assignments []services.ItemAssignment `json:"assignments"`
}

type payPartRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method"`
}

// SplitEqual handles POST /splits/equal
func (h *SplitHandlers) SplitEqual(c echo.Context) error {
	var req equalSplitRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	orderID, err := common.ValidateUUID(req.OrderID, "order_id")
	if err != nil {
		return common.SendValidationError(c, "order_id", err.Error())
	}

	if err := common.ValidatePositiveInteger(req.Parts, "parts", services.MaxSplitParts); err != nil {
		return common.SendValidationError(c, "parts", err.Error())
	}

	split, err := h.splits.CreateEqual(c.Request().Context(), orderID, req.Parts)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, split)
}

// SplitCustom handles POST /splits/custom
func (h *SplitHandlers) SplitCustom(c echo.Context) error {
	var req customSplitRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	orderID, err := common.ValidateUUID(req.OrderID, "order_id")
	if err != nil {
		return common.SendValidationError(c, "order_id", err.Error())
	}

	split, err := h.splits.CreateCustom(c.Request().Context(), orderID, req.Amounts)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, split)
}

// SplitByItem handles POST /splits/by-item
func (h *SplitHandlers) SplitByItem(c echo.Context) error {
	var req byItemSplitRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	orderID, err := common.ValidateUUID(req.OrderID, "order_id")
	if err != nil {
		return common.SendValidationError(c, "order_id", err.Error())
	}

	if err := common.ValidatePositiveInteger(req.Parts, "parts", services.MaxSplitParts); err != nil {
		return common.SendValidationError(c, "parts", err.Error())
	}

	split, err := h.splits.CreateByItem(c.Request().Context(), orderID, req.Parts, req.Assignments)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, split)
}

// GetSplit handles GET /splits/:id
func (h *SplitHandlers) GetSplit(c echo.Context) error {
	splitID, err := common.ValidateUUID(c.Param("id"), "split_id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	split, err := h.splits.Get(c.Request().Context(), splitID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, split)
}

// PayPart handles POST /splits/:id/parts/:index/pay
func (h *SplitHandlers) PayPart(c echo.Context) error {
	splitID, err := common.ValidateUUID(c.Param("id"), "split_id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return common.SendValidationError(c, "index", "part index must be a number")
	}
	var req payPartRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	split, err := h.splits.MarkPaid(c.Request().Context(), splitID, index, req.PaymentMethod)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, split)
}
