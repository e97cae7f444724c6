package handlers

import (
	"context"
	"net/http"

	"restopos/internal/common"
	"restopos/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TableHandlers handles the floor plan endpoints
type TableHandlers struct {
	tables services.TableTracker
}

func NewTableHandlers(tables services.TableTracker) *TableHandlers {
	return &TableHandlers{tables: tables}
}

// ListTables handles GET /tables
func (h *TableHandlers) ListTables(c echo.Context) error {
	tables := h.tables.List()
	return c.JSON(http.StatusOK, map[string]any{
		"tables": tables,
		"count":  len(tables),
	})
}

// ReserveTable handles POST /tables/:id/reserve
func (h *TableHandlers) ReserveTable(c echo.Context) error {
	return h.transition(c, h.tables.Reserve)
}

// SetCleaning handles POST /tables/:id/cleaning
func (h *TableHandlers) SetCleaning(c echo.Context) error {
	return h.transition(c, h.tables.SetCleaning)
}

// ReleaseTable handles POST /tables/:id/release
func (h *TableHandlers) ReleaseTable(c echo.Context) error {
	return h.transition(c, h.tables.Release)
}

func (h *TableHandlers) transition(c echo.Context, apply func(ctx context.Context, tableID uuid.UUID) error) error {
	tableID, err := common.ValidateUUID(c.Param("id"), "table_id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	if err := apply(c.Request().Context(), tableID); err != nil {
		return common.SendDomainError(c, err)
	}
	table, err := h.tables.Get(tableID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, table)
}
