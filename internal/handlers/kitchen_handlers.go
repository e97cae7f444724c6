package handlers

import (
	"net/http"
	"strings"

	"restopos/internal/common"
	"restopos/internal/kitchen"
	"restopos/internal/models"

	"github.com/labstack/echo/v4"
)

// TicketBoard is one display's live, filtered ticket list.
type TicketBoard interface {
	Tickets() []models.TicketView
}

type KitchenHandlers struct {
	boards map[kitchen.ViewKind]TicketBoard
}

func NewKitchenHandlers(boards map[kitchen.ViewKind]TicketBoard) *KitchenHandlers {
	return &KitchenHandlers{boards: boards}
}

// ListTickets handles GET /kitchen/tickets?view=KITCHEN|WAITER|POS
func (h *KitchenHandlers) ListTickets(c echo.Context) error {
	kind, ok := kitchen.ParseViewKind(strings.ToUpper(strings.TrimSpace(c.QueryParam("view"))))
	if !ok {
		return common.SendValidationError(c, "view", "view must be one of KITCHEN, WAITER or POS")
	}
	board, ok := h.boards[kind]
	if !ok {
		return common.SendValidationError(c, "view", "view "+string(kind)+" is not served here")
	}
	views := board.Tickets()
	return c.JSON(http.StatusOK, map[string]any{
		"view":    kind,
		"tickets": views,
		"count":   len(views),
	})
}
