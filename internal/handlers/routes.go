package handlers

import (
	"github.com/labstack/echo/v4"
)

// Router bundles the handler sets mounted under the versioned group.
type Router struct {
	Orders  *OrderHandlers
	Tables  *TableHandlers
	Kitchen *KitchenHandlers
	Splits  *SplitHandlers
}

// Register mounts the API on g. auth guards every route and may be nil.
func (r *Router) Register(g *echo.Group, auth echo.MiddlewareFunc) {
	protected := g.Group("")
	if auth != nil {
		protected.Use(auth)
	}

	protected.GET("/orders", r.Orders.ListActiveOrders)
	protected.POST("/orders", r.Orders.OpenOrder)
	protected.GET("/orders/:id", r.Orders.GetOrder)
	protected.POST("/orders/:id/items", r.Orders.AddItem)
	protected.PUT("/orders/:id/items/:productId", r.Orders.UpdateItemQuantity)
	protected.DELETE("/orders/:id/items/:productId", r.Orders.RemoveItem)
	protected.PUT("/orders/:id/rates", r.Orders.SetRates)
	protected.POST("/orders/:id/send", r.Orders.SendToKitchen)
	protected.PUT("/orders/:id/lines/:itemId/status", r.Orders.AdvanceItemStatus)
	protected.POST("/orders/:id/promotion", r.Orders.ApplyPromotion)
	protected.POST("/orders/:id/complete", r.Orders.CompleteOrder)
	protected.POST("/orders/:id/cancel", r.Orders.CancelOrder)

	protected.GET("/tables", r.Tables.ListTables)
	protected.POST("/tables/:id/reserve", r.Tables.ReserveTable)
	protected.POST("/tables/:id/cleaning", r.Tables.SetCleaning)
	protected.POST("/tables/:id/release", r.Tables.ReleaseTable)

	protected.GET("/kitchen/tickets", r.Kitchen.ListTickets)

	protected.POST("/splits/equal", r.Splits.SplitEqual)
	protected.POST("/splits/custom", r.Splits.SplitCustom)
	protected.POST("/splits/by-item", r.Splits.SplitByItem)
	protected.GET("/splits/:id", r.Splits.GetSplit)
	protected.POST("/splits/:id/parts/:index/pay", r.Splits.PayPart)
}
