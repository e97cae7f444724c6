package kitchen

import (
	"time"

	"restopos/internal/models"
)

const (
	WarningAfter = 10 * time.Minute
	UrgentAfter  = 20 * time.Minute
)

// Classify grades a ticket by how long it has waited. Any COOKING item raises a
// fresh ticket to WARNING.
func Classify(ticket models.KitchenTicket, now time.Time) models.Urgency {
	elapsed := now.Sub(ticket.CreatedAt)
	switch {
	case elapsed > UrgentAfter:
		return models.UrgencyUrgent
	case elapsed > WarningAfter || ticket.HasStatus(models.ItemStatusCooking):
		return models.UrgencyWarning
	default:
		return models.UrgencyNormal
	}
}

func classifyAll(tickets []models.KitchenTicket, now time.Time) []models.TicketView {
	views := make([]models.TicketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, models.TicketView{
			KitchenTicket: t,
			Urgency:       Classify(t, now),
			Elapsed:       now.Sub(t.CreatedAt),
		})
	}
	return views
}
