package kitchen

import (
	"testing"
	"time"

	"restopos/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	created := time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC)
	pending := models.KitchenTicket{CreatedAt: created, Items: []models.KitchenItem{{Status: models.ItemStatusPending}}}
	cooking := models.KitchenTicket{CreatedAt: created, Items: []models.KitchenItem{{Status: models.ItemStatusCooking}}}

	tests := []struct {
		name    string
		ticket  models.KitchenTicket
		elapsed time.Duration
		want    models.Urgency
	}{
		{"fresh pending", pending, time.Minute, models.UrgencyNormal},
		{"exactly ten minutes", pending, 10 * time.Minute, models.UrgencyNormal},
		{"past ten minutes", pending, 10*time.Minute + time.Second, models.UrgencyWarning},
		{"fresh but cooking", cooking, time.Minute, models.UrgencyWarning},
		{"exactly twenty minutes", cooking, 20 * time.Minute, models.UrgencyWarning},
		{"past twenty minutes", pending, 20*time.Minute + time.Second, models.UrgencyUrgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ticket, created.Add(tt.elapsed)))
		})
	}
}

func TestViewKindFilter(t *testing.T) {
	now := time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC)
	tickets := []models.KitchenTicket{
		{OrderCode: "A", CreatedAt: now, Items: []models.KitchenItem{{Status: models.ItemStatusCooking}, {Status: models.ItemStatusReady}}},
		{OrderCode: "B", CreatedAt: now, Items: []models.KitchenItem{{Status: models.ItemStatusPending}}},
	}

	kitchen := ViewKitchen.Filter(tickets, now)
	assert.Len(t, kitchen, 2)
	assert.Len(t, kitchen[0].Items, 1)
	assert.Equal(t, models.UrgencyWarning, kitchen[0].Urgency)

	waiter := ViewWaiter.Filter(tickets, now)
	assert.Len(t, waiter, 1)
	assert.Equal(t, "A", waiter[0].OrderCode)
	assert.Equal(t, models.UrgencyWarning, waiter[0].Urgency, "urgency is graded on the whole ticket")

	pos := ViewPOS.Filter(tickets, now)
	assert.Len(t, pos, 2)
	assert.Len(t, pos[0].Items, 2)
}

func TestParseViewKind(t *testing.T) {
	kind, ok := ParseViewKind("WAITER")
	assert.True(t, ok)
	assert.Equal(t, ViewWaiter, kind)

	kind, ok = ParseViewKind("")
	assert.True(t, ok)
	assert.Equal(t, ViewPOS, kind)

	_, ok = ParseViewKind("BAR")
	assert.False(t, ok)
}
