package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketTier is the unit of inventory: one ticket type with its own price
// and capacity under a single event. `Remaining` is the source of truth for
// availability and is only ever mutated through conditional updates.
type TicketTier struct {
	ID                   string          `json:"id"`
	EventID              string          `json:"event_id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	Price                decimal.Decimal `json:"price"`
	TotalCapacity        int             `json:"total_capacity"`
	Remaining            int             `json:"remaining"`
	RequiresAttendeeName bool            `json:"requires_attendee_name"`
	CreatedAt            time.Time       `json:"created_at"`
}

func (t *TicketTier) UnitsSold() int {
	return t.TotalCapacity - t.Remaining
}

func (t *TicketTier) HasSales() bool {
	return t.UnitsSold() > 0
}
