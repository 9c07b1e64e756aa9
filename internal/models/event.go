package models

import "time"

type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
)

// Event is consumed by the core for ownership checks and credential display
// fields; its full lifecycle (CRUD, publishing) lives outside this service.
type Event struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Name      string      `json:"name"`
	Venue     string      `json:"venue,omitempty"`
	StartsAt  time.Time   `json:"starts_at"`
	Status    EventStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

func (e *Event) IsOwnedBy(userID string) bool {
	return e.OwnerID == userID
}
