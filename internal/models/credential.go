package models

import "time"

// Credential is the redeemable unit issued per purchased ticket. ScannedAt
// transitions nil -> timestamp exactly once and never reverts.
type Credential struct {
	ID           string     `json:"id"`
	IntentID     string     `json:"intent_id"`
	TierID       string     `json:"tier_id"`
	AttendeeName string     `json:"attendee_name,omitempty"`
	IssuedAt     time.Time  `json:"issued_at"`
	ScannedAt    *time.Time `json:"scanned_at,omitempty"`
}

func (c *Credential) IsScanned() bool {
	return c.ScannedAt != nil
}
