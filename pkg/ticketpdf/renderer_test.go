package ticketpdf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evently-hq/evently/pkg/ticketpdf"
)

func TestRender_ProducesPDF(t *testing.T) {
	data, err := ticketpdf.Render(ticketpdf.Artifact{
		EventName:    "Go Conference",
		EventVenue:   "Convention Center",
		EventDate:    "Sat, 12 Sep 2026 18:00",
		TierName:     "VIP",
		AttendeeName: "Ada Lovelace",
		CredentialID: "cred-1",
		ScanPayload:  "signed-token",
	})

	assert.NoError(t, err)
	if assert.Greater(t, len(data), 4) {
		assert.Equal(t, "%PDF", string(data[:4]))
	}
}

func TestRender_OptionalFieldsOmitted(t *testing.T) {
	data, err := ticketpdf.Render(ticketpdf.Artifact{
		EventName:    "Go Conference",
		TierName:     "General",
		CredentialID: "cred-2",
		ScanPayload:  "signed-token",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, data)
}
