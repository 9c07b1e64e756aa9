package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/evently-hq/evently/internal/models"
	"github.com/evently-hq/evently/internal/service"
	pkgLog "github.com/evently-hq/evently/pkg/logger"
	"github.com/evently-hq/evently/pkg/mailer"
	"github.com/evently-hq/evently/pkg/ticketpdf"
)

func newCredentialService(
	tierRepo *MockTierRepository,
	eventRepo *MockEventRepository,
	delivery *MockDeliveryService,
	render service.RenderFunc,
	prod *MockProducer,
) service.CredentialService {
	return service.NewCredentialService(
		tierRepo, eventRepo, delivery, render, prod,
		"test-secret", "Evently", pkgLog.InitializeTestZapLogger(),
	)
}

func fakeRender(ticketpdf.Artifact) ([]byte, error) {
	return []byte("%PDF-fake"), nil
}

func TestBuildCredentials_OnePerUnit(t *testing.T) {
	svc := newCredentialService(new(MockTierRepository), new(MockEventRepository), new(MockDeliveryService), fakeRender, new(MockProducer))

	intents := []models.PurchaseIntent{
		{ID: "intent-1", TierID: "tier-1", Quantity: 3, AttendeeNames: []string{"Ada", "Grace", "Edsger"}},
		{ID: "intent-2", TierID: "tier-2", Quantity: 1},
	}

	creds := svc.BuildCredentials(intents)

	assert.Len(t, creds, 4)
	assert.Equal(t, "Ada", creds[0].AttendeeName)
	assert.Equal(t, "Grace", creds[1].AttendeeName)
	assert.Equal(t, "Edsger", creds[2].AttendeeName)
	assert.Empty(t, creds[3].AttendeeName)
	assert.Equal(t, "intent-2", creds[3].IntentID)

	ids := make(map[string]bool)
	for _, c := range creds {
		assert.NotEmpty(t, c.ID)
		ids[c.ID] = true
	}
	assert.Len(t, ids, 4)
}

func TestScanToken_RoundTrip(t *testing.T) {
	svc := newCredentialService(new(MockTierRepository), new(MockEventRepository), new(MockDeliveryService), fakeRender, new(MockProducer))

	cred := models.Credential{ID: "cred-1", IntentID: "intent-1", TierID: "tier-1"}

	token, err := svc.GenerateScanToken(cred)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ParseScanToken(token)
	assert.NoError(t, err)
	if assert.NotNil(t, claims) {
		assert.Equal(t, "cred-1", claims.CredentialID)
		assert.Equal(t, "tier-1", claims.TierID)
	}
}

func TestScanToken_RejectsTampered(t *testing.T) {
	svc := newCredentialService(new(MockTierRepository), new(MockEventRepository), new(MockDeliveryService), fakeRender, new(MockProducer))

	token, err := svc.GenerateScanToken(models.Credential{ID: "cred-1", TierID: "tier-1"})
	assert.NoError(t, err)

	claims, err := svc.ParseScanToken(token + "x")

	assert.Nil(t, claims)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestDeliverCredentials_SendsMailWithAttachments(t *testing.T) {
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)
	delivery := new(MockDeliveryService)
	prod := new(MockProducer)

	svc := newCredentialService(tierRepo, eventRepo, delivery, fakeRender, prod)

	ctx := context.Background()
	tierRepo.On("GetByID", ctx, "tier-1").Return(testTier(), nil)
	eventRepo.On("GetByID", ctx, "event-1").Return(testEvent(), nil)

	delivery.On("TicketsHTML", "Ada Lovelace").Return("<html>tickets</html>")
	delivery.On("Deliver", ctx, "buyer@example.com", "Ada Lovelace", "Evently: Your Tickets", "<html>tickets</html>",
		mock.MatchedBy(func(attachments []mailer.Attachment) bool {
			return len(attachments) == 2 &&
				attachments[0].Filename != "" &&
				len(attachments[0].Data) > 0
		})).Return(nil)
	prod.On("PublishCredentialIssued", ctx, mock.Anything).Return(nil).Times(2)

	intents := []models.PurchaseIntent{{
		ID:         "intent-1",
		TierID:     "tier-1",
		BuyerEmail: "buyer@example.com",
		BuyerName:  "Ada Lovelace",
		Quantity:   2,
	}}
	creds := []models.Credential{
		{ID: "cred-1", IntentID: "intent-1", TierID: "tier-1"},
		{ID: "cred-2", IntentID: "intent-1", TierID: "tier-1"},
	}

	svc.DeliverCredentials(ctx, intents, creds)

	delivery.AssertExpectations(t)
	prod.AssertExpectations(t)
}

func TestDeliverCredentials_MailFailureDoesNotPanic(t *testing.T) {
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)
	delivery := new(MockDeliveryService)
	prod := new(MockProducer)

	svc := newCredentialService(tierRepo, eventRepo, delivery, fakeRender, prod)

	ctx := context.Background()
	tierRepo.On("GetByID", ctx, "tier-1").Return(testTier(), nil)
	eventRepo.On("GetByID", ctx, "event-1").Return(testEvent(), nil)
	delivery.On("TicketsHTML", mock.Anything).Return("<html></html>")
	delivery.On("Deliver", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("mailgun unavailable"))

	intents := []models.PurchaseIntent{{ID: "intent-1", TierID: "tier-1", BuyerEmail: "buyer@example.com", Quantity: 1}}
	creds := []models.Credential{{ID: "cred-1", IntentID: "intent-1", TierID: "tier-1"}}

	// The payment is already committed; delivery failures must be swallowed.
	svc.DeliverCredentials(ctx, intents, creds)

	prod.AssertNotCalled(t, "PublishCredentialIssued", mock.Anything, mock.Anything)
}
