package service_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/evently-hq/evently/internal/kafka"
	"github.com/evently-hq/evently/internal/models"
	repo "github.com/evently-hq/evently/internal/repository/postgres"
	"github.com/evently-hq/evently/internal/service"
	"github.com/evently-hq/evently/pkg/mailer"
	"github.com/evently-hq/evently/pkg/paystack"
)

type MockTierRepository struct {
	mock.Mock
}

func (m *MockTierRepository) CreateBatch(ctx context.Context, tiers []models.TicketTier) error {
	args := m.Called(ctx, tiers)
	return args.Error(0)
}

func (m *MockTierRepository) GetByID(ctx context.Context, tierID string) (*models.TicketTier, error) {
	args := m.Called(ctx, tierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketTier), args.Error(1)
}

func (m *MockTierRepository) ListByEvent(ctx context.Context, eventID string) ([]models.TicketTier, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TicketTier), args.Error(1)
}

func (m *MockTierRepository) AdjustCapacity(ctx context.Context, tierID string, newTotal int) (int64, error) {
	args := m.Called(ctx, tierID, newTotal)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTierRepository) UpdatePrice(ctx context.Context, tierID string, price decimal.Decimal) (int64, error) {
	args := m.Called(ctx, tierID, price)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTierRepository) Delete(ctx context.Context, tierID string) (int64, error) {
	args := m.Called(ctx, tierID)
	return args.Get(0).(int64), args.Error(1)
}

type MockIntentRepository struct {
	mock.Mock
}

func (m *MockIntentRepository) Create(ctx context.Context, intent *models.PurchaseIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockIntentRepository) FindByReference(ctx context.Context, reference string) ([]models.PurchaseIntent, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PurchaseIntent), args.Error(1)
}

func (m *MockIntentRepository) FindByBuyer(ctx context.Context, buyerID string) ([]models.PurchaseIntent, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PurchaseIntent), args.Error(1)
}

func (m *MockIntentRepository) ConfirmReference(ctx context.Context, reference string, paidAt time.Time, build repo.CredentialBuilder) (*repo.ConfirmOutcome, error) {
	args := m.Called(ctx, reference, paidAt, build)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repo.ConfirmOutcome), args.Error(1)
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) GetByID(ctx context.Context, eventID string) (*models.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventRepository) IsOwner(ctx context.Context, eventID, userID string) (bool, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Bool(0), args.Error(1)
}

type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) GetByID(ctx context.Context, credentialID string) (*models.Credential, error) {
	args := m.Called(ctx, credentialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Credential), args.Error(1)
}

func (m *MockCredentialRepository) FindByIntent(ctx context.Context, intentID string) ([]models.Credential, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Credential), args.Error(1)
}

func (m *MockCredentialRepository) MarkScanned(ctx context.Context, credentialID string) (int64, error) {
	args := m.Called(ctx, credentialID)
	return args.Get(0).(int64), args.Error(1)
}

type MockReconciliationRepository struct {
	mock.Mock
}

func (m *MockReconciliationRepository) Create(ctx context.Context, rec *models.ReconciliationRecord) (int64, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReconciliationRepository) ListOpen(ctx context.Context) ([]models.ReconciliationRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReconciliationRecord), args.Error(1)
}

func (m *MockReconciliationRepository) Resolve(ctx context.Context, recordID string) (int64, error) {
	args := m.Called(ctx, recordID)
	return args.Get(0).(int64), args.Error(1)
}

type MockTierCache struct {
	mock.Mock
}

func (m *MockTierCache) Get(ctx context.Context, eventID string) ([]models.TicketTier, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TicketTier), args.Error(1)
}

func (m *MockTierCache) Set(ctx context.Context, eventID string, tiers []models.TicketTier) error {
	args := m.Called(ctx, eventID, tiers)
	return args.Error(0)
}

func (m *MockTierCache) Invalidate(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) InitializePayment(ctx context.Context, email string, amount decimal.Decimal) (*paystack.CheckoutSession, error) {
	args := m.Called(ctx, email, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paystack.CheckoutSession), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PublishPurchaseConfirmed(ctx context.Context, event kafka.PurchaseConfirmedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockProducer) PublishCredentialIssued(ctx context.Context, event kafka.CredentialIssuedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockProducer) PublishPaymentFlagged(ctx context.Context, event kafka.PaymentFlaggedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockCredentialService struct {
	mock.Mock
}

func (m *MockCredentialService) BuildCredentials(intents []models.PurchaseIntent) []models.Credential {
	args := m.Called(intents)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.Credential)
}

func (m *MockCredentialService) DeliverCredentials(ctx context.Context, intents []models.PurchaseIntent, credentials []models.Credential) {
	m.Called(ctx, intents, credentials)
}

func (m *MockCredentialService) GenerateScanToken(credential models.Credential) (string, error) {
	args := m.Called(credential)
	return args.String(0), args.Error(1)
}

func (m *MockCredentialService) ParseScanToken(token string) (*service.ScanClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ScanClaims), args.Error(1)
}

type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) Deliver(ctx context.Context, recipientEmail, recipientName, subject, html string, attachments []mailer.Attachment) error {
	args := m.Called(ctx, recipientEmail, recipientName, subject, html, attachments)
	return args.Error(0)
}

func (m *MockDeliveryService) TicketsHTML(recipientName string) string {
	args := m.Called(recipientName)
	return args.String(0)
}
