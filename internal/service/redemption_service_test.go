package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/evently-hq/evently/internal/models"
	repo "github.com/evently-hq/evently/internal/repository/postgres"
	"github.com/evently-hq/evently/internal/service"
	pkgLog "github.com/evently-hq/evently/pkg/logger"
)

func newRedemptionService(
	credRepo *MockCredentialRepository,
	tierRepo *MockTierRepository,
	eventRepo *MockEventRepository,
) service.RedemptionService {
	return service.NewRedemptionService(credRepo, tierRepo, eventRepo, pkgLog.InitializeTestZapLogger())
}

func testScanInput() service.ScanInput {
	return service.ScanInput{
		ScannerID:    "owner-1",
		EventID:      "event-1",
		CredentialID: "cred-1",
	}
}

func TestScan_Success(t *testing.T) {
	credRepo := new(MockCredentialRepository)
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)

	svc := newRedemptionService(credRepo, tierRepo, eventRepo)

	ctx := context.Background()
	cred := &models.Credential{ID: "cred-1", IntentID: "intent-1", TierID: "tier-1"}
	scannedAt := time.Now()
	scanned := &models.Credential{ID: "cred-1", IntentID: "intent-1", TierID: "tier-1", ScannedAt: &scannedAt}

	eventRepo.On("IsOwner", ctx, "event-1", "owner-1").Return(true, nil)
	credRepo.On("GetByID", ctx, "cred-1").Return(cred, nil).Once()
	tierRepo.On("GetByID", ctx, "tier-1").Return(testTier(), nil)
	credRepo.On("MarkScanned", ctx, "cred-1").Return(int64(1), nil)
	credRepo.On("GetByID", ctx, "cred-1").Return(scanned, nil).Once()

	got, err := svc.Scan(ctx, testScanInput())

	assert.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.True(t, got.IsScanned())
	}
	credRepo.AssertExpectations(t)
}

func TestScan_Unauthorized(t *testing.T) {
	credRepo := new(MockCredentialRepository)
	eventRepo := new(MockEventRepository)

	svc := newRedemptionService(credRepo, new(MockTierRepository), eventRepo)

	ctx := context.Background()
	eventRepo.On("IsOwner", ctx, "event-1", "owner-1").Return(false, nil)

	got, err := svc.Scan(ctx, testScanInput())

	assert.Nil(t, got)
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	credRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestScan_CredentialNotFound(t *testing.T) {
	credRepo := new(MockCredentialRepository)
	eventRepo := new(MockEventRepository)

	svc := newRedemptionService(credRepo, new(MockTierRepository), eventRepo)

	ctx := context.Background()
	eventRepo.On("IsOwner", ctx, "event-1", "owner-1").Return(true, nil)
	credRepo.On("GetByID", ctx, "cred-1").Return(nil, repo.ErrNotFound)

	got, err := svc.Scan(ctx, testScanInput())

	assert.Nil(t, got)
	assert.ErrorIs(t, err, service.ErrCredentialNotFound)
}

func TestScan_TierMismatch(t *testing.T) {
	credRepo := new(MockCredentialRepository)
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)

	svc := newRedemptionService(credRepo, tierRepo, eventRepo)

	ctx := context.Background()
	otherEventTier := testTier()
	otherEventTier.EventID = "event-2"

	eventRepo.On("IsOwner", ctx, "event-1", "owner-1").Return(true, nil)
	credRepo.On("GetByID", ctx, "cred-1").Return(&models.Credential{ID: "cred-1", TierID: "tier-1"}, nil)
	tierRepo.On("GetByID", ctx, "tier-1").Return(otherEventTier, nil)

	got, err := svc.Scan(ctx, testScanInput())

	assert.Nil(t, got)
	assert.ErrorIs(t, err, service.ErrTierMismatch)
	credRepo.AssertNotCalled(t, "MarkScanned", mock.Anything, mock.Anything)
}

func TestScan_AlreadyScanned(t *testing.T) {
	credRepo := new(MockCredentialRepository)
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)

	svc := newRedemptionService(credRepo, tierRepo, eventRepo)

	ctx := context.Background()
	scannedAt := time.Now().Add(-time.Minute)
	cred := &models.Credential{ID: "cred-1", TierID: "tier-1", ScannedAt: &scannedAt}

	eventRepo.On("IsOwner", ctx, "event-1", "owner-1").Return(true, nil)
	credRepo.On("GetByID", ctx, "cred-1").Return(cred, nil)
	tierRepo.On("GetByID", ctx, "tier-1").Return(testTier(), nil)

	got, err := svc.Scan(ctx, testScanInput())

	assert.Nil(t, got)
	assert.ErrorIs(t, err, service.ErrAlreadyScanned)
	credRepo.AssertNotCalled(t, "MarkScanned", mock.Anything, mock.Anything)
}

func TestScan_RaceLostToConcurrentScanner(t *testing.T) {
	credRepo := new(MockCredentialRepository)
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)

	svc := newRedemptionService(credRepo, tierRepo, eventRepo)

	ctx := context.Background()
	cred := &models.Credential{ID: "cred-1", TierID: "tier-1"}

	eventRepo.On("IsOwner", ctx, "event-1", "owner-1").Return(true, nil)
	credRepo.On("GetByID", ctx, "cred-1").Return(cred, nil)
	tierRepo.On("GetByID", ctx, "tier-1").Return(testTier(), nil)
	// zero rows affected: another scanner marked it between read and update
	credRepo.On("MarkScanned", ctx, "cred-1").Return(int64(0), nil)

	got, err := svc.Scan(ctx, testScanInput())

	assert.Nil(t, got)
	assert.ErrorIs(t, err, service.ErrAlreadyScanned)
}
