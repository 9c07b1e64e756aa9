package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/evently-hq/evently/internal/models"
	repo "github.com/evently-hq/evently/internal/repository/postgres"
	redisrepo "github.com/evently-hq/evently/internal/repository/redis"
	"github.com/evently-hq/evently/internal/service"
	pkgLog "github.com/evently-hq/evently/pkg/logger"
)

func testEvent() *models.Event {
	return &models.Event{
		ID:      "event-1",
		OwnerID: "owner-1",
		Name:    "Go Conference",
		Venue:   "Convention Center",
	}
}

func TestCreateTiers_Success(t *testing.T) {
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)
	cache := new(MockTierCache)

	svc := service.NewTicketService(tierRepo, eventRepo, cache, pkgLog.InitializeTestZapLogger())

	ctx := context.Background()
	eventRepo.On("GetByID", ctx, "event-1").Return(testEvent(), nil)
	tierRepo.On("ListByEvent", ctx, "event-1").Return([]models.TicketTier{}, nil)
	tierRepo.On("CreateBatch", ctx, mock.MatchedBy(func(tiers []models.TicketTier) bool {
		return len(tiers) == 2 &&
			tiers[0].Remaining == tiers[0].TotalCapacity &&
			tiers[1].Remaining == tiers[1].TotalCapacity
	})).Return(nil)
	cache.On("Invalidate", ctx, "event-1").Return(nil)

	tiers, err := svc.CreateTiers(ctx, "owner-1", "event-1", []service.TierInput{
		{Name: "VIP", Price: decimal.NewFromInt(200), TotalCapacity: 20},
		{Name: "General", Price: decimal.NewFromInt(50), TotalCapacity: 200},
	})

	assert.NoError(t, err)
	assert.Len(t, tiers, 2)
	tierRepo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCreateTiers_DuplicateName(t *testing.T) {
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)

	svc := service.NewTicketService(tierRepo, eventRepo, new(MockTierCache), pkgLog.InitializeTestZapLogger())

	ctx := context.Background()
	eventRepo.On("GetByID", ctx, "event-1").Return(testEvent(), nil)
	tierRepo.On("ListByEvent", ctx, "event-1").Return([]models.TicketTier{
		{ID: "tier-1", EventID: "event-1", Name: "VIP"},
	}, nil)

	tiers, err := svc.CreateTiers(ctx, "owner-1", "event-1", []service.TierInput{
		{Name: "vip", Price: decimal.NewFromInt(200), TotalCapacity: 20},
	})

	assert.Nil(t, tiers)
	assert.ErrorIs(t, err, service.ErrValidation)
	tierRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestCreateTiers_NotOwner(t *testing.T) {
	eventRepo := new(MockEventRepository)

	svc := service.NewTicketService(new(MockTierRepository), eventRepo, new(MockTierCache), pkgLog.InitializeTestZapLogger())

	ctx := context.Background()
	eventRepo.On("GetByID", ctx, "event-1").Return(testEvent(), nil)

	tiers, err := svc.CreateTiers(ctx, "stranger", "event-1", []service.TierInput{
		{Name: "VIP", Price: decimal.NewFromInt(200), TotalCapacity: 20},
	})

	assert.Nil(t, tiers)
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestListEventTiers_CacheHit(t *testing.T) {
	tierRepo := new(MockTierRepository)

	cli, redisMock := redismock.NewClientMock()
	cache := redisrepo.NewRedisTierCache(cli, pkgLog.InitializeTestZapLogger())

	svc := service.NewTicketService(tierRepo, new(MockEventRepository), cache, pkgLog.InitializeTestZapLogger())

	cached := []models.TicketTier{{ID: "tier-1", EventID: "event-1", Name: "VIP", Price: decimal.NewFromInt(200)}}
	payload, err := json.Marshal(cached)
	assert.NoError(t, err)

	redisMock.ExpectGet("event:event-1:tiers").SetVal(string(payload))

	tiers, err := svc.ListEventTiers(context.Background(), "event-1")

	assert.NoError(t, err)
	if assert.Len(t, tiers, 1) {
		assert.Equal(t, "VIP", tiers[0].Name)
	}
	tierRepo.AssertNotCalled(t, "ListByEvent", mock.Anything, mock.Anything)

	if err := redisMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestListEventTiers_CacheMissFallsThrough(t *testing.T) {
	tierRepo := new(MockTierRepository)

	cli, redisMock := redismock.NewClientMock()
	cache := redisrepo.NewRedisTierCache(cli, pkgLog.InitializeTestZapLogger())

	svc := service.NewTicketService(tierRepo, new(MockEventRepository), cache, pkgLog.InitializeTestZapLogger())

	fromDB := []models.TicketTier{{ID: "tier-1", EventID: "event-1", Name: "General", Price: decimal.NewFromInt(50)}}
	payload, err := json.Marshal(fromDB)
	assert.NoError(t, err)

	redisMock.ExpectGet("event:event-1:tiers").RedisNil()
	redisMock.ExpectSet("event:event-1:tiers", payload, 5*time.Minute).SetVal("OK")

	ctx := context.Background()
	tierRepo.On("ListByEvent", ctx, "event-1").Return(fromDB, nil)

	tiers, err := svc.ListEventTiers(ctx, "event-1")

	assert.NoError(t, err)
	assert.Len(t, tiers, 1)

	if err := redisMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestAdjustCapacity_Success(t *testing.T) {
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)
	cache := new(MockTierCache)

	svc := service.NewTicketService(tierRepo, eventRepo, cache, pkgLog.InitializeTestZapLogger())

	ctx := context.Background()
	tier := testTier() // capacity 100, remaining 10

	updated := *tier
	updated.TotalCapacity = 150
	updated.Remaining = 60

	tierRepo.On("GetByID", ctx, "tier-1").Return(tier, nil).Once()
	eventRepo.On("IsOwner", ctx, "event-1", "owner-1").Return(true, nil)
	tierRepo.On("AdjustCapacity", ctx, "tier-1", 150).Return(int64(1), nil)
	cache.On("Invalidate", ctx, "event-1").Return(nil)
	tierRepo.On("GetByID", ctx, "tier-1").Return(&updated, nil).Once()

	got, err := svc.AdjustCapacity(ctx, "owner-1", "tier-1", 150)

	assert.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.Equal(t, 150, got.TotalCapacity)
		assert.Equal(t, 60, got.Remaining)
	}
}

func TestAdjustCapacity_ExactlyUnitsSold(t *testing.T) {
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)
	cache := new(MockTierCache)

	svc := service.NewTicketService(tierRepo, eventRepo, cache, pkgLog.InitializeTestZapLogger())

	ctx := context.Background()
	tier := testTier() // 90 units sold

	updated := *tier
	updated.TotalCapacity = 90
	updated.Remaining = 0

	tierRepo.On("GetByID", ctx, "tier-1").Return(tier, nil).Once()
	eventRepo.On("IsOwner", ctx, "event-1", "owner-1").Return(true, nil)
	tierRepo.On("AdjustCapacity", ctx, "tier-1", 90).Return(int64(1), nil)
	cache.On("Invalidate", ctx, "event-1").Return(nil)
	tierRepo.On("GetByID", ctx, "tier-1").Return(&updated, nil).Once()

	got, err := svc.AdjustCapacity(ctx, "owner-1", "tier-1", 90)

	assert.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.Equal(t, 90, got.TotalCapacity)
		assert.Equal(t, 0, got.Remaining)
	}
}

func TestAdjustCapacity_BelowUnitsSold(t *testing.T) {
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)

	svc := service.NewTicketService(tierRepo, eventRepo, new(MockTierCache), pkgLog.InitializeTestZapLogger())

	ctx := context.Background()
	tier := testTier() // 90 units sold

	tierRepo.On("GetByID", ctx, "tier-1").Return(tier, nil)
	eventRepo.On("IsOwner", ctx, "event-1", "owner-1").Return(true, nil)
	tierRepo.On("AdjustCapacity", ctx, "tier-1", 50).Return(int64(0), nil)

	got, err := svc.AdjustCapacity(ctx, "owner-1", "tier-1", 50)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestChangePrice_AfterSaleRejected(t *testing.T) {
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)

	svc := service.NewTicketService(tierRepo, eventRepo, new(MockTierCache), pkgLog.InitializeTestZapLogger())

	ctx := context.Background()
	tierRepo.On("GetByID", ctx, "tier-1").Return(testTier(), nil)
	eventRepo.On("IsOwner", ctx, "event-1", "owner-1").Return(true, nil)
	tierRepo.On("UpdatePrice", ctx, "tier-1", mock.Anything).Return(int64(0), nil)

	got, err := svc.ChangePrice(ctx, "owner-1", "tier-1", decimal.NewFromInt(75))

	assert.Nil(t, got)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestDeleteTier_AfterSaleRejected(t *testing.T) {
	tierRepo := new(MockTierRepository)
	eventRepo := new(MockEventRepository)

	svc := service.NewTicketService(tierRepo, eventRepo, new(MockTierCache), pkgLog.InitializeTestZapLogger())

	ctx := context.Background()
	tierRepo.On("GetByID", ctx, "tier-1").Return(testTier(), nil)
	eventRepo.On("IsOwner", ctx, "event-1", "owner-1").Return(true, nil)
	tierRepo.On("Delete", ctx, "tier-1").Return(int64(0), nil)

	err := svc.DeleteTier(ctx, "owner-1", "tier-1")

	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestDeleteTier_NotFound(t *testing.T) {
	tierRepo := new(MockTierRepository)

	svc := service.NewTicketService(tierRepo, new(MockEventRepository), new(MockTierCache), pkgLog.InitializeTestZapLogger())

	ctx := context.Background()
	tierRepo.On("GetByID", ctx, "missing").Return(nil, repo.ErrNotFound)

	err := svc.DeleteTier(ctx, "owner-1", "missing")

	assert.ErrorIs(t, err, service.ErrTierNotFound)
}
