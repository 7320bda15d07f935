package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"schoolprops/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockStockSource struct {
	mock.Mock
}

func (m *MockStockSource) LowStock(ctx context.Context, threshold int) ([]*models.InventoryItem, error) {
	args := m.Called(ctx, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.InventoryItem), args.Error(1)
}

type MockRequestSweeper struct {
	mock.Mock
}

func (m *MockRequestSweeper) Overdue(ctx context.Context) ([]*models.Request, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Request), args.Error(1)
}

func (m *MockRequestSweeper) EscalateStale(ctx context.Context, after time.Duration) ([]uuid.UUID, error) {
	args := m.Called(ctx, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type InventoryAlertServiceTestSuite struct {
	suite.Suite
	stock    *MockStockSource
	requests *MockRequestSweeper
	service  *InventoryAlertService
	ctx      context.Context
}

func (suite *InventoryAlertServiceTestSuite) SetupTest() {
	suite.stock = &MockStockSource{}
	suite.requests = &MockRequestSweeper{}
	suite.service = NewInventoryAlertService(suite.stock, suite.requests)
	suite.ctx = context.Background()
}

func (suite *InventoryAlertServiceTestSuite) TearDownTest() {
	suite.stock.AssertExpectations(suite.T())
	suite.requests.AssertExpectations(suite.T())
}

func TestInventoryAlertServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InventoryAlertServiceTestSuite))
}

func (suite *InventoryAlertServiceTestSuite) TestCheckLowStock_ItemThreshold() {
	item := &models.InventoryItem{ID: uuid.New(), Name: "Projector", QuantityTotal: 6, QuantityAvailable: 1, LowStockThreshold: 2}
	suite.stock.On("LowStock", suite.ctx, 0).Return([]*models.InventoryItem{item}, nil)

	alerts, err := suite.service.CheckLowStock(suite.ctx, 0)

	suite.NoError(err)
	suite.Require().Len(alerts, 1)
	suite.Equal(item.ID, alerts[0].ItemID)
	suite.Equal(2, alerts[0].Threshold)
	suite.Equal(1, alerts[0].Available)
}

func (suite *InventoryAlertServiceTestSuite) TestCheckLowStock_ExplicitThreshold() {
	item := &models.InventoryItem{ID: uuid.New(), Name: "Tablet", QuantityTotal: 20, QuantityAvailable: 4}
	suite.stock.On("LowStock", suite.ctx, 5).Return([]*models.InventoryItem{item}, nil)

	alerts, err := suite.service.CheckLowStock(suite.ctx, 5)

	suite.NoError(err)
	suite.Require().Len(alerts, 1)
	suite.Equal(5, alerts[0].Threshold)
}

func (suite *InventoryAlertServiceTestSuite) TestCheckLowStock_Error() {
	suite.stock.On("LowStock", suite.ctx, 0).Return(nil, errors.New("db down"))

	alerts, err := suite.service.CheckLowStock(suite.ctx, 0)

	suite.Error(err)
	suite.Nil(alerts)
}

func (suite *InventoryAlertServiceTestSuite) TestCheckOverdue() {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-49 * time.Hour)
	late := &models.Request{
		ID:            uuid.New(),
		Type:          models.RequestTypeItem,
		RequesterName: "Alice",
		Status:        models.StatusAssigned,
		Item:          &models.ItemDetails{ItemName: "Microscope", QuantityAssigned: 2, DueDate: &due},
	}
	broken := &models.Request{ID: uuid.New(), Type: models.RequestTypeItem, Status: models.StatusAssigned}
	suite.requests.On("Overdue", suite.ctx).Return([]*models.Request{late, broken}, nil)

	alerts, err := suite.service.CheckOverdue(suite.ctx, now)

	suite.NoError(err)
	suite.Require().Len(alerts, 1)
	suite.Equal(late.ID, alerts[0].RequestID)
	suite.Equal("Microscope", alerts[0].ItemName)
	suite.Equal(2, alerts[0].Quantity)
	suite.Equal(2, alerts[0].DaysOverdue)
}

func (suite *InventoryAlertServiceTestSuite) TestEscalate() {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	suite.requests.On("EscalateStale", suite.ctx, 48*time.Hour).Return(ids, nil)

	n, err := suite.service.Escalate(suite.ctx, 48*time.Hour)

	suite.NoError(err)
	suite.Equal(2, n)
}

func (suite *InventoryAlertServiceTestSuite) TestScheduledSweep_ContinuesAfterFailure() {
	suite.stock.On("LowStock", suite.ctx, 0).Return(nil, errors.New("db down"))
	suite.requests.On("Overdue", suite.ctx).Return([]*models.Request{}, nil)
	suite.requests.On("EscalateStale", suite.ctx, time.Hour).Return([]uuid.UUID{}, nil)

	err := suite.service.ScheduledSweep(suite.ctx, time.Hour)

	suite.EqualError(err, "failed to list low stock items: db down")
}

func (suite *InventoryAlertServiceTestSuite) TestScheduledSweep_SkipsEscalationWhenDisabled() {
	suite.stock.On("LowStock", suite.ctx, 0).Return([]*models.InventoryItem{}, nil)
	suite.requests.On("Overdue", suite.ctx).Return([]*models.Request{}, nil)

	suite.NoError(suite.service.ScheduledSweep(suite.ctx, 0))
	suite.requests.AssertNotCalled(suite.T(), "EscalateStale", mock.Anything, mock.Anything)
}

func TestLogAlerts_Empty(t *testing.T) {
	svc := NewInventoryAlertService(nil, nil)
	assert.NotPanics(t, func() {
		svc.LogLowStockAlerts(nil)
		svc.LogOverdueAlerts(nil)
	})
}
