package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"schoolprops/internal/caching"
	"schoolprops/internal/models"
	"schoolprops/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, req *models.Request) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *MockRequestRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *MockRequestRepository) Update(ctx context.Context, req *models.Request) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRequestRepository) List(ctx context.Context, filter *models.RequestFilter) ([]*models.Request, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Request), args.Error(1)
}

func (m *MockRequestRepository) AppendEvent(ctx context.Context, event *models.RequestEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockRequestRepository) ListEvents(ctx context.Context, requestID uuid.UUID) ([]*models.RequestEvent, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).([]*models.RequestEvent), args.Error(1)
}

func (m *MockRequestRepository) SumCommittedCustomCost(ctx context.Context, since *time.Time) (float64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockRequestRepository) EscalatePending(ctx context.Context, cutoff, at time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, cutoff, at)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

var _ repositories.RequestRepository = (*MockRequestRepository)(nil)

var derivedAt = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func itemRequest(status models.RequestStatus, created time.Time) *models.Request {
	return &models.Request{
		ID:            uuid.New(),
		Type:          models.RequestTypeItem,
		RequesterID:   uuid.New(),
		RequesterName: "Alice",
		Status:        status,
		Priority:      models.PriorityNormal,
		CreatedAt:     created,
		UpdatedAt:     created,
		Item: &models.ItemDetails{
			ItemID:            uuid.New(),
			ItemName:          "Microscope",
			QuantityRequested: 2,
			QuantityAssigned:  2,
			InspectionStatus:  models.InspectionNone,
		},
	}
}

func TestDerive_OverdueReplacesAssigned(t *testing.T) {
	req := itemRequest(models.StatusAssigned, derivedAt.Add(-72*time.Hour))
	assignedAt := derivedAt.Add(-2 * time.Hour)
	due := derivedAt.Add(-time.Hour)
	req.Item.AssignedAt = &assignedAt
	req.Item.DueDate = &due

	out := Derive([]*models.Request{req}, nil, derivedAt, models.DefaultNotificationPrefs(), models.FeedFull)
	require.Len(t, out, 1)
	assert.Equal(t, models.NotificationOverdue, out[0].Kind)
	assert.Equal(t, fmt.Sprintf("overdue-%s", req.ID), out[0].ID)
	assert.Equal(t, due, out[0].Timestamp)
}

func TestDerive_KindsAndOrdering(t *testing.T) {
	pending := itemRequest(models.StatusPending, derivedAt.Add(-3*time.Hour))
	urgent := itemRequest(models.StatusPending, derivedAt.Add(-time.Hour))
	urgent.Priority = models.PriorityUrgent

	assigned := itemRequest(models.StatusAssigned, derivedAt.Add(-48*time.Hour))
	assignedAt := derivedAt.Add(-2 * time.Hour)
	due := derivedAt.Add(48 * time.Hour)
	assigned.Item.AssignedAt = &assignedAt
	assigned.Item.DueDate = &due

	returned := itemRequest(models.StatusReturnedPendingInspection, derivedAt.Add(-96*time.Hour))
	returnedAt := derivedAt.Add(-30 * time.Minute)
	returned.Item.ReturnedAt = &returnedAt
	returned.Item.InspectionStatus = models.InspectionPending

	item := &models.InventoryItem{
		ID:                uuid.New(),
		Name:              "Glue",
		QuantityTotal:     10,
		QuantityAvailable: 1,
		LowStockThreshold: 2,
		UpdatedAt:         derivedAt.Add(-4 * time.Hour),
	}
	healthy := &models.InventoryItem{ID: uuid.New(), Name: "Paper", QuantityTotal: 10, QuantityAvailable: 9, LowStockThreshold: 2}

	requests := []*models.Request{pending, urgent, assigned, returned}
	out := Derive(requests, []*models.InventoryItem{item, healthy}, derivedAt, models.DefaultNotificationPrefs(), models.FeedCompact)

	kinds := make([]models.NotificationKind, len(out))
	for i, n := range out {
		kinds[i] = n.Kind
	}
	assert.Equal(t, []models.NotificationKind{
		models.NotificationInspectionPending,
		models.NotificationUrgent,
		models.NotificationAssigned,
		models.NotificationPending,
		models.NotificationLowStock,
	}, kinds)

	again := Derive(requests, []*models.InventoryItem{item, healthy}, derivedAt, models.DefaultNotificationPrefs(), models.FeedCompact)
	assert.Equal(t, out, again)
}

func TestDerive_CompactFeedWindowAndCap(t *testing.T) {
	old := itemRequest(models.StatusAssigned, derivedAt.Add(-10*24*time.Hour))
	assignedAt := derivedAt.Add(-3 * 24 * time.Hour)
	due := derivedAt.Add(24 * time.Hour)
	old.Item.AssignedAt = &assignedAt
	old.Item.DueDate = &due

	assert.Empty(t, Derive([]*models.Request{old}, nil, derivedAt, models.DefaultNotificationPrefs(), models.FeedCompact))
	assert.Len(t, Derive([]*models.Request{old}, nil, derivedAt, models.DefaultNotificationPrefs(), models.FeedFull), 1)

	var many []*models.Request
	for i := 0; i < 20; i++ {
		many = append(many, itemRequest(models.StatusPending, derivedAt.Add(-time.Duration(i)*time.Minute)))
	}
	compact := Derive(many, nil, derivedAt, models.DefaultNotificationPrefs(), models.FeedCompact)
	assert.Len(t, compact, CompactFeedLimit)
	assert.Equal(t, many[0].CreatedAt, compact[0].Timestamp)
	assert.Len(t, Derive(many, nil, derivedAt, models.DefaultNotificationPrefs(), models.FeedFull), 20)
}

func TestDerive_PrefsDisableCategories(t *testing.T) {
	req := itemRequest(models.StatusPending, derivedAt)
	item := &models.InventoryItem{ID: uuid.New(), QuantityAvailable: 0, LowStockThreshold: 1}

	out := Derive([]*models.Request{req}, []*models.InventoryItem{item}, derivedAt, models.NotificationPrefs{Inventory: true}, models.FeedFull)
	require.Len(t, out, 1)
	assert.Equal(t, models.NotificationLowStock, out[0].Kind)

	out = Derive([]*models.Request{req}, []*models.InventoryItem{item}, derivedAt, models.NotificationPrefs{Requests: true}, models.FeedFull)
	require.Len(t, out, 1)
	assert.Equal(t, models.NotificationPending, out[0].Kind)
}

func TestNotificationFeed_ReadMarkers(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	item := e.item(t, "Beaker", 5, 10)
	first := e.requestItem(t, e.alice, item.ID, 1)
	e.clock.Advance(time.Minute)
	second := e.requestItem(t, e.alice, item.ID, 1)

	markers := caching.NewMemoryReadMarkers()
	svc := NewNotificationService(e.store.Repos().Requests, e.store.Repos().Items, markers, e.clock.Now)
	prefs := models.DefaultNotificationPrefs()

	feed := svc.Feed(ctx, e.admin, prefs, models.FeedFull)
	require.Len(t, feed.Notifications, 3)
	assert.Equal(t, 3, feed.UnreadCount)

	require.NoError(t, svc.MarkRead(ctx, e.admin, []string{fmt.Sprintf("pending-%s", first.ID)}))
	feed = svc.Feed(ctx, e.admin, prefs, models.FeedFull)
	assert.Equal(t, 2, feed.UnreadCount)
	for _, n := range feed.Notifications {
		assert.Equal(t, n.ID == fmt.Sprintf("pending-%s", first.ID), n.Read, n.ID)
	}

	teacherFeed := svc.Feed(ctx, e.alice, prefs, models.FeedFull)
	assert.Len(t, teacherFeed.Notifications, 2)
	assert.Equal(t, 2, teacherFeed.UnreadCount)

	marked, err := svc.MarkAllRead(ctx, e.admin, prefs)
	require.NoError(t, err)
	assert.Equal(t, 3, marked)
	assert.Zero(t, svc.Feed(ctx, e.admin, prefs, models.FeedFull).UnreadCount)

	assert.Equal(t, fmt.Sprintf("pending-%s", second.ID), teacherFeed.Notifications[0].ID)
}

func TestNotificationFeed_FetchFailureYieldsEmptyFeed(t *testing.T) {
	requests := &MockRequestRepository{}
	requests.On("List", mock.Anything, mock.AnythingOfType("*models.RequestFilter")).Return(nil, errors.New("connection reset")).Once()

	svc := NewNotificationService(requests, nil, caching.NewMemoryReadMarkers(), newFakeClock().Now)
	teacher := models.Principal{ID: uuid.New(), Role: models.RoleTeacher}

	feed := svc.Feed(context.Background(), teacher, models.DefaultNotificationPrefs(), models.FeedCompact)
	assert.NotNil(t, feed.Notifications)
	assert.Empty(t, feed.Notifications)
	assert.Zero(t, feed.UnreadCount)

	_, err := svc.MarkAllRead(context.Background(), teacher, models.NotificationPrefs{})
	assert.NoError(t, err)
	requests.AssertExpectations(t)
}
