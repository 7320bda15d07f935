package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"schoolprops/internal/common"
	"schoolprops/internal/models"
	"schoolprops/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedItem(t *testing.T, s *Store, total int) *models.InventoryItem {
	t.Helper()
	now := time.Now().UTC()
	item := &models.InventoryItem{
		ID:                uuid.New(),
		Name:              "Projector",
		Category:          "AV",
		QuantityTotal:     total,
		QuantityAvailable: total,
		Status:            models.ItemStatusAvailable,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, s.Repos().Items.Create(context.Background(), item))
	return item
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	s := NewStore()
	item := seedItem(t, s, 5)

	err := s.WithinTx(context.Background(), func(ctx context.Context, repos repositories.Repositories) error {
		ok, err := repos.Items.DecrementAvailable(ctx, item.ID, 3, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)

	got, err := s.Repos().Items.GetByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QuantityAvailable)
}

func TestWithinTx_DiscardsOnError(t *testing.T) {
	s := NewStore()
	item := seedItem(t, s, 5)
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context, repos repositories.Repositories) error {
		_, err := repos.Items.DecrementAvailable(ctx, item.ID, 3, time.Now())
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Repos().Items.GetByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.QuantityAvailable)
}

func TestWithinTx_CancelledContextRollsBack(t *testing.T) {
	s := NewStore()
	item := seedItem(t, s, 5)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		_, err := repos.Items.DecrementAvailable(ctx, item.ID, 1, time.Now())
		cancel()
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)

	got, _ := s.Repos().Items.GetByID(context.Background(), item.ID)
	assert.Equal(t, 5, got.QuantityAvailable)
}

func TestItems_DeleteRefusedWithActiveReservation(t *testing.T) {
	s := NewStore()
	item := seedItem(t, s, 2)
	ctx := context.Background()

	res := &models.Reservation{ID: uuid.New(), ItemID: item.ID, Quantity: 1, CreatedAt: time.Now()}
	require.NoError(t, s.Repos().Reservations.Create(ctx, res))

	err := s.Repos().Items.Delete(ctx, item.ID)
	assert.True(t, errors.Is(err, common.ErrItemInUse))

	ok, err := s.Repos().Reservations.MarkReleased(ctx, res.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, s.Repos().Items.Delete(ctx, item.ID))
	_, err = s.Repos().Items.GetByID(ctx, item.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestItems_UpdateTotalBelowReserved(t *testing.T) {
	s := NewStore()
	item := seedItem(t, s, 5)
	ctx := context.Background()

	ok, err := s.Repos().Items.DecrementAvailable(ctx, item.ID, 4, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	item.QuantityTotal = 3
	assert.True(t, errors.Is(s.Repos().Items.Update(ctx, item), common.ErrItemInUse))

	item.QuantityTotal = 6
	require.NoError(t, s.Repos().Items.Update(ctx, item))
	got, _ := s.Repos().Items.GetByID(ctx, item.ID)
	assert.Equal(t, 2, got.QuantityAvailable)
	assert.Equal(t, 6, got.QuantityTotal)
}

func TestRequests_ListFiltersAndOrders(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	teacher := uuid.New()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, status := range []models.RequestStatus{models.StatusPending, models.StatusRejected, models.StatusPending} {
		req := &models.Request{
			ID:          uuid.New(),
			Type:        models.RequestTypeCustom,
			RequesterID: teacher,
			Status:      status,
			Priority:    models.PriorityNormal,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:   base,
			Custom:      &models.CustomDetails{ItemName: "Globe"},
		}
		require.NoError(t, s.Repos().Requests.Create(ctx, req))
	}

	got, err := s.Repos().Requests.List(ctx, &models.RequestFilter{
		RequesterID: &teacher,
		Statuses:    []models.RequestStatus{models.StatusPending},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))
}

func TestRequests_UpdateKeepsImmutableFields(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	owner := uuid.New()
	req := &models.Request{
		ID:          uuid.New(),
		Type:        models.RequestTypeReport,
		RequesterID: owner,
		Status:      models.StatusPending,
		Priority:    models.PriorityNormal,
		Report:      &models.ReportDetails{ItemName: "Laptop", Kind: models.ReportKindDamaged},
	}
	require.NoError(t, s.Repos().Requests.Create(ctx, req))

	changed := req.Clone()
	changed.RequesterID = uuid.New()
	changed.Status = models.StatusUnderReview
	require.NoError(t, s.Repos().Requests.Update(ctx, changed))

	got, err := s.Repos().Requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, got.RequesterID)
	assert.Equal(t, models.StatusUnderReview, got.Status)
}

func TestBudget_SumsRespectResetCutoff(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, p := range []*models.Purchase{
		{ID: uuid.New(), Amount: 10, RecordedAt: cutoff.Add(-time.Hour)},
		{ID: uuid.New(), Amount: 25.5, RecordedAt: cutoff.Add(time.Hour)},
	} {
		require.NoError(t, s.Repos().Budget.CreatePurchase(ctx, p))
	}

	all, err := s.Repos().Budget.SumPurchases(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 35.5, all)

	since, err := s.Repos().Budget.SumPurchases(ctx, &cutoff)
	require.NoError(t, err)
	assert.Equal(t, 25.5, since)
}
