package services

import (
	"context"
	"fmt"
	"time"

	"schoolprops/internal/common"
	"schoolprops/internal/models"
	"schoolprops/internal/repositories"
)

const snapshotItemPage = 1000

// SnapshotService builds the read-only export consumed by external report tooling.
type SnapshotService interface {
	Snapshot(ctx context.Context, actor models.Principal, from, to time.Time) (*models.Snapshot, error)
}

type snapshotService struct {
	store repositories.Store
	now   Clock
}

func NewSnapshotService(store repositories.Store, clock Clock) SnapshotService {
	if clock == nil {
		clock = systemClock
	}
	return &snapshotService{store: store, now: clock}
}

func (s *snapshotService) Snapshot(ctx context.Context, actor models.Principal, from, to time.Time) (*models.Snapshot, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("snapshot requires an administrator: %w", common.ErrForbidden)
	}
	if err := common.ValidateDateRange(from, to); err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	requests, err := repos.Requests.List(ctx, &models.RequestFilter{CreatedFrom: &from, CreatedBefore: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	var items []*models.InventoryItem
	for offset := 0; ; offset += snapshotItemPage {
		page, err := repos.Items.List(ctx, &models.ItemFilter{Limit: snapshotItemPage, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("failed to list items: %w", err)
		}
		items = append(items, page...)
		if len(page) < snapshotItemPage {
			break
		}
	}

	budget, err := repos.Budget.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load budget: %w", err)
	}

	if requests == nil {
		requests = []*models.Request{}
	}
	if items == nil {
		items = []*models.InventoryItem{}
	}
	return &models.Snapshot{
		From:        from,
		To:          to,
		GeneratedAt: s.now(),
		Requests:    requests,
		Items:       items,
		Budget:      budget,
	}, nil
}
