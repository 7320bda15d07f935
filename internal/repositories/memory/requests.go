package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"schoolprops/internal/common"
	"schoolprops/internal/models"

	"github.com/google/uuid"
)

type requestRepo struct {
	v *view
}

func (r *requestRepo) Create(ctx context.Context, req *models.Request) error {
	if err := req.CheckShape(); err != nil {
		return err
	}
	st, unlock := r.v.acquire()
	defer unlock()

	if _, ok := st.requests[req.ID]; ok {
		return fmt.Errorf("request %s already exists", req.ID)
	}
	st.requests[req.ID] = req.Clone()
	return nil
}

func (r *requestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	req, ok := st.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, common.ErrNotFound)
	}
	return req.Clone(), nil
}

func (r *requestRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	return r.GetByID(ctx, id)
}

func (r *requestRepo) Update(ctx context.Context, req *models.Request) error {
	st, unlock := r.v.acquire()
	defer unlock()

	cur, ok := st.requests[req.ID]
	if !ok {
		return fmt.Errorf("request %s: %w", req.ID, common.ErrNotFound)
	}
	next := req.Clone()
	next.Type = cur.Type
	next.RequesterID = cur.RequesterID
	next.RequesterName = cur.RequesterName
	next.CreatedAt = cur.CreatedAt
	st.requests[req.ID] = next
	return nil
}

func (r *requestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	st, unlock := r.v.acquire()
	defer unlock()

	if _, ok := st.requests[id]; !ok {
		return fmt.Errorf("request %s: %w", id, common.ErrNotFound)
	}
	delete(st.requests, id)
	delete(st.events, id)
	return nil
}

func (r *requestRepo) List(ctx context.Context, filter *models.RequestFilter) ([]*models.Request, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	if filter == nil {
		filter = &models.RequestFilter{}
	}

	var out []*models.Request
	for _, req := range st.requests {
		if matches(req, filter) {
			out = append(out, req.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func matches(req *models.Request, f *models.RequestFilter) bool {
	if f.Type != nil && req.Type != *f.Type {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if req.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Priority != nil && req.Priority != *f.Priority {
		return false
	}
	if f.RequesterID != nil && req.RequesterID != *f.RequesterID {
		return false
	}
	if f.ItemID != nil && (req.Item == nil || req.Item.ItemID != *f.ItemID) {
		return false
	}
	if f.CreatedFrom != nil && req.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedBefore != nil && !req.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

func (r *requestRepo) AppendEvent(ctx context.Context, event *models.RequestEvent) error {
	st, unlock := r.v.acquire()
	defer unlock()

	if _, ok := st.requests[event.RequestID]; !ok {
		return fmt.Errorf("request %s: %w", event.RequestID, common.ErrNotFound)
	}
	e := *event
	st.events[event.RequestID] = append(st.events[event.RequestID], &e)
	return nil
}

func (r *requestRepo) ListEvents(ctx context.Context, requestID uuid.UUID) ([]*models.RequestEvent, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	events := st.events[requestID]
	out := make([]*models.RequestEvent, len(events))
	for i, e := range events {
		v := *e
		out[i] = &v
	}
	return out, nil
}

func (r *requestRepo) SumCommittedCustomCost(ctx context.Context, since *time.Time) (float64, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	var total float64
	for _, req := range st.requests {
		if req.Type != models.RequestTypeCustom || req.Custom == nil || !models.CommittedSpend(req.Status) {
			continue
		}
		if since != nil && !req.UpdatedAt.After(*since) {
			continue
		}
		total += req.Custom.EstimatedCost
	}
	return total, nil
}

func (r *requestRepo) EscalatePending(ctx context.Context, cutoff, at time.Time) ([]uuid.UUID, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	var ids []uuid.UUID
	for _, req := range st.requests {
		if req.Status != models.StatusPending || req.Priority != models.PriorityNormal {
			continue
		}
		if req.Type != models.RequestTypeItem && req.Type != models.RequestTypeCustom {
			continue
		}
		if !req.CreatedAt.Before(cutoff) {
			continue
		}
		req.Priority = models.PriorityUrgent
		req.UpdatedAt = at
		ids = append(ids, req.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
