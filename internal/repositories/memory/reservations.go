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

type reservationRepo struct {
	v *view
}

func (r *reservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	st, unlock := r.v.acquire()
	defer unlock()

	if _, ok := st.items[res.ItemID]; !ok {
		return fmt.Errorf("item %s: %w", res.ItemID, common.ErrNotFound)
	}
	st.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r *reservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	res, ok := st.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %s: %w", id, common.ErrNotFound)
	}
	return cloneReservation(res), nil
}

// GetByIDForUpdate needs no row lock here: the store lock already serialises callers.
func (r *reservationRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r *reservationRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	st, unlock := r.v.acquire()
	defer unlock()

	res, ok := st.reservations[id]
	if !ok || !res.Active() {
		return fmt.Errorf("reservation %s: %w", id, common.ErrAlreadyReleased)
	}
	res.Quantity = qty
	return nil
}

func (r *reservationRepo) MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	res, ok := st.reservations[id]
	if !ok || !res.Active() {
		return false, nil
	}
	res.ReleasedAt = &at
	return true, nil
}

func (r *reservationRepo) DetachRequest(ctx context.Context, requestID uuid.UUID) error {
	st, unlock := r.v.acquire()
	defer unlock()

	for _, res := range st.reservations {
		if res.RequestID != nil && *res.RequestID == requestID {
			res.RequestID = nil
		}
	}
	return nil
}

func (r *reservationRepo) ListActiveByItem(ctx context.Context, itemID uuid.UUID) ([]*models.Reservation, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	var out []*models.Reservation
	for _, res := range st.reservations {
		if res.ItemID == itemID && res.Active() {
			out = append(out, cloneReservation(res))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
