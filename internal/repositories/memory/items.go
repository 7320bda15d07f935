package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"schoolprops/internal/common"
	"schoolprops/internal/models"

	"github.com/google/uuid"
)

type itemRepo struct {
	v *view
}

func (r *itemRepo) Create(ctx context.Context, item *models.InventoryItem) error {
	st, unlock := r.v.acquire()
	defer unlock()

	if _, ok := st.items[item.ID]; ok {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	v := *item
	st.items[item.ID] = &v
	return nil
}

func (r *itemRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	item, ok := st.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	v := *item
	return &v, nil
}

func (r *itemRepo) Update(ctx context.Context, item *models.InventoryItem) error {
	st, unlock := r.v.acquire()
	defer unlock()

	cur, ok := st.items[item.ID]
	if !ok {
		return fmt.Errorf("item %s: %w", item.ID, common.ErrNotFound)
	}
	if item.QuantityTotal < cur.Reserved() {
		return fmt.Errorf("item %s: %w", item.ID, common.ErrItemInUse)
	}
	cur.QuantityAvailable += item.QuantityTotal - cur.QuantityTotal
	cur.QuantityTotal = item.QuantityTotal
	cur.Name = item.Name
	cur.Category = item.Category
	cur.Status = item.Status
	cur.LowStockThreshold = item.LowStockThreshold
	cur.UpdatedAt = item.UpdatedAt
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	st, unlock := r.v.acquire()
	defer unlock()

	if _, ok := st.items[id]; !ok {
		return fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	for _, res := range st.reservations {
		if res.ItemID == id && res.Active() {
			return fmt.Errorf("item %s: %w", id, common.ErrItemInUse)
		}
	}
	delete(st.items, id)
	for resID, res := range st.reservations {
		if res.ItemID == id {
			delete(st.reservations, resID)
		}
	}
	return nil
}

func (r *itemRepo) List(ctx context.Context, filter *models.ItemFilter) ([]*models.InventoryItem, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	if filter == nil {
		filter = &models.ItemFilter{}
	}
	limit := filter.Limit
	if limit == 0 {
		limit = 50
	}
	query := strings.ToLower(filter.Query)

	var out []*models.InventoryItem
	for _, item := range st.items {
		if query != "" && !strings.Contains(strings.ToLower(item.Name), query) {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		v := *item
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return page(out, limit, filter.Offset), nil
}

func (r *itemRepo) LowStock(ctx context.Context, threshold int) ([]*models.InventoryItem, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	var out []*models.InventoryItem
	for _, item := range st.items {
		low := item.IsLowStock()
		if threshold > 0 {
			low = item.QuantityAvailable <= threshold
		}
		if low {
			v := *item
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuantityAvailable != out[j].QuantityAvailable {
			return out[i].QuantityAvailable < out[j].QuantityAvailable
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *itemRepo) DecrementAvailable(ctx context.Context, id uuid.UUID, qty int, at time.Time) (bool, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	item, ok := st.items[id]
	if !ok || item.Status != models.ItemStatusAvailable || item.QuantityAvailable < qty {
		return false, nil
	}
	item.QuantityAvailable -= qty
	item.UpdatedAt = at
	return true, nil
}

func (r *itemRepo) IncrementAvailable(ctx context.Context, id uuid.UUID, qty int, at time.Time) (bool, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	item, ok := st.items[id]
	if !ok || item.QuantityAvailable+qty > item.QuantityTotal {
		return false, nil
	}
	item.QuantityAvailable += qty
	item.UpdatedAt = at
	return true, nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
