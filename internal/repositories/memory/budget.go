package memory

import (
	"context"
	"sort"
	"time"

	"schoolprops/internal/models"
)

type budgetRepo struct {
	v *view
}

func (r *budgetRepo) Get(ctx context.Context) (*models.Budget, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	if st.budget == nil {
		return &models.Budget{}, nil
	}
	return cloneBudget(st.budget), nil
}

func (r *budgetRepo) GetForUpdate(ctx context.Context) (*models.Budget, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	if st.budget == nil {
		st.budget = &models.Budget{UpdatedAt: time.Now().UTC()}
	}
	return cloneBudget(st.budget), nil
}

func (r *budgetRepo) Save(ctx context.Context, budget *models.Budget) error {
	st, unlock := r.v.acquire()
	defer unlock()

	st.budget = cloneBudget(budget)
	return nil
}

func (r *budgetRepo) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	st, unlock := r.v.acquire()
	defer unlock()

	p := *purchase
	st.purchases = append(st.purchases, &p)
	return nil
}

func (r *budgetRepo) SumPurchases(ctx context.Context, since *time.Time) (float64, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	var total float64
	for _, p := range st.purchases {
		if since != nil && !p.RecordedAt.After(*since) {
			continue
		}
		total += p.Amount
	}
	return total, nil
}

func (r *budgetRepo) ListPurchases(ctx context.Context, limit, offset int) ([]*models.Purchase, error) {
	st, unlock := r.v.acquire()
	defer unlock()

	out := make([]*models.Purchase, 0, len(st.purchases))
	for _, p := range st.purchases {
		v := *p
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return page(out, limit, offset), nil
}
