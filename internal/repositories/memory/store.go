// Package memory implements the repositories against process memory. A single
// mutex serialises every operation; transactions work on a cloned state that is
// swapped in only when the callback succeeds.
package memory

import (
	"context"
	"sync"

	"schoolprops/internal/models"
	"schoolprops/internal/repositories"

	"github.com/google/uuid"
)

type state struct {
	items        map[uuid.UUID]*models.InventoryItem
	reservations map[uuid.UUID]*models.Reservation
	requests     map[uuid.UUID]*models.Request
	events       map[uuid.UUID][]*models.RequestEvent
	budget       *models.Budget
	purchases    []*models.Purchase
}

func newState() *state {
	return &state{
		items:        make(map[uuid.UUID]*models.InventoryItem),
		reservations: make(map[uuid.UUID]*models.Reservation),
		requests:     make(map[uuid.UUID]*models.Request),
		events:       make(map[uuid.UUID][]*models.RequestEvent),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, item := range s.items {
		v := *item
		c.items[id] = &v
	}
	for id, res := range s.reservations {
		c.reservations[id] = cloneReservation(res)
	}
	for id, req := range s.requests {
		c.requests[id] = req.Clone()
	}
	for id, events := range s.events {
		c.events[id] = append([]*models.RequestEvent(nil), events...)
	}
	if s.budget != nil {
		c.budget = cloneBudget(s.budget)
	}
	c.purchases = append([]*models.Purchase(nil), s.purchases...)
	return c
}

// Store is an in-memory repositories.Store.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ repositories.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: newState()}
}

// Repos returns repositories that each lock the store for a single call.
// They must not be used from inside WithinTx.
func (s *Store) Repos() repositories.Repositories {
	return reposFor(&view{store: s})
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	draft := s.st.clone()
	if err := fn(ctx, reposFor(&view{draft: draft})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = draft
	return nil
}

// view resolves the state a repository call works on: the live state under the
// store lock, or a transaction draft already guarded by WithinTx.
type view struct {
	store *Store
	draft *state
}

func (v *view) acquire() (*state, func()) {
	if v.store == nil {
		return v.draft, func() {}
	}
	v.store.mu.Lock()
	return v.store.st, v.store.mu.Unlock
}

func reposFor(v *view) repositories.Repositories {
	return repositories.Repositories{
		Items:        &itemRepo{v: v},
		Reservations: &reservationRepo{v: v},
		Requests:     &requestRepo{v: v},
		Budget:       &budgetRepo{v: v},
	}
}

func cloneReservation(res *models.Reservation) *models.Reservation {
	c := *res
	if res.RequestID != nil {
		id := *res.RequestID
		c.RequestID = &id
	}
	if res.ReleasedAt != nil {
		at := *res.ReleasedAt
		c.ReleasedAt = &at
	}
	return &c
}

func cloneBudget(b *models.Budget) *models.Budget {
	c := *b
	if b.ResetAt != nil {
		at := *b.ResetAt
		c.ResetAt = &at
	}
	return &c
}
