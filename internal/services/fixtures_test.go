package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"schoolprops/internal/caching"
	"schoolprops/internal/models"
	"schoolprops/internal/repositories"
	"schoolprops/internal/repositories/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeClock starts at a fixed instant and only moves when told to.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	store     repositories.Store
	clock     *fakeClock
	inventory InventoryService
	budget    BudgetService
	lifecycle LifecycleService
	admin     models.Principal
	alice     models.Principal
	bob       models.Principal
}

func newEnv() *env {
	return newEnvWith(memory.NewStore())
}

// newEnvWith builds the services over store with a fresh fake clock.
func newEnvWith(store repositories.Store) *env {
	clock := newFakeClock()
	inventory := NewInventoryService(store, caching.NewNoopCacheService(), clock.Now)
	budget := NewBudgetService(store, clock.Now)
	return &env{
		store:     store,
		clock:     clock,
		inventory: inventory,
		budget:    budget,
		lifecycle: NewLifecycleService(store, inventory, budget, clock.Now),
		admin:     models.Principal{ID: uuid.New(), Name: "Office", Role: models.RoleAdmin},
		alice:     models.Principal{ID: uuid.New(), Name: "Alice", Role: models.RoleTeacher},
		bob:       models.Principal{ID: uuid.New(), Name: "Bob", Role: models.RoleTeacher},
	}
}

func (e *env) item(t *testing.T, name string, total, threshold int) *models.InventoryItem {
	t.Helper()
	item, err := e.inventory.CreateItem(context.Background(), &models.InventoryItem{
		Name:              name,
		Category:          "Equipment",
		QuantityTotal:     total,
		LowStockThreshold: threshold,
	})
	require.NoError(t, err)
	return item
}

func (e *env) available(t *testing.T, id uuid.UUID) int {
	t.Helper()
	item, err := e.inventory.GetItem(context.Background(), id)
	require.NoError(t, err)
	return item.QuantityAvailable
}

func (e *env) requestItem(t *testing.T, who models.Principal, itemID uuid.UUID, qty int) *models.Request {
	t.Helper()
	req, err := e.lifecycle.SubmitItemRequest(context.Background(), who, &models.SubmitItemInput{
		ItemID:   itemID,
		Quantity: qty,
		Location: "Room 12",
	})
	require.NoError(t, err)
	return req
}

func (e *env) tomorrow() time.Time {
	return e.clock.Now().Add(24 * time.Hour)
}
