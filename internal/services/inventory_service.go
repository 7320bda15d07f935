package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schoolprops/internal/caching"
	"schoolprops/internal/common"
	"schoolprops/internal/models"
	"schoolprops/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const itemCacheTTL = 5 * time.Minute

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

type InventoryService interface {
	CreateItem(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	ListItems(ctx context.Context, filter *models.ItemFilter) ([]*models.InventoryItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, update *models.ItemUpdate) (*models.InventoryItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	LowStock(ctx context.Context, threshold int) ([]*models.InventoryItem, error)
	ActiveReservations(ctx context.Context, itemID uuid.UUID) ([]*models.Reservation, error)

	// Standalone reservation operations, each in its own transaction.
	Reserve(ctx context.Context, itemID uuid.UUID, requestID *uuid.UUID, qty int) (*models.Reservation, error)
	Release(ctx context.Context, reservationID uuid.UUID, qty int) error
	AdjustAssigned(ctx context.Context, reservationID uuid.UUID, oldQty, newQty int) error

	// The same operations inside a caller's transaction. Callers invalidate the
	// returned reservation's item after commit.
	ReserveTx(ctx context.Context, repos repositories.Repositories, itemID uuid.UUID, requestID *uuid.UUID, qty int) (*models.Reservation, error)
	ReleaseTx(ctx context.Context, repos repositories.Repositories, reservationID uuid.UUID, qty int) (*models.Reservation, error)
	AdjustAssignedTx(ctx context.Context, repos repositories.Repositories, reservationID uuid.UUID, oldQty, newQty int) (*models.Reservation, error)
	InvalidateItem(ctx context.Context, itemID uuid.UUID)
}

type inventoryService struct {
	store        repositories.Store
	cacheService caching.CacheService
	now          Clock
}

func NewInventoryService(store repositories.Store, cacheService caching.CacheService, clock Clock) InventoryService {
	if cacheService == nil {
		cacheService = caching.NewNoopCacheService()
	}
	if clock == nil {
		clock = systemClock
	}
	return &inventoryService{
		store:        store,
		cacheService: cacheService,
		now:          clock,
	}
}

func validateItemFields(name, category string, status models.ItemStatus, total, threshold int) error {
	if err := common.ValidateRequiredString(name, "name", 200); err != nil {
		return err
	}
	if err := common.ValidateOptionalString(category, "category", 100); err != nil {
		return err
	}
	if !status.Valid() {
		return common.NewValidationError("status", "must be one of available, under_maintenance, damaged")
	}
	if total < 0 || total > 1000000 {
		return common.NewValidationError("quantity_total", "must be between 0 and 1,000,000")
	}
	if threshold < 0 {
		return common.NewValidationError("low_stock_threshold", "cannot be negative")
	}
	return nil
}

func (s *inventoryService) CreateItem(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	if item.Status == "" {
		item.Status = models.ItemStatusAvailable
	}
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	if err := validateItemFields(item.Name, item.Category, item.Status, item.QuantityTotal, item.LowStockThreshold); err != nil {
		return nil, err
	}

	now := s.now()
	item.ID = uuid.New()
	item.QuantityAvailable = item.QuantityTotal
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.store.Repos().Items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return item, nil
}

func (s *inventoryService) GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	cached, err := s.cacheService.GetItem(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("item_id", id.String()).Msg("Item cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	item, err := s.store.Repos().Items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cacheService.SetItem(ctx, item, itemCacheTTL); err != nil {
		log.Warn().Err(err).Str("item_id", id.String()).Msg("Item cache write failed")
	}
	return item, nil
}

func (s *inventoryService) ListItems(ctx context.Context, filter *models.ItemFilter) ([]*models.InventoryItem, error) {
	if filter == nil {
		filter = &models.ItemFilter{}
	}
	filter.Query = common.SanitizeSearchQuery(filter.Query)
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, common.NewValidationError("status", "is not a valid item status")
	}
	return s.store.Repos().Items.List(ctx, filter)
}

func (s *inventoryService) UpdateItem(ctx context.Context, id uuid.UUID, update *models.ItemUpdate) (*models.InventoryItem, error) {
	var out *models.InventoryItem
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		item, err := repos.Items.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if update.Name != nil {
			item.Name = strings.TrimSpace(*update.Name)
		}
		if update.Category != nil {
			item.Category = strings.TrimSpace(*update.Category)
		}
		if update.Status != nil {
			item.Status = *update.Status
		}
		if update.QuantityTotal != nil {
			delta := *update.QuantityTotal - item.QuantityTotal
			item.QuantityTotal = *update.QuantityTotal
			item.QuantityAvailable += delta
		}
		if update.LowStockThreshold != nil {
			item.LowStockThreshold = *update.LowStockThreshold
		}
		if err := validateItemFields(item.Name, item.Category, item.Status, item.QuantityTotal, item.LowStockThreshold); err != nil {
			return err
		}
		item.UpdatedAt = s.now()
		if err := repos.Items.Update(ctx, item); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.InvalidateItem(ctx, id)
	return out, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Repos().Items.Delete(ctx, id); err != nil {
		return err
	}
	s.InvalidateItem(ctx, id)
	return nil
}

func (s *inventoryService) LowStock(ctx context.Context, threshold int) ([]*models.InventoryItem, error) {
	if threshold < 0 {
		return nil, common.NewValidationError("threshold", "cannot be negative")
	}
	return s.store.Repos().Items.LowStock(ctx, threshold)
}

func (s *inventoryService) ActiveReservations(ctx context.Context, itemID uuid.UUID) ([]*models.Reservation, error) {
	if _, err := s.store.Repos().Items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.store.Repos().Reservations.ListActiveByItem(ctx, itemID)
}

func (s *inventoryService) Reserve(ctx context.Context, itemID uuid.UUID, requestID *uuid.UUID, qty int) (*models.Reservation, error) {
	var res *models.Reservation
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		res, err = s.ReserveTx(ctx, repos, itemID, requestID, qty)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.InvalidateItem(ctx, itemID)
	return res, nil
}

func (s *inventoryService) Release(ctx context.Context, reservationID uuid.UUID, qty int) error {
	var res *models.Reservation
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		res, err = s.ReleaseTx(ctx, repos, reservationID, qty)
		return err
	})
	if err != nil {
		return err
	}
	s.InvalidateItem(ctx, res.ItemID)
	return nil
}

func (s *inventoryService) AdjustAssigned(ctx context.Context, reservationID uuid.UUID, oldQty, newQty int) error {
	var res *models.Reservation
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		res, err = s.AdjustAssignedTx(ctx, repos, reservationID, oldQty, newQty)
		return err
	})
	if err != nil {
		return err
	}
	s.InvalidateItem(ctx, res.ItemID)
	return nil
}

// ReserveTx decrements availability iff qty fits and records the reservation.
func (s *inventoryService) ReserveTx(ctx context.Context, repos repositories.Repositories, itemID uuid.UUID, requestID *uuid.UUID, qty int) (*models.Reservation, error) {
	if qty < 1 {
		return nil, common.NewValidationError("quantity", "must be at least 1")
	}
	item, err := repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.ItemStatusAvailable {
		return nil, fmt.Errorf("item %s is %s: %w", itemID, item.Status, common.ErrItemUnavailable)
	}

	now := s.now()
	ok, err := repos.Items.DecrementAvailable(ctx, itemID, qty, now)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("item %s has %d available, %d requested: %w", itemID, item.QuantityAvailable, qty, common.ErrInsufficientStock)
	}

	res := &models.Reservation{
		ID:        uuid.New(),
		ItemID:    itemID,
		RequestID: requestID,
		Quantity:  qty,
		CreatedAt: now,
	}
	if err := repos.Reservations.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to record reservation: %w", err)
	}
	return res, nil
}

// ReleaseTx returns qty units to the item. A qty of zero releases the full
// remainder. The reservation is marked released once nothing is left on it.
func (s *inventoryService) ReleaseTx(ctx context.Context, repos repositories.Repositories, reservationID uuid.UUID, qty int) (*models.Reservation, error) {
	res, err := repos.Reservations.GetByIDForUpdate(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !res.Active() {
		return res, fmt.Errorf("reservation %s: %w", reservationID, common.ErrAlreadyReleased)
	}
	if qty == 0 {
		qty = res.Quantity
	}
	if qty < 0 || qty > res.Quantity {
		return nil, common.NewValidationError("quantity", "must be between 1 and %d", res.Quantity)
	}

	now := s.now()
	ok, err := repos.Items.IncrementAvailable(ctx, res.ItemID, qty, now)
	if err != nil {
		return nil, fmt.Errorf("failed to release stock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("release of %d on item %s would exceed its total", qty, res.ItemID)
	}

	if qty == res.Quantity {
		released, err := repos.Reservations.MarkReleased(ctx, reservationID, now)
		if err != nil {
			return nil, err
		}
		if !released {
			return res, fmt.Errorf("reservation %s: %w", reservationID, common.ErrAlreadyReleased)
		}
		res.ReleasedAt = &now
	} else {
		if err := repos.Reservations.UpdateQuantity(ctx, reservationID, res.Quantity-qty); err != nil {
			return nil, err
		}
		res.Quantity -= qty
	}
	return res, nil
}

// AdjustAssignedTx moves an active reservation from oldQty to newQty. oldQty must
// match the stored quantity, otherwise the caller acted on a stale view.
func (s *inventoryService) AdjustAssignedTx(ctx context.Context, repos repositories.Repositories, reservationID uuid.UUID, oldQty, newQty int) (*models.Reservation, error) {
	if newQty < 1 {
		return nil, common.NewValidationError("quantity", "must be at least 1")
	}
	res, err := repos.Reservations.GetByIDForUpdate(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !res.Active() {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, common.ErrAlreadyReleased)
	}
	if res.Quantity != oldQty {
		return nil, fmt.Errorf("reservation %s holds %d, caller expected %d: %w", reservationID, res.Quantity, oldQty, common.ErrAlreadyProcessed)
	}

	now := s.now()
	switch diff := newQty - oldQty; {
	case diff > 0:
		item, err := repos.Items.GetByID(ctx, res.ItemID)
		if err != nil {
			return nil, err
		}
		if item.Status != models.ItemStatusAvailable {
			return nil, fmt.Errorf("item %s is %s: %w", item.ID, item.Status, common.ErrItemUnavailable)
		}
		ok, err := repos.Items.DecrementAvailable(ctx, res.ItemID, diff, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("item %s has %d available, %d more requested: %w", item.ID, item.QuantityAvailable, diff, common.ErrInsufficientStock)
		}
	case diff < 0:
		ok, err := repos.Items.IncrementAvailable(ctx, res.ItemID, -diff, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("release of %d on item %s would exceed its total", -diff, res.ItemID)
		}
	default:
		return res, nil
	}

	if err := repos.Reservations.UpdateQuantity(ctx, reservationID, newQty); err != nil {
		return nil, err
	}
	res.Quantity = newQty
	return res, nil
}

func (s *inventoryService) InvalidateItem(ctx context.Context, itemID uuid.UUID) {
	if err := s.cacheService.DeleteItem(ctx, itemID); err != nil {
		log.Warn().Err(err).Str("item_id", itemID.String()).Msg("Failed to invalidate item cache")
	}
}

// isAlreadyReleased lets lifecycle code downgrade a double release to a warning.
func isAlreadyReleased(err error) bool {
	return errors.Is(err, common.ErrAlreadyReleased)
}
