package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schoolprops/internal/common"
	"schoolprops/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ItemRepository interface {
	Create(ctx context.Context, item *models.InventoryItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	Update(ctx context.Context, item *models.InventoryItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter *models.ItemFilter) ([]*models.InventoryItem, error)
	LowStock(ctx context.Context, threshold int) ([]*models.InventoryItem, error)
	// DecrementAvailable reports false when the item is not available or holds less than qty.
	DecrementAvailable(ctx context.Context, id uuid.UUID, qty int, at time.Time) (bool, error)
	// IncrementAvailable reports false when availability would exceed the total.
	IncrementAvailable(ctx context.Context, id uuid.UUID, qty int, at time.Time) (bool, error)
}

type itemRepo struct {
	db DBTX
}

func NewItemRepo(db DBTX) ItemRepository {
	return &itemRepo{db: db}
}

const itemColumns = `id, name, category, quantity_total, quantity_available, status, low_stock_threshold, created_at, updated_at`

func scanItem(row pgx.Row) (*models.InventoryItem, error) {
	item := &models.InventoryItem{}
	var status string
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.QuantityTotal, &item.QuantityAvailable, &status, &item.LowStockThreshold, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Status = models.ItemStatus(status)
	return item, nil
}

func (r *itemRepo) Create(ctx context.Context, item *models.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (id, name, category, quantity_total, quantity_available, status, low_stock_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query, item.ID, item.Name, item.Category, item.QuantityTotal, item.QuantityAvailable, string(item.Status), item.LowStockThreshold, item.CreatedAt, item.UpdatedAt)
	return err
}

func (r *itemRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1`
	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item %s: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return item, nil
}

// Update writes the catalog fields. A change of quantity_total shifts
// quantity_available by the same delta and is refused when the new total would
// fall below the reserved count.
func (r *itemRepo) Update(ctx context.Context, item *models.InventoryItem) error {
	query := `
		UPDATE inventory_items
		SET name = $1, category = $2, status = $3, low_stock_threshold = $4,
			quantity_available = quantity_available + ($5 - quantity_total),
			quantity_total = $5, updated_at = $6
		WHERE id = $7 AND quantity_total - quantity_available <= $5
	`
	tag, err := r.db.Exec(ctx, query, item.Name, item.Category, string(item.Status), item.LowStockThreshold, item.QuantityTotal, item.UpdatedAt, item.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, item.ID, common.ErrItemInUse)
	}
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM inventory_items
		WHERE id = $1 AND NOT EXISTS (
			SELECT 1 FROM reservations WHERE item_id = $1 AND released_at IS NULL
		)
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, id, common.ErrItemInUse)
	}
	return nil
}

// missingOr tells a missing row apart from a refused conditional write.
func (r *itemRepo) missingOr(ctx context.Context, id uuid.UUID, refused error) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM inventory_items WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	return fmt.Errorf("item %s: %w", id, refused)
}

func (r *itemRepo) List(ctx context.Context, filter *models.ItemFilter) ([]*models.InventoryItem, error) {
	if filter == nil {
		filter = &models.ItemFilter{}
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}

	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Query != "" {
		n++
		query += fmt.Sprintf(` AND name ILIKE $%d`, n)
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.Category != "" {
		n++
		query += fmt.Sprintf(` AND category = $%d`, n)
		args = append(args, filter.Category)
	}
	if filter.Status != nil {
		n++
		query += fmt.Sprintf(` AND status = $%d`, n)
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY name ASC, id ASC`
	n++
	query += fmt.Sprintf(` LIMIT $%d`, n)
	args = append(args, filter.Limit)
	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(` OFFSET $%d`, n)
		args = append(args, filter.Offset)
	}

	return r.queryItems(ctx, query, args...)
}

// LowStock lists items at or below threshold. A threshold of zero applies each
// item's own low_stock_threshold instead.
func (r *itemRepo) LowStock(ctx context.Context, threshold int) ([]*models.InventoryItem, error) {
	if threshold > 0 {
		query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE quantity_available <= $1 ORDER BY quantity_available ASC, id ASC`
		return r.queryItems(ctx, query, threshold)
	}
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE low_stock_threshold > 0 AND quantity_available <= low_stock_threshold ORDER BY quantity_available ASC, id ASC`
	return r.queryItems(ctx, query)
}

func (r *itemRepo) queryItems(ctx context.Context, query string, args ...interface{}) ([]*models.InventoryItem, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *itemRepo) DecrementAvailable(ctx context.Context, id uuid.UUID, qty int, at time.Time) (bool, error) {
	query := `
		UPDATE inventory_items
		SET quantity_available = quantity_available - $1, updated_at = $2
		WHERE id = $3 AND status = 'available' AND quantity_available >= $1
	`
	tag, err := r.db.Exec(ctx, query, qty, at, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *itemRepo) IncrementAvailable(ctx context.Context, id uuid.UUID, qty int, at time.Time) (bool, error) {
	query := `
		UPDATE inventory_items
		SET quantity_available = quantity_available + $1, updated_at = $2
		WHERE id = $3 AND quantity_available + $1 <= quantity_total
	`
	tag, err := r.db.Exec(ctx, query, qty, at, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
