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

type ReservationRepository interface {
	Create(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, qty int) error
	// MarkReleased reports false when the reservation was already released.
	MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	DetachRequest(ctx context.Context, requestID uuid.UUID) error
	ListActiveByItem(ctx context.Context, itemID uuid.UUID) ([]*models.Reservation, error)
}

type reservationRepo struct {
	db DBTX
}

func NewReservationRepo(db DBTX) ReservationRepository {
	return &reservationRepo{db: db}
}

const reservationColumns = `id, item_id, request_id, quantity, created_at, released_at`

func scanReservation(row pgx.Row) (*models.Reservation, error) {
	res := &models.Reservation{}
	if err := row.Scan(&res.ID, &res.ItemID, &res.RequestID, &res.Quantity, &res.CreatedAt, &res.ReleasedAt); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *reservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	query := `
		INSERT INTO reservations (id, item_id, request_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, res.ID, res.ItemID, res.RequestID, res.Quantity, res.CreatedAt)
	return err
}

func (r *reservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

func (r *reservationRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *reservationRepo) get(ctx context.Context, query string, id uuid.UUID) (*models.Reservation, error) {
	res, err := scanReservation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("reservation %s: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return res, nil
}

func (r *reservationRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	query := `UPDATE reservations SET quantity = $1 WHERE id = $2 AND released_at IS NULL`
	tag, err := r.db.Exec(ctx, query, qty, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s: %w", id, common.ErrAlreadyReleased)
	}
	return nil
}

func (r *reservationRepo) MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE reservations SET released_at = $1 WHERE id = $2 AND released_at IS NULL`
	tag, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *reservationRepo) DetachRequest(ctx context.Context, requestID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE reservations SET request_id = NULL WHERE request_id = $1`, requestID)
	return err
}

func (r *reservationRepo) ListActiveByItem(ctx context.Context, itemID uuid.UUID) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE item_id = $1 AND released_at IS NULL ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
