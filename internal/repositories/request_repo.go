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

type RequestRepository interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Request, error)
	Update(ctx context.Context, req *models.Request) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter *models.RequestFilter) ([]*models.Request, error)
	AppendEvent(ctx context.Context, event *models.RequestEvent) error
	ListEvents(ctx context.Context, requestID uuid.UUID) ([]*models.RequestEvent, error)
	// SumCommittedCustomCost sums estimated costs of custom requests in purchasing or
	// approved status updated after since (all of them when since is nil).
	SumCommittedCustomCost(ctx context.Context, since *time.Time) (float64, error)
	// EscalatePending raises Normal pending item and custom requests created before
	// cutoff to Urgent and returns their ids.
	EscalatePending(ctx context.Context, cutoff, at time.Time) ([]uuid.UUID, error)
}

type requestRepo struct {
	db DBTX
}

func NewRequestRepo(db DBTX) RequestRepository {
	return &requestRepo{db: db}
}

const requestColumns = `id, request_type, requester_id, requester_name, location, status, priority, admin_response, created_at, updated_at,
	item_id, item_name, quantity_requested, quantity_assigned, reservation_id, due_date, assigned_at, returned_at, inspection_status, notes,
	description, estimated_cost, photo_ref, related_request_id, report_kind`

// requestRow is the flat shape of the requests table. Payload columns that do not
// belong to a row's request_type hold their zero values.
type requestRow struct {
	ID                uuid.UUID
	Type              string
	RequesterID       uuid.UUID
	RequesterName     string
	Location          string
	Status            string
	Priority          string
	AdminResponse     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ItemID            *uuid.UUID
	ItemName          string
	QuantityRequested int
	QuantityAssigned  int
	ReservationID     *uuid.UUID
	DueDate           *time.Time
	AssignedAt        *time.Time
	ReturnedAt        *time.Time
	InspectionStatus  string
	Notes             string
	Description       string
	EstimatedCost     float64
	PhotoRef          string
	RelatedRequestID  *uuid.UUID
	ReportKind        string
}

func (row *requestRow) targets() []any {
	return []any{
		&row.ID, &row.Type, &row.RequesterID, &row.RequesterName, &row.Location, &row.Status, &row.Priority, &row.AdminResponse, &row.CreatedAt, &row.UpdatedAt,
		&row.ItemID, &row.ItemName, &row.QuantityRequested, &row.QuantityAssigned, &row.ReservationID, &row.DueDate, &row.AssignedAt, &row.ReturnedAt, &row.InspectionStatus, &row.Notes,
		&row.Description, &row.EstimatedCost, &row.PhotoRef, &row.RelatedRequestID, &row.ReportKind,
	}
}

func (row *requestRow) values() []any {
	return []any{
		row.ID, row.Type, row.RequesterID, row.RequesterName, row.Location, row.Status, row.Priority, row.AdminResponse, row.CreatedAt, row.UpdatedAt,
		row.ItemID, row.ItemName, row.QuantityRequested, row.QuantityAssigned, row.ReservationID, row.DueDate, row.AssignedAt, row.ReturnedAt, row.InspectionStatus, row.Notes,
		row.Description, row.EstimatedCost, row.PhotoRef, row.RelatedRequestID, row.ReportKind,
	}
}

func (row *requestRow) toModel() *models.Request {
	req := &models.Request{
		ID:            row.ID,
		Type:          models.RequestType(row.Type),
		RequesterID:   row.RequesterID,
		RequesterName: row.RequesterName,
		Location:      row.Location,
		Status:        models.RequestStatus(row.Status),
		Priority:      models.Priority(row.Priority),
		AdminResponse: row.AdminResponse,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	switch req.Type {
	case models.RequestTypeItem:
		details := &models.ItemDetails{
			ItemName:          row.ItemName,
			QuantityRequested: row.QuantityRequested,
			QuantityAssigned:  row.QuantityAssigned,
			ReservationID:     row.ReservationID,
			DueDate:           row.DueDate,
			AssignedAt:        row.AssignedAt,
			ReturnedAt:        row.ReturnedAt,
			InspectionStatus:  models.InspectionStatus(row.InspectionStatus),
			Notes:             row.Notes,
		}
		if row.ItemID != nil {
			details.ItemID = *row.ItemID
		}
		req.Item = details
	case models.RequestTypeCustom:
		req.Custom = &models.CustomDetails{
			ItemName:      row.ItemName,
			Description:   row.Description,
			EstimatedCost: row.EstimatedCost,
			PhotoRef:      row.PhotoRef,
		}
	case models.RequestTypeReport:
		req.Report = &models.ReportDetails{
			ItemName:         row.ItemName,
			RelatedRequestID: row.RelatedRequestID,
			Kind:             models.ReportKind(row.ReportKind),
			Description:      row.Description,
			PhotoRef:         row.PhotoRef,
		}
	}
	return req
}

func requestRowFrom(req *models.Request) *requestRow {
	row := &requestRow{
		ID:               req.ID,
		Type:             string(req.Type),
		RequesterID:      req.RequesterID,
		RequesterName:    req.RequesterName,
		Location:         req.Location,
		Status:           string(req.Status),
		Priority:         string(req.Priority),
		AdminResponse:    req.AdminResponse,
		CreatedAt:        req.CreatedAt,
		UpdatedAt:        req.UpdatedAt,
		InspectionStatus: string(models.InspectionNone),
		ItemName:         req.DisplayName(),
	}
	switch {
	case req.Item != nil:
		itemID := req.Item.ItemID
		row.ItemID = &itemID
		row.QuantityRequested = req.Item.QuantityRequested
		row.QuantityAssigned = req.Item.QuantityAssigned
		row.ReservationID = req.Item.ReservationID
		row.DueDate = req.Item.DueDate
		row.AssignedAt = req.Item.AssignedAt
		row.ReturnedAt = req.Item.ReturnedAt
		if req.Item.InspectionStatus != "" {
			row.InspectionStatus = string(req.Item.InspectionStatus)
		}
		row.Notes = req.Item.Notes
	case req.Custom != nil:
		row.Description = req.Custom.Description
		row.EstimatedCost = req.Custom.EstimatedCost
		row.PhotoRef = req.Custom.PhotoRef
	case req.Report != nil:
		row.RelatedRequestID = req.Report.RelatedRequestID
		row.ReportKind = string(req.Report.Kind)
		row.Description = req.Report.Description
		row.PhotoRef = req.Report.PhotoRef
	}
	return row
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var r requestRow
	if err := row.Scan(r.targets()...); err != nil {
		return nil, err
	}
	return r.toModel(), nil
}

func (r *requestRepo) Create(ctx context.Context, req *models.Request) error {
	if err := req.CheckShape(); err != nil {
		return err
	}
	query := `
		INSERT INTO requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`
	_, err := r.db.Exec(ctx, query, requestRowFrom(req).values()...)
	return err
}

func (r *requestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
}

// GetByIDForUpdate locks the row until the surrounding transaction ends.
func (r *requestRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *requestRepo) get(ctx context.Context, query string, id uuid.UUID) (*models.Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("request %s: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return req, nil
}

// Update rewrites the mutable columns. Type, requester and created_at never change.
func (r *requestRepo) Update(ctx context.Context, req *models.Request) error {
	row := requestRowFrom(req)
	query := `
		UPDATE requests
		SET location = $1, status = $2, priority = $3, admin_response = $4, updated_at = $5,
			quantity_requested = $6, quantity_assigned = $7, reservation_id = $8, due_date = $9,
			assigned_at = $10, returned_at = $11, inspection_status = $12, notes = $13,
			description = $14, estimated_cost = $15, photo_ref = $16
		WHERE id = $17
	`
	tag, err := r.db.Exec(ctx, query,
		row.Location, row.Status, row.Priority, row.AdminResponse, row.UpdatedAt,
		row.QuantityRequested, row.QuantityAssigned, row.ReservationID, row.DueDate,
		row.AssignedAt, row.ReturnedAt, row.InspectionStatus, row.Notes,
		row.Description, row.EstimatedCost, row.PhotoRef,
		row.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request %s: %w", req.ID, common.ErrNotFound)
	}
	return nil
}

func (r *requestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *requestRepo) List(ctx context.Context, filter *models.RequestFilter) ([]*models.Request, error) {
	if filter == nil {
		filter = &models.RequestFilter{}
	}

	query := `SELECT ` + requestColumns + ` FROM requests WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Type != nil {
		n++
		query += fmt.Sprintf(` AND request_type = $%d`, n)
		args = append(args, string(*filter.Type))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		n++
		query += fmt.Sprintf(` AND status = ANY($%d)`, n)
		args = append(args, statuses)
	}
	if filter.Priority != nil {
		n++
		query += fmt.Sprintf(` AND priority = $%d`, n)
		args = append(args, string(*filter.Priority))
	}
	if filter.RequesterID != nil {
		n++
		query += fmt.Sprintf(` AND requester_id = $%d`, n)
		args = append(args, *filter.RequesterID)
	}
	if filter.ItemID != nil {
		n++
		query += fmt.Sprintf(` AND item_id = $%d`, n)
		args = append(args, *filter.ItemID)
	}
	if filter.CreatedFrom != nil {
		n++
		query += fmt.Sprintf(` AND created_at >= $%d`, n)
		args = append(args, *filter.CreatedFrom)
	}
	if filter.CreatedBefore != nil {
		n++
		query += fmt.Sprintf(` AND created_at < $%d`, n)
		args = append(args, *filter.CreatedBefore)
	}

	query += ` ORDER BY created_at DESC, id ASC`
	if filter.Limit > 0 {
		n++
		query += fmt.Sprintf(` LIMIT $%d`, n)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(` OFFSET $%d`, n)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *requestRepo) AppendEvent(ctx context.Context, event *models.RequestEvent) error {
	query := `
		INSERT INTO request_events (id, request_id, from_status, to_status, actor_id, note, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, event.ID, event.RequestID, string(event.FromStatus), string(event.ToStatus), event.ActorID, event.Note, event.At)
	return err
}

func (r *requestRepo) ListEvents(ctx context.Context, requestID uuid.UUID) ([]*models.RequestEvent, error) {
	query := `
		SELECT id, request_id, from_status, to_status, actor_id, note, at
		FROM request_events
		WHERE request_id = $1
		ORDER BY at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.RequestEvent
	for rows.Next() {
		e := &models.RequestEvent{}
		var from, to string
		if err := rows.Scan(&e.ID, &e.RequestID, &from, &to, &e.ActorID, &e.Note, &e.At); err != nil {
			return nil, err
		}
		e.FromStatus = models.RequestStatus(from)
		e.ToStatus = models.RequestStatus(to)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *requestRepo) SumCommittedCustomCost(ctx context.Context, since *time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(estimated_cost), 0)::float8
		FROM requests
		WHERE request_type = 'custom' AND status IN ('purchasing', 'approved')
			AND ($1::timestamptz IS NULL OR updated_at > $1)
	`
	var total float64
	if err := r.db.QueryRow(ctx, query, since).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *requestRepo) EscalatePending(ctx context.Context, cutoff, at time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE requests
		SET priority = 'urgent', updated_at = $1
		WHERE status = 'pending' AND priority = 'normal'
			AND request_type IN ('item', 'custom') AND created_at < $2
		RETURNING id
	`
	rows, err := r.db.Query(ctx, query, at, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
