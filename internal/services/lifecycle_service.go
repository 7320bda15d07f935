package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schoolprops/internal/common"
	"schoolprops/internal/models"
	"schoolprops/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxRequestQuantity = 10000

// LifecycleService moves requests through their status flows. Every action runs
// in one transaction that locks the request row before checking guards, so a
// transition and the reservation it triggers commit together.
type LifecycleService interface {
	SubmitItemRequest(ctx context.Context, actor models.Principal, in *models.SubmitItemInput) (*models.Request, error)
	SubmitCustomRequest(ctx context.Context, actor models.Principal, in *models.SubmitCustomInput) (*models.Request, error)
	SubmitReport(ctx context.Context, actor models.Principal, in *models.SubmitReportInput) (*models.Request, error)

	Approve(ctx context.Context, actor models.Principal, id uuid.UUID, qty int) (*models.Request, error)
	Assign(ctx context.Context, actor models.Principal, id uuid.UUID, dueDate time.Time, qty *int) (*models.Request, error)
	ApproveAndAssign(ctx context.Context, actor models.Principal, id uuid.UUID, dueDate time.Time, qty int) (*models.Request, error)
	Reject(ctx context.Context, actor models.Principal, id uuid.UUID, response string) (*models.Request, error)
	Respond(ctx context.Context, actor models.Principal, id uuid.UUID, status models.RequestStatus, response string) (*models.Request, error)
	Return(ctx context.Context, actor models.Principal, id uuid.UUID) (*models.Request, error)
	Inspect(ctx context.Context, actor models.Principal, id uuid.UUID, pass bool, notes string) (*models.InspectionResult, error)
	AdjustAssignment(ctx context.Context, actor models.Principal, id uuid.UUID, qty int) (*models.Request, error)
	UpdateReport(ctx context.Context, actor models.Principal, id uuid.UUID, status models.RequestStatus, response string) (*models.Request, error)
	Delete(ctx context.Context, actor models.Principal, id uuid.UUID) error

	Get(ctx context.Context, actor models.Principal, id uuid.UUID) (*models.Request, error)
	List(ctx context.Context, actor models.Principal, filter *models.RequestFilter) ([]*models.Request, error)
	History(ctx context.Context, actor models.Principal, id uuid.UUID) ([]*models.RequestEvent, error)

	EscalateStale(ctx context.Context, after time.Duration) ([]uuid.UUID, error)
	Overdue(ctx context.Context) ([]*models.Request, error)
}

type lifecycleService struct {
	store     repositories.Store
	inventory InventoryService
	budget    BudgetService
	now       Clock
}

func NewLifecycleService(store repositories.Store, inventory InventoryService, budget BudgetService, clock Clock) LifecycleService {
	if clock == nil {
		clock = systemClock
	}
	return &lifecycleService{
		store:     store,
		inventory: inventory,
		budget:    budget,
		now:       clock,
	}
}

// step describes one lifecycle action.
type step struct {
	name  string
	admin bool // otherwise only the owning teacher may act
	types []models.RequestType
	from  []models.RequestStatus
	to    models.RequestStatus
	note  string
	// stay allows a request to remain in its current status, e.g. a quantity change.
	stay bool
}

// txn is what an action's effect sees while its transaction is open.
type txn struct {
	repos   repositories.Repositories
	now     time.Time
	touched []uuid.UUID
}

func (t *txn) touch(itemID uuid.UUID) {
	t.touched = append(t.touched, itemID)
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// blocked explains why req cannot take st: a request already past every
// allowed source status was processed by someone else.
func blocked(req *models.Request, st step) error {
	current := models.StatusRank(req.Type, req.Status)
	highest := -1
	for _, s := range st.from {
		if r := models.StatusRank(req.Type, s); r > highest {
			highest = r
		}
	}
	if models.IsTerminal(req.Type, req.Status) || (highest >= 0 && current > highest) {
		return fmt.Errorf("cannot %s request %s in status %s: %w", st.name, req.ID, req.Status, common.ErrAlreadyProcessed)
	}
	return fmt.Errorf("cannot %s request %s in status %s: %w", st.name, req.ID, req.Status, common.ErrInvalidTransition)
}

func (s *lifecycleService) run(ctx context.Context, actor models.Principal, id uuid.UUID, st step, apply func(ctx context.Context, tx *txn, req *models.Request) error) (*models.Request, error) {
	if st.admin && !actor.IsAdmin() {
		return nil, fmt.Errorf("%s requires an administrator: %w", st.name, common.ErrForbidden)
	}

	var out *models.Request
	tx := &txn{}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		tx.repos = repos
		tx.now = s.now()
		tx.touched = tx.touched[:0]

		req, err := repos.Requests.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !st.admin && !actor.Owns(req) {
			return fmt.Errorf("%s is limited to the requesting teacher: %w", st.name, common.ErrForbidden)
		}
		if !contains(st.types, req.Type) {
			return fmt.Errorf("cannot %s a %s request: %w", st.name, req.Type, common.ErrInvalidTransition)
		}
		if models.IsTerminal(req.Type, req.Status) || !contains(st.from, req.Status) {
			return blocked(req, st)
		}
		if !(st.stay && req.Status == st.to) && !models.CanTransition(req.Type, req.Status, st.to) {
			return fmt.Errorf("cannot move request %s from %s to %s: %w", req.ID, req.Status, st.to, common.ErrInvalidTransition)
		}

		from := req.Status
		if apply != nil {
			if err := apply(ctx, tx, req); err != nil {
				return err
			}
		}
		req.Status = st.to
		req.UpdatedAt = tx.now

		if err := repos.Requests.Update(ctx, req); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		event := &models.RequestEvent{
			ID:         uuid.New(),
			RequestID:  req.ID,
			FromStatus: from,
			ToStatus:   st.to,
			ActorID:    actor.ID,
			Note:       st.note,
			At:         tx.now,
		}
		if err := repos.Requests.AppendEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to record request event: %w", err)
		}
		if req.Type == models.RequestTypeCustom && (models.CommittedSpend(from) || models.CommittedSpend(st.to)) {
			if _, err := s.budget.RecalculateTx(ctx, repos); err != nil {
				return err
			}
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, itemID := range tx.touched {
		s.inventory.InvalidateItem(ctx, itemID)
	}
	log.Info().
		Str("request_id", out.ID.String()).
		Str("action", st.name).
		Str("status", string(out.Status)).
		Str("actor_id", actor.ID.String()).
		Msg("Request transition applied")
	return out, nil
}

// releaseHeld gives back everything still reserved for req. Missing or already
// released reservations are logged and skipped.
func (s *lifecycleService) releaseHeld(ctx context.Context, tx *txn, req *models.Request) error {
	if req.Item == nil || req.Item.ReservationID == nil {
		return nil
	}
	res, err := s.inventory.ReleaseTx(ctx, tx.repos, *req.Item.ReservationID, 0)
	switch {
	case err == nil:
		tx.touch(res.ItemID)
		return nil
	case isAlreadyReleased(err), errors.Is(err, common.ErrNotFound):
		log.Warn().Err(err).Str("request_id", req.ID.String()).Msg("Reservation was not held, nothing to release")
		return nil
	}
	return err
}

func validateDueDate(due, now time.Time) error {
	if due.IsZero() {
		return common.NewValidationError("due_date", "is required")
	}
	if !due.After(now) {
		return common.NewValidationError("due_date", "must be in the future")
	}
	return nil
}

func validateAssignQty(qty, requested int) error {
	if qty < 1 || qty > requested {
		return common.NewValidationError("quantity", "must be between 1 and the requested quantity %d", requested)
	}
	return nil
}

func (s *lifecycleService) reserveFor(ctx context.Context, tx *txn, req *models.Request, qty int) error {
	if err := validateAssignQty(qty, req.Item.QuantityRequested); err != nil {
		return err
	}
	res, err := s.inventory.ReserveTx(ctx, tx.repos, req.Item.ItemID, &req.ID, qty)
	if err != nil {
		return err
	}
	tx.touch(res.ItemID)
	req.Item.ReservationID = &res.ID
	req.Item.QuantityAssigned = qty
	return nil
}

var itemOnly = []models.RequestType{models.RequestTypeItem}

func (s *lifecycleService) Approve(ctx context.Context, actor models.Principal, id uuid.UUID, qty int) (*models.Request, error) {
	st := step{name: "approve", admin: true, types: itemOnly, from: []models.RequestStatus{models.StatusPending}, to: models.StatusApproved}
	return s.run(ctx, actor, id, st, func(ctx context.Context, tx *txn, req *models.Request) error {
		return s.reserveFor(ctx, tx, req, qty)
	})
}

func (s *lifecycleService) Assign(ctx context.Context, actor models.Principal, id uuid.UUID, dueDate time.Time, qty *int) (*models.Request, error) {
	st := step{name: "assign", admin: true, types: itemOnly, from: []models.RequestStatus{models.StatusApproved}, to: models.StatusAssigned}
	return s.run(ctx, actor, id, st, func(ctx context.Context, tx *txn, req *models.Request) error {
		if err := validateDueDate(dueDate, tx.now); err != nil {
			return err
		}
		if req.Item.ReservationID == nil {
			return fmt.Errorf("approved request %s holds no reservation: %w", req.ID, common.ErrInvalidTransition)
		}
		if qty != nil && *qty != req.Item.QuantityAssigned {
			if err := validateAssignQty(*qty, req.Item.QuantityRequested); err != nil {
				return err
			}
			res, err := s.inventory.AdjustAssignedTx(ctx, tx.repos, *req.Item.ReservationID, req.Item.QuantityAssigned, *qty)
			if err != nil {
				return err
			}
			tx.touch(res.ItemID)
			req.Item.QuantityAssigned = *qty
		}
		due, assignedAt := dueDate.UTC(), tx.now
		req.Item.DueDate = &due
		req.Item.AssignedAt = &assignedAt
		return nil
	})
}

func (s *lifecycleService) ApproveAndAssign(ctx context.Context, actor models.Principal, id uuid.UUID, dueDate time.Time, qty int) (*models.Request, error) {
	st := step{name: "approve and assign", admin: true, types: itemOnly, from: []models.RequestStatus{models.StatusPending}, to: models.StatusAssigned}
	return s.run(ctx, actor, id, st, func(ctx context.Context, tx *txn, req *models.Request) error {
		if err := validateDueDate(dueDate, tx.now); err != nil {
			return err
		}
		if err := s.reserveFor(ctx, tx, req, qty); err != nil {
			return err
		}
		due, assignedAt := dueDate.UTC(), tx.now
		req.Item.DueDate = &due
		req.Item.AssignedAt = &assignedAt
		return nil
	})
}

func (s *lifecycleService) Reject(ctx context.Context, actor models.Principal, id uuid.UUID, response string) (*models.Request, error) {
	if err := common.ValidateOptionalString(response, "admin_response", 2000); err != nil {
		return nil, err
	}
	st := step{
		name:  "reject",
		admin: true,
		types: []models.RequestType{models.RequestTypeItem, models.RequestTypeCustom, models.RequestTypeReport},
		from: []models.RequestStatus{
			models.StatusPending, models.StatusApproved, models.StatusUnderReview,
			models.StatusPurchasing, models.StatusInProgress,
		},
		to:   models.StatusRejected,
		note: response,
	}
	return s.run(ctx, actor, id, st, func(ctx context.Context, tx *txn, req *models.Request) error {
		if err := s.releaseHeld(ctx, tx, req); err != nil {
			return err
		}
		if response != "" {
			req.AdminResponse = response
		}
		return nil
	})
}

func (s *lifecycleService) Respond(ctx context.Context, actor models.Principal, id uuid.UUID, status models.RequestStatus, response string) (*models.Request, error) {
	switch status {
	case models.StatusUnderReview, models.StatusPurchasing, models.StatusApproved, models.StatusRejected:
	default:
		return nil, common.NewValidationError("status", "must be one of under_review, purchasing, approved, rejected")
	}
	if err := common.ValidateOptionalString(response, "admin_response", 2000); err != nil {
		return nil, err
	}
	st := step{
		name:  "respond to",
		admin: true,
		types: []models.RequestType{models.RequestTypeCustom},
		from:  []models.RequestStatus{models.StatusPending, models.StatusUnderReview, models.StatusPurchasing},
		to:    status,
		note:  response,
		stay:  true,
	}
	return s.run(ctx, actor, id, st, func(ctx context.Context, tx *txn, req *models.Request) error {
		req.AdminResponse = response
		return nil
	})
}

func (s *lifecycleService) Return(ctx context.Context, actor models.Principal, id uuid.UUID) (*models.Request, error) {
	st := step{name: "return", types: itemOnly, from: []models.RequestStatus{models.StatusAssigned}, to: models.StatusReturnedPendingInspection}
	return s.run(ctx, actor, id, st, func(ctx context.Context, tx *txn, req *models.Request) error {
		returnedAt := tx.now
		req.Item.ReturnedAt = &returnedAt
		req.Item.InspectionStatus = models.InspectionPending
		return nil
	})
}

func (s *lifecycleService) Inspect(ctx context.Context, actor models.Principal, id uuid.UUID, pass bool, notes string) (*models.InspectionResult, error) {
	if err := common.ValidateOptionalString(notes, "notes", 2000); err != nil {
		return nil, err
	}
	st := step{name: "inspect", admin: true, types: itemOnly, from: []models.RequestStatus{models.StatusReturnedPendingInspection}, to: models.StatusClosed, note: notes}
	req, err := s.run(ctx, actor, id, st, func(ctx context.Context, tx *txn, req *models.Request) error {
		if notes != "" {
			req.AdminResponse = notes
		}
		if !pass {
			req.Item.InspectionStatus = models.InspectionFailed
			return nil
		}
		req.Item.InspectionStatus = models.InspectionPassed
		return s.releaseHeld(ctx, tx, req)
	})
	if err != nil {
		return nil, err
	}

	result := &models.InspectionResult{Request: req}
	if !pass {
		description := notes
		if description == "" {
			description = "Failed inspection on return"
		}
		related := req.ID
		result.SuggestedReport = &models.SubmitReportInput{
			ItemName:         req.Item.ItemName,
			Kind:             models.ReportKindDamaged,
			Description:      description,
			RelatedRequestID: &related,
			Location:         req.Location,
		}
	}
	return result, nil
}

func (s *lifecycleService) AdjustAssignment(ctx context.Context, actor models.Principal, id uuid.UUID, qty int) (*models.Request, error) {
	st := step{
		name:  "adjust",
		admin: true,
		types: itemOnly,
		from:  []models.RequestStatus{models.StatusAssigned},
		to:    models.StatusAssigned,
		note:  fmt.Sprintf("assigned quantity set to %d", qty),
		stay:  true,
	}
	return s.run(ctx, actor, id, st, func(ctx context.Context, tx *txn, req *models.Request) error {
		if err := validateAssignQty(qty, req.Item.QuantityRequested); err != nil {
			return err
		}
		if req.Item.ReservationID == nil {
			return fmt.Errorf("assigned request %s holds no reservation: %w", req.ID, common.ErrInvalidTransition)
		}
		res, err := s.inventory.AdjustAssignedTx(ctx, tx.repos, *req.Item.ReservationID, req.Item.QuantityAssigned, qty)
		if err != nil {
			return err
		}
		tx.touch(res.ItemID)
		req.Item.QuantityAssigned = qty
		return nil
	})
}

func (s *lifecycleService) UpdateReport(ctx context.Context, actor models.Principal, id uuid.UUID, status models.RequestStatus, response string) (*models.Request, error) {
	switch status {
	case models.StatusUnderReview, models.StatusInProgress, models.StatusResolved, models.StatusRejected:
	default:
		return nil, common.NewValidationError("status", "must be one of under_review, in_progress, resolved, rejected")
	}
	if err := common.ValidateOptionalString(response, "admin_response", 2000); err != nil {
		return nil, err
	}
	st := step{
		name:  "update report",
		admin: true,
		types: []models.RequestType{models.RequestTypeReport},
		from:  []models.RequestStatus{models.StatusPending, models.StatusUnderReview, models.StatusInProgress},
		to:    status,
		note:  response,
		stay:  true,
	}
	return s.run(ctx, actor, id, st, func(ctx context.Context, tx *txn, req *models.Request) error {
		if response != "" {
			req.AdminResponse = response
		}
		return nil
	})
}

// Delete removes a request in any status. Stock held by an approved, assigned or
// returned request goes back to the item first; a closed request that failed
// inspection keeps its stock held.
func (s *lifecycleService) Delete(ctx context.Context, actor models.Principal, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("delete requires an administrator: %w", common.ErrForbidden)
	}

	tx := &txn{}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		tx.repos = repos
		tx.now = s.now()
		tx.touched = tx.touched[:0]

		req, err := repos.Requests.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.HoldsReservation() {
			if err := s.releaseHeld(ctx, tx, req); err != nil {
				return err
			}
		}
		if err := repos.Reservations.DetachRequest(ctx, id); err != nil {
			return fmt.Errorf("failed to detach reservations: %w", err)
		}
		if err := repos.Requests.Delete(ctx, id); err != nil {
			return err
		}
		if req.Type == models.RequestTypeCustom && models.CommittedSpend(req.Status) {
			if _, err := s.budget.RecalculateTx(ctx, repos); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, itemID := range tx.touched {
		s.inventory.InvalidateItem(ctx, itemID)
	}
	log.Info().Str("request_id", id.String()).Str("actor_id", actor.ID.String()).Msg("Request deleted")
	return nil
}

func (s *lifecycleService) requireTeacher(actor models.Principal) error {
	if actor.Role != models.RoleTeacher {
		return fmt.Errorf("only teachers submit requests: %w", common.ErrForbidden)
	}
	return nil
}

func normalizePriority(p models.Priority) (models.Priority, error) {
	if p == "" {
		return models.PriorityNormal, nil
	}
	if !p.Valid() {
		return "", common.NewValidationError("priority", "must be normal or urgent")
	}
	return p, nil
}

func (s *lifecycleService) create(ctx context.Context, actor models.Principal, req *models.Request, prepare func(ctx context.Context, repos repositories.Repositories) error) (*models.Request, error) {
	now := s.now()
	req.ID = uuid.New()
	req.RequesterID = actor.ID
	req.RequesterName = actor.Name
	req.Status = models.StatusPending
	req.CreatedAt = now
	req.UpdatedAt = now

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if prepare != nil {
			if err := prepare(ctx, repos); err != nil {
				return err
			}
		}
		if err := repos.Requests.Create(ctx, req); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		return repos.Requests.AppendEvent(ctx, &models.RequestEvent{
			ID:        uuid.New(),
			RequestID: req.ID,
			ToStatus:  models.StatusPending,
			ActorID:   actor.ID,
			At:        now,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("request_id", req.ID.String()).Str("request_type", string(req.Type)).Msg("Request submitted")
	return req, nil
}

func (s *lifecycleService) SubmitItemRequest(ctx context.Context, actor models.Principal, in *models.SubmitItemInput) (*models.Request, error) {
	if err := s.requireTeacher(actor); err != nil {
		return nil, err
	}
	if err := common.ValidatePositiveInteger(in.Quantity, "quantity", maxRequestQuantity); err != nil {
		return nil, err
	}
	if err := common.ValidateOptionalString(in.Location, "location", 200); err != nil {
		return nil, err
	}
	if err := common.ValidateOptionalString(in.Notes, "notes", 2000); err != nil {
		return nil, err
	}
	priority, err := normalizePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	req := &models.Request{
		Type:     models.RequestTypeItem,
		Location: strings.TrimSpace(in.Location),
		Priority: priority,
		Item: &models.ItemDetails{
			ItemID:            in.ItemID,
			QuantityRequested: in.Quantity,
			InspectionStatus:  models.InspectionNone,
			Notes:             in.Notes,
		},
	}
	return s.create(ctx, actor, req, func(ctx context.Context, repos repositories.Repositories) error {
		item, err := repos.Items.GetByID(ctx, in.ItemID)
		if err != nil {
			return err
		}
		req.Item.ItemName = item.Name
		return nil
	})
}

func (s *lifecycleService) SubmitCustomRequest(ctx context.Context, actor models.Principal, in *models.SubmitCustomInput) (*models.Request, error) {
	if err := s.requireTeacher(actor); err != nil {
		return nil, err
	}
	if err := common.ValidateRequiredString(in.ItemName, "item_name", 200); err != nil {
		return nil, err
	}
	if err := common.ValidateOptionalString(in.Description, "description", 2000); err != nil {
		return nil, err
	}
	if err := common.ValidateAmount(in.EstimatedCost, "estimated_cost"); err != nil {
		return nil, err
	}
	if err := common.ValidateOptionalString(in.PhotoRef, "photo_ref", 500); err != nil {
		return nil, err
	}
	if err := common.ValidateOptionalString(in.Location, "location", 200); err != nil {
		return nil, err
	}
	priority, err := normalizePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	req := &models.Request{
		Type:     models.RequestTypeCustom,
		Location: strings.TrimSpace(in.Location),
		Priority: priority,
		Custom: &models.CustomDetails{
			ItemName:      strings.TrimSpace(in.ItemName),
			Description:   in.Description,
			EstimatedCost: models.RoundCents(in.EstimatedCost),
			PhotoRef:      in.PhotoRef,
		},
	}
	return s.create(ctx, actor, req, nil)
}

func (s *lifecycleService) SubmitReport(ctx context.Context, actor models.Principal, in *models.SubmitReportInput) (*models.Request, error) {
	if err := s.requireTeacher(actor); err != nil {
		return nil, err
	}
	if !in.Kind.Valid() {
		return nil, common.NewValidationError("report_kind", "must be one of missing, damaged, other")
	}
	if in.RelatedRequestID == nil {
		if err := common.ValidateRequiredString(in.ItemName, "item_name", 200); err != nil {
			return nil, err
		}
	}
	if err := common.ValidateOptionalString(in.Description, "description", 2000); err != nil {
		return nil, err
	}
	if err := common.ValidateOptionalString(in.PhotoRef, "photo_ref", 500); err != nil {
		return nil, err
	}
	if err := common.ValidateOptionalString(in.Location, "location", 200); err != nil {
		return nil, err
	}

	req := &models.Request{
		Type:     models.RequestTypeReport,
		Location: strings.TrimSpace(in.Location),
		Priority: models.PriorityNormal,
		Report: &models.ReportDetails{
			ItemName:         strings.TrimSpace(in.ItemName),
			RelatedRequestID: in.RelatedRequestID,
			Kind:             in.Kind,
			Description:      in.Description,
			PhotoRef:         in.PhotoRef,
		},
	}
	return s.create(ctx, actor, req, func(ctx context.Context, repos repositories.Repositories) error {
		if in.RelatedRequestID == nil {
			return nil
		}
		related, err := repos.Requests.GetByID(ctx, *in.RelatedRequestID)
		if err != nil {
			return err
		}
		if !actor.Owns(related) {
			return fmt.Errorf("related request belongs to another teacher: %w", common.ErrForbidden)
		}
		if related.Item == nil || (related.Status != models.StatusAssigned && related.Status != models.StatusReturnedPendingInspection) {
			return common.NewValidationError("related_request_id", "must reference an item assigned to you")
		}
		if req.Report.ItemName == "" {
			req.Report.ItemName = related.Item.ItemName
		}
		return nil
	})
}

func (s *lifecycleService) visible(actor models.Principal, req *models.Request) error {
	if actor.IsAdmin() || actor.Owns(req) {
		return nil
	}
	return fmt.Errorf("request %s: %w", req.ID, common.ErrForbidden)
}

func (s *lifecycleService) Get(ctx context.Context, actor models.Principal, id uuid.UUID) (*models.Request, error) {
	req, err := s.store.Repos().Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.visible(actor, req); err != nil {
		return nil, err
	}
	return req, nil
}

// List returns all matching requests for admins and only the caller's own for teachers.
func (s *lifecycleService) List(ctx context.Context, actor models.Principal, filter *models.RequestFilter) ([]*models.Request, error) {
	if filter == nil {
		filter = &models.RequestFilter{}
	}
	if !actor.IsAdmin() {
		id := actor.ID
		filter.RequesterID = &id
	}
	if filter.Type != nil && !filter.Type.Valid() {
		return nil, common.NewValidationError("request_type", "must be one of item, custom, report")
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, common.NewValidationError("priority", "must be normal or urgent")
	}
	return s.store.Repos().Requests.List(ctx, filter)
}

func (s *lifecycleService) History(ctx context.Context, actor models.Principal, id uuid.UUID) ([]*models.RequestEvent, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.Repos().Requests.ListEvents(ctx, id)
}

// EscalateStale raises Normal pending item and custom requests older than after to Urgent.
func (s *lifecycleService) EscalateStale(ctx context.Context, after time.Duration) ([]uuid.UUID, error) {
	if after <= 0 {
		return nil, common.NewValidationError("after", "must be positive")
	}
	now := s.now()
	var ids []uuid.UUID
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		ids, err = repos.Requests.EscalatePending(ctx, now.Add(-after), now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to escalate stale requests: %w", err)
	}
	return ids, nil
}

// Overdue lists assigned requests whose due date has passed.
func (s *lifecycleService) Overdue(ctx context.Context) ([]*models.Request, error) {
	itemType := models.RequestTypeItem
	assigned, err := s.store.Repos().Requests.List(ctx, &models.RequestFilter{
		Type:     &itemType,
		Statuses: []models.RequestStatus{models.StatusAssigned},
	})
	if err != nil {
		return nil, err
	}
	now := s.now()
	var overdue []*models.Request
	for _, req := range assigned {
		if req.Item != nil && req.Item.DueDate != nil && req.Item.DueDate.Before(now) {
			overdue = append(overdue, req)
		}
	}
	return overdue, nil
}
