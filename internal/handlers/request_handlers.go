package handlers

import (
	"net/http"
	"strings"

	"schoolprops/internal/common"
	"schoolprops/internal/middleware"
	"schoolprops/internal/models"
	"schoolprops/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestHandlers exposes submission, listing and the lifecycle actions.
type RequestHandlers struct {
	lifecycle services.LifecycleService
}

func NewRequestHandlers(lifecycle services.LifecycleService) *RequestHandlers {
	return &RequestHandlers{lifecycle: lifecycle}
}

// SubmitRequest carries the fields of all three request kinds; request_type selects
// which ones apply.
type SubmitRequest struct {
	RequestType models.RequestType `json:"request_type"`
	Location    string             `json:"location"`
	Priority    models.Priority    `json:"priority"`

	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`

	ItemName      string  `json:"item_name"`
	Description   string  `json:"description"`
	EstimatedCost float64 `json:"estimated_cost"`
	PhotoRef      string  `json:"photo_ref"`

	ReportKind       models.ReportKind `json:"report_kind"`
	RelatedRequestID string            `json:"related_request_id"`
}

func (h *RequestHandlers) Submit(c echo.Context) error {
	actor, err := middleware.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	ctx := c.Request().Context()

	var created *models.Request
	switch req.RequestType {
	case models.RequestTypeItem:
		itemID, err := common.ValidateUUID(req.ItemID, "item_id")
		if err != nil {
			return common.SendDomainError(c, err)
		}
		created, err = h.lifecycle.SubmitItemRequest(ctx, actor, &models.SubmitItemInput{
			ItemID:   itemID,
			Quantity: req.Quantity,
			Location: req.Location,
			Priority: req.Priority,
			Notes:    req.Notes,
		})
		if err != nil {
			return common.SendDomainError(c, err)
		}
	case models.RequestTypeCustom:
		if req.PhotoRef != "" {
			if err := services.ValidatePhotoKey(req.PhotoRef); err != nil {
				return common.SendDomainError(c, err)
			}
		}
		created, err = h.lifecycle.SubmitCustomRequest(ctx, actor, &models.SubmitCustomInput{
			ItemName:      req.ItemName,
			Description:   req.Description,
			EstimatedCost: req.EstimatedCost,
			PhotoRef:      req.PhotoRef,
			Location:      req.Location,
			Priority:      req.Priority,
		})
		if err != nil {
			return common.SendDomainError(c, err)
		}
	case models.RequestTypeReport:
		in := &models.SubmitReportInput{
			ItemName:    req.ItemName,
			Kind:        req.ReportKind,
			Description: req.Description,
			PhotoRef:    req.PhotoRef,
			Location:    req.Location,
		}
		if req.RelatedRequestID != "" {
			related, err := common.ValidateUUID(req.RelatedRequestID, "related_request_id")
			if err != nil {
				return common.SendDomainError(c, err)
			}
			in.RelatedRequestID = &related
		}
		if req.PhotoRef != "" {
			if err := services.ValidatePhotoKey(req.PhotoRef); err != nil {
				return common.SendDomainError(c, err)
			}
		}
		created, err = h.lifecycle.SubmitReport(ctx, actor, in)
		if err != nil {
			return common.SendDomainError(c, err)
		}
	default:
		return common.SendValidationError(c, "request_type", "must be one of item, custom, report")
	}
	return c.JSON(http.StatusCreated, created)
}

// ListRequestsRequest represents query parameters for listing requests
type ListRequestsRequest struct {
	Type        string `query:"request_type"`
	Status      string `query:"status"` // comma separated
	Priority    string `query:"priority"`
	RequesterID string `query:"requester_id"`
	ItemID      string `query:"item_id"`
	From        string `query:"from"`
	To          string `query:"to"`
	Limit       int    `query:"limit"`
	Offset      int    `query:"offset"`
}

func (r *ListRequestsRequest) filter() (*models.RequestFilter, error) {
	limit, offset, err := common.ValidatePaginationParams(r.Limit, r.Offset)
	if err != nil {
		return nil, common.NewValidationError("offset", "%s", err.Error())
	}
	f := &models.RequestFilter{Limit: limit, Offset: offset}
	if r.Type != "" {
		t := models.RequestType(r.Type)
		f.Type = &t
	}
	if r.Priority != "" {
		p := models.Priority(r.Priority)
		f.Priority = &p
	}
	for _, s := range strings.Split(r.Status, ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.Statuses = append(f.Statuses, models.RequestStatus(s))
		}
	}
	if r.RequesterID != "" {
		id, err := common.ValidateUUID(r.RequesterID, "requester_id")
		if err != nil {
			return nil, err
		}
		f.RequesterID = &id
	}
	if r.ItemID != "" {
		id, err := common.ValidateUUID(r.ItemID, "item_id")
		if err != nil {
			return nil, err
		}
		f.ItemID = &id
	}
	if r.From != "" {
		from, err := common.ParseRangeStart(r.From, "from")
		if err != nil {
			return nil, err
		}
		f.CreatedFrom = &from
	}
	if r.To != "" {
		to, err := common.ParseDate(r.To, "to")
		if err != nil {
			return nil, err
		}
		f.CreatedBefore = &to
	}
	return f, nil
}

func (h *RequestHandlers) List(c echo.Context) error {
	actor, err := middleware.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req ListRequestsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid query parameters")
	}
	filter, err := req.filter()
	if err != nil {
		return common.SendDomainError(c, err)
	}
	requests, err := h.lifecycle.List(c.Request().Context(), actor, filter)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if requests == nil {
		requests = []*models.Request{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

func (h *RequestHandlers) Get(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		req, err := h.lifecycle.Get(c.Request().Context(), actor, id)
		if err != nil {
			return common.SendDomainError(c, err)
		}
		return c.JSON(http.StatusOK, req)
	})
}

func (h *RequestHandlers) History(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		events, err := h.lifecycle.History(c.Request().Context(), actor, id)
		if err != nil {
			return common.SendDomainError(c, err)
		}
		if events == nil {
			events = []*models.RequestEvent{}
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
	})
}

// withID resolves the caller and the :id path parameter.
func (h *RequestHandlers) withID(c echo.Context, fn func(actor models.Principal, id uuid.UUID) error) error {
	actor, err := middleware.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return fn(actor, id)
}

// reply writes the outcome of a lifecycle action.
func reply(c echo.Context, req *models.Request, err error) error {
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

type assignBody struct {
	DueDate  string `json:"due_date"`
	Quantity *int   `json:"quantity"`
}

type responseBody struct {
	Status        models.RequestStatus `json:"status"`
	AdminResponse string               `json:"admin_response"`
}

type inspectBody struct {
	Pass  *bool  `json:"pass"`
	Notes string `json:"notes"`
}

func (h *RequestHandlers) Approve(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		var body quantityBody
		if err := c.Bind(&body); err != nil {
			return common.SendClientError(c, "Invalid request format")
		}
		req, err := h.lifecycle.Approve(c.Request().Context(), actor, id, body.Quantity)
		return reply(c, req, err)
	})
}

func (h *RequestHandlers) Assign(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		var body assignBody
		if err := c.Bind(&body); err != nil {
			return common.SendClientError(c, "Invalid request format")
		}
		due, err := common.ParseDate(body.DueDate, "due_date")
		if err != nil {
			return common.SendDomainError(c, err)
		}
		req, err := h.lifecycle.Assign(c.Request().Context(), actor, id, due, body.Quantity)
		return reply(c, req, err)
	})
}

func (h *RequestHandlers) ApproveAndAssign(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		var body assignBody
		if err := c.Bind(&body); err != nil {
			return common.SendClientError(c, "Invalid request format")
		}
		due, err := common.ParseDate(body.DueDate, "due_date")
		if err != nil {
			return common.SendDomainError(c, err)
		}
		if body.Quantity == nil {
			return common.SendValidationError(c, "quantity", "is required")
		}
		req, err := h.lifecycle.ApproveAndAssign(c.Request().Context(), actor, id, due, *body.Quantity)
		return reply(c, req, err)
	})
}

func (h *RequestHandlers) Reject(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		var body responseBody
		if err := c.Bind(&body); err != nil {
			return common.SendClientError(c, "Invalid request format")
		}
		req, err := h.lifecycle.Reject(c.Request().Context(), actor, id, body.AdminResponse)
		return reply(c, req, err)
	})
}

func (h *RequestHandlers) Respond(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		var body responseBody
		if err := c.Bind(&body); err != nil {
			return common.SendClientError(c, "Invalid request format")
		}
		req, err := h.lifecycle.Respond(c.Request().Context(), actor, id, body.Status, body.AdminResponse)
		return reply(c, req, err)
	})
}

func (h *RequestHandlers) Return(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		req, err := h.lifecycle.Return(c.Request().Context(), actor, id)
		return reply(c, req, err)
	})
}

func (h *RequestHandlers) Inspect(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		var body inspectBody
		if err := c.Bind(&body); err != nil {
			return common.SendClientError(c, "Invalid request format")
		}
		if body.Pass == nil {
			return common.SendValidationError(c, "pass", "is required")
		}
		result, err := h.lifecycle.Inspect(c.Request().Context(), actor, id, *body.Pass, body.Notes)
		if err != nil {
			return common.SendDomainError(c, err)
		}
		return c.JSON(http.StatusOK, result)
	})
}

func (h *RequestHandlers) Adjust(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		var body quantityBody
		if err := c.Bind(&body); err != nil {
			return common.SendClientError(c, "Invalid request format")
		}
		req, err := h.lifecycle.AdjustAssignment(c.Request().Context(), actor, id, body.Quantity)
		return reply(c, req, err)
	})
}

func (h *RequestHandlers) UpdateReport(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		var body responseBody
		if err := c.Bind(&body); err != nil {
			return common.SendClientError(c, "Invalid request format")
		}
		req, err := h.lifecycle.UpdateReport(c.Request().Context(), actor, id, body.Status, body.AdminResponse)
		return reply(c, req, err)
	})
}

func (h *RequestHandlers) Delete(c echo.Context) error {
	return h.withID(c, func(actor models.Principal, id uuid.UUID) error {
		if err := h.lifecycle.Delete(c.Request().Context(), actor, id); err != nil {
			return common.SendDomainError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	})
}
