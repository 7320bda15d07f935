package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType tags which payload a Request carries.
type RequestType string

const (
	RequestTypeItem   RequestType = "item"
	RequestTypeCustom RequestType = "custom"
	RequestTypeReport RequestType = "report"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeItem, RequestTypeCustom, RequestTypeReport:
		return true
	}
	return false
}

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityNormal || p == PriorityUrgent
}

type InspectionStatus string

const (
	InspectionNone    InspectionStatus = "none"
	InspectionPending InspectionStatus = "pending"
	InspectionPassed  InspectionStatus = "passed"
	InspectionFailed  InspectionStatus = "failed"
)

type ReportKind string

const (
	ReportKindMissing ReportKind = "missing"
	ReportKindDamaged ReportKind = "damaged"
	ReportKindOther   ReportKind = "other"
)

// Valid reports whether k is a known report kind.
func (k ReportKind) Valid() bool {
	switch k {
	case ReportKindMissing, ReportKindDamaged, ReportKindOther:
		return true
	}
	return false
}

// ItemDetails is the payload of a request for a catalog item.
type ItemDetails struct {
	ItemID            uuid.UUID        `json:"item_id"`
	ItemName          string           `json:"item_name"`
	QuantityRequested int              `json:"quantity_requested"`
	QuantityAssigned  int              `json:"quantity_assigned"`
	ReservationID     *uuid.UUID       `json:"reservation_id,omitempty"`
	DueDate           *time.Time       `json:"due_date,omitempty"`
	AssignedAt        *time.Time       `json:"assigned_at,omitempty"`
	ReturnedAt        *time.Time       `json:"returned_at,omitempty"`
	InspectionStatus  InspectionStatus `json:"inspection_status"`
	Notes             string           `json:"notes,omitempty"`
}

// CustomDetails is the payload of a purchase request for something not in the catalog.
type CustomDetails struct {
	ItemName      string  `json:"item_name"`
	Description   string  `json:"description,omitempty"`
	EstimatedCost float64 `json:"estimated_cost"`
	PhotoRef      string  `json:"photo_ref,omitempty"`
}

// ReportDetails is the payload of an issue report on an assigned item.
type ReportDetails struct {
	ItemName         string     `json:"item_name"`
	RelatedRequestID *uuid.UUID `json:"related_request_id,omitempty"`
	Kind             ReportKind `json:"report_kind"`
	Description      string     `json:"description,omitempty"`
	PhotoRef         string     `json:"photo_ref,omitempty"`
}

// Request is a tagged union: exactly one of Item, Custom or Report is set, matching Type.
type Request struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	Type          RequestType   `json:"request_type" db:"request_type"`
	RequesterID   uuid.UUID     `json:"requester_id" db:"requester_id"`
	RequesterName string        `json:"requester_name" db:"requester_name"`
	Location      string        `json:"location" db:"location"`
	Status        RequestStatus `json:"status" db:"status"`
	Priority      Priority      `json:"priority" db:"priority"`
	AdminResponse string        `json:"admin_response,omitempty" db:"admin_response"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`

	Item   *ItemDetails   `json:"item,omitempty"`
	Custom *CustomDetails `json:"custom,omitempty"`
	Report *ReportDetails `json:"report,omitempty"`
}

// CheckShape verifies that the payload matches the type tag.
func (r *Request) CheckShape() error {
	set := 0
	if r.Item != nil {
		set++
	}
	if r.Custom != nil {
		set++
	}
	if r.Report != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("request %s carries %d payloads, want 1", r.ID, set)
	}
	switch {
	case r.Type == RequestTypeItem && r.Item != nil,
		r.Type == RequestTypeCustom && r.Custom != nil,
		r.Type == RequestTypeReport && r.Report != nil:
		return nil
	}
	return fmt.Errorf("request %s payload does not match type %q", r.ID, r.Type)
}

// DisplayName returns the item name whichever payload is present.
func (r *Request) DisplayName() string {
	switch {
	case r.Item != nil:
		return r.Item.ItemName
	case r.Custom != nil:
		return r.Custom.ItemName
	case r.Report != nil:
		return r.Report.ItemName
	}
	return ""
}

// HoldsReservation reports whether the request currently owns reserved stock that
// would leak if the request disappeared.
func (r *Request) HoldsReservation() bool {
	if r.Item == nil || r.Item.ReservationID == nil {
		return false
	}
	switch r.Status {
	case StatusApproved, StatusAssigned, StatusReturnedPendingInspection:
		return true
	}
	return false
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Item != nil {
		item := *r.Item
		item.ReservationID = cloneUUIDPtr(r.Item.ReservationID)
		item.DueDate = cloneTimePtr(r.Item.DueDate)
		item.AssignedAt = cloneTimePtr(r.Item.AssignedAt)
		item.ReturnedAt = cloneTimePtr(r.Item.ReturnedAt)
		c.Item = &item
	}
	if r.Custom != nil {
		custom := *r.Custom
		c.Custom = &custom
	}
	if r.Report != nil {
		report := *r.Report
		report.RelatedRequestID = cloneUUIDPtr(r.Report.RelatedRequestID)
		c.Report = &report
	}
	return &c
}

// RequestEvent is one entry in a request's status history.
type RequestEvent struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	RequestID  uuid.UUID     `json:"request_id" db:"request_id"`
	FromStatus RequestStatus `json:"from_status" db:"from_status"`
	ToStatus   RequestStatus `json:"to_status" db:"to_status"`
	ActorID    uuid.UUID     `json:"actor_id" db:"actor_id"`
	Note       string        `json:"note,omitempty" db:"note"`
	At         time.Time     `json:"at" db:"at"`
}

// RequestFilter holds search and filter criteria for request queries
type RequestFilter struct {
	Type          *RequestType    `json:"request_type,omitempty"`
	Statuses      []RequestStatus `json:"statuses,omitempty"`
	Priority      *Priority       `json:"priority,omitempty"`
	RequesterID   *uuid.UUID      `json:"requester_id,omitempty"`
	ItemID        *uuid.UUID      `json:"item_id,omitempty"`
	CreatedFrom   *time.Time      `json:"created_from,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
	Limit         int             `json:"limit,omitempty"`  // 0 means no limit
	Offset        int             `json:"offset,omitempty"` // Page offset
}

func cloneUUIDPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
