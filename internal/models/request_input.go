package models

import (
	"time"

	"github.com/google/uuid"
)

// SubmitItemInput is a teacher's request for a catalog item.
type SubmitItemInput struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
	Location string    `json:"location"`
	Priority Priority  `json:"priority"`
	Notes    string    `json:"notes"`
}

// SubmitCustomInput is a teacher's purchase request for something not in the catalog.
type SubmitCustomInput struct {
	ItemName      string   `json:"item_name"`
	Description   string   `json:"description"`
	EstimatedCost float64  `json:"estimated_cost"`
	PhotoRef      string   `json:"photo_ref"`
	Location      string   `json:"location"`
	Priority      Priority `json:"priority"`
}

// SubmitReportInput is a teacher's issue report.
type SubmitReportInput struct {
	ItemName         string     `json:"item_name"`
	Kind             ReportKind `json:"report_kind"`
	Description      string     `json:"description"`
	RelatedRequestID *uuid.UUID `json:"related_request_id,omitempty"`
	PhotoRef         string     `json:"photo_ref"`
	Location         string     `json:"location"`
}

// ItemUpdate patches catalog fields; nil fields are left unchanged.
type ItemUpdate struct {
	Name              *string     `json:"name,omitempty"`
	Category          *string     `json:"category,omitempty"`
	Status            *ItemStatus `json:"status,omitempty"`
	QuantityTotal     *int        `json:"quantity_total,omitempty"`
	LowStockThreshold *int        `json:"low_stock_threshold,omitempty"`
}

// InspectionResult is returned by an inspection. A failed inspection carries a
// prefilled damage report the admin may file.
type InspectionResult struct {
	Request         *Request           `json:"request"`
	SuggestedReport *SubmitReportInput `json:"suggested_report,omitempty"`
}

// Snapshot is a read-only export of requests created in a window plus the catalog.
type Snapshot struct {
	From        time.Time        `json:"from"`
	To          time.Time        `json:"to"`
	GeneratedAt time.Time        `json:"generated_at"`
	Requests    []*Request       `json:"requests"`
	Items       []*InventoryItem `json:"items"`
	Budget      *Budget          `json:"budget"`
}
