package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Budget is the school's spending ledger. TotalSpent, RemainingBalance and
// PercentageUsed are derived; only TotalBudget and ResetAt are set directly.
type Budget struct {
	TotalBudget      float64    `json:"total_budget" db:"total_budget"`
	TotalSpent       float64    `json:"total_spent" db:"total_spent"`
	RemainingBalance float64    `json:"remaining_balance" db:"remaining_balance"`
	PercentageUsed   float64    `json:"percentage_used" db:"percentage_used"`
	ResetAt          *time.Time `json:"reset_at,omitempty" db:"reset_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Apply sets the spent amount and recomputes the derived fields.
func (b *Budget) Apply(spent float64) {
	b.TotalBudget = RoundCents(b.TotalBudget)
	b.TotalSpent = RoundCents(spent)
	b.RemainingBalance = RoundCents(b.TotalBudget - b.TotalSpent)
	b.PercentageUsed = PercentageOf(b.TotalSpent, b.TotalBudget)
}

// PercentageOf returns part as a percentage of whole, rounded to two decimals.
// A zero whole yields 0.
func PercentageOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return RoundCents(part * 100 / whole)
}

// RoundCents rounds v to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Purchase is spending recorded directly against the budget.
type Purchase struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Amount      float64   `json:"amount" db:"amount"`
	Description string    `json:"description" db:"description"`
	RecordedBy  uuid.UUID `json:"recorded_by" db:"recorded_by"`
	RecordedAt  time.Time `json:"recorded_at" db:"recorded_at"`
}
