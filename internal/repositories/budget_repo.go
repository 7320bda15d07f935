package repositories

import (
	"context"
	"errors"
	"time"

	"schoolprops/internal/models"

	"github.com/jackc/pgx/v5"
)

// BudgetRepository stores the single budget row and the purchases ledger.
type BudgetRepository interface {
	Get(ctx context.Context) (*models.Budget, error)
	GetForUpdate(ctx context.Context) (*models.Budget, error)
	Save(ctx context.Context, budget *models.Budget) error
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	SumPurchases(ctx context.Context, since *time.Time) (float64, error)
	ListPurchases(ctx context.Context, limit, offset int) ([]*models.Purchase, error)
}

type budgetRepo struct {
	db DBTX
}

func NewBudgetRepo(db DBTX) BudgetRepository {
	return &budgetRepo{db: db}
}

const budgetColumns = `total_budget::float8, total_spent::float8, remaining_balance::float8, percentage_used::float8, reset_at, updated_at`

func scanBudget(row pgx.Row) (*models.Budget, error) {
	b := &models.Budget{}
	if err := row.Scan(&b.TotalBudget, &b.TotalSpent, &b.RemainingBalance, &b.PercentageUsed, &b.ResetAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns the stored snapshot, or a zero budget when none has been saved yet.
func (r *budgetRepo) Get(ctx context.Context) (*models.Budget, error) {
	b, err := scanBudget(r.db.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budget WHERE id = 1`))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.Budget{}, nil
		}
		return nil, err
	}
	return b, nil
}

// GetForUpdate creates the row on first use and locks it.
func (r *budgetRepo) GetForUpdate(ctx context.Context) (*models.Budget, error) {
	if _, err := r.db.Exec(ctx, `INSERT INTO budget (id, updated_at) VALUES (1, NOW()) ON CONFLICT (id) DO NOTHING`); err != nil {
		return nil, err
	}
	return scanBudget(r.db.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budget WHERE id = 1 FOR UPDATE`))
}

func (r *budgetRepo) Save(ctx context.Context, budget *models.Budget) error {
	query := `
		INSERT INTO budget (id, total_budget, total_spent, remaining_balance, percentage_used, reset_at, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			total_budget = EXCLUDED.total_budget,
			total_spent = EXCLUDED.total_spent,
			remaining_balance = EXCLUDED.remaining_balance,
			percentage_used = EXCLUDED.percentage_used,
			reset_at = EXCLUDED.reset_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query, budget.TotalBudget, budget.TotalSpent, budget.RemainingBalance, budget.PercentageUsed, budget.ResetAt, budget.UpdatedAt)
	return err
}

func (r *budgetRepo) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	query := `
		INSERT INTO purchases (id, amount, description, recorded_by, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, purchase.ID, purchase.Amount, purchase.Description, purchase.RecordedBy, purchase.RecordedAt)
	return err
}

func (r *budgetRepo) SumPurchases(ctx context.Context, since *time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::float8
		FROM purchases
		WHERE ($1::timestamptz IS NULL OR recorded_at > $1)
	`
	var total float64
	if err := r.db.QueryRow(ctx, query, since).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *budgetRepo) ListPurchases(ctx context.Context, limit, offset int) ([]*models.Purchase, error) {
	query := `
		SELECT id, amount::float8, description, recorded_by, recorded_at
		FROM purchases
		ORDER BY recorded_at DESC, id ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []*models.Purchase
	for rows.Next() {
		p := &models.Purchase{}
		if err := rows.Scan(&p.ID, &p.Amount, &p.Description, &p.RecordedBy, &p.RecordedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
