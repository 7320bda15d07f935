package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"schoolprops/internal/common"
	"schoolprops/internal/models"
	"schoolprops/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type BudgetService interface {
	Get(ctx context.Context) (*models.Budget, error)
	Recalculate(ctx context.Context) (*models.Budget, error)
	// RecalculateTx recomputes the derived fields inside the caller's transaction.
	RecalculateTx(ctx context.Context, repos repositories.Repositories) (*models.Budget, error)
	SetTotalBudget(ctx context.Context, amount float64) (*models.Budget, error)
	Reset(ctx context.Context, newAmount *float64) (*models.Budget, error)
	RecordPurchase(ctx context.Context, actor models.Principal, amount float64, description string) (*models.Purchase, *models.Budget, error)
	ListPurchases(ctx context.Context, limit, offset int) ([]*models.Purchase, error)
}

type budgetService struct {
	store repositories.Store
	now   Clock
}

func NewBudgetService(store repositories.Store, clock Clock) BudgetService {
	if clock == nil {
		clock = systemClock
	}
	return &budgetService{store: store, now: clock}
}

func validMoney(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0) && amount >= 0
}

func (s *budgetService) Get(ctx context.Context) (*models.Budget, error) {
	return s.store.Repos().Budget.Get(ctx)
}

func (s *budgetService) Recalculate(ctx context.Context) (*models.Budget, error) {
	var out *models.Budget
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		out, err = s.RecalculateTx(ctx, repos)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *budgetService) RecalculateTx(ctx context.Context, repos repositories.Repositories) (*models.Budget, error) {
	budget, err := repos.Budget.GetForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load budget: %w", err)
	}
	if err := s.applySpent(ctx, repos, budget); err != nil {
		return nil, err
	}
	if err := repos.Budget.Save(ctx, budget); err != nil {
		return nil, fmt.Errorf("failed to save budget: %w", err)
	}
	return budget, nil
}

// applySpent sums committed custom requests and purchases made after the last reset.
func (s *budgetService) applySpent(ctx context.Context, repos repositories.Repositories, budget *models.Budget) error {
	committed, err := repos.Requests.SumCommittedCustomCost(ctx, budget.ResetAt)
	if err != nil {
		return fmt.Errorf("failed to sum committed requests: %w", err)
	}
	purchased, err := repos.Budget.SumPurchases(ctx, budget.ResetAt)
	if err != nil {
		return fmt.Errorf("failed to sum purchases: %w", err)
	}
	budget.Apply(committed + purchased)
	budget.UpdatedAt = s.now()
	return nil
}

func (s *budgetService) SetTotalBudget(ctx context.Context, amount float64) (*models.Budget, error) {
	if !validMoney(amount) {
		return nil, fmt.Errorf("total budget %v: %w", amount, common.ErrInvalidAmount)
	}

	var out *models.Budget
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		budget, err := repos.Budget.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		budget.TotalBudget = models.RoundCents(amount)
		if err := s.applySpent(ctx, repos, budget); err != nil {
			return err
		}
		if err := repos.Budget.Save(ctx, budget); err != nil {
			return err
		}
		out = budget
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Float64("total_budget", out.TotalBudget).Msg("Budget total updated")
	return out, nil
}

// Reset moves the cut-off to now so everything committed earlier stops counting.
func (s *budgetService) Reset(ctx context.Context, newAmount *float64) (*models.Budget, error) {
	if newAmount != nil && !validMoney(*newAmount) {
		return nil, fmt.Errorf("total budget %v: %w", *newAmount, common.ErrInvalidAmount)
	}

	var out *models.Budget
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		budget, err := repos.Budget.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		budget.ResetAt = &now
		if newAmount != nil {
			budget.TotalBudget = *newAmount
		}
		budget.Apply(0)
		budget.UpdatedAt = now
		if err := repos.Budget.Save(ctx, budget); err != nil {
			return err
		}
		out = budget
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Time("reset_at", *out.ResetAt).Float64("total_budget", out.TotalBudget).Msg("Budget reset")
	return out, nil
}

func (s *budgetService) RecordPurchase(ctx context.Context, actor models.Principal, amount float64, description string) (*models.Purchase, *models.Budget, error) {
	if !validMoney(amount) || amount == 0 {
		return nil, nil, fmt.Errorf("purchase amount %v: %w", amount, common.ErrInvalidAmount)
	}
	description = strings.TrimSpace(description)
	if err := common.ValidateRequiredString(description, "description", 500); err != nil {
		return nil, nil, err
	}

	purchase := &models.Purchase{
		ID:          uuid.New(),
		Amount:      models.RoundCents(amount),
		Description: description,
		RecordedBy:  actor.ID,
		RecordedAt:  s.now(),
	}

	var budget *models.Budget
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if err := repos.Budget.CreatePurchase(ctx, purchase); err != nil {
			return fmt.Errorf("failed to record purchase: %w", err)
		}
		var err error
		budget, err = s.RecalculateTx(ctx, repos)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return purchase, budget, nil
}

func (s *budgetService) ListPurchases(ctx context.Context, limit, offset int) ([]*models.Purchase, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, common.NewValidationError("offset", "%s", err.Error())
	}
	return s.store.Repos().Budget.ListPurchases(ctx, limit, offset)
}
