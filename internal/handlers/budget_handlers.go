package handlers

import (
	"net/http"

	"schoolprops/internal/common"
	"schoolprops/internal/middleware"
	"schoolprops/internal/models"
	"schoolprops/internal/services"

	"github.com/labstack/echo/v4"
)

// BudgetHandlers exposes the spending ledger. Routes are admin only.
type BudgetHandlers struct {
	budget services.BudgetService
}

func NewBudgetHandlers(budget services.BudgetService) *BudgetHandlers {
	return &BudgetHandlers{budget: budget}
}

func (h *BudgetHandlers) Get(c echo.Context) error {
	b, err := h.budget.Get(c.Request().Context())
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type setBudgetRequest struct {
	TotalBudget *float64 `json:"total_budget"`
}

func (h *BudgetHandlers) SetTotal(c echo.Context) error {
	var req setBudgetRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.TotalBudget == nil {
		return common.SendValidationError(c, "total_budget", "is required")
	}
	b, err := h.budget.SetTotalBudget(c.Request().Context(), *req.TotalBudget)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BudgetHandlers) Recalculate(c echo.Context) error {
	b, err := h.budget.Recalculate(c.Request().Context())
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type resetBudgetRequest struct {
	Confirm     bool     `json:"confirm"`
	TotalBudget *float64 `json:"total_budget"`
}

// Reset zeroes spending for a new period. The body must carry confirm=true.
func (h *BudgetHandlers) Reset(c echo.Context) error {
	var req resetBudgetRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if !req.Confirm {
		return common.SendValidationError(c, "confirm", "must be true to reset the budget")
	}
	b, err := h.budget.Reset(c.Request().Context(), req.TotalBudget)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type purchaseRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

func (h *BudgetHandlers) RecordPurchase(c echo.Context) error {
	actor, err := middleware.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req purchaseRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	purchase, b, err := h.budget.RecordPurchase(c.Request().Context(), actor, req.Amount, req.Description)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"purchase": purchase,
		"budget":   b,
	})
}

type listPurchasesRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

func (h *BudgetHandlers) ListPurchases(c echo.Context) error {
	var req listPurchasesRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid query parameters")
	}
	purchases, err := h.budget.ListPurchases(c.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if purchases == nil {
		purchases = []*models.Purchase{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"purchases": purchases})
}
