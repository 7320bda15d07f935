package jobs

import (
	"context"
	"fmt"
	"time"

	"schoolprops/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StockSource lists items at or below their alert threshold.
type StockSource interface {
	LowStock(ctx context.Context, threshold int) ([]*models.InventoryItem, error)
}

// RequestSweeper finds overdue assignments and escalates stale pending requests.
type RequestSweeper interface {
	Overdue(ctx context.Context) ([]*models.Request, error)
	EscalateStale(ctx context.Context, after time.Duration) ([]uuid.UUID, error)
}

type InventoryAlertService struct {
	stock    StockSource
	requests RequestSweeper
}

type InventoryAlert struct {
	ItemID    uuid.UUID
	ItemName  string
	Available int
	Total     int
	Threshold int
}

type OverdueAlert struct {
	RequestID     uuid.UUID
	RequesterName string
	ItemName      string
	Quantity      int
	DueDate       time.Time
	DaysOverdue   int
}

func NewInventoryAlertService(stock StockSource, requests RequestSweeper) *InventoryAlertService {
	return &InventoryAlertService{
		stock:    stock,
		requests: requests,
	}
}

// CheckLowStock uses each item's own threshold when threshold is zero.
func (a *InventoryAlertService) CheckLowStock(ctx context.Context, threshold int) ([]InventoryAlert, error) {
	items, err := a.stock.LowStock(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock items: %w", err)
	}

	alerts := make([]InventoryAlert, 0, len(items))
	for _, item := range items {
		limit := threshold
		if limit <= 0 {
			limit = item.LowStockThreshold
		}
		alerts = append(alerts, InventoryAlert{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Available: item.QuantityAvailable,
			Total:     item.QuantityTotal,
			Threshold: limit,
		})
	}
	return alerts, nil
}

func (a *InventoryAlertService) LogLowStockAlerts(alerts []InventoryAlert) {
	if len(alerts) == 0 {
		log.Debug().Msg("No low stock alerts")
		return
	}
	for _, alert := range alerts {
		log.Warn().
			Str("item_id", alert.ItemID.String()).
			Str("item", alert.ItemName).
			Int("available", alert.Available).
			Int("total", alert.Total).
			Int("threshold", alert.Threshold).
			Msg("Low stock")
	}
}

// CheckOverdue reports assignments past their due date, oldest first as listed.
func (a *InventoryAlertService) CheckOverdue(ctx context.Context, now time.Time) ([]OverdueAlert, error) {
	requests, err := a.requests.Overdue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue requests: %w", err)
	}

	alerts := make([]OverdueAlert, 0, len(requests))
	for _, req := range requests {
		if req.Item == nil || req.Item.DueDate == nil {
			continue
		}
		alerts = append(alerts, OverdueAlert{
			RequestID:     req.ID,
			RequesterName: req.RequesterName,
			ItemName:      req.Item.ItemName,
			Quantity:      req.Item.QuantityAssigned,
			DueDate:       *req.Item.DueDate,
			DaysOverdue:   int(now.Sub(*req.Item.DueDate).Hours() / 24),
		})
	}
	return alerts, nil
}

func (a *InventoryAlertService) LogOverdueAlerts(alerts []OverdueAlert) {
	for _, alert := range alerts {
		log.Warn().
			Str("request_id", alert.RequestID.String()).
			Str("requester", alert.RequesterName).
			Str("item", alert.ItemName).
			Int("quantity", alert.Quantity).
			Time("due_date", alert.DueDate).
			Int("days_overdue", alert.DaysOverdue).
			Msg("Item overdue")
	}
}

// Escalate raises pending requests older than after to urgent.
func (a *InventoryAlertService) Escalate(ctx context.Context, after time.Duration) (int, error) {
	ids, err := a.requests.EscalateStale(ctx, after)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		log.Info().Str("request_id", id.String()).Dur("after", after).Msg("Request escalated to urgent")
	}
	return len(ids), nil
}

// ScheduledSweep runs every check once. A failing check is logged and does not
// stop the others.
func (a *InventoryAlertService) ScheduledSweep(ctx context.Context, escalateAfter time.Duration) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	lowStock, err := a.CheckLowStock(ctx, 0)
	if err != nil {
		log.Error().Err(err).Msg("Low stock check failed")
		keep(err)
	} else {
		a.LogLowStockAlerts(lowStock)
	}

	overdue, err := a.CheckOverdue(ctx, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("Overdue check failed")
		keep(err)
	} else {
		a.LogOverdueAlerts(overdue)
	}

	if escalateAfter > 0 {
		n, err := a.Escalate(ctx, escalateAfter)
		if err != nil {
			log.Error().Err(err).Msg("Escalation failed")
			keep(err)
		} else if n > 0 {
			log.Info().Int("count", n).Msg("Escalated stale requests")
		}
	}

	log.Info().
		Int("low_stock", len(lowStock)).
		Int("overdue", len(overdue)).
		Msg("Scheduled sweep completed")
	return firstErr
}
