package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"schoolprops/internal/caching"
	"schoolprops/internal/models"
	"schoolprops/internal/repositories"

	"github.com/rs/zerolog/log"
)

const (
	// CompactFeedLimit caps the dropdown feed.
	CompactFeedLimit = 15
	// RecentAssignmentWindow bounds assigned notifications in the compact feed.
	RecentAssignmentWindow = 24 * time.Hour
)

// feedStatuses are the only request statuses that can produce a notification.
var feedStatuses = []models.RequestStatus{
	models.StatusPending,
	models.StatusAssigned,
	models.StatusReturnedPendingInspection,
}

// NotificationService builds per-user notification feeds. Feeds are recomputed on
// every call; only read markers are stored.
type NotificationService interface {
	Feed(ctx context.Context, actor models.Principal, prefs models.NotificationPrefs, feed models.FeedKind) models.NotificationFeed
	MarkRead(ctx context.Context, actor models.Principal, ids []string) error
	MarkAllRead(ctx context.Context, actor models.Principal, prefs models.NotificationPrefs) (int, error)
}

type notificationService struct {
	requests repositories.RequestRepository
	items    repositories.ItemRepository
	markers  caching.ReadMarkerStore
	now      Clock
}

func NewNotificationService(requests repositories.RequestRepository, items repositories.ItemRepository, markers caching.ReadMarkerStore, clock Clock) NotificationService {
	if clock == nil {
		clock = systemClock
	}
	return &notificationService{
		requests: requests,
		items:    items,
		markers:  markers,
		now:      clock,
	}
}

func emptyFeed() models.NotificationFeed {
	return models.NotificationFeed{Notifications: []models.Notification{}}
}

// derive fetches the caller's inputs and derives the full or compact list.
func (s *notificationService) derive(ctx context.Context, actor models.Principal, prefs models.NotificationPrefs, feed models.FeedKind) ([]models.Notification, error) {
	filter := &models.RequestFilter{Statuses: feedStatuses}
	if !actor.IsAdmin() {
		id := actor.ID
		filter.RequesterID = &id
	}

	var requests []*models.Request
	if prefs.Requests {
		var err error
		requests, err = s.requests.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch requests: %w", err)
		}
	}

	var items []*models.InventoryItem
	if prefs.Inventory && actor.IsAdmin() {
		var err error
		items, err = s.items.LowStock(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch low stock items: %w", err)
		}
	}

	return Derive(requests, items, s.now(), prefs, feed), nil
}

// Feed never fails: any fetch error yields an empty feed and a warning.
func (s *notificationService) Feed(ctx context.Context, actor models.Principal, prefs models.NotificationPrefs, feed models.FeedKind) models.NotificationFeed {
	notifications, err := s.derive(ctx, actor, prefs, feed)
	if err != nil {
		log.Warn().Err(err).Str("user_id", actor.ID.String()).Msg("Notification feed unavailable")
		return emptyFeed()
	}

	read, err := s.markers.ReadSet(ctx, actor.ID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", actor.ID.String()).Msg("Read markers unavailable")
		return emptyFeed()
	}

	out := models.NotificationFeed{Notifications: notifications}
	for i := range out.Notifications {
		out.Notifications[i].Read = read[out.Notifications[i].ID]
		if !out.Notifications[i].Read {
			out.UnreadCount++
		}
	}
	return out
}

func (s *notificationService) MarkRead(ctx context.Context, actor models.Principal, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.markers.MarkRead(ctx, actor.ID, ids...)
}

// MarkAllRead marks every notification currently in the caller's full feed.
func (s *notificationService) MarkAllRead(ctx context.Context, actor models.Principal, prefs models.NotificationPrefs) (int, error) {
	notifications, err := s.derive(ctx, actor, prefs, models.FeedFull)
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(notifications))
	for i, n := range notifications {
		ids[i] = n.ID
	}
	if err := s.MarkRead(ctx, actor, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Derive computes notifications from the given requests and items. It is pure:
// identical inputs give identical output, and the Read flag is left false.
func Derive(requests []*models.Request, items []*models.InventoryItem, now time.Time, prefs models.NotificationPrefs, feed models.FeedKind) []models.Notification {
	out := []models.Notification{}

	if prefs.Requests {
		for _, req := range requests {
			if n, ok := deriveForRequest(req, now, feed); ok {
				out = append(out, n)
			}
		}
	}

	if prefs.Inventory {
		for _, item := range items {
			if !item.IsLowStock() {
				continue
			}
			itemID := item.ID
			out = append(out, models.Notification{
				ID:        fmt.Sprintf("%s-%s", models.NotificationLowStock, item.ID),
				Kind:      models.NotificationLowStock,
				ItemID:    &itemID,
				Title:     "Low stock",
				Message:   fmt.Sprintf("%s has %d of %d available", item.Name, item.QuantityAvailable, item.QuantityTotal),
				Timestamp: item.UpdatedAt,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})

	if feed != models.FeedFull && len(out) > CompactFeedLimit {
		out = out[:CompactFeedLimit]
	}
	return out
}

// deriveForRequest yields at most one notification per request. An overdue
// assignment is reported as overdue only.
func deriveForRequest(req *models.Request, now time.Time, feed models.FeedKind) (models.Notification, bool) {
	name := req.DisplayName()
	build := func(kind models.NotificationKind, title, message string, ts time.Time) (models.Notification, bool) {
		requestID := req.ID
		return models.Notification{
			ID:        fmt.Sprintf("%s-%s", kind, req.ID),
			Kind:      kind,
			RequestID: &requestID,
			Title:     title,
			Message:   message,
			Timestamp: ts,
		}, true
	}

	switch req.Status {
	case models.StatusPending:
		if req.Priority == models.PriorityUrgent && req.Type != models.RequestTypeReport {
			return build(models.NotificationUrgent, "Urgent request",
				fmt.Sprintf("%s urgently needs %s", req.RequesterName, name), req.CreatedAt)
		}
		return build(models.NotificationPending, pendingTitle(req.Type),
			fmt.Sprintf("%s submitted %s", req.RequesterName, name), req.CreatedAt)

	case models.StatusAssigned:
		if req.Item == nil {
			return models.Notification{}, false
		}
		if req.Item.DueDate != nil && req.Item.DueDate.Before(now) {
			return build(models.NotificationOverdue, "Overdue item",
				fmt.Sprintf("%s held by %s was due %s", name, req.RequesterName, req.Item.DueDate.Format("2006-01-02")), *req.Item.DueDate)
		}
		if req.Item.AssignedAt == nil {
			return models.Notification{}, false
		}
		if feed != models.FeedFull && now.Sub(*req.Item.AssignedAt) > RecentAssignmentWindow {
			return models.Notification{}, false
		}
		return build(models.NotificationAssigned, "Item assigned",
			fmt.Sprintf("%d x %s assigned to %s", req.Item.QuantityAssigned, name, req.RequesterName), *req.Item.AssignedAt)

	case models.StatusReturnedPendingInspection:
		if req.Item == nil || req.Item.InspectionStatus != models.InspectionPending || req.Item.ReturnedAt == nil {
			return models.Notification{}, false
		}
		return build(models.NotificationInspectionPending, "Awaiting inspection",
			fmt.Sprintf("%s returned by %s needs inspection", name, req.RequesterName), *req.Item.ReturnedAt)
	}
	return models.Notification{}, false
}

func pendingTitle(t models.RequestType) string {
	switch t {
	case models.RequestTypeCustom:
		return "New purchase request"
	case models.RequestTypeReport:
		return "New issue report"
	}
	return "New item request"
}
