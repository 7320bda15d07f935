package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind represents the type of a derived notification
type NotificationKind string

const (
	NotificationUrgent            NotificationKind = "urgent"
	NotificationPending           NotificationKind = "pending"
	NotificationOverdue           NotificationKind = "overdue"
	NotificationAssigned          NotificationKind = "assigned"
	NotificationInspectionPending NotificationKind = "inspection-pending"
	NotificationLowStock          NotificationKind = "low-stock"
)

// FeedKind selects between the capped dropdown feed and the full list.
type FeedKind string

const (
	FeedCompact FeedKind = "compact"
	FeedFull    FeedKind = "full"
)

// NotificationPrefs are the user's per-category toggles.
type NotificationPrefs struct {
	NewUser   bool `json:"new_user"`
	Inventory bool `json:"inventory"`
	Requests  bool `json:"requests"`
}

// DefaultNotificationPrefs enables every category.
func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{NewUser: true, Inventory: true, Requests: true}
}

// Notification is recomputed on every read; only its ID is ever persisted (as a read marker).
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	RequestID *uuid.UUID       `json:"request_id,omitempty"`
	ItemID    *uuid.UUID       `json:"item_id,omitempty"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
}

// NotificationFeed is what a polling client receives.
type NotificationFeed struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}
