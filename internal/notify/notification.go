// Package notify implements the notification feed: four origin queries
// merged into one deduplicated, timestamp-ordered view with a derived
// unread count, plus the mutation path that flips read state.
package notify

import (
	"context"
	"strings"
	"time"
)

// Origin identifies the query that produced a feed item. The declaration
// order is the merge priority: when two origins yield the same ID, the
// earlier origin wins.
type Origin string

const (
	OriginBroadcast Origin = "broadcast"
	OriginEvent     Origin = "event"
	OriginAdmin     Origin = "admin"
	OriginUser      Origin = "user"
)

type Status string

const (
	StatusUnread    Status = "unread"
	StatusRead      Status = "read"
	StatusResponded Status = "responded"
)

// AnnouncementIDPrefix marks synthetic broadcast IDs. Announcements live
// in their own table, so their feed IDs are derived from the row ID and
// never collide with notification UUIDs.
const AnnouncementIDPrefix = "announcement-"

func IsAnnouncementID(id string) bool {
	return strings.HasPrefix(id, AnnouncementIDPrefix)
}

// Watched tables for change-stream triggers.
const (
	TableAnnouncements = "announcements"
	TableNotifications = "notifications"
)

type Item struct {
	ID        string         `json:"id"`
	Origin    Origin         `json:"origin"`
	Kind      string         `json:"kind"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Status    Status         `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Store is the notification store as seen by the feed core. The four
// list queries correspond one-to-one with the feed origins; the gorm
// implementation lives in internal/store.
type Store interface {
	Announcements(ctx context.Context, limit int) ([]Item, error)
	EventNotifications(ctx context.Context) ([]Item, error)
	AdminNotifications(ctx context.Context) ([]Item, error)
	UserNotifications(ctx context.Context, userID uint) ([]Item, error)

	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, ids []string) error
	Insert(ctx context.Context, recipientID uint, kind, title, message string, payload map[string]any) (Item, error)
}
