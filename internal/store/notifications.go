// Package store backs the feed and push cores with gorm/postgres and
// publishes change-stream events after successful writes.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clubdeck/clubdeck/internal/models"
	"github.com/clubdeck/clubdeck/internal/notify"
	"github.com/clubdeck/clubdeck/internal/stream"
)

type NotificationStore struct {
	db     *gorm.DB
	broker *stream.Broker
}

func NewNotificationStore(db *gorm.DB, broker *stream.Broker) *NotificationStore {
	return &NotificationStore{db: db, broker: broker}
}

// Announcements returns the most recent broadcasts with synthesized
// "announcement-<id>" feed IDs, always unread.
func (s *NotificationStore) Announcements(ctx context.Context, limit int) ([]notify.Item, error) {
	var rows []models.Announcement

	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]notify.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, notify.Item{
			ID:        fmt.Sprintf("%s%d", notify.AnnouncementIDPrefix, row.ID),
			Origin:    notify.OriginBroadcast,
			Kind:      "announcement",
			Title:     row.Title,
			Message:   row.Message,
			Timestamp: row.CreatedAt,
			Status:    notify.StatusUnread,
		})
	}

	return items, nil
}

func (s *NotificationStore) EventNotifications(ctx context.Context) ([]notify.Item, error) {
	return s.listNotifications(ctx, notify.OriginEvent, "audience = ?", models.AudienceEvent)
}

func (s *NotificationStore) AdminNotifications(ctx context.Context) ([]notify.Item, error) {
	return s.listNotifications(ctx, notify.OriginAdmin, "audience = ?", models.AudienceAdmin)
}

func (s *NotificationStore) UserNotifications(ctx context.Context, userID uint) ([]notify.Item, error) {
	return s.listNotifications(ctx, notify.OriginUser, "audience = ? AND user_id = ?", models.AudienceUser, userID)
}

func (s *NotificationStore) listNotifications(ctx context.Context, origin notify.Origin, query string, args ...interface{}) ([]notify.Item, error) {
	var rows []models.Notification

	if err := s.db.WithContext(ctx).Where(query, args...).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]notify.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFromRow(row, origin))
	}

	return items, nil
}

func itemFromRow(row models.Notification, origin notify.Origin) notify.Item {
	var payload map[string]any
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			log.Printf("Invalid payload on notification %s: %v", row.ID, err)
		}
	}

	return notify.Item{
		ID:        row.ID,
		Origin:    origin,
		Kind:      row.Kind,
		Title:     row.Title,
		Message:   row.Message,
		Timestamp: row.CreatedAt,
		Status:    notify.Status(row.Status),
		Payload:   payload,
	}
}

func (s *NotificationStore) MarkRead(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("status", models.StatusRead)
	if result.Error != nil {
		return result.Error
	}

	s.broker.Publish(stream.Event{Table: notify.TableNotifications, Op: stream.OpUpdate})
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id IN ?", ids).
		Update("status", models.StatusRead)
	if result.Error != nil {
		return result.Error
	}

	s.broker.Publish(stream.Event{Table: notify.TableNotifications, Op: stream.OpUpdate})
	return nil
}

func (s *NotificationStore) Insert(ctx context.Context, recipientID uint, kind, title, message string, payload map[string]any) (notify.Item, error) {
	var payloadJSON datatypes.JSON
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return notify.Item{}, fmt.Errorf("failed to marshal payload: %w", err)
		}
		payloadJSON = datatypes.JSON(raw)
	}

	row := models.Notification{
		Audience: models.AudienceUser,
		UserID:   &recipientID,
		Kind:     kind,
		Title:    title,
		Message:  message,
		Status:   models.StatusUnread,
		Payload:  payloadJSON,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return notify.Item{}, err
	}

	s.broker.Publish(stream.Event{Table: notify.TableNotifications, Op: stream.OpInsert})
	return itemFromRow(row, notify.OriginUser), nil
}

// CreateAnnouncement inserts one broadcast row.
func (s *NotificationStore) CreateAnnouncement(ctx context.Context, authorID uint, title, message string) (models.Announcement, error) {
	row := models.Announcement{
		Title:    title,
		Message:  message,
		AuthorID: authorID,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Announcement{}, err
	}

	s.broker.Publish(stream.Event{Table: notify.TableAnnouncements, Op: stream.OpInsert})
	return row, nil
}
