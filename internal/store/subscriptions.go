package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clubdeck/clubdeck/internal/models"
	"github.com/clubdeck/clubdeck/internal/push"
)

type SubscriptionStore struct {
	db *gorm.DB
}

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Upsert writes sub keyed by user_id, overwriting any existing endpoint.
// One live registration per user.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub push.Subscription) error {
	row := models.PushSubscription{
		UserID:    sub.UserID,
		Endpoint:  sub.Endpoint,
		P256dhKey: sub.P256dhKey,
		AuthKey:   sub.AuthKey,
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"endpoint", "p256dh_key", "auth_key", "updated_at"}),
	}).Create(&row).Error
}

func (s *SubscriptionStore) Delete(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.PushSubscription{}).Error
}

func (s *SubscriptionStore) ForUser(ctx context.Context, userID uint) ([]push.Subscription, error) {
	var rows []models.PushSubscription

	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}

	return subscriptionsFromRows(rows), nil
}

func (s *SubscriptionStore) All(ctx context.Context) ([]push.Subscription, error) {
	var rows []models.PushSubscription

	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	return subscriptionsFromRows(rows), nil
}

func subscriptionsFromRows(rows []models.PushSubscription) []push.Subscription {
	subs := make([]push.Subscription, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, push.Subscription{
			UserID:    row.UserID,
			Endpoint:  row.Endpoint,
			P256dhKey: row.P256dhKey,
			AuthKey:   row.AuthKey,
		})
	}
	return subs
}
