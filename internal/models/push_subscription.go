package models

import "time"

// PushSubscription stores one user's web push registration. A user holds
// at most one live endpoint; re-subscribing overwrites the existing row.
type PushSubscription struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex;not null"`
	Endpoint  string `gorm:"type:text;not null"`
	P256dhKey string `gorm:"column:p256dh_key;type:text;not null"`
	AuthKey   string `gorm:"type:text;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
