package models

import "gorm.io/gorm"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type User struct {
	gorm.Model

	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:member"` // "member" or "admin"

	// Relationships
	Notifications    []Notification    `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	PushSubscription *PushSubscription `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
