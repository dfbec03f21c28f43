package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AudienceEvent = "event" // visible to every member
	AudienceAdmin = "admin" // visible to admins only
	AudienceUser  = "user"  // addressed to a single user

	StatusUnread    = "unread"
	StatusRead      = "read"
	StatusResponded = "responded"
)

type Notification struct {
	ID       string `gorm:"type:varchar(36);primaryKey"`
	Audience string `gorm:"not null;index"` // "event", "admin", "user"
	UserID   *uint  `gorm:"index"`          // recipient, only for audience "user"
	Kind     string `gorm:"not null"`       // e.g. "event_created", "access_code_request"
	Title    string `gorm:"not null"`
	Message  string
	Status   string         `gorm:"not null;default:unread"`
	Payload  datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships
	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}
