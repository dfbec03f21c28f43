package models

import "gorm.io/gorm"

// Announcement is a club-wide broadcast. It has no per-user read state;
// the feed always surfaces announcements as unread under a synthetic
// "announcement-<id>" identifier.
type Announcement struct {
	gorm.Model

	Title    string `gorm:"not null"`
	Message  string
	AuthorID uint `gorm:"index"`

	// Relationships
	Author User `gorm:"foreignKey:AuthorID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
}
