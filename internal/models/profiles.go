package models

import "time"

// UserProfile holds the traits an application attached to one identified
// user of one site.
type UserProfile struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SiteID    uint   `gorm:"not null;uniqueIndex:idx_user_profiles_site_user"`
	UserID    string `gorm:"not null;uniqueIndex:idx_user_profiles_site_user"`
	Traits    JSON
	CreatedAt time.Time
	UpdatedAt time.Time
}
