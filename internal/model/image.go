package model

import "time"

// Image is the metadata row for one stored upload. Filename is the
// server-generated storage name, never the client-supplied one.
type Image struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Filename  string    `gorm:"size:255;not null;uniqueIndex" json:"filename"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
