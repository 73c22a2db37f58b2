package models

import (
	"time"
)

type User struct {
	Email        string `gorm:"primarykey"`
	Name         string `gorm:"not null"`
	PasswordHash string
	Photo        string
	Verified     bool   `gorm:"default:false"`
	Theme        string `gorm:"default:dark"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultPhoto is the avatar assigned at password signup.
func DefaultPhoto(email string) string {
	return "https://i.pravatar.cc/150?u=" + email
}
