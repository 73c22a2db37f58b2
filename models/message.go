package models

import "time"

const (
	SenderUser = "user"
	SenderBot  = "bot"

	DefaultConvo = "default"
)

type Message struct {
	ID        uint   `gorm:"primarykey"`
	UserID    string `gorm:"index;not null"`
	Sender    string `gorm:"not null"`
	Text      string
	Convo     string    `gorm:"default:default"`
	CreatedAt time.Time `gorm:"index"`
}
