// Package store is the document store behind users, sessions and messages.
// Callers depend on the interfaces; GormStore is the only implementation.
package store

import (
	"context"
	"errors"

	"github.com/Krish-Depani/ghost-ai-server/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type Users interface {
	GetUser(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, email string, fields map[string]interface{}) error
	RenameUser(ctx context.Context, oldEmail, newEmail string) error
	DeleteUser(ctx context.Context, email string) error
}

type Sessions interface {
	CreateSession(ctx context.Context, session *models.UserSession) error
	HasDeviceSession(ctx context.Context, userID, device, browser string) (bool, error)
	ListActiveSessions(ctx context.Context, userID string) ([]models.UserSession, error)
	DeactivateSessionsExceptIP(ctx context.Context, userID, ip string) (int64, error)
	DeleteSessions(ctx context.Context, userID string) error
}

type Messages interface {
	AddMessage(ctx context.Context, msg *models.Message) error
	RecentMessages(ctx context.Context, userID string, limit int) ([]models.Message, error)
	AllMessages(ctx context.Context, userID string) ([]models.Message, error)
	DeleteMessages(ctx context.Context, userID string) error
}

type Store interface {
	Users
	Sessions
	Messages
}
