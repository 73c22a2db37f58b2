package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/models"
	"gorm.io/gorm"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetUser(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(user.Email)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if count > 0 {
			return ErrAlreadyExists
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (s *GormStore) UpdateUser(ctx context.Context, email string, fields map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", strings.ToLower(email)).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("db error: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RenameUser moves the identity key of a user, together with the sessions and
// messages that reference it, in one transaction.
func (s *GormStore) RenameUser(ctx context.Context, oldEmail, newEmail string) error {
	oldEmail, newEmail = strings.ToLower(oldEmail), strings.ToLower(newEmail)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", newEmail).Count(&count).Error; err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if count > 0 {
			return ErrAlreadyExists
		}

		result := tx.Model(&models.User{}).Where("email = ?", oldEmail).Updates(map[string]interface{}{
			"email":      newEmail,
			"updated_at": time.Now(),
		})
		if result.Error != nil {
			return fmt.Errorf("db error: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Model(&models.UserSession{}).Where("user_id = ?", oldEmail).Update("user_id", newEmail).Error; err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if err := tx.Model(&models.Message{}).Where("user_id = ?", oldEmail).Update("user_id", newEmail).Error; err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (s *GormStore) DeleteUser(ctx context.Context, email string) error {
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *GormStore) CreateSession(ctx context.Context, session *models.UserSession) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *GormStore) HasDeviceSession(ctx context.Context, userID, device, browser string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("user_id = ? AND device = ? AND browser = ?", userID, device, browser).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) ListActiveSessions(ctx context.Context, userID string) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return sessions, nil
}

// DeactivateSessionsExceptIP flips is_active to false on every active session
// of userID that did not originate from ip. Inactive rows are left alone.
func (s *GormStore) DeactivateSessionsExceptIP(ctx context.Context, userID, ip string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("user_id = ? AND is_active = ? AND ip_address <> ?", userID, true, ip).
		Update("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("db error: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) DeleteSessions(ctx context.Context, userID string) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.UserSession{}).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *GormStore) AddMessage(ctx context.Context, msg *models.Message) error {
	if msg.Convo == "" {
		msg.Convo = models.DefaultConvo
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *GormStore) RecentMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msgs, nil
}

func (s *GormStore) AllMessages(ctx context.Context, userID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msgs, nil
}

func (s *GormStore) DeleteMessages(ctx context.Context, userID string) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Message{}).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
