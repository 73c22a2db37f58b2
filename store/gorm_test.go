package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Krish-Depani/ghost-ai-server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newStoreForTest(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.UserSession{}, &models.Message{}))
	return NewGormStore(db)
}

func TestGormStore_UserCRUD(t *testing.T) {
	s := newStoreForTest(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "Alice@Example.com", Name: "Alice"}))

	u, err := s.GetUser(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "dark", u.Theme)
	assert.False(t, u.Verified)

	err = s.CreateUser(ctx, &models.User{Email: "alice@example.com", Name: "Other"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, s.UpdateUser(ctx, "alice@example.com", map[string]interface{}{"name": "Al", "verified": true}))
	u, err = s.GetUser(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Al", u.Name)
	assert.True(t, u.Verified)

	assert.ErrorIs(t, s.UpdateUser(ctx, "ghost@example.com", map[string]interface{}{"name": "x"}), ErrNotFound)

	require.NoError(t, s.DeleteUser(ctx, "alice@example.com"))
	_, err = s.GetUser(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_SessionDeviceLookup(t *testing.T) {
	s := newStoreForTest(t)
	ctx := context.Background()

	known, err := s.HasDeviceSession(ctx, "alice@example.com", models.DeviceDesktop, models.BrowserChrome)
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, s.CreateSession(ctx, &models.UserSession{
		UserID: "alice@example.com", Device: models.DeviceDesktop, Browser: models.BrowserChrome,
		IPAddress: "1.1.1.1", IsActive: true,
	}))

	known, err = s.HasDeviceSession(ctx, "alice@example.com", models.DeviceDesktop, models.BrowserChrome)
	require.NoError(t, err)
	assert.True(t, known)

	known, err = s.HasDeviceSession(ctx, "alice@example.com", models.DeviceMobile, models.BrowserChrome)
	require.NoError(t, err)
	assert.False(t, known)

	known, err = s.HasDeviceSession(ctx, "bob@example.com", models.DeviceDesktop, models.BrowserChrome)
	require.NoError(t, err)
	assert.False(t, known)
}

func TestGormStore_DeactivateSessionsExceptIP(t *testing.T) {
	s := newStoreForTest(t)
	ctx := context.Background()

	for _, ip := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		require.NoError(t, s.CreateSession(ctx, &models.UserSession{UserID: "alice@example.com", IPAddress: ip, IsActive: true}))
	}
	require.NoError(t, s.CreateSession(ctx, &models.UserSession{UserID: "bob@example.com", IPAddress: "9.9.9.9", IsActive: true}))

	n, err := s.DeactivateSessionsExceptIP(ctx, "alice@example.com", "2.2.2.2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	active, err := s.ListActiveSessions(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "2.2.2.2", active[0].IPAddress)

	bobs, err := s.ListActiveSessions(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Len(t, bobs, 1)

	n, err = s.DeactivateSessionsExceptIP(ctx, "alice@example.com", "2.2.2.2")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestGormStore_Messages(t *testing.T) {
	s := newStoreForTest(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		require.NoError(t, s.AddMessage(ctx, &models.Message{
			UserID:    "alice@example.com",
			Sender:    models.SenderUser,
			Text:      fmt.Sprintf("msg-%02d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	recent, err := s.RecentMessages(ctx, "alice@example.com", 20)
	require.NoError(t, err)
	require.Len(t, recent, 20)
	assert.Equal(t, "msg-24", recent[0].Text)
	assert.Equal(t, "msg-05", recent[19].Text)
	assert.Equal(t, models.DefaultConvo, recent[0].Convo)

	all, err := s.AllMessages(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, all, 25)
	assert.Equal(t, "msg-00", all[0].Text)

	require.NoError(t, s.DeleteMessages(ctx, "alice@example.com"))
	all, err = s.AllMessages(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGormStore_RenameUser(t *testing.T) {
	s := newStoreForTest(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "old@example.com", Name: "Old"}))
	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "taken@example.com", Name: "Taken"}))
	require.NoError(t, s.CreateSession(ctx, &models.UserSession{UserID: "old@example.com", IsActive: true}))
	require.NoError(t, s.AddMessage(ctx, &models.Message{UserID: "old@example.com", Sender: models.SenderUser, Text: "hi"}))

	assert.ErrorIs(t, s.RenameUser(ctx, "old@example.com", "taken@example.com"), ErrAlreadyExists)
	assert.ErrorIs(t, s.RenameUser(ctx, "ghost@example.com", "free@example.com"), ErrNotFound)

	require.NoError(t, s.RenameUser(ctx, "old@example.com", "New@Example.com"))

	_, err := s.GetUser(ctx, "old@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	u, err := s.GetUser(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Old", u.Name)

	sessions, err := s.ListActiveSessions(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	msgs, err := s.AllMessages(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestGormStore_DBErrorsAreWrapped(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	s := NewGormStore(db)

	mock.ExpectQuery(`SELECT .* FROM "messages"`).WillReturnError(errors.New("db down"))
	_, err = s.RecentMessages(context.Background(), "alice@example.com", 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_sessions"`).WillReturnError(errors.New("db down"))
	_, err = s.HasDeviceSession(context.Background(), "alice@example.com", "desktop", "Chrome")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
