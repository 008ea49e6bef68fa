package repo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func InitTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect to in-memory db")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}), "failed to migrate tables")
	return db
}

func newTestRepo(t *testing.T) (*GormRepo, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := New(InitTestDB(t))
	r.Now = clock.Now
	return r, clock
}

func seedUser(t *testing.T, r *GormRepo, email string) *models.User {
	t.Helper()
	u := &models.User{
		Name:         "Jane Doe",
		Email:        email,
		PasswordHash: "hash",
		IsActive:     true,
	}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func TestCreateUser_AssignsDefaults(t *testing.T) {
	r, _ := newTestRepo(t)
	u := seedUser(t, r, "jane@x.com")

	_, err := uuid.Parse(u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)

	got, err := r.FindByEmail(context.Background(), "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsVerified)
	assert.Nil(t, got.LastLogin)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	r, _ := newTestRepo(t)
	seedUser(t, r, "jane@x.com")

	err := r.CreateUser(context.Background(), &models.User{Name: "Other", Email: "jane@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestFind_NotFound(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := r.FindByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByEmail_ExactMatch(t *testing.T) {
	r, _ := newTestRepo(t)
	seedUser(t, r, "jane@x.com")

	_, err := r.FindByEmail(context.Background(), "JANE@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTouchLastLogin(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "jane@x.com")

	require.NoError(t, r.TouchLastLogin(ctx, u.ID))

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.WithinDuration(t, clock.Now(), *got.LastLogin, time.Second)
}

func TestSetActiveAndRole(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "jane@x.com")

	require.NoError(t, r.SetActive(ctx, u.ID, false))
	require.NoError(t, r.SetRole(ctx, u.ID, models.RoleAdmin))

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.True(t, got.IsAdmin())

	assert.ErrorIs(t, r.SetActive(ctx, uuid.NewString(), true), ErrNotFound)
}

func TestRefresh_StoreAndValidate(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "jane@x.com")

	require.NoError(t, r.StoreRefresh(ctx, u.ID, "token-a", time.Hour))

	userID, ok, err := r.ValidateRefresh(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, u.ID, userID)

	var stored models.RefreshToken
	require.NoError(t, r.DB.Take(&stored).Error)
	assert.NotEqual(t, "token-a", stored.Token)
	assert.Len(t, stored.Token, 64)
}

func TestRefresh_StoreRequiresExistingUser(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	err := r.StoreRefresh(ctx, uuid.NewString(), "ghost", time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)

	_, ok, err := r.ValidateRefresh(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefresh_DeletedUserTakesTokens(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "jane@x.com")

	require.NoError(t, r.StoreRefresh(ctx, u.ID, "token-a", time.Hour))
	require.NoError(t, r.DB.Delete(&models.User{ID: u.ID}).Error)

	var n int64
	require.NoError(t, r.DB.Model(&models.RefreshToken{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRefresh_ValidateUnknown(t *testing.T) {
	r, _ := newTestRepo(t)

	userID, ok, err := r.ValidateRefresh(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, userID)
}

func TestRefresh_ExpiredIsInvalidWithoutRevocation(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "jane@x.com")

	require.NoError(t, r.StoreRefresh(ctx, u.ID, "token-a", time.Hour))
	clock.Advance(time.Hour + time.Second)

	_, ok, err := r.ValidateRefresh(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, ok)

	var stored models.RefreshToken
	require.NoError(t, r.DB.Take(&stored).Error)
	assert.False(t, stored.IsRevoked)
}

func TestRefresh_RevokeIsIdempotent(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "jane@x.com")

	require.NoError(t, r.RevokeRefresh(ctx, "never-issued"))

	require.NoError(t, r.StoreRefresh(ctx, u.ID, "token-a", time.Hour))
	require.NoError(t, r.RevokeRefresh(ctx, "token-a"))
	require.NoError(t, r.RevokeRefresh(ctx, "token-a"))

	_, ok, err := r.ValidateRefresh(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefresh_Rotate(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "jane@x.com")

	require.NoError(t, r.StoreRefresh(ctx, u.ID, "old", time.Hour))
	require.NoError(t, r.RotateRefresh(ctx, "old", u.ID, "new", time.Hour))

	_, ok, err := r.ValidateRefresh(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	userID, ok, err := r.ValidateRefresh(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, u.ID, userID)

	err = r.RotateRefresh(ctx, "old", u.ID, "newer", time.Hour)
	assert.ErrorIs(t, err, ErrTokenNotUsable)

	_, ok, err = r.ValidateRefresh(ctx, "newer")
	require.NoError(t, err)
	assert.False(t, ok, "a failed rotation must not store the new token")
}

func TestRefresh_RotateExpiredFails(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "jane@x.com")

	require.NoError(t, r.StoreRefresh(ctx, u.ID, "old", time.Minute))
	clock.Advance(2 * time.Minute)

	err := r.RotateRefresh(ctx, "old", u.ID, "new", time.Hour)
	assert.ErrorIs(t, err, ErrTokenNotUsable)
}

func TestRefresh_RotateRejectsForeignUser(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	jane := seedUser(t, r, "jane@x.com")
	john := seedUser(t, r, "john@x.com")

	require.NoError(t, r.StoreRefresh(ctx, jane.ID, "old", time.Hour))

	err := r.RotateRefresh(ctx, "old", john.ID, "new", time.Hour)
	assert.ErrorIs(t, err, ErrTokenNotUsable)

	_, ok, err := r.ValidateRefresh(ctx, "old")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefresh_MultipleDevices(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "jane@x.com")

	require.NoError(t, r.StoreRefresh(ctx, u.ID, "laptop", time.Hour))
	require.NoError(t, r.StoreRefresh(ctx, u.ID, "phone", time.Hour))

	for _, tok := range []string{"laptop", "phone"} {
		_, ok, err := r.ValidateRefresh(ctx, tok)
		require.NoError(t, err)
		assert.True(t, ok, tok)
	}

	require.NoError(t, r.DeactivateUser(ctx, u.ID))
	for _, tok := range []string{"laptop", "phone"} {
		_, ok, err := r.ValidateRefresh(ctx, tok)
		require.NoError(t, err)
		assert.False(t, ok, tok)
	}

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestDeactivateUser_NotFound(t *testing.T) {
	r, _ := newTestRepo(t)
	assert.ErrorIs(t, r.DeactivateUser(context.Background(), uuid.NewString()), ErrNotFound)
}

func TestDeactivateUser_RollsBackWhenRevokeFails(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "jane@x.com")
	require.NoError(t, r.StoreRefresh(ctx, u.ID, "laptop", time.Hour))

	require.NoError(t, r.DB.Callback().Update().Before("gorm:update").Register("test:fail_token_update", func(tx *gorm.DB) {
		if tx.Statement.Table == "refresh_tokens" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	err := r.DeactivateUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrStorage)

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive, "user update must roll back with the token revoke")

	_, ok, err := r.ValidateRefresh(ctx, "laptop")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefresh_PurgeExpired(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "jane@x.com")

	require.NoError(t, r.StoreRefresh(ctx, u.ID, "short", time.Minute))
	require.NoError(t, r.StoreRefresh(ctx, u.ID, "long", 24*time.Hour))
	clock.Advance(time.Hour)

	n, err := r.PurgeExpired(ctx, clock.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, ok, err := r.ValidateRefresh(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunPurger(t *testing.T) {
	r, clock := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	u := seedUser(t, r, "jane@x.com")

	require.NoError(t, r.StoreRefresh(ctx, u.ID, "short", time.Minute))
	clock.Advance(time.Hour)

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	done := make(chan struct{})
	go func() {
		r.RunPurger(ctx, 10*time.Millisecond, l)
		close(done)
	}()

	require.Eventually(t, func() bool {
		var n int64
		if err := r.DB.Model(&models.RefreshToken{}).Count(&n).Error; err != nil {
			return false
		}
		return n == 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestRunPurger_DisabledReturnsImmediately(t *testing.T) {
	r, _ := newTestRepo(t)
	r.RunPurger(context.Background(), 0, slog.Default())
}
