package repo

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/db"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/models"
)

func newPostgresRepo(t *testing.T) *GormRepo {
	t.Helper()

	dsn := os.Getenv("AUTH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("AUTH_TEST_DATABASE_URL is required for postgres tests")
	}

	gdb, err := db.Open(context.Background(), dsn, db.PoolConfig{MaxOpenConns: 10})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() {
		truncateTables(gdb)
		_ = db.Close(gdb)
	})
	truncateTables(gdb)
	return New(gdb)
}

func truncateTables(gdb *gorm.DB) {
	gdb.Exec("TRUNCATE TABLE refresh_tokens, users RESTART IDENTITY CASCADE")
}

func TestPostgres_DuplicateEmailFromConstraint(t *testing.T) {
	r := newPostgresRepo(t)
	ctx := context.Background()
	email := "u_" + uuid.NewString() + "@x.com"

	require.NoError(t, r.CreateUser(ctx, &models.User{Name: "A", Email: email, PasswordHash: "h", IsActive: true}))

	// Bypass the pre-check so only the unique index can reject the row.
	err := r.DB.WithContext(ctx).Create(&models.User{ID: uuid.NewString(), Name: "B", Email: email, PasswordHash: "h", Role: models.RoleUser}).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
}

func TestPostgres_ConcurrentRotationHasOneWinner(t *testing.T) {
	r := newPostgresRepo(t)
	ctx := context.Background()

	u := &models.User{Name: "Jane", Email: "u_" + uuid.NewString() + "@x.com", PasswordHash: "h", IsActive: true}
	require.NoError(t, r.CreateUser(ctx, u))
	require.NoError(t, r.StoreRefresh(ctx, u.ID, "old", time.Hour))

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- r.RotateRefresh(ctx, "old", u.ID, "new-"+uuid.NewString(), time.Hour)
		}(i)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrTokenNotUsable)
	}
	assert.Equal(t, 1, wins)

	var live int64
	require.NoError(t, r.DB.Model(&models.RefreshToken{}).Where("user_id = ? AND is_revoked = ?", u.ID, false).Count(&live).Error)
	assert.EqualValues(t, 1, live)
}

func TestPostgres_RefreshTokenNeedsOwner(t *testing.T) {
	r := newPostgresRepo(t)
	ctx := context.Background()

	err := r.StoreRefresh(ctx, uuid.NewString(), "ghost", time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)
}
