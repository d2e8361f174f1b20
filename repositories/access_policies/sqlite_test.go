package access_policies

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelai_bot/databases/sqlite"
	"novelai_bot/logging"
	"novelai_bot/repositories"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func newTestRepo(t *testing.T, clk *fixedClock, defaultLimit int) Repository {
	t.Helper()

	ctx := context.Background()
	db, err := sqlite.New(ctx, sqlite.Config{
		Filename: filepath.Join(t.TempDir(), "bot.sqlite"),
		Logger:   logging.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewRepository(&Config{DB: db, Clock: clk, DefaultDailyLimit: defaultLimit})
	require.NoError(t, err)

	return repo
}

func TestNewRepository_Validation(t *testing.T) {
	_, err := NewRepository(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing DB")
}

func TestRepository_AddUserDefaults(t *testing.T) {
	ctx := context.Background()
	clk := &fixedClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	repo := newTestRepo(t, clk, 7)

	user, err := repo.AddUser(ctx, "1001", 0, "alice")
	require.NoError(t, err)
	assert.Equal(t, 7, user.DailyLimit)
	assert.Equal(t, 7, user.Remaining)
	assert.Equal(t, "2024-03-15", user.LastReset)
	assert.Equal(t, "alice", user.Nickname)

	user, err = repo.AddUser(ctx, "1002", 3, "")
	require.NoError(t, err)
	assert.Equal(t, 3, user.DailyLimit)
	assert.Equal(t, 3, user.Remaining)
}

func TestRepository_WhitelistMembership(t *testing.T) {
	ctx := context.Background()
	clk := &fixedClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	repo := newTestRepo(t, clk, 0)

	allowed, err := repo.IsWhitelisted(ctx, "1001")
	require.NoError(t, err)
	assert.False(t, allowed)

	_, err = repo.AddUser(ctx, "1001", 5, "")
	require.NoError(t, err)

	allowed, err = repo.IsWhitelisted(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, allowed)

	removed, err := repo.RemoveUser(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, removed)

	allowed, err = repo.IsWhitelisted(ctx, "1001")
	require.NoError(t, err)
	assert.False(t, allowed)

	removed, err = repo.RemoveUser(ctx, "1001")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRepository_GetUser(t *testing.T) {
	ctx := context.Background()
	clk := &fixedClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	repo := newTestRepo(t, clk, 0)

	_, err := repo.GetUser(ctx, "unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	_, err = repo.AddUser(ctx, "1001", 5, "alice")
	require.NoError(t, err)

	user, err := repo.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", user.UserID)
	assert.Equal(t, "alice", user.Nickname)
	assert.Equal(t, 5, user.Remaining)
	assert.Nil(t, user.LastUsedAt)
}

func TestRepository_GetUserRefillsNextDay(t *testing.T) {
	ctx := context.Background()
	clk := &fixedClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	repo := newTestRepo(t, clk, 0)

	_, err := repo.AddUser(ctx, "1001", 2, "")
	require.NoError(t, err)
	require.NoError(t, repo.ConsumeQuota(ctx, "1001"))

	user, err := repo.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, 1, user.Remaining)

	clk.now = clk.now.Add(24 * time.Hour)

	user, err = repo.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, 2, user.Remaining)
	assert.Equal(t, "2024-03-16", user.LastReset)

	// The refill was persisted, not just reported.
	user, err = repo.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, 2, user.Remaining)
}

func TestRepository_SetQuota(t *testing.T) {
	ctx := context.Background()
	clk := &fixedClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	repo := newTestRepo(t, clk, 0)

	_, err := repo.SetQuota(ctx, "1001", 0, "")
	require.EqualError(t, err, "每日限额必须大于0")

	// Missing users are created on the spot.
	user, err := repo.SetQuota(ctx, "1001", 5, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, user.DailyLimit)
	assert.Equal(t, 5, user.Remaining)
	assert.Equal(t, "alice", user.Nickname)

	// Lowering the limit clamps what is left today.
	user, err = repo.SetQuota(ctx, "1001", 2, "")
	require.NoError(t, err)
	assert.Equal(t, 2, user.DailyLimit)
	assert.Equal(t, 2, user.Remaining)
	assert.Equal(t, "alice", user.Nickname, "empty nickname keeps the stored one")

	// Raising it does not hand out extra uses mid-day.
	user, err = repo.SetQuota(ctx, "1001", 10, "bob")
	require.NoError(t, err)
	assert.Equal(t, 10, user.DailyLimit)
	assert.Equal(t, 2, user.Remaining)
	assert.Equal(t, "bob", user.Nickname)
}

func TestRepository_CheckQuota(t *testing.T) {
	ctx := context.Background()
	clk := &fixedClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	repo := newTestRepo(t, clk, 0)

	ok, err := repo.CheckQuota(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.AddUser(ctx, "1001", 1, "")
	require.NoError(t, err)

	ok, err = repo.CheckQuota(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.ConsumeQuota(ctx, "1001"))

	ok, err = repo.CheckQuota(ctx, "1001")
	require.NoError(t, err)
	assert.False(t, ok)

	clk.now = clk.now.Add(24 * time.Hour)

	ok, err = repo.CheckQuota(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepository_ConsumeQuota(t *testing.T) {
	ctx := context.Background()
	clk := &fixedClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	repo := newTestRepo(t, clk, 0)

	err := repo.ConsumeQuota(ctx, "unknown")
	require.EqualError(t, err, "用户不在白名单")

	_, err = repo.AddUser(ctx, "1001", 2, "")
	require.NoError(t, err)

	require.NoError(t, repo.ConsumeQuota(ctx, "1001"))

	user, err := repo.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, 1, user.Remaining)
	require.NotNil(t, user.LastUsedAt)
	assert.WithinDuration(t, clk.now, *user.LastUsedAt, time.Second)

	require.NoError(t, repo.ConsumeQuota(ctx, "1001"))

	err = repo.ConsumeQuota(ctx, "1001")
	require.EqualError(t, err, "用户已达到每日限额")

	// A new day refills the allowance.
	clk.now = clk.now.Add(24 * time.Hour)
	require.NoError(t, repo.ConsumeQuota(ctx, "1001"))

	user, err = repo.GetUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, 1, user.Remaining)
}

func TestRepository_GuildWhitelist(t *testing.T) {
	ctx := context.Background()
	clk := &fixedClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	repo := newTestRepo(t, clk, 0)

	allowed, err := repo.IsGuildAllowed(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, allowed)

	guild, err := repo.AddGuild(ctx, "g1", "test guild")
	require.NoError(t, err)
	assert.Equal(t, "g1", guild.GuildID)
	assert.Equal(t, "test guild", guild.Name)

	allowed, err = repo.IsGuildAllowed(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, allowed)

	removed, err := repo.RemoveGuild(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, removed)

	allowed, err = repo.IsGuildAllowed(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, allowed)

	removed, err = repo.RemoveGuild(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, removed)
}
