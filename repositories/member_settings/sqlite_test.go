package member_settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelai_bot/databases/sqlite"
	"novelai_bot/entities"
	"novelai_bot/logging"
	"novelai_bot/repositories"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()

	ctx := context.Background()
	db, err := sqlite.New(ctx, sqlite.Config{
		Filename: filepath.Join(t.TempDir(), "bot.sqlite"),
		Logger:   logging.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewRepository(&Config{DB: db})
	require.NoError(t, err)

	return repo
}

func TestNewRepository_Validation(t *testing.T) {
	_, err := NewRepository(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing DB")
}

func TestRepository_GetByMemberIDNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.GetByMemberID(ctx, "1001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))
}

func TestRepository_UpsertReplacesExisting(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Upsert(ctx, &entities.MemberSettings{
		MemberID:     "1001",
		DefaultModel: "nai-diffusion-3",
	})
	require.NoError(t, err)

	settings, err := repo.GetByMemberID(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "nai-diffusion-3", settings.DefaultModel)

	_, err = repo.Upsert(ctx, &entities.MemberSettings{
		MemberID:     "1001",
		DefaultModel: "nai-diffusion-4-5-full",
	})
	require.NoError(t, err)

	settings, err = repo.GetByMemberID(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "nai-diffusion-4-5-full", settings.DefaultModel)
}
