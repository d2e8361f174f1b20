package generation_records

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelai_bot/databases/sqlite"
	"novelai_bot/entities"
	"novelai_bot/logging"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func newTestRepo(t *testing.T) (Repository, *fixedClock) {
	t.Helper()

	ctx := context.Background()
	db, err := sqlite.New(ctx, sqlite.Config{
		Filename: filepath.Join(t.TempDir(), "bot.sqlite"),
		Logger:   logging.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clk := &fixedClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	repo, err := NewRepository(&Config{DB: db, Clock: clk})
	require.NoError(t, err)

	return repo, clk
}

func TestNewRepository_Validation(t *testing.T) {
	_, err := NewRepository(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing DB")
}

func TestRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo, clk := newTestRepo(t)

	record, err := repo.Create(ctx, &entities.GenerationRecord{
		UserID:   "1001",
		GuildID:  "g1",
		Model:    "nai-diffusion-4-5-curated",
		Seed:     123456789,
		Prompt:   "1girl, solo",
		FilePath: "outputs/2024/03/img.png",
		LLMModel: "",
	})
	require.NoError(t, err)
	assert.Greater(t, record.ID, int64(0))
	assert.WithinDuration(t, clk.now, record.CreatedAt, time.Second)
}

func TestRepository_RecentReturnsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	for _, prompt := range []string{"first", "second", "third"} {
		_, err := repo.Create(ctx, &entities.GenerationRecord{
			UserID: "1001",
			Model:  "nai-diffusion-4-5-curated",
			Seed:   1,
			Prompt: prompt,
		})
		require.NoError(t, err)
	}

	records, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "third", records[0].Prompt)
	assert.Equal(t, "second", records[1].Prompt)

	// A non-positive limit falls back to the default page size.
	records, err = repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestRepository_CountByUser(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	for _, userID := range []string{"1001", "1001", "1002"} {
		_, err := repo.Create(ctx, &entities.GenerationRecord{
			UserID: userID,
			Model:  "nai-diffusion-4-5-curated",
			Seed:   1,
			Prompt: "cat",
		})
		require.NoError(t, err)
	}

	count, err := repo.CountByUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountByUser(ctx, "1002")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.CountByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
