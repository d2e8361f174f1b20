package generation_records

import (
	"context"
	"database/sql"
	"errors"

	"novelai_bot/clock"
	"novelai_bot/entities"
)

const insertRecordQuery = `
INSERT INTO generation_records (user_id, guild_id, model, seed, prompt, file_path, llm_model, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`

const recentRecordsQuery = `
SELECT id, user_id, guild_id, model, seed, prompt, file_path, llm_model, created_at
FROM generation_records
ORDER BY id DESC
LIMIT ?;`

const countByUserQuery = `
SELECT COUNT(*) FROM generation_records WHERE user_id = ?;`

type sqliteRepo struct {
	dbConn *sql.DB
	clock  clock.Clock
}

type Config struct {
	DB    *sql.DB
	Clock clock.Clock
}

func NewRepository(cfg *Config) (Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("missing DB parameter")
	}

	repoClock := cfg.Clock
	if repoClock == nil {
		repoClock = clock.NewClock()
	}

	return &sqliteRepo{dbConn: cfg.DB, clock: repoClock}, nil
}

func (repo *sqliteRepo) Create(ctx context.Context, record *entities.GenerationRecord) (*entities.GenerationRecord, error) {
	record.CreatedAt = repo.clock.Now()

	result, err := repo.dbConn.ExecContext(ctx, insertRecordQuery,
		record.UserID,
		record.GuildID,
		record.Model,
		record.Seed,
		record.Prompt,
		record.FilePath,
		record.LLMModel,
		record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (repo *sqliteRepo) Recent(ctx context.Context, limit int) ([]entities.GenerationRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := repo.dbConn.QueryContext(ctx, recentRecordsQuery, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []entities.GenerationRecord
	for rows.Next() {
		var record entities.GenerationRecord
		err = rows.Scan(
			&record.ID,
			&record.UserID,
			&record.GuildID,
			&record.Model,
			&record.Seed,
			&record.Prompt,
			&record.FilePath,
			&record.LLMModel,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (repo *sqliteRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int

	err := repo.dbConn.QueryRowContext(ctx, countByUserQuery, userID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
