package member_settings

import (
	"context"
	"database/sql"
	"errors"

	"novelai_bot/entities"
	"novelai_bot/repositories"
)

const upsertQuery = `
INSERT OR REPLACE INTO member_settings (member_id, default_model)
VALUES (?, ?);`

const getQuery = `
SELECT member_id, default_model
FROM member_settings
WHERE member_id = ?;`

type sqliteRepo struct {
	dbConn *sql.DB
}

type Config struct {
	DB *sql.DB
}

func NewRepository(cfg *Config) (Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("missing DB parameter")
	}

	return &sqliteRepo{dbConn: cfg.DB}, nil
}

func (repo *sqliteRepo) Upsert(ctx context.Context, settings *entities.MemberSettings) (*entities.MemberSettings, error) {
	_, err := repo.dbConn.ExecContext(ctx, upsertQuery, settings.MemberID, settings.DefaultModel)
	if err != nil {
		return nil, err
	}

	return settings, nil
}

func (repo *sqliteRepo) GetByMemberID(ctx context.Context, memberID string) (*entities.MemberSettings, error) {
	settings := &entities.MemberSettings{}

	err := repo.dbConn.QueryRowContext(ctx, getQuery, memberID).Scan(
		&settings.MemberID,
		&settings.DefaultModel,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.NewNotFoundError("member settings")
	}
	if err != nil {
		return nil, err
	}

	return settings, nil
}
