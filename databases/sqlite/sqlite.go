package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"novelai_bot/logging"
)

const getCurrentMigration string = `PRAGMA user_version;`
const setCurrentMigration string = `PRAGMA user_version = ?;`

const createUserQuotasTableQuery string = `
CREATE TABLE IF NOT EXISTS user_quotas (
user_id TEXT NOT NULL PRIMARY KEY,
nickname TEXT NOT NULL DEFAULT '',
daily_limit INTEGER NOT NULL,
remaining INTEGER NOT NULL,
last_reset TEXT NOT NULL,
last_used_at DATETIME,
created_at DATETIME NOT NULL
);`

const createGuildWhitelistTableQuery string = `
CREATE TABLE IF NOT EXISTS guild_whitelist (
guild_id TEXT NOT NULL PRIMARY KEY,
name TEXT NOT NULL DEFAULT '',
created_at DATETIME NOT NULL
);`

const createGenerationRecordsTableQuery string = `
CREATE TABLE IF NOT EXISTS generation_records (
id INTEGER NOT NULL PRIMARY KEY,
user_id TEXT NOT NULL,
guild_id TEXT NOT NULL DEFAULT '',
model TEXT NOT NULL,
seed INTEGER NOT NULL,
prompt TEXT NOT NULL,
file_path TEXT NOT NULL,
llm_model TEXT NOT NULL DEFAULT '',
created_at DATETIME NOT NULL
);`

const createGenerationUserIndexQuery string = `
CREATE INDEX IF NOT EXISTS generation_records_user_index
ON generation_records(user_id);
`

const createMemberSettingsTableQuery string = `
CREATE TABLE IF NOT EXISTS member_settings (
member_id TEXT NOT NULL PRIMARY KEY,
default_model TEXT NOT NULL
);`

type migration struct {
	migrationName  string
	migrationQuery string
}

var migrations = []migration{
	{migrationName: "create user quotas table", migrationQuery: createUserQuotasTableQuery},
	{migrationName: "create guild whitelist table", migrationQuery: createGuildWhitelistTableQuery},
	{migrationName: "create generation records table", migrationQuery: createGenerationRecordsTableQuery},
	{migrationName: "add generation records user index", migrationQuery: createGenerationUserIndexQuery},
	{migrationName: "create member settings table", migrationQuery: createMemberSettingsTableQuery},
}

type Config struct {
	Filename string
	Logger   *logging.Logger
}

func New(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Filename == "" {
		return nil, errors.New("missing database filename")
	}
	if cfg.Logger == nil {
		return nil, errors.New("missing logger")
	}

	err := touchDBFile(cfg.Filename)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Filename)
	if err != nil {
		return nil, err
	}

	err = migrate(ctx, db, cfg.Logger)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB, logger *logging.Logger) error {
	var currentMigration int

	row := db.QueryRowContext(ctx, getCurrentMigration)

	err := row.Scan(&currentMigration)
	if err != nil {
		return err
	}

	requiredMigration := len(migrations)

	logger.Info("checking database version",
		zap.Int("current", currentMigration),
		zap.Int("required", requiredMigration))

	if currentMigration < requiredMigration {
		for migrationNum := currentMigration + 1; migrationNum <= requiredMigration; migrationNum++ {
			err = execMigration(ctx, db, logger, migrationNum)
			if err != nil {
				logger.Error("migration failed",
					zap.Int("migration", migrationNum),
					zap.String("name", migrations[migrationNum-1].migrationName),
					zap.Error(err))

				return err
			}
		}
	}

	return nil
}

func execMigration(ctx context.Context, db *sql.DB, logger *logging.Logger, migrationNum int) error {
	logger.Info("running migration",
		zap.Int("migration", migrationNum),
		zap.String("name", migrations[migrationNum-1].migrationName))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	//nolint
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, migrations[migrationNum-1].migrationQuery)
	if err != nil {
		return err
	}

	setQuery := strings.Replace(setCurrentMigration, "?", strconv.Itoa(migrationNum), 1)

	_, err = tx.ExecContext(ctx, setQuery)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	return nil
}

func touchDBFile(filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	_, err := os.Stat(filename)
	if os.IsNotExist(err) {
		file, createErr := os.Create(filename)
		if createErr != nil {
			return createErr
		}

		closeErr := file.Close()
		if closeErr != nil {
			return closeErr
		}
	}

	return nil
}
