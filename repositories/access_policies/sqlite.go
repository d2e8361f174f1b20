package access_policies

import (
	"context"
	"database/sql"
	"errors"

	"novelai_bot/clock"
	"novelai_bot/entities"
	"novelai_bot/repositories"
)

const defaultDailyLimit = 10

const dateLayout = "2006-01-02"

const upsertUserQuery = `
INSERT OR REPLACE INTO user_quotas (user_id, nickname, daily_limit, remaining, last_reset, last_used_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?);`

const getUserQuery = `
SELECT user_id, nickname, daily_limit, remaining, last_reset, last_used_at, created_at
FROM user_quotas
WHERE user_id = ?;`

const deleteUserQuery = `
DELETE FROM user_quotas WHERE user_id = ?;`

const userExistsQuery = `
SELECT COUNT(*) FROM user_quotas WHERE user_id = ?;`

const upsertGuildQuery = `
INSERT OR REPLACE INTO guild_whitelist (guild_id, name, created_at)
VALUES (?, ?, ?);`

const deleteGuildQuery = `
DELETE FROM guild_whitelist WHERE guild_id = ?;`

const guildExistsQuery = `
SELECT COUNT(*) FROM guild_whitelist WHERE guild_id = ?;`

type sqliteRepo struct {
	dbConn            *sql.DB
	clock             clock.Clock
	defaultDailyLimit int
}

type Config struct {
	DB *sql.DB

	// Clock defaults to the wall clock; tests inject a fixed one to drive
	// quota resets across day boundaries.
	Clock clock.Clock

	DefaultDailyLimit int
}

func NewRepository(cfg *Config) (Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("missing DB parameter")
	}

	repoClock := cfg.Clock
	if repoClock == nil {
		repoClock = clock.NewClock()
	}

	limit := cfg.DefaultDailyLimit
	if limit <= 0 {
		limit = defaultDailyLimit
	}

	return &sqliteRepo{
		dbConn:            cfg.DB,
		clock:             repoClock,
		defaultDailyLimit: limit,
	}, nil
}

func (repo *sqliteRepo) IsWhitelisted(ctx context.Context, userID string) (bool, error) {
	var count int

	err := repo.dbConn.QueryRowContext(ctx, userExistsQuery, userID).Scan(&count)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (repo *sqliteRepo) AddUser(ctx context.Context, userID string, dailyLimit int, nickname string) (*entities.UserQuota, error) {
	if dailyLimit <= 0 {
		dailyLimit = repo.defaultDailyLimit
	}

	user := &entities.UserQuota{
		UserID:     userID,
		Nickname:   nickname,
		DailyLimit: dailyLimit,
		Remaining:  dailyLimit,
		LastReset:  repo.today(),
		CreatedAt:  repo.clock.Now(),
	}

	err := repo.saveUser(ctx, repo.dbConn, user)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (repo *sqliteRepo) RemoveUser(ctx context.Context, userID string) (bool, error) {
	result, err := repo.dbConn.ExecContext(ctx, deleteUserQuery, userID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (repo *sqliteRepo) GetUser(ctx context.Context, userID string) (*entities.UserQuota, error) {
	user, err := repo.getUser(ctx, repo.dbConn, userID)
	if err != nil {
		return nil, err
	}

	if repo.resetIfStale(user) {
		err = repo.saveUser(ctx, repo.dbConn, user)
		if err != nil {
			return nil, err
		}
	}

	return user, nil
}

func (repo *sqliteRepo) SetQuota(ctx context.Context, userID string, limit int, nickname string) (*entities.UserQuota, error) {
	if limit <= 0 {
		return nil, errors.New("每日限额必须大于0")
	}

	tx, err := repo.dbConn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	//nolint
	defer tx.Rollback()

	user, err := repo.getUser(ctx, tx, userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		user = &entities.UserQuota{
			UserID:     userID,
			Nickname:   nickname,
			DailyLimit: limit,
			Remaining:  limit,
			LastReset:  repo.today(),
			CreatedAt:  repo.clock.Now(),
		}
	} else {
		user.DailyLimit = limit
		if user.Remaining > limit {
			user.Remaining = limit
		}
		if nickname != "" {
			user.Nickname = nickname
		}
	}

	err = repo.saveUser(ctx, tx, user)
	if err != nil {
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (repo *sqliteRepo) CheckQuota(ctx context.Context, userID string) (bool, error) {
	user, err := repo.getUser(ctx, repo.dbConn, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if repo.resetIfStale(user) {
		err = repo.saveUser(ctx, repo.dbConn, user)
		if err != nil {
			return false, err
		}
	}

	return user.Remaining > 0, nil
}

func (repo *sqliteRepo) ConsumeQuota(ctx context.Context, userID string) error {
	tx, err := repo.dbConn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	//nolint
	defer tx.Rollback()

	user, err := repo.getUser(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return errors.New("用户不在白名单")
		}
		return err
	}

	repo.resetIfStale(user)
	if user.Remaining <= 0 {
		return errors.New("用户已达到每日限额")
	}

	user.Remaining--
	now := repo.clock.Now()
	user.LastUsedAt = &now

	err = repo.saveUser(ctx, tx, user)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (repo *sqliteRepo) IsGuildAllowed(ctx context.Context, guildID string) (bool, error) {
	var count int

	err := repo.dbConn.QueryRowContext(ctx, guildExistsQuery, guildID).Scan(&count)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (repo *sqliteRepo) AddGuild(ctx context.Context, guildID, name string) (*entities.WhitelistedGuild, error) {
	guild := &entities.WhitelistedGuild{
		GuildID:   guildID,
		Name:      name,
		CreatedAt: repo.clock.Now(),
	}

	_, err := repo.dbConn.ExecContext(ctx, upsertGuildQuery, guild.GuildID, guild.Name, guild.CreatedAt)
	if err != nil {
		return nil, err
	}

	return guild, nil
}

func (repo *sqliteRepo) RemoveGuild(ctx context.Context, guildID string) (bool, error) {
	result, err := repo.dbConn.ExecContext(ctx, deleteGuildQuery, guildID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// dbtx lets the row helpers run against the pool or an open transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (repo *sqliteRepo) getUser(ctx context.Context, db dbtx, userID string) (*entities.UserQuota, error) {
	user := &entities.UserQuota{}

	var lastUsedAt sql.NullTime

	err := db.QueryRowContext(ctx, getUserQuery, userID).Scan(
		&user.UserID,
		&user.Nickname,
		&user.DailyLimit,
		&user.Remaining,
		&user.LastReset,
		&lastUsedAt,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.NewNotFoundError("user quota")
	}
	if err != nil {
		return nil, err
	}

	if lastUsedAt.Valid {
		used := lastUsedAt.Time
		user.LastUsedAt = &used
	}

	return user, nil
}

func (repo *sqliteRepo) saveUser(ctx context.Context, db dbtx, user *entities.UserQuota) error {
	var lastUsedAt any
	if user.LastUsedAt != nil {
		lastUsedAt = *user.LastUsedAt
	}

	_, err := db.ExecContext(ctx, upsertUserQuery,
		user.UserID,
		user.Nickname,
		user.DailyLimit,
		user.Remaining,
		user.LastReset,
		lastUsedAt,
		user.CreatedAt,
	)

	return err
}

// resetIfStale refills the quota when the stored reset date is not today.
// It reports whether the user changed.
func (repo *sqliteRepo) resetIfStale(user *entities.UserQuota) bool {
	today := repo.today()
	if user.LastReset == today {
		return false
	}

	user.LastReset = today
	user.Remaining = user.DailyLimit

	return true
}

func (repo *sqliteRepo) today() string {
	return repo.clock.Now().Format(dateLayout)
}
