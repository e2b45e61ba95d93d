package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/drpramila84/600-commanddiscord/internal/config"
)

// Database is the SQLite-backed guild settings store.
type Database struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the settings database at path.
func Open(ctx context.Context, path string) (*Database, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	d := &Database{db: db, now: time.Now}
	if err := d.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return d, nil
}

func (d *Database) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Columns are nullable on purpose: a NULL means "never set" and falls back
// to the documented default when loaded.
func (d *Database) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS guild_config (
		guild_id TEXT PRIMARY KEY,
		enabled INTEGER NOT NULL DEFAULT 0,
		anti_ban INTEGER,
		anti_kick INTEGER,
		anti_channel_create INTEGER,
		anti_channel_delete INTEGER,
		anti_role_create INTEGER,
		anti_role_delete INTEGER,
		anti_webhook_create INTEGER,
		anti_bot_add INTEGER,
		anti_raid INTEGER,
		ban_threshold INTEGER,
		kick_threshold INTEGER,
		channel_create_threshold INTEGER,
		channel_delete_threshold INTEGER,
		role_create_threshold INTEGER,
		role_delete_threshold INTEGER,
		webhook_create_threshold INTEGER,
		bot_add_threshold INTEGER,
		time_window INTEGER,
		raid_threshold INTEGER,
		raid_time_window INTEGER,
		punishment TEXT,
		log_channel_id TEXT,
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS whitelist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(guild_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_whitelist_guild ON whitelist(guild_id);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

const selectGuildConfig = `
	SELECT enabled,
		anti_ban, anti_kick, anti_channel_create, anti_channel_delete, anti_role_create,
		anti_role_delete, anti_webhook_create, anti_bot_add, anti_raid,
		ban_threshold, kick_threshold, channel_create_threshold, channel_delete_threshold,
		role_create_threshold, role_delete_threshold, webhook_create_threshold, bot_add_threshold,
		time_window, raid_threshold, raid_time_window, punishment, log_channel_id
	FROM guild_config WHERE guild_id = ?`

// Load returns the guild's settings. A guild with no row gets defaults with
// protection disabled. Any other failure is returned so the caller can treat
// the guild as unconfigured.
func (d *Database) Load(ctx context.Context, guildID string) (*config.GuildSettings, error) {
	s := config.DefaultGuildSettings(guildID)

	var row guildConfigRow
	err := d.db.QueryRowContext(ctx, selectGuildConfig, guildID).Scan(row.dest()...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("load guild config %s: %w", guildID, err)
	default:
		row.apply(s)
	}

	wl, err := d.Whitelist(ctx, guildID)
	if err != nil {
		return nil, err
	}
	s.Whitelist = wl
	s.Normalize()
	return s, nil
}

// Save writes every field of s and replaces the guild's whitelist.
func (d *Database) Save(ctx context.Context, s *config.GuildSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save %s: %w", s.GuildID, err)
	}
	defer tx.Rollback()

	now := d.now().Unix()
	t, th := s.Toggles, s.Thresholds
	_, err = tx.ExecContext(ctx, `
		INSERT INTO guild_config (
			guild_id, enabled,
			anti_ban, anti_kick, anti_channel_create, anti_channel_delete, anti_role_create,
			anti_role_delete, anti_webhook_create, anti_bot_add, anti_raid,
			ban_threshold, kick_threshold, channel_create_threshold, channel_delete_threshold,
			role_create_threshold, role_delete_threshold, webhook_create_threshold, bot_add_threshold,
			time_window, raid_threshold, raid_time_window, punishment, log_channel_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			enabled = excluded.enabled,
			anti_ban = excluded.anti_ban,
			anti_kick = excluded.anti_kick,
			anti_channel_create = excluded.anti_channel_create,
			anti_channel_delete = excluded.anti_channel_delete,
			anti_role_create = excluded.anti_role_create,
			anti_role_delete = excluded.anti_role_delete,
			anti_webhook_create = excluded.anti_webhook_create,
			anti_bot_add = excluded.anti_bot_add,
			anti_raid = excluded.anti_raid,
			ban_threshold = excluded.ban_threshold,
			kick_threshold = excluded.kick_threshold,
			channel_create_threshold = excluded.channel_create_threshold,
			channel_delete_threshold = excluded.channel_delete_threshold,
			role_create_threshold = excluded.role_create_threshold,
			role_delete_threshold = excluded.role_delete_threshold,
			webhook_create_threshold = excluded.webhook_create_threshold,
			bot_add_threshold = excluded.bot_add_threshold,
			time_window = excluded.time_window,
			raid_threshold = excluded.raid_threshold,
			raid_time_window = excluded.raid_time_window,
			punishment = excluded.punishment,
			log_channel_id = excluded.log_channel_id,
			updated_at = excluded.updated_at`,
		s.GuildID, s.Enabled,
		t.Ban, t.Kick, t.ChannelCreate, t.ChannelDelete, t.RoleCreate,
		t.RoleDelete, t.WebhookCreate, t.BotAdd, t.Raid,
		th.Ban, th.Kick, th.ChannelCreate, th.ChannelDelete,
		th.RoleCreate, th.RoleDelete, th.WebhookCreate, th.BotAdd,
		s.TimeWindowSeconds, s.RaidThreshold, s.RaidTimeWindowSeconds, s.Punishment.String(), s.LogChannelID,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("save guild config %s: %w", s.GuildID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM whitelist WHERE guild_id = ?`, s.GuildID); err != nil {
		return fmt.Errorf("reset whitelist %s: %w", s.GuildID, err)
	}
	for _, userID := range s.Whitelist {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO whitelist (guild_id, user_id, created_at) VALUES (?, ?, ?)`,
			s.GuildID, userID, now,
		); err != nil {
			return fmt.Errorf("save whitelist %s: %w", s.GuildID, err)
		}
	}
	return tx.Commit()
}

// AddWhitelist reports whether userID was newly added.
func (d *Database) AddWhitelist(ctx context.Context, guildID, userID string) (bool, error) {
	res, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO whitelist (guild_id, user_id, created_at) VALUES (?, ?, ?)`,
		guildID, userID, d.now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("whitelist add %s/%s: %w", guildID, userID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RemoveWhitelist reports whether userID was on the whitelist.
func (d *Database) RemoveWhitelist(ctx context.Context, guildID, userID string) (bool, error) {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM whitelist WHERE guild_id = ? AND user_id = ?`,
		guildID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("whitelist remove %s/%s: %w", guildID, userID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (d *Database) Whitelist(ctx context.Context, guildID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT user_id FROM whitelist WHERE guild_id = ? ORDER BY id`,
		guildID,
	)
	if err != nil {
		return nil, fmt.Errorf("load whitelist %s: %w", guildID, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Guilds lists every guild with a stored configuration row.
func (d *Database) Guilds(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT guild_id FROM guild_config ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query guild configs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan guild ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
