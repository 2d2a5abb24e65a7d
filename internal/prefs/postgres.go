package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the preference tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS guilds (
    guild_id   TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    joined_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS user_preferences (
    user_id            TEXT PRIMARY KEY,
    preferred_language TEXT NOT NULL,
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS voice_channel_settings (
    guild_id        TEXT NOT NULL,
    channel_id      TEXT NOT NULL,
    target_language TEXT NOT NULL,
    enable_tts      BOOLEAN NOT NULL DEFAULT false,
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (guild_id, channel_id)
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// preference tables if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("prefs: migrate: %w", err)
	}
	return nil
}

// SetUserLanguage records userID's preferred result language.
func (s *PostgresStore) SetUserLanguage(ctx context.Context, userID, language string) error {
	const query = `
		INSERT INTO user_preferences (user_id, preferred_language)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET preferred_language = EXCLUDED.preferred_language, updated_at = now()`

	_, err := s.db.Exec(ctx, query, userID, language)
	if err != nil {
		return fmt.Errorf("prefs: set user language: %w", err)
	}
	return nil
}

// UserLanguage returns userID's preferred language, or "" when the user has
// no recorded preference.
func (s *PostgresStore) UserLanguage(ctx context.Context, userID string) (string, error) {
	const query = `SELECT preferred_language FROM user_preferences WHERE user_id = $1`

	var language string
	err := s.db.QueryRow(ctx, query, userID).Scan(&language)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("prefs: user language %q: %w", userID, err)
	}
	return language, nil
}

// UpsertGuild records that the service is active in the named guild.
func (s *PostgresStore) UpsertGuild(ctx context.Context, guildID, name string) error {
	const query = `
		INSERT INTO guilds (guild_id, name)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET name = EXCLUDED.name`

	_, err := s.db.Exec(ctx, query, guildID, name)
	if err != nil {
		return fmt.Errorf("prefs: upsert guild %q: %w", guildID, err)
	}
	return nil
}

// SetChannelSettings records the translation configuration for a voice
// channel.
func (s *PostgresStore) SetChannelSettings(ctx context.Context, guildID, channelID string, cs ChannelSettings) error {
	const query = `
		INSERT INTO voice_channel_settings (guild_id, channel_id, target_language, enable_tts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, channel_id) DO UPDATE
		SET target_language = EXCLUDED.target_language,
		    enable_tts = EXCLUDED.enable_tts,
		    updated_at = now()`

	_, err := s.db.Exec(ctx, query, guildID, channelID, cs.TargetLanguage, cs.EnableTTS)
	if err != nil {
		return fmt.Errorf("prefs: set channel settings: %w", err)
	}
	return nil
}

// ChannelSettings returns the configuration for a voice channel, or
// (nil, nil) when the channel has never been configured.
func (s *PostgresStore) ChannelSettings(ctx context.Context, guildID, channelID string) (*ChannelSettings, error) {
	const query = `
		SELECT target_language, enable_tts
		FROM voice_channel_settings
		WHERE guild_id = $1 AND channel_id = $2`

	var cs ChannelSettings
	err := s.db.QueryRow(ctx, query, guildID, channelID).Scan(&cs.TargetLanguage, &cs.EnableTTS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("prefs: channel settings %s/%s: %w", guildID, channelID, err)
	}
	return &cs, nil
}
