// Package prefs stores per-user and per-channel translation preferences:
// which language a user wants results in, and whether a voice channel has
// speech synthesis enabled. The voice bridge consults the store before
// submitting audio so that each speaker's output lands in the language their
// listeners asked for.
package prefs

import "context"

// ChannelSettings holds the translation configuration of one voice channel.
type ChannelSettings struct {
	// TargetLanguage is the language code results are translated into for
	// this channel.
	TargetLanguage string

	// EnableTTS controls whether synthesized speech is requested alongside
	// the text result.
	EnableTTS bool
}

// Store provides lookup and update operations for translation preferences.
// Implementations must be safe for concurrent use.
type Store interface {
	// SetUserLanguage records userID's preferred result language,
	// overwriting any previous preference.
	SetUserLanguage(ctx context.Context, userID, language string) error

	// UserLanguage returns userID's preferred language, or "" when the user
	// has no recorded preference.
	UserLanguage(ctx context.Context, userID string) (string, error)

	// UpsertGuild records that the service is active in the named guild.
	UpsertGuild(ctx context.Context, guildID, name string) error

	// SetChannelSettings records the translation configuration for a voice
	// channel, overwriting any previous configuration.
	SetChannelSettings(ctx context.Context, guildID, channelID string, s ChannelSettings) error

	// ChannelSettings returns the configuration for a voice channel, or
	// (nil, nil) when the channel has never been configured.
	ChannelSettings(ctx context.Context, guildID, channelID string) (*ChannelSettings, error)
}
