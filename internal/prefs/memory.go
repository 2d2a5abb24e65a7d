package prefs

import (
	"context"
	"sync"
)

// MemStore is an in-memory [Store]. It is the default when no database DSN is
// configured; preferences are lost on restart.
type MemStore struct {
	mu       sync.RWMutex
	users    map[string]string
	guilds   map[string]string
	channels map[channelKey]ChannelSettings
}

type channelKey struct {
	guildID   string
	channelID string
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		users:    make(map[string]string),
		guilds:   make(map[string]string),
		channels: make(map[channelKey]ChannelSettings),
	}
}

// SetUserLanguage records userID's preferred result language.
func (s *MemStore) SetUserLanguage(_ context.Context, userID, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = language
	return nil
}

// UserLanguage returns userID's preferred language, or "" when unset.
func (s *MemStore) UserLanguage(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID], nil
}

// UpsertGuild records the guild.
func (s *MemStore) UpsertGuild(_ context.Context, guildID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[guildID] = name
	return nil
}

// SetChannelSettings records the channel configuration.
func (s *MemStore) SetChannelSettings(_ context.Context, guildID, channelID string, cs ChannelSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channelKey{guildID, channelID}] = cs
	return nil
}

// ChannelSettings returns the channel configuration, or (nil, nil) when the
// channel has never been configured.
func (s *MemStore) ChannelSettings(_ context.Context, guildID, channelID string) (*ChannelSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.channels[channelKey{guildID, channelID}]
	if !ok {
		return nil, nil
	}
	return &cs, nil
}
