// Package bridge runs the Discord side of the translator: it joins voice
// channels, segments each participant's speech, submits utterances to the
// gateway through [client.Client], and posts translated text (and
// optionally synthesized speech) back to the guild.
package bridge

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/linguabridge/linguabridge/internal/prefs"
	"github.com/linguabridge/linguabridge/internal/protocol"
	"github.com/linguabridge/linguabridge/pkg/client"
)

// Bridge owns the Discord gateway connection, one voice session per
// guild, and the slash command surface for configuring translation
// preferences.
type Bridge struct {
	session *discordgo.Session
	store   prefs.Store
	client  *client.Client
	log     *slog.Logger

	mu     sync.RWMutex
	voices map[string]*voiceSession // keyed by guild ID

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a [Bridge].
type Option func(*Bridge)

// WithLogger sets the structured logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(b *Bridge) { b.log = log }
}

// New creates a Bridge, connects to Discord, and registers its event
// handlers. Call [Bridge.Run] to register slash commands and start
// forwarding audio.
func New(token string, store prefs.Store, cl *client.Client, opts ...Option) (*Bridge, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("bridge: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates

	b := &Bridge{
		session: session,
		store:   store,
		client:  cl,
		log:     slog.Default(),
		voices:  make(map[string]*voiceSession),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	session.AddHandler(b.handleInteraction)
	session.AddHandler(b.handleGuildCreate)

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("bridge: open session: %w", err)
	}
	return b, nil
}

// Run registers slash commands with the Discord API, starts the result
// consumers, and blocks until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	appID := b.session.State.User.ID
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, "", commandDefinitions()); err != nil {
		return fmt.Errorf("bridge: register commands: %w", err)
	}

	go b.resultLoop()
	go b.errorLoop()

	<-ctx.Done()
	b.Close()
	return nil
}

// Close disconnects all voice sessions and the Discord session. Safe to
// call more than once.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		for guildID, vs := range b.voices {
			vs.Close()
			delete(b.voices, guildID)
		}
		b.mu.Unlock()

		if err := b.session.Close(); err != nil {
			b.log.Warn("discord session close failed", "error", err)
		}
	})
}

func (b *Bridge) handleGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if err := b.store.UpsertGuild(context.Background(), g.ID, g.Name); err != nil {
		b.log.Warn("guild upsert failed", "guild_id", g.ID, "error", err)
	}
}

// joinVoice connects to a voice channel and starts forwarding its
// utterances. An existing session for the guild is replaced.
func (b *Bridge) joinVoice(guildID, voiceChannelID, textChannelID string) error {
	vc, err := b.session.ChannelVoiceJoin(guildID, voiceChannelID, false, false)
	if err != nil {
		return fmt.Errorf("bridge: join voice channel: %w", err)
	}

	vs := newVoiceSession(vc, guildID, voiceChannelID, textChannelID,
		b.log.With("guild_id", guildID, "channel_id", voiceChannelID))

	b.mu.Lock()
	if old, ok := b.voices[guildID]; ok {
		old.Close()
	}
	b.voices[guildID] = vs
	b.mu.Unlock()

	go b.pumpUtterances(vs)

	b.log.Info("joined voice channel", "guild_id", guildID, "channel_id", voiceChannelID)
	return nil
}

// leaveVoice tears down the guild's voice session, if any.
func (b *Bridge) leaveVoice(guildID string) bool {
	b.mu.Lock()
	vs, ok := b.voices[guildID]
	if ok {
		delete(b.voices, guildID)
	}
	b.mu.Unlock()

	if ok {
		vs.Close()
		b.log.Info("left voice channel", "guild_id", guildID)
	}
	return ok
}

func (b *Bridge) voiceSessionFor(guildID string) *voiceSession {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.voices[guildID]
}

// pumpUtterances submits each completed utterance from the voice session
// to the gateway, tagged with the speaker's translation preferences.
func (b *Bridge) pumpUtterances(vs *voiceSession) {
	ctx := context.Background()
	for utt := range vs.utterances {
		target, generateTTS := b.resolvePrefs(ctx, vs, utt.userID)

		req := &protocol.AudioRequest{
			GuildID:        vs.guildID,
			ChannelID:      vs.textChannelID,
			UserID:         utt.userID,
			Username:       b.username(vs.guildID, utt.userID),
			SampleRate:     opusSampleRate,
			TargetLanguage: target,
			GenerateTTS:    generateTTS,
			Samples:        utt.samples,
		}

		if err := b.client.SendAudio(req); err != nil {
			b.log.Warn("audio submit failed",
				"guild_id", vs.guildID, "user_id", utt.userID, "error", err)
		}
	}
}

// resolvePrefs picks the target language and TTS mode for an utterance.
// Channel settings win; otherwise the speaker's preferred language is
// used. An empty target falls back to the gateway default.
func (b *Bridge) resolvePrefs(ctx context.Context, vs *voiceSession, userID string) (target string, generateTTS bool) {
	settings, err := b.store.ChannelSettings(ctx, vs.guildID, vs.voiceChannelID)
	if err != nil {
		b.log.Warn("channel settings lookup failed", "guild_id", vs.guildID, "error", err)
	}
	if settings != nil {
		return settings.TargetLanguage, settings.EnableTTS
	}

	userLang, err := b.store.UserLanguage(ctx, userID)
	if err != nil {
		b.log.Warn("user language lookup failed", "user_id", userID, "error", err)
	}
	return userLang, false
}

func (b *Bridge) username(guildID, userID string) string {
	member, err := b.session.State.Member(guildID, userID)
	if err != nil || member == nil {
		return userID
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return userID
}

// resultLoop posts each translation result to the text channel it was
// correlated with, and plays synthesized speech into the guild's voice
// channel when present.
func (b *Bridge) resultLoop() {
	for {
		select {
		case <-b.done:
			return
		case res, ok := <-b.client.Results():
			if !ok {
				return
			}
			b.postResult(res)
		}
	}
}

func (b *Bridge) postResult(res *protocol.Result) {
	if res.TranslatedText != "" && res.ChannelID != "" {
		msg := formatResult(res)
		if _, err := b.session.ChannelMessageSend(res.ChannelID, msg); err != nil {
			b.log.Warn("result post failed", "channel_id", res.ChannelID, "error", err)
		}
	}

	if res.TTSAudio == nil {
		return
	}
	vs := b.voiceSessionFor(res.GuildID)
	if vs == nil {
		return
	}

	wav, err := base64.StdEncoding.DecodeString(*res.TTSAudio)
	if err != nil {
		b.log.Warn("tts payload decode failed", "guild_id", res.GuildID, "error", err)
		return
	}
	go func() {
		if err := vs.play(wav); err != nil {
			b.log.Warn("tts playback failed", "guild_id", res.GuildID, "error", err)
		}
	}()
}

// formatResult renders a translation for the text channel. The original
// text is shown only when translation actually changed it.
func formatResult(res *protocol.Result) string {
	if res.OriginalText == res.TranslatedText {
		return fmt.Sprintf("**%s** [%s]: %s", res.Username, res.SourceLanguage, res.TranslatedText)
	}
	return fmt.Sprintf("**%s** [%s to %s]: %s\n-# %s",
		res.Username, res.SourceLanguage, res.TargetLanguage, res.TranslatedText, res.OriginalText)
}

func (b *Bridge) errorLoop() {
	for {
		select {
		case <-b.done:
			return
		case errResp, ok := <-b.client.Errors():
			if !ok {
				return
			}
			b.log.Warn("gateway rejected a frame",
				"code", errResp.Code, "message", errResp.Message)
		}
	}
}
