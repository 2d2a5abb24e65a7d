package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/linguabridge/linguabridge/internal/prefs"
	"github.com/linguabridge/linguabridge/pkg/lang"
)

// commandDefinitions returns the /translate command group registered
// with the Discord API on startup.
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "translate",
			Description: "Live voice translation",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "join",
					Description: "Join your current voice channel and start translating",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leave",
					Description: "Leave the voice channel",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "language",
					Description: "Set the language your speech is translated into",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "language",
							Description: "Language name or ISO 639-1 code, e.g. \"german\" or \"de\"",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "channel",
					Description: "Set a shared target language for your current voice channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "language",
							Description: "Language name or ISO 639-1 code",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "tts",
							Description: "Speak translations into the voice channel",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "languages",
					Description: "List the supported languages",
				},
			},
		},
	}
}

func (b *Bridge) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != "translate" || len(data.Options) == 0 {
		return
	}

	sub := data.Options[0]
	switch sub.Name {
	case "join":
		b.handleJoin(s, i)
	case "leave":
		b.handleLeave(s, i)
	case "language":
		b.handleLanguage(s, i, sub)
	case "channel":
		b.handleChannel(s, i, sub)
	case "languages":
		b.handleLanguages(s, i)
	default:
		b.log.Warn("unknown subcommand", "name", sub.Name)
		respondEphemeral(s, i, "Unknown command.")
	}
}

// handleJoin handles /translate join.
func (b *Bridge) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	voiceChannelID := b.voiceChannelOf(s, i)
	if voiceChannelID == "" {
		respondEphemeral(s, i, "You must be in a voice channel to start translating.")
		return
	}

	if err := b.joinVoice(i.GuildID, voiceChannelID, i.ChannelID); err != nil {
		b.log.Error("voice join failed", "guild_id", i.GuildID, "error", err)
		respondEphemeral(s, i, "Could not join the voice channel.")
		return
	}
	respondEphemeral(s, i, "Listening. Translations will be posted here.")
}

// handleLeave handles /translate leave.
func (b *Bridge) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.leaveVoice(i.GuildID) {
		respondEphemeral(s, i, "Not in a voice channel.")
		return
	}
	respondEphemeral(s, i, "Left the voice channel.")
}

// handleLanguage handles /translate language.
func (b *Bridge) handleLanguage(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	code, ok := lang.Resolve(stringOption(sub, "language"))
	if !ok {
		respondEphemeral(s, i, "Unknown language. Use `/translate languages` to see the supported list.")
		return
	}

	userID := interactionUserID(i)
	if err := b.store.SetUserLanguage(context.Background(), userID, code); err != nil {
		b.log.Error("user language update failed", "user_id", userID, "error", err)
		respondEphemeral(s, i, "Could not save your language preference.")
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Your speech will now be translated into %s.", lang.Name(code)))
}

// handleChannel handles /translate channel.
func (b *Bridge) handleChannel(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	voiceChannelID := b.voiceChannelOf(s, i)
	if voiceChannelID == "" {
		respondEphemeral(s, i, "You must be in a voice channel to configure it.")
		return
	}

	code, ok := lang.Resolve(stringOption(sub, "language"))
	if !ok {
		respondEphemeral(s, i, "Unknown language. Use `/translate languages` to see the supported list.")
		return
	}

	settings := prefs.ChannelSettings{
		TargetLanguage: code,
		EnableTTS:      boolOption(sub, "tts"),
	}
	if err := b.store.SetChannelSettings(context.Background(), i.GuildID, voiceChannelID, settings); err != nil {
		b.log.Error("channel settings update failed",
			"guild_id", i.GuildID, "channel_id", voiceChannelID, "error", err)
		respondEphemeral(s, i, "Could not save the channel settings.")
		return
	}

	msg := fmt.Sprintf("Channel speech will be translated into %s.", lang.Name(code))
	if settings.EnableTTS {
		msg += " Translations will also be spoken aloud."
	}
	respondEphemeral(s, i, msg)
}

// handleLanguages handles /translate languages.
func (b *Bridge) handleLanguages(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var sb strings.Builder
	sb.WriteString("Supported languages:\n")
	for _, l := range lang.Supported() {
		fmt.Fprintf(&sb, "`%s` %s\n", l.Code, l.Name)
	}
	respondEphemeral(s, i, sb.String())
}

// voiceChannelOf returns the voice channel the invoking user currently
// occupies, or "" when they are not in one.
func (b *Bridge) voiceChannelOf(s *discordgo.Session, i *discordgo.InteractionCreate) string {
	vs, err := s.State.VoiceState(i.GuildID, interactionUserID(i))
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// interactionUserID extracts the invoking user's ID. Guild interactions
// carry a Member; DMs carry a User.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func stringOption(sub *discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range sub.Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func boolOption(sub *discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	for _, opt := range sub.Options {
		if opt.Name == name {
			return opt.BoolValue()
		}
	}
	return false
}

// respondEphemeral sends an ephemeral text response to an interaction.
func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Warn("interaction response failed", "error", err)
	}
}
