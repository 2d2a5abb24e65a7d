package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"

	"github.com/linguabridge/linguabridge/pkg/audio"
)

// Discord voice runs 48kHz stereo Opus in 20ms frames.
const (
	opusSampleRate = 48000
	opusChannels   = 2
	opusFrameSize  = 960 // samples per channel per 20ms frame
	opusMaxBytes   = 3200
)

// utterance is one participant's completed speech segment: mono PCM at
// [opusSampleRate], ready to submit to the gateway.
type utterance struct {
	userID  string
	samples []int16
}

// voiceSession owns one voice channel connection. It demuxes incoming
// Opus packets by SSRC, decodes them to PCM, downmixes to mono, and runs
// each participant's stream through a [speechBuffer]. Completed
// utterances are delivered on the utterances channel.
type voiceSession struct {
	vc             *discordgo.VoiceConnection
	guildID        string
	voiceChannelID string
	textChannelID  string
	log            *slog.Logger

	mu        sync.RWMutex
	ssrcUsers map[uint32]string

	utterances chan utterance
	done       chan struct{}
	closeOnce  sync.Once

	sendMu  sync.Mutex
	encoder *gopus.Encoder
}

func newVoiceSession(vc *discordgo.VoiceConnection, guildID, voiceChannelID, textChannelID string, log *slog.Logger) *voiceSession {
	vs := &voiceSession{
		vc:             vc,
		guildID:        guildID,
		voiceChannelID: voiceChannelID,
		textChannelID:  textChannelID,
		log:            log,
		ssrcUsers:      make(map[uint32]string),
		utterances:     make(chan utterance, 16),
		done:           make(chan struct{}),
	}

	// Discord announces SSRC to user mappings via speaking updates.
	vc.AddHandler(vs.onSpeakingUpdate)

	go vs.recvLoop()
	return vs
}

func (vs *voiceSession) onSpeakingUpdate(_ *discordgo.VoiceConnection, su *discordgo.VoiceSpeakingUpdate) {
	vs.mu.Lock()
	vs.ssrcUsers[uint32(su.SSRC)] = su.UserID
	vs.mu.Unlock()
}

func (vs *voiceSession) userForSSRC(ssrc uint32) string {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ssrcUsers[ssrc]
}

// recvLoop reads Opus packets until the session closes. Each SSRC gets
// its own decoder to maintain state across frames, and its own speech
// buffer so overlapping speakers segment independently.
func (vs *voiceSession) recvLoop() {
	defer close(vs.utterances)

	decoders := make(map[uint32]*gopus.Decoder)
	buffers := make(map[uint32]*speechBuffer)
	defer vs.flushBuffers(buffers)

	for {
		select {
		case <-vs.done:
			return
		case pkt, ok := <-vs.vc.OpusRecv:
			if !ok {
				return
			}

			dec, exists := decoders[pkt.SSRC]
			if !exists {
				var err error
				dec, err = gopus.NewDecoder(opusSampleRate, opusChannels)
				if err != nil {
					vs.log.Error("opus decoder init failed", "ssrc", pkt.SSRC, "error", err)
					continue
				}
				decoders[pkt.SSRC] = dec
				buffers[pkt.SSRC] = newSpeechBuffer(opusSampleRate)
			}

			pcm, err := dec.Decode(pkt.Opus, opusFrameSize, false)
			if err != nil {
				vs.log.Warn("opus decode failed", "ssrc", pkt.SSRC, "error", err)
				continue
			}

			mono := audio.StereoToMono(pcm)
			seg := buffers[pkt.SSRC].Push(mono, time.Now())
			if seg == nil {
				continue
			}

			userID := vs.userForSSRC(pkt.SSRC)
			if userID == "" {
				vs.log.Warn("dropping utterance from unmapped ssrc", "ssrc", pkt.SSRC)
				continue
			}

			select {
			case vs.utterances <- utterance{userID: userID, samples: seg}:
			default:
				// Consumer is behind; stale speech is worthless.
				vs.log.Warn("utterance channel full, dropping segment",
					"user_id", userID, "samples", len(seg))
			}
		}
	}
}

// flushBuffers force-completes every participant's in-progress speech so
// trailing utterances are not lost when the session shuts down.
func (vs *voiceSession) flushBuffers(buffers map[uint32]*speechBuffer) {
	for ssrc, buf := range buffers {
		seg := buf.Flush()
		if seg == nil {
			continue
		}

		userID := vs.userForSSRC(ssrc)
		if userID == "" {
			vs.log.Warn("dropping utterance from unmapped ssrc", "ssrc", ssrc)
			continue
		}

		select {
		case vs.utterances <- utterance{userID: userID, samples: seg}:
		default:
			vs.log.Warn("utterance channel full, dropping segment",
				"user_id", userID, "samples", len(seg))
		}
	}
}

// play synthesizes the WAV payload into the voice channel. The container
// is mono; it is resampled to 48kHz, interleaved to stereo, and encoded
// frame by frame. Playback is serialized so concurrent results do not
// interleave their audio.
func (vs *voiceSession) play(wav []byte) error {
	samples, rate, err := audio.DecodeWAV(wav)
	if err != nil {
		return fmt.Errorf("bridge: decode tts wav: %w", err)
	}

	stereo := audio.MonoToStereo(audio.ResampleMono16(samples, rate, opusSampleRate))

	vs.sendMu.Lock()
	defer vs.sendMu.Unlock()

	if vs.encoder == nil {
		enc, err := gopus.NewEncoder(opusSampleRate, opusChannels, gopus.Audio)
		if err != nil {
			return fmt.Errorf("bridge: create opus encoder: %w", err)
		}
		vs.encoder = enc
	}

	if err := vs.vc.Speaking(true); err != nil {
		return fmt.Errorf("bridge: set speaking: %w", err)
	}
	defer func() {
		if err := vs.vc.Speaking(false); err != nil {
			vs.log.Warn("clear speaking flag failed", "error", err)
		}
	}()

	frame := opusFrameSize * opusChannels
	for off := 0; off < len(stereo); off += frame {
		end := off + frame
		if end > len(stereo) {
			// Pad the final partial frame with silence.
			padded := make([]int16, frame)
			copy(padded, stereo[off:])
			stereo = append(stereo[:off], padded...)
			end = off + frame
		}

		data, err := vs.encoder.Encode(stereo[off:end], opusFrameSize, opusMaxBytes)
		if err != nil {
			return fmt.Errorf("bridge: opus encode: %w", err)
		}

		select {
		case <-vs.done:
			return nil
		case vs.vc.OpusSend <- data:
		}
	}
	return nil
}

// Close disconnects from the voice channel. Safe to call more than once.
func (vs *voiceSession) Close() {
	vs.closeOnce.Do(func() {
		close(vs.done)
		if err := vs.vc.Disconnect(); err != nil {
			vs.log.Warn("voice disconnect failed", "error", err)
		}
	})
}
