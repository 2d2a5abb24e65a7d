package protocol

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/linguabridge/linguabridge/pkg/audio"
)

// MaxHeaderBytes bounds the declared binary header length. Anything larger
// is treated as hostile or corrupt input and rejected before allocation.
const MaxHeaderBytes = 10000

// Decode errors. Every malformed frame maps to exactly one of these; all of
// them are recoverable at the connection level (the session reports a
// PROTOCOL_ERROR frame and keeps reading).
var (
	ErrFrameTooShort   = errors.New("protocol: frame shorter than 4-byte length prefix")
	ErrHeaderTooLarge  = errors.New("protocol: declared header length exceeds limit")
	ErrFrameTruncated  = errors.New("protocol: frame shorter than declared header length")
	ErrInvalidEncoding = errors.New("protocol: header is not valid UTF-8")
	ErrInvalidHeader   = errors.New("protocol: header is not a valid JSON object")
	ErrOddSampleBytes  = errors.New("protocol: PCM tail has odd byte count")
	ErrInvalidJSON     = errors.New("protocol: text frame is not valid JSON")
)

// wireHeader is the superset of fields recognised in an inbound JSON header
// or text frame. Pointer fields distinguish "absent" from zero values where
// a default applies.
type wireHeader struct {
	Type           string  `json:"type"`
	GuildID        string  `json:"guild_id"`
	ChannelID      string  `json:"channel_id"`
	UserID         string  `json:"user_id"`
	Username       string  `json:"username"`
	SampleRate     *int    `json:"sample_rate"`
	TargetLanguage string  `json:"target_language"`
	GenerateTTS    bool    `json:"generate_tts"`
	AudioHash      uint64  `json:"audio_hash"`
	STTModel       *string `json:"stt_model"`
	TTSModel       *string `json:"tts_model"`

	// AudioBase64 carries PCM on the legacy text Audio path; binary frames
	// carry samples in the frame tail instead.
	AudioBase64 string `json:"audio_base64"`
}

// DecodeBinary parses one binary frame into a typed request. Validation
// runs in a fixed order so that each malformed input is attributed to the
// first rule it breaks: length prefix present, header length sane, header
// bytes present, header UTF-8, header JSON, PCM byte count even. A frame
// with no PCM tail is valid and yields empty samples.
func DecodeBinary(frame []byte) (Request, error) {
	if len(frame) < 4 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrFrameTooShort, len(frame))
	}
	headerLen := binary.LittleEndian.Uint32(frame[:4])
	if headerLen > MaxHeaderBytes {
		return nil, fmt.Errorf("%w: declared %d, limit %d", ErrHeaderTooLarge, headerLen, MaxHeaderBytes)
	}
	rest := frame[4:]
	if uint32(len(rest)) < headerLen {
		return nil, fmt.Errorf("%w: declared %d header bytes, %d remain", ErrFrameTruncated, headerLen, len(rest))
	}
	headerBytes := rest[:headerLen]
	if !utf8.Valid(headerBytes) {
		return nil, ErrInvalidEncoding
	}
	var h wireHeader
	if err := json.Unmarshal(headerBytes, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	tail := rest[headerLen:]
	if len(tail)%2 != 0 {
		return nil, fmt.Errorf("%w: %d PCM bytes", ErrOddSampleBytes, len(tail))
	}
	return h.toRequest(audio.BytesToInt16s(tail))
}

// DecodeText parses one JSON text frame into a typed request. Syntactically
// invalid JSON is [ErrInvalidJSON]; structurally surprising but valid JSON
// (an array, a bare string) decodes to [Unknown] so the session can log and
// ignore it. A legacy text Audio frame carries its PCM base64-encoded in
// audio_base64.
func DecodeText(data []byte) (Request, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	var h wireHeader
	if err := json.Unmarshal(data, &h); err != nil {
		// Valid JSON of a non-object shape: not an error, just not ours.
		return &Unknown{}, nil
	}

	if h.Type != TypeAudio {
		return h.toRequest(nil)
	}
	pcm, err := base64.StdEncoding.DecodeString(h.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: audio_base64: %v", ErrInvalidHeader, err)
	}
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("%w: %d PCM bytes", ErrOddSampleBytes, len(pcm))
	}
	return h.toRequest(audio.BytesToInt16s(pcm))
}

// toRequest maps a parsed header plus PCM samples to the request variant
// named by its type tag, applying documented defaults for absent optional
// fields. Samples are attached only to Audio requests.
func (h *wireHeader) toRequest(samples []int16) (Request, error) {
	switch h.Type {
	case TypeAudio:
		req := &AudioRequest{
			GuildID:        h.GuildID,
			ChannelID:      h.ChannelID,
			UserID:         h.UserID,
			Username:       h.Username,
			SampleRate:     DefaultSampleRate,
			TargetLanguage: h.TargetLanguage,
			GenerateTTS:    h.GenerateTTS,
			AudioHash:      h.AudioHash,
			Samples:        samples,
		}
		if h.SampleRate != nil {
			req.SampleRate = *h.SampleRate
		}
		if req.TargetLanguage == "" {
			req.TargetLanguage = DefaultTargetLanguage
		}
		return req, nil
	case TypePing:
		return &Ping{}, nil
	case TypeConfigure:
		cfg := &Configure{}
		if h.STTModel != nil {
			cfg.STTModel = *h.STTModel
		}
		if h.TTSModel != nil {
			cfg.TTSModel = *h.TTSModel
		}
		return cfg, nil
	default:
		return &Unknown{Type: h.Type}, nil
	}
}

// EncodeBinary builds the binary frame for an audio upload: header length
// prefix, JSON header, PCM tail. The inverse of [DecodeBinary] for Audio
// requests.
func EncodeBinary(req *AudioRequest) ([]byte, error) {
	header, err := json.Marshal(map[string]any{
		"type":            TypeAudio,
		"guild_id":        req.GuildID,
		"channel_id":      req.ChannelID,
		"user_id":         req.UserID,
		"username":        req.Username,
		"sample_rate":     req.SampleRate,
		"target_language": req.TargetLanguage,
		"generate_tts":    req.GenerateTTS,
		"audio_hash":      req.AudioHash,
	})
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal audio header: %w", err)
	}
	pcm := audio.Int16sToBytes(req.Samples)

	frame := make([]byte, 4, 4+len(header)+len(pcm))
	binary.LittleEndian.PutUint32(frame, uint32(len(header)))
	frame = append(frame, header...)
	frame = append(frame, pcm...)
	return frame, nil
}
