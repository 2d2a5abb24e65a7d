// Package protocol implements the wire format spoken between translation
// clients and the gateway: a length-prefixed binary frame for audio uploads,
// JSON text frames for everything else, and the typed message model both
// sides dispatch on.
//
// Binary frame layout: a 4-byte little-endian unsigned header length, that
// many bytes of UTF-8 JSON header, then the remainder as signed 16-bit
// little-endian mono PCM. Replies are always text frames regardless of how
// the triggering request arrived.
//
// All functions are pure and safe for concurrent use.
package protocol

// Wire values of the "type" tag.
const (
	TypeAudio     = "Audio"
	TypePing      = "Ping"
	TypeConfigure = "Configure"
	TypeResult    = "Result"
	TypeError     = "Error"
	TypePong      = "Pong"
	TypeReady     = "Ready"
)

// Defaults applied during decoding when an optional Audio header field is
// absent.
const (
	DefaultSampleRate     = 48000
	DefaultTargetLanguage = "en"
)

// Request is one decoded client-to-gateway message. Exactly one concrete
// type corresponds to each wire "type" tag; dispatch sites switch on the
// concrete type.
type Request interface {
	requestType() string
}

// AudioRequest is a fully defaulted, validated audio upload. Samples are
// mono PCM at SampleRate. The correlation fields (GuildID, ChannelID,
// UserID, Username, AudioHash) are opaque to the gateway and echoed
// unchanged on the matching [Result].
type AudioRequest struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string

	// SampleRate is the PCM sample rate in Hz. Defaults to
	// [DefaultSampleRate] when the header omits it.
	SampleRate int

	// TargetLanguage is the language code to translate into. Defaults to
	// [DefaultTargetLanguage].
	TargetLanguage string

	// GenerateTTS requests synthesized speech of the translated text.
	GenerateTTS bool

	// AudioHash is the sender's cache-correlation token. Treated as an
	// opaque unsigned 64-bit value; 0 when the sender omitted it.
	AudioHash uint64

	Samples []int16
}

func (*AudioRequest) requestType() string { return TypeAudio }

// Ping is a keep-alive probe. The gateway answers with [Pong].
type Ping struct{}

func (*Ping) requestType() string { return TypePing }

// Configure updates session configuration. Both fields are optional; an
// empty string leaves the current value untouched. Unknown fields in a
// Configure header are ignored.
type Configure struct {
	STTModel string
	TTSModel string
}

func (*Configure) requestType() string { return TypeConfigure }

// Unknown carries an unrecognised "type" tag. The session logs and ignores
// it; an unknown tag is not a decode error.
type Unknown struct {
	Type string
}

func (*Unknown) requestType() string { return "" }

// Response is one gateway-to-client message. All responses travel as JSON
// text frames.
type Response interface {
	responseType() string
}

// Result is the reply to one [AudioRequest]. Correlation fields are copied
// from the request verbatim.
type Result struct {
	Type           string `json:"type"`
	GuildID        string `json:"guild_id"`
	ChannelID      string `json:"channel_id"`
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`

	// TTSAudio is base64 of a mono 16-bit WAV container, or nil when
	// synthesis was not requested, not possible, or failed.
	TTSAudio *string `json:"tts_audio"`

	// LatencyMS is the wall-clock processing duration in milliseconds,
	// measured from frame receipt to reply dispatch. Never negative.
	LatencyMS int64 `json:"latency_ms"`

	// AudioHash echoes the request's correlation token byte for byte.
	AudioHash uint64 `json:"audio_hash"`
}

func (*Result) responseType() string { return TypeResult }

// ErrorResponse reports a recoverable failure to the client. The connection
// stays open after an ErrorResponse.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (*ErrorResponse) responseType() string { return TypeError }

// Pong answers a [Ping].
type Pong struct {
	Type string `json:"type"`
}

func (*Pong) responseType() string { return TypePong }

// Ready is sent once per connection after the handshake, advertising the
// engine model identifiers the gateway was started with.
type Ready struct {
	Type      string   `json:"type"`
	STTModels []string `json:"stt_models"`
	TTSModels []string `json:"tts_models"`
}

func (*Ready) responseType() string { return TypeReady }
