package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Error codes carried on [ErrorResponse].
const (
	// CodeProtocolError covers malformed wire data; the connection stays
	// open.
	CodeProtocolError = "PROTOCOL_ERROR"

	// CodeProcessingError covers pipeline failures that are fatal to one
	// request.
	CodeProcessingError = "PROCESSING_ERROR"

	// CodeSTTUnavailable is the specific form of processing failure where
	// no recognition engine is configured at all.
	CodeSTTUnavailable = "STT_UNAVAILABLE"
)

// NewResult builds a Result skeleton from the request it answers, copying
// every correlation field through unchanged. The caller fills in the
// pipeline output and latency before encoding. AudioHash is already 0 here
// when the sender omitted it; it is never recomputed or adjusted.
func NewResult(req *AudioRequest) *Result {
	return &Result{
		Type:           TypeResult,
		GuildID:        req.GuildID,
		ChannelID:      req.ChannelID,
		UserID:         req.UserID,
		Username:       req.Username,
		TargetLanguage: req.TargetLanguage,
		AudioHash:      req.AudioHash,
	}
}

// AttachTTS sets the synthesized audio payload as base64 of the given WAV
// bytes. A nil or empty slice leaves TTSAudio null.
func (r *Result) AttachTTS(wavBytes []byte) {
	if len(wavBytes) == 0 {
		return
	}
	enc := base64.StdEncoding.EncodeToString(wavBytes)
	r.TTSAudio = &enc
}

// EncodeResult serializes a Result as a JSON text frame.
func EncodeResult(r *Result) ([]byte, error) {
	r.Type = TypeResult
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal result: %w", err)
	}
	return data, nil
}

// EncodeError serializes an Error text frame with the given human-readable
// message and machine code.
func EncodeError(message, code string) ([]byte, error) {
	data, err := json.Marshal(&ErrorResponse{Type: TypeError, Message: message, Code: code})
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal error response: %w", err)
	}
	return data, nil
}

// EncodePong serializes a Pong text frame.
func EncodePong() []byte {
	return []byte(`{"type":"Pong"}`)
}

// EncodeReady serializes the post-handshake Ready announcement. Nil model
// slices encode as empty JSON arrays, not null.
func EncodeReady(sttModels, ttsModels []string) ([]byte, error) {
	if sttModels == nil {
		sttModels = []string{}
	}
	if ttsModels == nil {
		ttsModels = []string{}
	}
	data, err := json.Marshal(&Ready{Type: TypeReady, STTModels: sttModels, TTSModels: ttsModels})
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal ready: %w", err)
	}
	return data, nil
}

// DecodeResponse parses one gateway-to-client text frame into its typed
// form. Used by the client side of the wire.
func DecodeResponse(data []byte) (Response, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	switch envelope.Type {
	case TypeResult:
		var r Result
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: result: %v", ErrInvalidHeader, err)
		}
		return &r, nil
	case TypeError:
		var e ErrorResponse
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("%w: error: %v", ErrInvalidHeader, err)
		}
		return &e, nil
	case TypePong:
		return &Pong{Type: TypePong}, nil
	case TypeReady:
		var r Ready
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: ready: %v", ErrInvalidHeader, err)
		}
		return &r, nil
	default:
		return nil, fmt.Errorf("%w: unknown response type %q", ErrInvalidHeader, envelope.Type)
	}
}
