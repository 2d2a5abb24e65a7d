// Package gateway serves the translation channel: an HTTP server that
// upgrades /voice to a WebSocket, runs one session per connection, and
// exposes the lookup and operational endpoints next to it.
//
// A session moves through the states
// Connecting → Ready → (Processing ⇄ Ready) → Closing → Closed. Audio
// requests on one session are handled strictly sequentially by the read
// loop, so replies leave in the order their requests arrived; independent
// sessions run fully concurrently against the shared engines.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/linguabridge/linguabridge/internal/observe"
	"github.com/linguabridge/linguabridge/internal/pipeline"
	"github.com/linguabridge/linguabridge/internal/protocol"
)

// maxFrameBytes bounds a single inbound frame: the header ceiling plus
// 30 seconds of 48 kHz mono PCM, rounded up.
const maxFrameBytes = 4 << 20

// sessionState tracks where a session is in its lifecycle.
type sessionState int

const (
	stateConnecting sessionState = iota
	stateReady
	stateProcessing
	stateClosing
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateReady:
		return "ready"
	case stateProcessing:
		return "processing"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session drives one WebSocket connection: it advertises the available
// models, decodes inbound frames, routes audio through the pipeline, and
// writes correlated replies. Create one with [NewSession] and drive it with
// [Session.Run].
type Session struct {
	conn    *websocket.Conn
	pipe    *pipeline.Pipeline
	metrics *observe.Metrics
	log     *slog.Logger

	mu       sync.Mutex
	state    sessionState
	sttModel string
	ttsModel string
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithSessionLogger sets the session logger. Defaults to [slog.Default].
func WithSessionLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithSessionMetrics sets the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithSessionMetrics(m *observe.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// NewSession wraps an accepted connection. The pipeline is shared across
// sessions and must be safe for concurrent use.
func NewSession(conn *websocket.Conn, pipe *pipeline.Pipeline, opts ...SessionOption) *Session {
	s := &Session{
		conn:  conn,
		pipe:  pipe,
		state: stateConnecting,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	conn.SetReadLimit(maxFrameBytes)
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.String()
}

func (s *Session) setState(st sessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run sends the Ready advertisement and then serves frames until the
// connection closes or ctx is cancelled. Decode failures produce an Error
// frame and keep the connection open; transport failures end the session.
// Run always leaves the session in the closed state.
func (s *Session) Run(ctx context.Context) error {
	defer s.setState(stateClosed)

	ready, err := protocol.EncodeReady(s.pipe.STTModels(), s.pipe.TTSModels())
	if err != nil {
		return err
	}
	if err := s.conn.Write(ctx, websocket.MessageText, ready); err != nil {
		return err
	}
	s.setState(stateReady)

	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			s.setState(stateClosing)
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var (
			req      protocol.Request
			encoding string
		)
		switch typ {
		case websocket.MessageBinary:
			encoding = "binary"
			req, err = protocol.DecodeBinary(data)
		default:
			encoding = "text"
			req, err = protocol.DecodeText(data)
		}
		if err != nil {
			s.metrics.RecordDecodeError(ctx, decodeErrorReason(err))
			s.log.Warn("rejected malformed frame",
				slog.String("encoding", encoding),
				slog.String("error", err.Error()))
			if werr := s.sendError(ctx, err.Error(), protocol.CodeProtocolError); werr != nil {
				return werr
			}
			continue
		}

		if err := s.dispatch(ctx, req, encoding); err != nil {
			return err
		}
	}
}

// dispatch routes one decoded request. A returned error is a transport
// failure and ends the session.
func (s *Session) dispatch(ctx context.Context, req protocol.Request, encoding string) error {
	switch r := req.(type) {
	case *protocol.AudioRequest:
		s.metrics.RecordFrame(ctx, encoding, protocol.TypeAudio)
		return s.handleAudio(ctx, r)

	case *protocol.Ping:
		s.metrics.RecordFrame(ctx, encoding, protocol.TypePing)
		return s.conn.Write(ctx, websocket.MessageText, protocol.EncodePong())

	case *protocol.Configure:
		s.metrics.RecordFrame(ctx, encoding, protocol.TypeConfigure)
		s.applyConfigure(r)
		return nil

	case *protocol.Unknown:
		s.log.Warn("ignoring message of unknown type", slog.String("type", r.Type))
		return nil

	default:
		s.log.Warn("ignoring unhandled request kind")
		return nil
	}
}

// handleAudio runs one audio request through the pipeline and writes either
// a Result or an Error frame. Latency is measured from here, after decode,
// to just before the reply is written.
func (s *Session) handleAudio(ctx context.Context, req *protocol.AudioRequest) error {
	s.setState(stateProcessing)
	defer s.setState(stateReady)

	start := time.Now()
	out, err := s.pipe.Process(ctx, req)
	s.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		code := protocol.CodeProcessingError
		if errors.Is(err, pipeline.ErrNoSTT) {
			code = protocol.CodeSTTUnavailable
		}
		s.log.Error("pipeline failed",
			slog.String("user_id", req.UserID),
			slog.String("code", code),
			slog.String("error", err.Error()))
		return s.sendError(ctx, err.Error(), code)
	}

	res := protocol.NewResult(req)
	res.OriginalText = out.OriginalText
	res.TranslatedText = out.TranslatedText
	res.SourceLanguage = out.SourceLanguage
	res.AttachTTS(out.TTSAudio)
	res.LatencyMS = time.Since(start).Milliseconds()

	data, err := protocol.EncodeResult(res)
	if err != nil {
		s.log.Error("encoding result failed", slog.String("error", err.Error()))
		return s.sendError(ctx, "internal encoding failure", protocol.CodeProcessingError)
	}

	s.metrics.RecordReply(ctx, protocol.TypeResult)
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// applyConfigure merges the non-empty fields into the session config. The
// selection is advisory: it is surfaced in logs and kept for future model
// routing, and no reply is sent.
func (s *Session) applyConfigure(c *protocol.Configure) {
	s.mu.Lock()
	if c.STTModel != "" {
		s.sttModel = c.STTModel
	}
	if c.TTSModel != "" {
		s.ttsModel = c.TTSModel
	}
	stt, tts := s.sttModel, s.ttsModel
	s.mu.Unlock()

	s.log.Info("session configuration updated",
		slog.String("stt_model", stt),
		slog.String("tts_model", tts))
}

func (s *Session) sendError(ctx context.Context, message, code string) error {
	data, err := protocol.EncodeError(message, code)
	if err != nil {
		return err
	}
	s.metrics.RecordReply(ctx, protocol.TypeError)
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// decodeErrorReason maps codec sentinels to stable metric labels.
func decodeErrorReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrFrameTooShort):
		return "frame_too_short"
	case errors.Is(err, protocol.ErrHeaderTooLarge):
		return "header_too_large"
	case errors.Is(err, protocol.ErrFrameTruncated):
		return "frame_truncated"
	case errors.Is(err, protocol.ErrInvalidEncoding):
		return "invalid_encoding"
	case errors.Is(err, protocol.ErrInvalidHeader):
		return "invalid_header"
	case errors.Is(err, protocol.ErrOddSampleBytes):
		return "odd_sample_bytes"
	case errors.Is(err, protocol.ErrInvalidJSON):
		return "invalid_json"
	default:
		return "other"
	}
}
