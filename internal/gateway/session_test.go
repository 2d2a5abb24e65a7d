package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/linguabridge/linguabridge/internal/observe"
	"github.com/linguabridge/linguabridge/internal/pipeline"
	"github.com/linguabridge/linguabridge/internal/protocol"
	"github.com/linguabridge/linguabridge/pkg/audio"
	"github.com/linguabridge/linguabridge/pkg/engine/stt"
	sttmock "github.com/linguabridge/linguabridge/pkg/engine/stt/mock"
	translatemock "github.com/linguabridge/linguabridge/pkg/engine/translate/mock"
	ttsmock "github.com/linguabridge/linguabridge/pkg/engine/tts/mock"
)

// wsURL converts an httptest server HTTP URL to a WebSocket URL.
func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/voice"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// startGateway spins up a gateway over the given pipeline and returns a
// connected client that has already consumed the Ready frame.
func startGateway(t *testing.T, pipe *pipeline.Pipeline) (*httptest.Server, *websocket.Conn, protocol.Ready) {
	t.Helper()

	gw := New("127.0.0.1:0", pipe, WithLogger(testLogger()), WithMetrics(testMetrics(t)))
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	conn.SetReadLimit(maxFrameBytes)

	var ready protocol.Ready
	readReply(t, conn, &ready)
	if ready.Type != protocol.TypeReady {
		t.Fatalf("first frame type = %q, want Ready", ready.Type)
	}
	return srv, conn, ready
}

func readReply(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("reply frame type = %v, want text", typ)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal reply %q: %v", data, err)
	}
}

func writeFrame(t *testing.T, conn *websocket.Conn, typ websocket.MessageType, data []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := conn.Write(ctx, typ, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func fullPipeline() *pipeline.Pipeline {
	return pipeline.New(
		pipeline.WithSTT(&sttmock.Engine{
			Result: stt.Transcription{Text: "hallo welt", Language: "de"},
			Model:  "whisper-base",
		}),
		pipeline.WithTranslator(&translatemock.Engine{Result: "hello world"}),
		pipeline.WithTTS(&ttsmock.Engine{Model: "coqui-tts"}),
		pipeline.WithLogger(testLogger()),
	)
}

func binaryAudioFrame(t *testing.T, req *protocol.AudioRequest) []byte {
	t.Helper()
	data, err := protocol.EncodeBinary(req)
	if err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}
	return data
}

func TestSession_ReadyAdvertisesModels(t *testing.T) {
	_, _, ready := startGateway(t, fullPipeline())

	if len(ready.STTModels) != 1 || ready.STTModels[0] != "whisper-base" {
		t.Errorf("stt_models = %v, want [whisper-base]", ready.STTModels)
	}
	if len(ready.TTSModels) != 1 || ready.TTSModels[0] != "coqui-tts" {
		t.Errorf("tts_models = %v, want [coqui-tts]", ready.TTSModels)
	}
}

func TestSession_AudioRoundTrip(t *testing.T) {
	_, conn, _ := startGateway(t, fullPipeline())

	req := &protocol.AudioRequest{
		GuildID:        "42",
		ChannelID:      "7",
		UserID:         "1001",
		Username:       "alice",
		SampleRate:     48000,
		TargetLanguage: "en",
		AudioHash:      12345,
		Samples:        []int16{100, -100, 200, -200},
	}
	writeFrame(t, conn, websocket.MessageBinary, binaryAudioFrame(t, req))

	var res protocol.Result
	readReply(t, conn, &res)

	if res.Type != protocol.TypeResult {
		t.Fatalf("reply type = %q, want Result", res.Type)
	}
	if res.GuildID != "42" || res.ChannelID != "7" || res.UserID != "1001" || res.Username != "alice" {
		t.Errorf("correlation fields = (%q, %q, %q, %q), want request's values",
			res.GuildID, res.ChannelID, res.UserID, res.Username)
	}
	if res.AudioHash != 12345 {
		t.Errorf("audio_hash = %d, want 12345", res.AudioHash)
	}
	if res.OriginalText != "hallo welt" {
		t.Errorf("original_text = %q, want %q", res.OriginalText, "hallo welt")
	}
	if res.TranslatedText != "hello world" {
		t.Errorf("translated_text = %q, want %q", res.TranslatedText, "hello world")
	}
	if res.SourceLanguage != "de" || res.TargetLanguage != "en" {
		t.Errorf("languages = (%q, %q), want (de, en)", res.SourceLanguage, res.TargetLanguage)
	}
	if res.LatencyMS < 0 {
		t.Errorf("latency_ms = %d, want non-negative", res.LatencyMS)
	}
	if res.TTSAudio != nil {
		t.Error("tts_audio set without generate_tts")
	}
}

func TestSession_GenerateTTSReturnsWAV(t *testing.T) {
	_, conn, _ := startGateway(t, fullPipeline())

	req := &protocol.AudioRequest{
		UserID:         "1",
		SampleRate:     48000,
		TargetLanguage: "en",
		GenerateTTS:    true,
		Samples:        []int16{1, 2, 3, 4},
	}
	writeFrame(t, conn, websocket.MessageBinary, binaryAudioFrame(t, req))

	var res protocol.Result
	readReply(t, conn, &res)
	if res.TTSAudio == nil {
		t.Fatal("tts_audio = null, want base64 WAV")
	}
	wav, err := base64.StdEncoding.DecodeString(*res.TTSAudio)
	if err != nil {
		t.Fatalf("tts_audio is not valid base64: %v", err)
	}
	if _, _, err := audio.DecodeWAV(wav); err != nil {
		t.Fatalf("tts_audio is not a WAV payload: %v", err)
	}
}

func TestSession_MalformedFrameKeepsConnectionOpen(t *testing.T) {
	_, conn, _ := startGateway(t, fullPipeline())

	// Declared header length far beyond the frame.
	writeFrame(t, conn, websocket.MessageBinary, []byte{0xff, 0xff, 0x00, 0x00})

	var errRes protocol.ErrorResponse
	readReply(t, conn, &errRes)
	if errRes.Type != protocol.TypeError {
		t.Fatalf("reply type = %q, want Error", errRes.Type)
	}
	if errRes.Code != protocol.CodeProtocolError {
		t.Errorf("code = %q, want %q", errRes.Code, protocol.CodeProtocolError)
	}

	// The connection must survive: a Ping still gets a Pong.
	writeFrame(t, conn, websocket.MessageText, []byte(`{"type":"Ping"}`))
	var pong protocol.Pong
	readReply(t, conn, &pong)
	if pong.Type != protocol.TypePong {
		t.Errorf("reply after decode error = %q, want Pong", pong.Type)
	}
}

func TestSession_PingPong(t *testing.T) {
	_, conn, _ := startGateway(t, fullPipeline())

	writeFrame(t, conn, websocket.MessageText, []byte(`{"type":"Ping"}`))
	var pong protocol.Pong
	readReply(t, conn, &pong)
	if pong.Type != protocol.TypePong {
		t.Errorf("reply type = %q, want Pong", pong.Type)
	}
}

func TestSession_UnknownTypeIgnored(t *testing.T) {
	_, conn, _ := startGateway(t, fullPipeline())

	writeFrame(t, conn, websocket.MessageText, []byte(`{"type":"Telemetry","payload":1}`))
	// No reply for the unknown message; the next Ping answers directly.
	writeFrame(t, conn, websocket.MessageText, []byte(`{"type":"Ping"}`))

	var pong protocol.Pong
	readReply(t, conn, &pong)
	if pong.Type != protocol.TypePong {
		t.Errorf("reply type = %q, want Pong (unknown type must produce no reply)", pong.Type)
	}
}

func TestSession_ConfigureProducesNoReply(t *testing.T) {
	_, conn, _ := startGateway(t, fullPipeline())

	writeFrame(t, conn, websocket.MessageText, []byte(`{"type":"Configure","stt_model":"whisper-small"}`))
	writeFrame(t, conn, websocket.MessageText, []byte(`{"type":"Ping"}`))

	var pong protocol.Pong
	readReply(t, conn, &pong)
	if pong.Type != protocol.TypePong {
		t.Errorf("reply type = %q, want Pong (Configure must produce no reply)", pong.Type)
	}
}

func TestSession_NoSTTEngine(t *testing.T) {
	pipe := pipeline.New(pipeline.WithLogger(testLogger()))
	_, conn, ready := startGateway(t, pipe)

	if len(ready.STTModels) != 0 {
		t.Errorf("stt_models = %v, want empty", ready.STTModels)
	}

	req := &protocol.AudioRequest{SampleRate: 48000, TargetLanguage: "en", Samples: []int16{1, 2}}
	writeFrame(t, conn, websocket.MessageBinary, binaryAudioFrame(t, req))

	var errRes protocol.ErrorResponse
	readReply(t, conn, &errRes)
	if errRes.Code != protocol.CodeSTTUnavailable {
		t.Errorf("code = %q, want %q", errRes.Code, protocol.CodeSTTUnavailable)
	}
}

func TestSession_TranscribeFailure(t *testing.T) {
	pipe := pipeline.New(
		pipeline.WithSTT(&sttmock.Engine{Err: context.DeadlineExceeded}),
		pipeline.WithLogger(testLogger()),
	)
	_, conn, _ := startGateway(t, pipe)

	req := &protocol.AudioRequest{SampleRate: 48000, TargetLanguage: "en", Samples: []int16{1, 2}}
	writeFrame(t, conn, websocket.MessageBinary, binaryAudioFrame(t, req))

	var errRes protocol.ErrorResponse
	readReply(t, conn, &errRes)
	if errRes.Code != protocol.CodeProcessingError {
		t.Errorf("code = %q, want %q", errRes.Code, protocol.CodeProcessingError)
	}
}

func TestSession_LegacyTextAudio(t *testing.T) {
	_, conn, _ := startGateway(t, fullPipeline())

	pcm := audio.Int16sToBytes([]int16{5, -5, 10, -10})
	msg := `{"type":"Audio","user_id":"9","target_language":"en","audio_base64":"` +
		base64.StdEncoding.EncodeToString(pcm) + `"}`
	writeFrame(t, conn, websocket.MessageText, []byte(msg))

	var res protocol.Result
	readReply(t, conn, &res)
	if res.Type != protocol.TypeResult {
		t.Fatalf("reply type = %q, want Result", res.Type)
	}
	if res.UserID != "9" {
		t.Errorf("user_id = %q, want 9", res.UserID)
	}
}

func TestSession_SequentialReplies(t *testing.T) {
	_, conn, _ := startGateway(t, fullPipeline())

	for i := uint64(1); i <= 3; i++ {
		req := &protocol.AudioRequest{
			SampleRate:     48000,
			TargetLanguage: "en",
			AudioHash:      i,
			Samples:        []int16{1, 2},
		}
		writeFrame(t, conn, websocket.MessageBinary, binaryAudioFrame(t, req))
	}

	for i := uint64(1); i <= 3; i++ {
		var res protocol.Result
		readReply(t, conn, &res)
		if res.AudioHash != i {
			t.Fatalf("reply %d has audio_hash %d, want %d (replies must preserve order)", i, res.AudioHash, i)
		}
	}
}

func TestServer_Languages(t *testing.T) {
	gw := New("127.0.0.1:0", fullPipeline(), WithLogger(testLogger()), WithMetrics(testMetrics(t)))
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/languages")
	if err != nil {
		t.Fatalf("GET /languages: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Languages []struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"languages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Languages) < 40 {
		t.Errorf("language count = %d, want the full supported table", len(body.Languages))
	}
}

func TestServer_HealthEndpoints(t *testing.T) {
	gw := New("127.0.0.1:0", fullPipeline(), WithLogger(testLogger()), WithMetrics(testMetrics(t)))
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestServer_ReadyzFailsWithoutSTT(t *testing.T) {
	pipe := pipeline.New(pipeline.WithLogger(testLogger()))
	gw := New("127.0.0.1:0", pipe, WithLogger(testLogger()), WithMetrics(testMetrics(t)))
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when no recognition engine is configured", resp.StatusCode)
	}
}
