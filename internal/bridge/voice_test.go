package bridge

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testVoiceSession() *voiceSession {
	return &voiceSession{
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		ssrcUsers:  make(map[uint32]string),
		utterances: make(chan utterance, 16),
		done:       make(chan struct{}),
	}
}

func TestFlushBuffersEmitsTrailingSpeech(t *testing.T) {
	vs := testVoiceSession()
	vs.ssrcUsers[11] = "1001"

	b := newSpeechBuffer(opusSampleRate)
	seg, _ := feed(b, loudFrame(), 30, time.Now()) // 600ms, past the minimum
	if seg != nil {
		t.Fatalf("segment emitted during continuous speech after %d samples", len(seg))
	}

	vs.flushBuffers(map[uint32]*speechBuffer{11: b})

	select {
	case u := <-vs.utterances:
		if u.userID != "1001" {
			t.Errorf("utterance userID = %q, want %q", u.userID, "1001")
		}
		if got := len(u.samples); got != 30*testFrameSize {
			t.Errorf("utterance samples = %d, want %d", got, 30*testFrameSize)
		}
	default:
		t.Fatal("no utterance delivered for in-progress speech")
	}
}

func TestFlushBuffersSkipsShortAndUnmapped(t *testing.T) {
	vs := testVoiceSession()
	vs.ssrcUsers[11] = "1001"

	short := newSpeechBuffer(opusSampleRate)
	feed(short, loudFrame(), 5, time.Now()) // 100ms, below the minimum

	unmapped := newSpeechBuffer(opusSampleRate)
	feed(unmapped, loudFrame(), 30, time.Now())

	vs.flushBuffers(map[uint32]*speechBuffer{11: short, 22: unmapped})

	select {
	case u := <-vs.utterances:
		t.Fatalf("unexpected utterance for user %q (%d samples)", u.userID, len(u.samples))
	default:
	}
}
