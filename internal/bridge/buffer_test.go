package bridge

import (
	"strings"
	"testing"
	"time"

	"github.com/linguabridge/linguabridge/internal/protocol"
)

const testFrameSize = 960 // 20ms of mono audio at 48kHz

func loudFrame() []int16 {
	frame := make([]int16, testFrameSize)
	for i := range frame {
		frame[i] = 5000
	}
	return frame
}

func quietFrame() []int16 {
	return make([]int16, testFrameSize)
}

// feed pushes n frames spaced 20ms apart starting at start and returns
// the first emitted segment along with the time after the last frame.
func feed(b *speechBuffer, frame []int16, n int, start time.Time) ([]int16, time.Time) {
	now := start
	for range n {
		now = now.Add(20 * time.Millisecond)
		if seg := b.Push(frame, now); seg != nil {
			return seg, now
		}
	}
	return nil, now
}

func TestSpeechBufferIgnoresSilence(t *testing.T) {
	b := newSpeechBuffer(opusSampleRate)
	seg, _ := feed(b, quietFrame(), 100, time.Now())
	if seg != nil {
		t.Fatalf("got segment of %d samples from pure silence", len(seg))
	}
	if b.speaking {
		t.Error("buffer entered speaking state on silence")
	}
}

func TestSpeechBufferSegmentsOnSilenceTimeout(t *testing.T) {
	b := newSpeechBuffer(opusSampleRate)
	start := time.Now()

	seg, now := feed(b, loudFrame(), 50, start) // 1s of speech
	if seg != nil {
		t.Fatalf("segment emitted during continuous speech after %d samples", len(seg))
	}

	seg, _ = feed(b, quietFrame(), 60, now)
	if seg == nil {
		t.Fatal("no segment emitted after silence timeout")
	}
	if got := len(seg); got < 50*testFrameSize {
		t.Errorf("segment has %d samples, want at least %d", got, 50*testFrameSize)
	}
	if b.speaking {
		t.Error("buffer still speaking after flush")
	}
}

func TestSpeechBufferDiscardsShortBursts(t *testing.T) {
	b := newSpeechBuffer(opusSampleRate)
	start := time.Now()

	// 200ms of speech is below the minimum utterance duration.
	seg, now := feed(b, loudFrame(), 10, start)
	if seg != nil {
		t.Fatalf("short burst emitted a %d-sample segment", len(seg))
	}
	seg, _ = feed(b, quietFrame(), 60, now)
	if seg != nil {
		t.Errorf("short burst survived the silence timeout: %d samples", len(seg))
	}
}

func TestSpeechBufferMaxDurationCutoff(t *testing.T) {
	b := newSpeechBuffer(opusSampleRate)

	// A speaker who never pauses is cut off at the maximum duration.
	seg, _ := feed(b, loudFrame(), 2000, time.Now())
	if seg == nil {
		t.Fatal("no segment emitted during 40s of continuous speech")
	}
	wantSamples := int(maxSpeechDuration/time.Second) * opusSampleRate
	if got := len(seg); got < wantSamples {
		t.Errorf("cutoff segment has %d samples, want at least %d", got, wantSamples)
	}
}

func TestSpeechBufferFlush(t *testing.T) {
	b := newSpeechBuffer(opusSampleRate)
	feed(b, loudFrame(), 50, time.Now())

	seg := b.Flush()
	if seg == nil {
		t.Fatal("Flush returned nil for buffered speech")
	}
	if again := b.Flush(); again != nil {
		t.Errorf("second Flush returned %d samples, want nil", len(again))
	}
}

func TestFormatResult(t *testing.T) {
	res := &protocol.Result{
		Username:       "alice",
		OriginalText:   "hallo welt",
		TranslatedText: "hello world",
		SourceLanguage: "de",
		TargetLanguage: "en",
	}
	got := formatResult(res)
	for _, want := range []string{"alice", "de", "en", "hello world", "hallo welt"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatted result %q missing %q", got, want)
		}
	}

	res.TranslatedText = res.OriginalText
	got = formatResult(res)
	if strings.Contains(got, "to en") {
		t.Errorf("untranslated result %q should not mention the target language", got)
	}
}
