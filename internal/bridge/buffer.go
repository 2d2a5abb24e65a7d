package bridge

import (
	"time"

	"github.com/linguabridge/linguabridge/pkg/audio"
)

// Speech segmentation parameters. Frames quieter than energyThreshold
// (normalised RMS) count as silence. An utterance is emitted once the
// speaker has been silent for silenceTimeout, or immediately when it
// reaches maxSpeechDuration. Utterances shorter than minSpeechDuration
// are discarded as noise.
const (
	energyThreshold   = 0.01
	minSpeechDuration = 500 * time.Millisecond
	silenceTimeout    = 800 * time.Millisecond
	maxSpeechDuration = 30 * time.Second
)

// speechBuffer accumulates one participant's mono PCM frames and cuts
// them into utterances using an energy-based voice activity detector.
// Not safe for concurrent use; each participant gets its own buffer
// owned by the receive loop.
type speechBuffer struct {
	sampleRate int
	samples    []int16
	speaking   bool
	lastVoice  time.Time
}

func newSpeechBuffer(sampleRate int) *speechBuffer {
	return &speechBuffer{sampleRate: sampleRate}
}

// Push appends a mono frame observed at now and returns a completed
// utterance, or nil when the speaker has not finished yet.
func (b *speechBuffer) Push(frame []int16, now time.Time) []int16 {
	voiced := audio.Energy(frame) >= energyThreshold

	if !b.speaking {
		if !voiced {
			return nil
		}
		b.speaking = true
		b.samples = b.samples[:0]
	}

	b.samples = append(b.samples, frame...)
	if voiced {
		b.lastVoice = now
	}

	if b.duration() >= maxSpeechDuration {
		return b.flush()
	}
	if !voiced && now.Sub(b.lastVoice) >= silenceTimeout {
		return b.flush()
	}
	return nil
}

// Flush force-completes the current utterance, if any. Called when the
// participant leaves the channel or the bridge disconnects.
func (b *speechBuffer) Flush() []int16 {
	if !b.speaking {
		return nil
	}
	return b.flush()
}

func (b *speechBuffer) flush() []int16 {
	out := b.samples
	b.samples = nil
	b.speaking = false

	if b.sampleRate <= 0 {
		return nil
	}
	if time.Duration(len(out))*time.Second/time.Duration(b.sampleRate) < minSpeechDuration {
		return nil
	}
	return out
}

func (b *speechBuffer) duration() time.Duration {
	return time.Duration(len(b.samples)) * time.Second / time.Duration(b.sampleRate)
}
