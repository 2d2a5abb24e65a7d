package audio

import (
	"bytes"
	"fmt"
	"io"

	wav "github.com/youpy/go-wav"
)

// EncodeWAV wraps mono 16-bit PCM samples in a WAV container. The result is
// what synthesized speech is shipped in over the wire (base64 of these
// bytes).
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}
	var buf bytes.Buffer
	w := wav.NewWriter(&buf, uint32(len(samples)), 1, uint32(sampleRate), 16)
	if _, err := w.Write(Int16sToBytes(samples)); err != nil {
		return nil, fmt.Errorf("audio: write wav samples: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeWAV reads a mono 16-bit WAV container back into PCM samples and the
// container's sample rate. Stereo or non-16-bit input is rejected.
func DecodeWAV(data []byte) ([]int16, int, error) {
	r := wav.NewReader(bytes.NewReader(data))
	format, err := r.Format()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: read wav format: %w", err)
	}
	if format.NumChannels != 1 || format.BitsPerSample != 16 {
		return nil, 0, fmt.Errorf("audio: unsupported wav layout: %d channels, %d bits",
			format.NumChannels, format.BitsPerSample)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: read wav data: %w", err)
	}
	return BytesToInt16s(raw), int(format.SampleRate), nil
}
