// Package audio provides PCM sample manipulation shared by the gateway,
// the pipeline engines, and the voice bridge: int16/byte packing, channel
// downmix, linear resampling, and WAV container encoding.
//
// All functions operate on signed 16-bit little-endian mono samples unless
// stated otherwise. They are pure and safe for concurrent use.
package audio

import "math"

// Int16sToBytes packs int16 samples into little-endian bytes (2 bytes per
// sample), the PCM layout used on the wire.
func Int16sToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// BytesToInt16s unpacks little-endian PCM bytes into int16 samples. A
// trailing odd byte is ignored; callers that must reject odd input validate
// before calling.
func BytesToInt16s(data []byte) []int16 {
	n := len(data) / 2
	out := make([]int16, n)
	for i := range n {
		out[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return out
}

// StereoToMono downmixes interleaved stereo samples to mono by averaging
// each L+R pair. Uses int32 arithmetic so opposing full-scale samples do
// not overflow. A trailing unpaired sample is dropped.
func StereoToMono(samples []int16) []int16 {
	frames := len(samples) / 2
	out := make([]int16, frames)
	for i := range frames {
		out[i] = int16((int32(samples[i*2]) + int32(samples[i*2+1])) / 2)
	}
	return out
}

// ResampleMono16 resamples mono samples from srcRate to dstRate using
// linear interpolation. If the rates match or either rate is non-positive,
// the input is returned unchanged.
func ResampleMono16(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]int16, dstLen)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = int16(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}

// MonoToStereo duplicates each mono sample into an interleaved L/R pair.
// Used when playing synthesized speech into a stereo voice channel.
func MonoToStereo(samples []int16) []int16 {
	out := make([]int16, len(samples)*2)
	for i, s := range samples {
		out[i*2] = s
		out[i*2+1] = s
	}
	return out
}

// Energy returns the root-mean-square energy of the samples normalised to
// [0, 1]. Silence is 0; a full-scale square wave is 1. Used by the bridge's
// speech detector.
func Energy(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}
