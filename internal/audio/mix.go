package audio

import "math"

// Source is one layer of the mixdown: a decoded buffer, its offset on the
// output timeline and the per-track gain.
type Source struct {
	Buf      *Buffer
	StartSec float64
	GainDB   float64
}

// Mix sums sources at their offsets with per-source gain applied. The output
// spans at least minDuration seconds and is extended to cover the longest
// source. Summation order is the slice order, so the result is deterministic
// for a fixed input list.
func Mix(sources []Source, sampleRate int, minDuration float64) *Buffer {
	length := int(math.Ceil(minDuration * float64(sampleRate)))
	for _, src := range sources {
		if src.Buf == nil {
			continue
		}
		end := int(math.Ceil(src.StartSec*float64(sampleRate))) + len(src.Buf.Samples)
		if end > length {
			length = end
		}
	}
	if length < 0 {
		length = 0
	}

	out := &Buffer{SampleRate: sampleRate, Samples: make([]float64, length)}
	for _, src := range sources {
		if src.Buf == nil || len(src.Buf.Samples) == 0 {
			continue
		}
		gain := DBToLinear(src.GainDB)
		offset := int(math.Ceil(src.StartSec * float64(sampleRate)))
		for i, s := range src.Buf.Samples {
			pos := offset + i
			if pos < 0 || pos >= length {
				continue
			}
			out.Samples[pos] += s * gain
		}
	}
	return out
}

// ClipLoop fits a buffer to a target length in seconds: longer input is
// truncated, shorter input is looped when loop is set and zero-padded
// implicitly by the mixer otherwise.
func ClipLoop(b *Buffer, seconds float64, loop bool) *Buffer {
	if b == nil || b.SampleRate <= 0 {
		return b
	}
	want := int(math.Ceil(seconds * float64(b.SampleRate)))
	if want <= 0 || len(b.Samples) == 0 {
		return &Buffer{SampleRate: b.SampleRate}
	}
	if want <= len(b.Samples) {
		return &Buffer{SampleRate: b.SampleRate, Samples: b.Samples[:want]}
	}
	if !loop {
		return b
	}
	out := make([]float64, want)
	for i := range out {
		out[i] = b.Samples[i%len(b.Samples)]
	}
	return &Buffer{SampleRate: b.SampleRate, Samples: out}
}

// ApplyGain scales every sample by a decibel gain, in place.
func ApplyGain(b *Buffer, db float64) {
	gain := DBToLinear(db)
	for i := range b.Samples {
		b.Samples[i] *= gain
	}
}
