package audio

import "math"

// VADConfig tunes the energy-gate voice activity detector. The thresholds
// are configurable because no fixed constants are mandated; the defaults
// below are the documented starting point.
type VADConfig struct {
	FrameMS        int     // analysis frame length
	ThresholdDB    float64 // RMS level above which a frame counts as speech
	HangoverFrames int     // frames speech stays active after level drops
}

// DefaultVADConfig returns the documented defaults: 20 ms frames, a
// -40 dBFS gate and a 5-frame hangover.
func DefaultVADConfig() VADConfig {
	return VADConfig{FrameMS: 20, ThresholdDB: -40.0, HangoverFrames: 5}
}

// ActivityMask classifies fixed-size frames of the primary speech source as
// speech-active or inactive. The returned mask has one entry per frame.
func ActivityMask(b *Buffer, cfg VADConfig) []bool {
	frameLen := cfg.FrameLen(b.SampleRate)
	if frameLen <= 0 || len(b.Samples) == 0 {
		return nil
	}
	frames := (len(b.Samples) + frameLen - 1) / frameLen
	mask := make([]bool, frames)
	threshold := DBToLinear(cfg.ThresholdDB)

	hang := 0
	for f := 0; f < frames; f++ {
		start := f * frameLen
		end := start + frameLen
		if end > len(b.Samples) {
			end = len(b.Samples)
		}
		var sumSq float64
		for _, s := range b.Samples[start:end] {
			sumSq += s * s
		}
		rms := math.Sqrt(sumSq / float64(end-start))
		if rms >= threshold {
			mask[f] = true
			hang = cfg.HangoverFrames
		} else if hang > 0 {
			mask[f] = true
			hang--
		}
	}
	return mask
}

// FrameLen returns the frame length in samples for a given rate.
func (c VADConfig) FrameLen(sampleRate int) int {
	return sampleRate * c.FrameMS / 1000
}
