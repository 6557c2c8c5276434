package audio

import "math"

// DuckConfig tunes how far background music drops under active speech and
// how fast the gain moves. Attack/release are smoothing time constants, so
// the gain change never pumps audibly.
type DuckConfig struct {
	DepthDB   float64 // attenuation applied while speech is active
	AttackMS  int     // smoothing when ducking in
	ReleaseMS int     // smoothing when recovering
}

// DefaultDuckConfig mirrors the documented defaults: 12 dB of attenuation,
// 20 ms attack, 300 ms release.
func DefaultDuckConfig() DuckConfig {
	return DuckConfig{DepthDB: 12.0, AttackMS: 20, ReleaseMS: 300}
}

// Duck attenuates bgm wherever the speech activity mask is set. The mask is
// frame-aligned (frameLen samples per entry) against the output timeline, so
// the bgm buffer must already be laid out on that timeline.
func Duck(bgm *Buffer, mask []bool, frameLen int, cfg DuckConfig) {
	if bgm == nil || len(bgm.Samples) == 0 || len(mask) == 0 || frameLen <= 0 {
		return
	}

	duckGain := DBToLinear(-math.Abs(cfg.DepthDB))
	attack := smoothingCoef(cfg.AttackMS, bgm.SampleRate)
	release := smoothingCoef(cfg.ReleaseMS, bgm.SampleRate)

	gain := 1.0
	for i := range bgm.Samples {
		frame := i / frameLen
		target := 1.0
		if frame < len(mask) && mask[frame] {
			target = duckGain
		}
		coef := release
		if target < gain {
			coef = attack
		}
		gain += (target - gain) * coef
		bgm.Samples[i] *= gain
	}
}

// smoothingCoef converts a time constant in ms to a one-pole filter
// coefficient at the given sample rate.
func smoothingCoef(ms int, sampleRate int) float64 {
	if ms <= 0 || sampleRate <= 0 {
		return 1.0
	}
	tau := float64(ms) / 1000.0
	return 1.0 - math.Exp(-1.0/(tau*float64(sampleRate)))
}
