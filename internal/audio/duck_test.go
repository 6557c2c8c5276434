package audio

import (
	"math"
	"testing"
)

func constant(sampleRate, n int, v float64) *Buffer {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = v
	}
	return &Buffer{SampleRate: sampleRate, Samples: samples}
}

func TestDuck_AttenuatesUnderSpeech(t *testing.T) {
	cfg := DefaultDuckConfig()
	sr := 48000
	frameLen := 960 // 20 ms

	// 120 frames: speech active for 20 in the first half, then a long
	// tail so the release fully recovers.
	mask := make([]bool, 120)
	for f := 15; f < 35; f++ {
		mask[f] = true
	}
	bgm := constant(sr, 120*frameLen, 1.0)
	Duck(bgm, mask, frameLen, cfg)

	want := DBToLinear(-cfg.DepthDB)

	// Before speech: untouched.
	if got := bgm.Samples[5 * frameLen]; math.Abs(got-1.0) > 0.01 {
		t.Errorf("pre-speech sample %.3f, want ~1.0", got)
	}
	// Deep into the active region the gain has settled at the duck depth.
	if got := bgm.Samples[30 * frameLen]; math.Abs(got-want) > 0.02 {
		t.Errorf("ducked sample %.3f, want ~%.3f", got, want)
	}
	// Well after release the gain has recovered.
	if got := bgm.Samples[119 * frameLen]; math.Abs(got-1.0) > 0.05 {
		t.Errorf("recovered sample %.3f, want ~1.0", got)
	}
}

func TestDuck_AttackFasterThanRelease(t *testing.T) {
	cfg := DefaultDuckConfig()
	sr := 48000
	frameLen := 960

	mask := make([]bool, 30)
	for f := 5; f < 10; f++ {
		mask[f] = true
	}
	bgm := constant(sr, 30*frameLen, 1.0)
	Duck(bgm, mask, frameLen, cfg)

	// One attack time constant into the active region the gain has already
	// moved most of the way down; one release constant after it ends the
	// recovery is still partial.
	attackSample := 5*frameLen + sr*cfg.AttackMS/1000
	releaseSample := 10*frameLen + sr*cfg.ReleaseMS/1000
	duckGain := DBToLinear(-cfg.DepthDB)

	attackProgress := (1.0 - bgm.Samples[attackSample]) / (1.0 - duckGain)
	releaseProgress := (bgm.Samples[releaseSample] - duckGain) / (1.0 - duckGain)
	if attackProgress < 0.5 {
		t.Errorf("attack progressed only %.2f after one time constant", attackProgress)
	}
	if releaseProgress > 0.8 {
		t.Errorf("release progressed %.2f after one time constant, expected gradual recovery", releaseProgress)
	}
}

func TestDuck_NoMaskNoChange(t *testing.T) {
	bgm := constant(48000, 4800, 0.5)
	Duck(bgm, nil, 960, DefaultDuckConfig())
	for i, s := range bgm.Samples {
		if s != 0.5 {
			t.Fatalf("sample %d changed to %v with no mask", i, s)
		}
	}
}
