package audio

import "testing"

func TestActivityMask_SilenceInactive(t *testing.T) {
	b := &Buffer{SampleRate: 48000, Samples: make([]float64, 48000)}
	mask := ActivityMask(b, DefaultVADConfig())
	for i, active := range mask {
		if active {
			t.Fatalf("frame %d active on silence", i)
		}
	}
}

func TestActivityMask_SpeechActive(t *testing.T) {
	b := sine(t, 200, 0.3, 1.0, 48000)
	mask := ActivityMask(b, DefaultVADConfig())
	if len(mask) == 0 {
		t.Fatal("empty mask")
	}
	for i, active := range mask {
		if !active {
			t.Fatalf("frame %d inactive on steady tone", i)
		}
	}
}

func TestActivityMask_Hangover(t *testing.T) {
	cfg := DefaultVADConfig()
	sr := 48000
	frameLen := cfg.FrameLen(sr)

	// Ten active frames followed by twenty silent ones.
	b := &Buffer{SampleRate: sr, Samples: make([]float64, 30*frameLen)}
	tone := sine(t, 200, 0.3, float64(10*frameLen)/float64(sr), sr)
	copy(b.Samples, tone.Samples)

	mask := ActivityMask(b, cfg)
	for f := 0; f < 10; f++ {
		if !mask[f] {
			t.Fatalf("frame %d should be active", f)
		}
	}
	// Hangover keeps the next HangoverFrames frames active.
	for f := 10; f < 10+cfg.HangoverFrames; f++ {
		if !mask[f] {
			t.Errorf("frame %d should be held active by hangover", f)
		}
	}
	if mask[10+cfg.HangoverFrames] {
		t.Errorf("frame %d should be inactive after hangover expires", 10+cfg.HangoverFrames)
	}
}

func TestActivityMask_ThresholdBoundary(t *testing.T) {
	cfg := VADConfig{FrameMS: 20, ThresholdDB: -40.0, HangoverFrames: 0}
	sr := 48000

	quiet := sine(t, 200, DBToLinear(-50.0), 0.5, sr)
	for i, active := range ActivityMask(quiet, cfg) {
		if active {
			t.Fatalf("frame %d active below threshold", i)
		}
	}
}
