package audio

import (
	"fmt"
	"math"
)

// Config carries the global audio settings for one job.
type Config struct {
	SampleRate int
	TargetLUFS float64
	UseVAD     bool
	VAD        VADConfig
	Duck       DuckConfig
}

// Input is the material the processor mixes: the speech layers (manifest
// audio tracks plus embedded video audio) and an optional background music
// bed that can be ducked beneath active speech.
type Input struct {
	Speech  []Source
	BGM     *Source
	DuckBGM bool
	// MinDuration extends the mix to at least the visual timeline length.
	MinDuration float64
}

// Result is the processed mix plus what was applied, for the job report.
type Result struct {
	Mix            *Buffer
	TargetLUFS     *float64
	LoudnessGainDB *float64
	Warnings       []string
}

// Process runs the fixed pipeline: per-track gain and offsets, VAD over the
// speech mix, ducking of the bgm bed, then a single uniform loudness
// correction to the target. A silent or missing primary source downgrades
// normalization to a report warning instead of failing the job.
func Process(in Input, cfg Config) (*Result, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", cfg.SampleRate)
	}
	res := &Result{}

	speech := Mix(in.Speech, cfg.SampleRate, in.MinDuration)

	var mask []bool
	frameLen := cfg.VAD.FrameLen(cfg.SampleRate)
	if cfg.UseVAD {
		mask = ActivityMask(speech, cfg.VAD)
		if !anyActive(mask) {
			res.Warnings = append(res.Warnings,
				"voice activity detection found no speech; ducking skipped")
			mask = nil
		}
	}

	layers := []Source{{Buf: speech, StartSec: 0, GainDB: 0}}
	if in.BGM != nil && in.BGM.Buf != nil {
		// Lay the bed out on the output timeline before ducking so the
		// activity mask frames line up.
		bed := Mix([]Source{*in.BGM}, cfg.SampleRate, in.MinDuration)
		if in.DuckBGM && mask != nil {
			Duck(bed, mask, frameLen, cfg.Duck)
		}
		layers = append(layers, Source{Buf: bed, StartSec: 0, GainDB: 0})
	}
	mix := Mix(layers, cfg.SampleRate, in.MinDuration)

	if silent(speech) {
		res.Warnings = append(res.Warnings,
			"primary audio is silent or unreadable; loudness normalization skipped")
		res.Mix = mix
		return res, nil
	}

	gain, ok := NormalizeToLUFS(mix, cfg.TargetLUFS)
	if !ok {
		res.Warnings = append(res.Warnings,
			"mixed audio is silent; loudness normalization skipped")
		res.Mix = mix
		return res, nil
	}
	target := cfg.TargetLUFS
	res.TargetLUFS = &target
	res.LoudnessGainDB = &gain
	res.Mix = mix
	return res, nil
}

func anyActive(mask []bool) bool {
	for _, m := range mask {
		if m {
			return true
		}
	}
	return false
}

func silent(b *Buffer) bool {
	if b == nil || len(b.Samples) == 0 {
		return true
	}
	return math.IsInf(IntegratedLUFS(b), -1)
}
