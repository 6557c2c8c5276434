package render

import (
	"context"
	"math"
	"path/filepath"

	"github.com/videorobot/api/internal/audio"
	"github.com/videorobot/api/internal/engine"
	"github.com/videorobot/api/internal/model"
)

// Pipeline executes one render job end to end: plan, audio mixdown, engine
// render, report. It is owned exclusively by the worker running the job.
type Pipeline struct {
	Engine   engine.Engine
	Resolver Resolver
	Audio    audio.Config
}

// Progress reports a fraction in [0,1] with a human-readable step. It is an
// alias so the pipeline satisfies the scheduler's runner interface directly.
type Progress = func(fraction float64, message string)

// Run produces the job's artifact inside job.WorkDir and returns the report.
// Composition failures come back as *model.CompositionError; audio troubles
// downgrade to report warnings.
func (p *Pipeline) Run(ctx context.Context, job *model.Job, progress Progress) (*model.Report, error) {
	m := job.Manifest
	progress(0.10, "resolving composition plan")

	plan, err := BuildPlan(ctx, m, p.Engine, p.Resolver)
	if err != nil {
		return nil, err
	}

	progress(0.25, "decoding audio sources")
	audioResult, err := p.processAudio(ctx, m, plan)
	if err != nil {
		return nil, err
	}

	var mixPath string
	if audioResult != nil && audioResult.Mix != nil && len(audioResult.Mix.Samples) > 0 {
		mixPath = filepath.Join(job.WorkDir, "mix.wav")
		if err := audio.WriteWAV(mixPath, audioResult.Mix); err != nil {
			return nil, &model.CompositionError{Stage: "write-mix", Err: err}
		}
	}

	progress(0.55, "encoding video")
	outputPath := filepath.Join(job.WorkDir, "final.mp4")
	spec := p.renderSpec(m, plan, mixPath, outputPath, job.WorkDir)
	if err := p.Engine.Render(ctx, spec); err != nil {
		return nil, err
	}

	progress(0.95, "finalising output")
	report := &model.Report{
		JobID:       job.ID,
		Fingerprint: job.Fingerprint,
		DurationMS:  int64(math.Ceil(plan.Duration * 1000)),
		FPS:         plan.FPS,
		Frames:      plan.Frames,
		Tracks:      plan.Timings(),
		Artifacts: []string{
			"final.mp4", "manifest_canonical.json", "inputs.sha256", "report.json",
		},
	}
	if audioResult != nil {
		report.TargetLUFS = audioResult.TargetLUFS
		report.LoudnessGainDB = audioResult.LoudnessGainDB
		report.Warnings = audioResult.Warnings
	}
	return report, nil
}

// processAudio gathers the speech layers (audio tracks plus embedded video
// audio) and the optional bgm bed, then runs the audio processor. A job with
// no audio material at all returns nil.
func (p *Pipeline) processAudio(ctx context.Context, m *model.Manifest, plan *Plan) (*audio.Result, error) {
	var speech []audio.Source

	for _, item := range plan.Audio {
		buf, err := p.Engine.ExtractAudio(ctx, item.AssetPath, p.Audio.SampleRate)
		if err != nil {
			return nil, err
		}
		buf = audio.ClipLoop(buf, item.End-item.Start, item.Track.Loop)
		speech = append(speech, audio.Source{
			Buf:      buf,
			StartSec: item.Start,
			GainDB:   *item.Track.GainDB,
		})
	}

	for _, item := range plan.Visual {
		if item.Track.Type != model.TrackTypeVideo || !item.HasAudio {
			continue
		}
		buf, err := p.Engine.ExtractAudio(ctx, item.AssetPath, p.Audio.SampleRate)
		if err != nil {
			return nil, err
		}
		// Embedded audio follows the clip: skip the trimmed head and stop
		// at the clip's visible end.
		trimmed := trimHead(buf, item.Track.TrimStart)
		trimmed = audio.ClipLoop(trimmed, item.End-item.Start, false)
		speech = append(speech, audio.Source{Buf: trimmed, StartSec: item.Start})
	}

	var bgm *audio.Source
	duck := false
	if m.Config != nil && m.Config.BGM != nil {
		path, err := p.Resolver.Resolve(m.Config.BGM.Path)
		if err != nil {
			return nil, err
		}
		buf, err := p.Engine.ExtractAudio(ctx, path, p.Audio.SampleRate)
		if err != nil {
			return nil, err
		}
		buf = audio.ClipLoop(buf, plan.Duration, true)
		bgm = &audio.Source{Buf: buf, GainDB: m.Config.BGM.GainDB}
		duck = m.Config.BGM.Ducking
	}

	if len(speech) == 0 && bgm == nil {
		return nil, nil
	}

	cfg := p.Audio
	if m.Config != nil && m.Config.Audio != nil {
		if m.Config.Audio.TargetLUFS != nil {
			cfg.TargetLUFS = *m.Config.Audio.TargetLUFS
		}
		if m.Config.Audio.UseVAD != nil {
			cfg.UseVAD = *m.Config.Audio.UseVAD
		}
	}

	return audio.Process(audio.Input{
		Speech:      speech,
		BGM:         bgm,
		DuckBGM:     duck,
		MinDuration: plan.Duration,
	}, cfg)
}

func (p *Pipeline) renderSpec(m *model.Manifest, plan *Plan, mixPath, outputPath, workDir string) engine.RenderSpec {
	spec := engine.RenderSpec{
		Width:      m.Video.Width,
		Height:     m.Video.Height,
		FPS:        m.Video.FPS,
		BGColor:    m.Video.BGColor,
		Duration:   plan.Duration,
		Layers:     make([]engine.Layer, 0, len(plan.Visual)),
		AudioPath:  mixPath,
		OutputPath: outputPath,
		WorkDir:    workDir,
	}
	if m.Seed != nil {
		spec.Seed = *m.Seed
	}

	for _, item := range plan.Visual {
		layer := engine.Layer{
			Start:   item.Start,
			End:     item.End,
			FadeIn:  item.FadeIn,
			FadeOut: item.FadeOut,
			X:       item.Track.X,
			Y:       item.Track.Y,
		}
		switch item.Track.Type {
		case model.TrackTypeVideo:
			layer.Kind = engine.LayerVideo
			layer.Src = item.AssetPath
			layer.TrimStart = item.Track.TrimStart
			layer.Fit = string(item.Track.Fit)
			layer.Scale = *item.Track.Scale
		case model.TrackTypeImage:
			layer.Kind = engine.LayerImage
			layer.Src = item.AssetPath
			layer.Scale = *item.Track.Scale
		case model.TrackTypeText:
			layer.Kind = engine.LayerText
			layer.Content = item.Track.Content
			layer.Size = *item.Track.Size
			layer.Color = item.Track.Color
			layer.Font = item.AssetPath
		}
		spec.Layers = append(spec.Layers, layer)
	}
	return spec
}

func trimHead(b *audio.Buffer, seconds float64) *audio.Buffer {
	if b == nil || seconds <= 0 || b.SampleRate <= 0 {
		return b
	}
	skip := int(seconds * float64(b.SampleRate))
	if skip >= len(b.Samples) {
		return &audio.Buffer{SampleRate: b.SampleRate}
	}
	return &audio.Buffer{SampleRate: b.SampleRate, Samples: b.Samples[skip:]}
}
