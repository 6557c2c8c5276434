// Package render turns a canonical manifest into a time-ordered composition
// plan and drives the engine and audio processor to produce the artifact.
package render

import (
	"context"
	"math"
	"sort"

	"github.com/videorobot/api/internal/engine"
	"github.com/videorobot/api/internal/model"
)

// PlanItem is one track resolved to an absolute interval on the output
// timeline. Layer is the z-order for visual items: later manifest tracks
// draw on top of earlier ones.
type PlanItem struct {
	Index     int
	Track     model.Track
	AssetPath string
	Layer     int
	Start     float64
	End       float64
	FadeIn    float64
	FadeOut   float64
	HasAudio  bool
}

// Plan is the full composition: visual layers in paint order, audio items,
// and the output duration rounded up to a whole number of frames.
type Plan struct {
	Visual   []PlanItem
	Audio    []PlanItem
	FPS      float64
	Frames   int
	Duration float64
}

// FrameSpan converts a [start, end) interval in seconds to the inclusive
// frame range it covers at the given rate.
func FrameSpan(start, end, fps float64) (first, last int) {
	first = int(math.Ceil(start*fps - 1e-9))
	last = int(math.Ceil(end*fps-1e-9)) - 1
	if first < 0 {
		first = 0
	}
	return first, last
}

// Resolver maps a track src to the asset path verified at submission.
type Resolver interface {
	Resolve(src string) (string, error)
}

// BuildPlan resolves every track to absolute timeline intervals. Tracks keep
// their manifest order: z-order equals list position, ties resolved by
// declaration order, never by type. The only inputs are the manifest and the
// probed media, so a fixed manifest yields a bit-identical plan.
func BuildPlan(ctx context.Context, m *model.Manifest, eng engine.Engine, res Resolver) (*Plan, error) {
	plan := &Plan{FPS: m.Video.FPS}

	var total float64
	layer := 0
	lastVideo := -1
	for i, track := range m.Tracks {
		if track.Type == model.TrackTypeAudio {
			continue
		}

		item := PlanItem{Index: i, Track: track, Layer: layer, Start: track.Start}
		var length float64
		switch track.Type {
		case model.TrackTypeVideo:
			path, err := res.Resolve(track.Src)
			if err != nil {
				return nil, err
			}
			info, err := eng.Probe(ctx, path)
			if err != nil {
				return nil, err
			}
			item.AssetPath = path
			item.HasAudio = info.HasAudio
			length = intrinsicVideoLength(track, info.DurationSec)
			if track.Duration != nil {
				length = math.Max(0.1, *track.Duration)
			}
			if cf := *track.Crossfade; cf > 0 && lastVideo >= 0 {
				plan.Visual[lastVideo].FadeOut = cf
				item.FadeIn = cf
			}
			lastVideo = len(plan.Visual)
		case model.TrackTypeImage:
			path, err := res.Resolve(track.Src)
			if err != nil {
				return nil, err
			}
			item.AssetPath = path
			length = *track.Duration
		case model.TrackTypeText:
			if track.Font != "" {
				path, err := res.Resolve(track.Font)
				if err != nil {
					return nil, err
				}
				item.AssetPath = path
			}
			length = *track.Duration
		}

		item.End = item.Start + length
		total = math.Max(total, item.End)
		plan.Visual = append(plan.Visual, item)
		layer++
	}
	if total <= 0 {
		total = 1.0
	}

	// Audio items resolve after the visual timeline: a track without an
	// explicit duration plays to its own length, or to the visual end when
	// looped.
	for i, track := range m.Tracks {
		if track.Type != model.TrackTypeAudio {
			continue
		}
		path, err := res.Resolve(track.Src)
		if err != nil {
			return nil, err
		}
		info, err := eng.Probe(ctx, path)
		if err != nil {
			return nil, err
		}

		length := info.DurationSec
		switch {
		case track.Duration != nil:
			length = *track.Duration
		case track.Loop && total > info.DurationSec:
			length = total
		case total > 0:
			length = math.Min(info.DurationSec, total)
		}

		item := PlanItem{
			Index:     i,
			Track:     track,
			AssetPath: path,
			Layer:     -1,
			Start:     track.Start,
			End:       track.Start + length,
			HasAudio:  true,
		}
		total = math.Max(total, item.End)
		plan.Audio = append(plan.Audio, item)
	}

	plan.Frames = int(math.Ceil(total*m.Video.FPS - 1e-9))
	if plan.Frames < 1 {
		plan.Frames = 1
	}
	plan.Duration = float64(plan.Frames) / m.Video.FPS
	return plan, nil
}

// intrinsicVideoLength is the source length minus trims, never less than a
// hundredth of a second.
func intrinsicVideoLength(track model.Track, sourceDur float64) float64 {
	start := math.Max(0, track.TrimStart)
	end := math.Max(start+0.01, sourceDur-math.Max(0, track.TrimEnd))
	return end - start
}

// Timings flattens the plan for the job report, in manifest track order.
func (p *Plan) Timings() []model.TrackTiming {
	out := make([]model.TrackTiming, 0, len(p.Visual)+len(p.Audio))
	for _, item := range p.Visual {
		out = append(out, model.TrackTiming{
			Index: item.Index, Type: item.Track.Type, Layer: item.Layer,
			Start: item.Start, End: item.End,
		})
	}
	for _, item := range p.Audio {
		out = append(out, model.TrackTiming{
			Index: item.Index, Type: item.Track.Type, Layer: item.Layer,
			Start: item.Start, End: item.End,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
