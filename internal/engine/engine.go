// Package engine is the boundary to the external media tools. Every call
// into ffmpeg/ffprobe goes through here so failures surface as classified
// composition errors instead of raw exec errors.
package engine

import (
	"context"

	"github.com/videorobot/api/internal/audio"
)

// MediaInfo is what probing an asset reveals.
type MediaInfo struct {
	DurationSec float64
	Width       int
	Height      int
	HasAudio    bool
}

// LayerKind mirrors the visual track variants.
type LayerKind string

const (
	LayerVideo LayerKind = "video"
	LayerImage LayerKind = "image"
	LayerText  LayerKind = "text"
)

// Layer is one visual element of the render, already resolved to absolute
// timeline positions.
type Layer struct {
	Kind      LayerKind
	Src       string
	Start     float64
	End       float64
	TrimStart float64
	Fit       string
	Scale     float64
	X, Y      *float64
	Content   string
	Size      int
	Color     string
	Font      string
	FadeIn    float64
	FadeOut   float64
}

// RenderSpec describes the complete output the engine must produce.
type RenderSpec struct {
	Width      int
	Height     int
	FPS        float64
	BGColor    string
	Duration   float64
	Seed       int64
	Layers     []Layer
	AudioPath  string // optional mixed-audio WAV to mux in
	OutputPath string
	WorkDir    string
}

// Engine abstracts the media backend. The production implementation shells
// out to ffmpeg; tests inject stubs.
type Engine interface {
	// Probe inspects an asset. Unreadable or undecodable media is a
	// *model.CompositionError.
	Probe(ctx context.Context, path string) (MediaInfo, error)
	// ExtractAudio decodes an asset's audio stream to mono PCM at the
	// pipeline sample rate.
	ExtractAudio(ctx context.Context, path string, sampleRate int) (*audio.Buffer, error)
	// Render produces the final artifact described by spec.
	Render(ctx context.Context, spec RenderSpec) error
}
