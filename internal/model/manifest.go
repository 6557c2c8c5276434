package model

// TrackType discriminates the four track variants of a manifest.
type TrackType string

const (
	TrackTypeVideo TrackType = "video"
	TrackTypeImage TrackType = "image"
	TrackTypeText  TrackType = "text"
	TrackTypeAudio TrackType = "audio"
)

var ValidTrackTypes = []TrackType{
	TrackTypeVideo, TrackTypeImage, TrackTypeText, TrackTypeAudio,
}

// Fit modes for video tracks
type FitMode string

const (
	FitContain FitMode = "contain"
	FitCover   FitMode = "cover"
	FitScale   FitMode = "scale"
)

var ValidFitModes = []FitMode{FitContain, FitCover, FitScale}

// Manifest is the declarative description of a render job: global video
// parameters plus an ordered list of tracks. Later tracks draw on top of
// earlier ones.
type Manifest struct {
	Seed   *int64        `json:"seed,omitempty"`
	Video  VideoSettings `json:"video" validate:"required"`
	Tracks []Track       `json:"tracks" validate:"required,min=1,dive"`
	Config *RenderConfig `json:"config,omitempty"`
}

// VideoSettings describes the output canvas.
type VideoSettings struct {
	Width   int     `json:"width" validate:"gt=0"`
	Height  int     `json:"height" validate:"gt=0"`
	FPS     float64 `json:"fps" validate:"gt=0"`
	BGColor string  `json:"bg_color,omitempty"`
}

// Track is the wire form of a single timeline entry. Which fields are
// meaningful depends on Type; the validator enforces the closed variant
// shapes and the canonicalizer fills variant defaults.
type Track struct {
	Type  TrackType `json:"type"`
	Start float64   `json:"start" validate:"gte=0"`

	// video / image / audio
	Src string `json:"src,omitempty"`

	// video
	TrimStart float64  `json:"trim_start,omitempty" validate:"gte=0"`
	TrimEnd   float64  `json:"trim_end,omitempty" validate:"gte=0"`
	Fit       FitMode  `json:"fit,omitempty"`
	Crossfade *float64 `json:"crossfade,omitempty"`

	// image / text placement
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Scale *float64 `json:"scale,omitempty"`

	// text
	Content string `json:"content,omitempty"`
	Size    *int   `json:"size,omitempty"`
	Color   string `json:"color,omitempty"`
	Font    string `json:"font,omitempty"`

	// audio
	GainDB *float64 `json:"gain_db,omitempty"`
	Loop   bool     `json:"loop,omitempty"`

	// image / text / audio (intrinsic for video)
	Duration *float64 `json:"duration,omitempty"`
}

// HasSrc reports whether this track variant references an external asset.
func (t *Track) HasSrc() bool {
	switch t.Type {
	case TrackTypeVideo, TrackTypeImage, TrackTypeAudio:
		return true
	}
	return false
}

// RenderConfig carries the optional global render settings.
type RenderConfig struct {
	AspectRatio string       `json:"aspectRatio,omitempty"`
	Captions    *bool        `json:"captions,omitempty"`
	Audio       *AudioConfig `json:"audio,omitempty"`
	BGM         *BGMConfig   `json:"bgm,omitempty"`
}

// AudioConfig controls loudness normalization of the final mix.
type AudioConfig struct {
	UseVAD     *bool    `json:"useVAD,omitempty"`
	TargetLUFS *float64 `json:"targetLufs,omitempty" validate:"omitempty,gte=-36,lte=-6"`
}

// BGMConfig adds a background music bed beneath the manifest's audio tracks.
type BGMConfig struct {
	Path    string  `json:"path" validate:"required"`
	GainDB  float64 `json:"gain_db"`
	Ducking bool    `json:"ducking"`
}
