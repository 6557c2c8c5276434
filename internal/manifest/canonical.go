package manifest

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/videorobot/api/internal/model"
)

// Documented defaults filled during canonicalization.
const (
	DefaultWidth       = 1280
	DefaultHeight      = 720
	DefaultFPS         = 30.0
	DefaultBGColor     = "#101318"
	DefaultFit         = model.FitContain
	DefaultCrossfade   = 0.5
	DefaultImageDur    = 3.0
	DefaultTextMinDur  = 0.5
	DefaultTextBaseDur = 2.0
	DefaultTextPerChar = 0.08
	DefaultTextSize    = 48
	DefaultTextColor   = "#ffffff"
	DefaultScale       = 1.0
	DefaultGainDB      = 0.0
)

// Canonicalize returns a copy of m with every optional field filled with its
// documented default, so that semantically identical manifests become
// structurally identical. Position x/y stay nil when absent: the documented
// default is centered placement, which has no numeric representation.
// Canonicalizing an already-canonical manifest is a no-op.
func Canonicalize(m *model.Manifest) *model.Manifest {
	out := *m

	if out.Video.Width == 0 {
		out.Video.Width = DefaultWidth
	}
	if out.Video.Height == 0 {
		out.Video.Height = DefaultHeight
	}
	if out.Video.FPS == 0 {
		out.Video.FPS = DefaultFPS
	}
	if out.Video.BGColor == "" {
		out.Video.BGColor = DefaultBGColor
	} else {
		out.Video.BGColor = normalizeColor(out.Video.BGColor, DefaultBGColor)
	}

	out.Tracks = make([]model.Track, len(m.Tracks))
	for i, t := range m.Tracks {
		out.Tracks[i] = canonicalizeTrack(t)
	}

	if m.Config != nil {
		cfg := *m.Config
		if cfg.Audio != nil {
			a := *cfg.Audio
			if a.UseVAD == nil {
				a.UseVAD = boolPtr(true)
			}
			if a.TargetLUFS == nil {
				a.TargetLUFS = floatPtr(-16.0)
			}
			cfg.Audio = &a
		}
		out.Config = &cfg
	}
	return &out
}

func canonicalizeTrack(t model.Track) model.Track {
	switch t.Type {
	case model.TrackTypeVideo:
		if t.Fit == "" {
			t.Fit = DefaultFit
		}
		if t.Crossfade == nil {
			t.Crossfade = floatPtr(DefaultCrossfade)
		}
		if t.Scale == nil {
			t.Scale = floatPtr(DefaultScale)
		}
	case model.TrackTypeImage:
		if t.Duration == nil {
			t.Duration = floatPtr(DefaultImageDur)
		}
		if t.Scale == nil {
			t.Scale = floatPtr(DefaultScale)
		}
	case model.TrackTypeText:
		t.Content = strings.TrimSpace(t.Content)
		if t.Duration == nil {
			d := math.Max(DefaultTextBaseDur, float64(len(t.Content))*DefaultTextPerChar)
			t.Duration = floatPtr(d)
		}
		if *t.Duration < DefaultTextMinDur {
			t.Duration = floatPtr(DefaultTextMinDur)
		}
		if t.Size == nil {
			t.Size = intPtr(DefaultTextSize)
		}
		if t.Color == "" {
			t.Color = DefaultTextColor
		} else {
			t.Color = normalizeColor(t.Color, DefaultTextColor)
		}
	case model.TrackTypeAudio:
		if t.GainDB == nil {
			t.GainDB = floatPtr(DefaultGainDB)
		}
	}
	return t
}

// MarshalCanonical serialises a canonical manifest with object keys in fixed
// alphabetical order, compact separators and shortest-form numbers, so that
// equivalent manifests serialise byte-identically.
func MarshalCanonical(m *model.Manifest) ([]byte, error) {
	tree := manifestTree(m)
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func manifestTree(m *model.Manifest) map[string]any {
	tree := map[string]any{
		"video": map[string]any{
			"bg_color": m.Video.BGColor,
			"fps":      m.Video.FPS,
			"height":   m.Video.Height,
			"width":    m.Video.Width,
		},
	}
	if m.Seed != nil {
		tree["seed"] = *m.Seed
	}

	tracks := make([]any, 0, len(m.Tracks))
	for _, t := range m.Tracks {
		tracks = append(tracks, trackTree(t))
	}
	tree["tracks"] = tracks

	if m.Config != nil {
		cfg := map[string]any{}
		if m.Config.AspectRatio != "" {
			cfg["aspectRatio"] = m.Config.AspectRatio
		}
		if m.Config.Captions != nil {
			cfg["captions"] = *m.Config.Captions
		}
		if m.Config.Audio != nil {
			audio := map[string]any{}
			if m.Config.Audio.TargetLUFS != nil {
				audio["targetLufs"] = *m.Config.Audio.TargetLUFS
			}
			if m.Config.Audio.UseVAD != nil {
				audio["useVAD"] = *m.Config.Audio.UseVAD
			}
			cfg["audio"] = audio
		}
		if m.Config.BGM != nil {
			cfg["bgm"] = map[string]any{
				"ducking": m.Config.BGM.Ducking,
				"gain_db": m.Config.BGM.GainDB,
				"path":    m.Config.BGM.Path,
			}
		}
		tree["config"] = cfg
	}
	return tree
}

func trackTree(t model.Track) map[string]any {
	tree := map[string]any{
		"start": t.Start,
		"type":  string(t.Type),
	}
	switch t.Type {
	case model.TrackTypeVideo:
		tree["src"] = t.Src
		tree["trim_start"] = t.TrimStart
		tree["trim_end"] = t.TrimEnd
		tree["fit"] = string(t.Fit)
		tree["crossfade"] = *t.Crossfade
		tree["scale"] = *t.Scale
		if t.Duration != nil {
			tree["duration"] = *t.Duration
		}
	case model.TrackTypeImage:
		tree["src"] = t.Src
		tree["duration"] = *t.Duration
		tree["scale"] = *t.Scale
	case model.TrackTypeText:
		tree["content"] = t.Content
		tree["duration"] = *t.Duration
		tree["size"] = *t.Size
		tree["color"] = t.Color
		if t.Font != "" {
			tree["font"] = t.Font
		}
	case model.TrackTypeAudio:
		tree["src"] = t.Src
		tree["gain_db"] = *t.GainDB
		tree["loop"] = t.Loop
		if t.Duration != nil {
			tree["duration"] = *t.Duration
		}
	}
	if t.X != nil {
		tree["x"] = *t.X
	}
	if t.Y != nil {
		tree["y"] = *t.Y
	}
	return tree
}

// encodeCanonical writes a JSON tree with sorted object keys and no
// insignificant whitespace. Scalars go through encoding/json, which emits
// the shortest float representation (no trailing-zero ambiguity).
func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// normalizeColor expands #abc shorthand and lowercases hex colors so that
// cosmetically different spellings compare equal.
func normalizeColor(value, fallback string) string {
	text := strings.TrimSpace(strings.ToLower(value))
	if !strings.HasPrefix(text, "#") {
		return text
	}
	hex := text[1:]
	if len(hex) == 3 {
		var b strings.Builder
		for _, ch := range hex {
			b.WriteRune(ch)
			b.WriteRune(ch)
		}
		hex = b.String()
	}
	if len(hex) != 6 {
		return fallback
	}
	for _, ch := range hex {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return fallback
		}
	}
	return "#" + hex
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
func boolPtr(b bool) *bool        { return &b }
