package manifest

import (
	"errors"
	"strings"
	"testing"

	"github.com/videorobot/api/internal/model"
)

func mustValidate(t *testing.T, body string) *model.Manifest {
	t.Helper()
	m, err := NewValidator().Validate([]byte(body))
	if err != nil {
		t.Fatalf("expected valid manifest, got: %v", err)
	}
	return m
}

func validationFields(t *testing.T, body string) []model.FieldError {
	t.Helper()
	_, err := NewValidator().Validate([]byte(body))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *model.ValidationError, got %T", err)
	}
	return verr.Fields
}

func hasField(fields []model.FieldError, path string) bool {
	for _, f := range fields {
		if f.Path == path {
			return true
		}
	}
	return false
}

func TestValidate_MinimalManifest(t *testing.T) {
	m := mustValidate(t, `{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [{"type": "text", "start": 0, "content": "hello"}]
	}`)

	if len(m.Tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(m.Tracks))
	}
	if m.Tracks[0].Type != model.TrackTypeText {
		t.Errorf("expected text track, got %s", m.Tracks[0].Type)
	}
}

func TestValidate_NotAnObject(t *testing.T) {
	fields := validationFields(t, `[1,2,3]`)
	if !hasField(fields, "$") {
		t.Errorf("expected error at $, got %v", fields)
	}
}

func TestValidate_UnknownTopLevelKey(t *testing.T) {
	fields := validationFields(t, `{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [{"type": "text", "start": 0, "content": "hi"}],
		"renderer": "fast"
	}`)
	if !hasField(fields, "renderer") {
		t.Errorf("expected unknown-key error for 'renderer', got %v", fields)
	}
}

func TestValidate_MissingVideoAndTracks(t *testing.T) {
	fields := validationFields(t, `{}`)
	if !hasField(fields, "video") || !hasField(fields, "tracks") {
		t.Errorf("expected errors for video and tracks, got %v", fields)
	}
}

func TestValidate_EmptyTracks(t *testing.T) {
	fields := validationFields(t, `{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": []
	}`)
	if !hasField(fields, "tracks") {
		t.Errorf("expected error for empty tracks, got %v", fields)
	}
}

// Every violation is reported in one pass, not just the first.
func TestValidate_CollectsAllErrors(t *testing.T) {
	fields := validationFields(t, `{
		"video": {"width": 0, "height": 360, "fps": 30},
		"tracks": [
			{"type": "video", "start": -1, "src": "a.mp4"},
			{"type": "image", "start": 0},
			{"type": "boom", "start": 0}
		]
	}`)

	for _, path := range []string{
		"video.width", "tracks[0].start", "tracks[1].src", "tracks[2].type",
	} {
		if !hasField(fields, path) {
			t.Errorf("missing expected error at %s; got %v", path, fields)
		}
	}
}

func TestValidate_UnknownVariantKey(t *testing.T) {
	fields := validationFields(t, `{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [{"type": "text", "start": 0, "content": "hi", "trim_start": 1}]
	}`)
	if !hasField(fields, "tracks[0].trim_start") {
		t.Errorf("expected unknown-key error for trim_start on text track, got %v", fields)
	}
}

func TestValidate_TrackConstraints(t *testing.T) {
	fields := validationFields(t, `{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [
			{"type": "video", "start": 0, "src": "a.mp4", "duration": 0, "crossfade": -1, "scale": 0, "fit": "stretch"}
		]
	}`)

	for _, path := range []string{
		"tracks[0].duration", "tracks[0].crossfade", "tracks[0].scale", "tracks[0].fit",
	} {
		if !hasField(fields, path) {
			t.Errorf("missing expected error at %s; got %v", path, fields)
		}
	}
}

func TestValidate_MissingTrackType(t *testing.T) {
	fields := validationFields(t, `{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [{"start": 0, "src": "a.mp4"}]
	}`)
	if !hasField(fields, "tracks[0].type") {
		t.Errorf("expected error for missing type, got %v", fields)
	}
	// Variant checks are skipped when the type itself is missing.
	for _, f := range fields {
		if strings.HasPrefix(f.Path, "tracks[0].") && f.Path != "tracks[0].type" {
			t.Errorf("unexpected follow-on error %v", f)
		}
	}
}

func TestValidate_FieldsSortedByPath(t *testing.T) {
	fields := validationFields(t, `{
		"tracks": [{"start": 0}]
	}`)
	for i := 1; i < len(fields); i++ {
		if fields[i-1].Path > fields[i].Path {
			t.Fatalf("fields not sorted: %q before %q", fields[i-1].Path, fields[i].Path)
		}
	}
}

func TestValidate_TargetLUFSRange(t *testing.T) {
	fields := validationFields(t, `{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [{"type": "text", "start": 0, "content": "hi"}],
		"config": {"audio": {"targetLufs": -40}}
	}`)
	if !hasField(fields, "config.audio.targetLufs") {
		t.Errorf("expected range error for targetLufs, got %v", fields)
	}
}
