// Package manifest implements validation, canonicalization and
// fingerprinting of render manifests. Everything here is pure: no job
// state is touched and no assets are modified.
package manifest

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/videorobot/api/internal/model"
)

var topLevelKeys = map[string]bool{
	"seed":   true,
	"video":  true,
	"tracks": true,
	"config": true,
}

// Keys accepted per track variant, on top of the common type/start.
var variantKeys = map[model.TrackType]map[string]bool{
	model.TrackTypeVideo: {
		"src": true, "trim_start": true, "trim_end": true, "fit": true,
		"crossfade": true, "scale": true, "duration": true, "x": true, "y": true,
	},
	model.TrackTypeImage: {
		"src": true, "duration": true, "x": true, "y": true, "scale": true,
	},
	model.TrackTypeText: {
		"content": true, "duration": true, "x": true, "y": true,
		"size": true, "color": true, "font": true,
	},
	model.TrackTypeAudio: {
		"src": true, "duration": true, "gain_db": true, "loop": true,
	},
}

// Validator checks raw submitted manifests against the schema.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	// Report paths using json tag names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate parses and validates a raw manifest body. On failure it returns
// a *model.ValidationError enumerating every violated constraint with a
// path pointing at the offending field.
func (v *Validator) Validate(raw []byte) (*model.Manifest, error) {
	var fields []model.FieldError

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &model.ValidationError{Fields: []model.FieldError{
			{Path: "$", Message: "body must be a JSON object"},
		}}
	}

	for key := range top {
		if !topLevelKeys[key] {
			fields = append(fields, model.FieldError{
				Path: key, Message: "unknown key",
			})
		}
	}
	if _, ok := top["video"]; !ok {
		fields = append(fields, model.FieldError{Path: "video", Message: "required"})
	}
	if _, ok := top["tracks"]; !ok {
		fields = append(fields, model.FieldError{Path: "tracks", Message: "required"})
	}

	var m model.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		fields = append(fields, model.FieldError{
			Path: "$", Message: fmt.Sprintf("malformed manifest: %v", err),
		})
		return nil, sorted(fields)
	}

	if err := v.validate.Struct(&m); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, model.FieldError{
					Path:    fieldPath(fe.Namespace()),
					Message: constraintMessage(fe),
				})
			}
		} else {
			fields = append(fields, model.FieldError{Path: "$", Message: err.Error()})
		}
	}

	if rawTracks, ok := top["tracks"]; ok {
		fields = append(fields, validateTracks(rawTracks, m.Tracks)...)
	}

	if len(fields) > 0 {
		return nil, sorted(fields)
	}
	return &m, nil
}

func validateTracks(rawTracks json.RawMessage, tracks []model.Track) []model.FieldError {
	var fields []model.FieldError
	var rawList []map[string]json.RawMessage
	if err := json.Unmarshal(rawTracks, &rawList); err != nil {
		return []model.FieldError{{Path: "tracks", Message: "must be an array of objects"}}
	}
	if len(rawList) == 0 {
		// struct-level validation already reports the empty list
		return nil
	}

	for i, rawTrack := range rawList {
		path := func(key string) string { return fmt.Sprintf("tracks[%d].%s", i, key) }

		if _, ok := rawTrack["type"]; !ok {
			fields = append(fields, model.FieldError{
				Path: path("type"), Message: "required",
			})
			continue
		}
		if i >= len(tracks) {
			continue
		}
		track := tracks[i]

		allowed, known := variantKeys[track.Type]
		if !known {
			fields = append(fields, model.FieldError{
				Path:    path("type"),
				Message: fmt.Sprintf("must be one of video, image, text, audio; got %q", track.Type),
			})
			continue
		}
		for key := range rawTrack {
			if key == "type" || key == "start" {
				continue
			}
			if !allowed[key] {
				fields = append(fields, model.FieldError{
					Path:    path(key),
					Message: fmt.Sprintf("unknown key for %s track", track.Type),
				})
			}
		}

		switch track.Type {
		case model.TrackTypeVideo, model.TrackTypeImage, model.TrackTypeAudio:
			if track.Src == "" {
				fields = append(fields, model.FieldError{Path: path("src"), Message: "required"})
			}
		case model.TrackTypeText:
			if strings.TrimSpace(track.Content) == "" {
				fields = append(fields, model.FieldError{Path: path("content"), Message: "required"})
			}
		}

		if track.Duration != nil && *track.Duration <= 0 {
			fields = append(fields, model.FieldError{
				Path: path("duration"), Message: "must be > 0",
			})
		}
		if track.Crossfade != nil && *track.Crossfade < 0 {
			fields = append(fields, model.FieldError{
				Path: path("crossfade"), Message: "must be >= 0",
			})
		}
		if track.Scale != nil && *track.Scale <= 0 {
			fields = append(fields, model.FieldError{
				Path: path("scale"), Message: "must be > 0",
			})
		}
		if track.Fit != "" && track.Type == model.TrackTypeVideo {
			valid := false
			for _, f := range model.ValidFitModes {
				if track.Fit == f {
					valid = true
					break
				}
			}
			if !valid {
				fields = append(fields, model.FieldError{
					Path:    path("fit"),
					Message: "must be one of contain, cover, scale",
				})
			}
		}
	}
	return fields
}

// fieldPath turns a validator namespace like "Manifest.tracks[2].start"
// into "tracks[2].start".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func constraintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return "required"
	case "gt":
		return "must be > " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	}
	return "failed constraint " + fe.Tag()
}

func sorted(fields []model.FieldError) *model.ValidationError {
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Path < fields[j].Path
	})
	return &model.ValidationError{Fields: fields}
}
