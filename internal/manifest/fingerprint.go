package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/videorobot/api/internal/model"
)

// AssetRef is one referenced asset together with the index of the track
// that first referenced it.
type AssetRef struct {
	Src        string
	Path       string
	TrackIndex int
}

// Resolver locates referenced assets. Relative srcs are resolved against
// the configured assets root.
type Resolver struct {
	AssetsRoot string
}

// Resolve returns the absolute path of a readable asset or *model.AssetError.
func (r *Resolver) Resolve(src string) (string, error) {
	candidates := []string{src}
	if !filepath.IsAbs(src) && r.AssetsRoot != "" {
		candidates = []string{filepath.Join(r.AssetsRoot, src), src}
	}
	var lastErr error
	for _, cand := range candidates {
		abs, err := filepath.Abs(cand)
		if err != nil {
			lastErr = err
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			lastErr = err
			continue
		}
		if info.IsDir() {
			continue
		}
		f, err := os.Open(abs)
		if err != nil {
			lastErr = err
			continue
		}
		f.Close()
		return abs, nil
	}
	return "", &model.AssetError{Src: src, Err: lastErr}
}

// CollectAssets gathers every asset a canonical manifest references, in
// track order with duplicates dropped; the config bgm bed, when present,
// comes last. Within one track, src precedes font.
func CollectAssets(m *model.Manifest, r *Resolver) ([]AssetRef, error) {
	seen := make(map[string]bool)
	var refs []AssetRef

	add := func(src string, idx int) error {
		path, err := r.Resolve(src)
		if err != nil {
			return err
		}
		if seen[path] {
			return nil
		}
		seen[path] = true
		refs = append(refs, AssetRef{Src: src, Path: path, TrackIndex: idx})
		return nil
	}

	for i, t := range m.Tracks {
		if t.HasSrc() {
			if err := add(t.Src, i); err != nil {
				return nil, err
			}
		}
		if t.Type == model.TrackTypeText && t.Font != "" {
			if err := add(t.Font, i); err != nil {
				return nil, err
			}
		}
	}
	if m.Config != nil && m.Config.BGM != nil {
		if err := add(m.Config.BGM.Path, len(m.Tracks)); err != nil {
			return nil, err
		}
	}

	// Track order first, ties by src path then track index.
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].TrackIndex != refs[j].TrackIndex {
			return refs[i].TrackIndex < refs[j].TrackIndex
		}
		if refs[i].Src != refs[j].Src {
			return refs[i].Src < refs[j].Src
		}
		return false
	})
	return refs, nil
}

// Fingerprint computes the SHA-256 over the canonical serialization followed
// by each referenced asset's content hash. Same manifest semantics plus same
// asset bytes always produce the same digest; any change to either changes it.
func Fingerprint(canonical []byte, assets []AssetRef) (string, error) {
	sum := sha256.New()
	sum.Write(canonical)
	for _, ref := range assets {
		digest, err := hashFile(ref.Path)
		if err != nil {
			return "", &model.AssetError{Src: ref.Src, Err: err}
		}
		sum.Write([]byte(digest))
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
