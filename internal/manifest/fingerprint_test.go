package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/videorobot/api/internal/model"
)

func writeAsset(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write asset %s: %v", name, err)
	}
}

func TestResolver_MissingAsset(t *testing.T) {
	r := &Resolver{AssetsRoot: t.TempDir()}
	_, err := r.Resolve("nope.mp4")
	var aerr *model.AssetError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected *model.AssetError, got %v", err)
	}
	if aerr.Src != "nope.mp4" {
		t.Errorf("asset error src: got %q", aerr.Src)
	}
}

func TestCollectAssets_OrderAndDedupe(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "a.mp4", "video-a")
	writeAsset(t, dir, "b.png", "image-b")
	writeAsset(t, dir, "bed.wav", "bgm-bed")

	m := Canonicalize(mustValidate(t, `{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [
			{"type": "video", "start": 0, "src": "a.mp4"},
			{"type": "image", "start": 1, "src": "b.png"},
			{"type": "video", "start": 2, "src": "a.mp4"}
		],
		"config": {"bgm": {"path": "bed.wav"}}
	}`))

	refs, err := CollectAssets(m, &Resolver{AssetsRoot: dir})
	if err != nil {
		t.Fatalf("CollectAssets: %v", err)
	}

	var srcs []string
	for _, r := range refs {
		srcs = append(srcs, r.Src)
	}
	want := []string{"a.mp4", "b.png", "bed.wav"}
	if len(srcs) != len(want) {
		t.Fatalf("expected %v, got %v", want, srcs)
	}
	for i := range want {
		if srcs[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, srcs)
		}
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "a.png", "pixels")

	body := `{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [{"type": "image", "start": 0, "src": "a.png"}]
	}`
	r := &Resolver{AssetsRoot: dir}

	fp := func() string {
		m := Canonicalize(mustValidate(t, body))
		canonical, err := MarshalCanonical(m)
		if err != nil {
			t.Fatal(err)
		}
		assets, err := CollectAssets(m, r)
		if err != nil {
			t.Fatal(err)
		}
		digest, err := Fingerprint(canonical, assets)
		if err != nil {
			t.Fatal(err)
		}
		return digest
	}

	first := fp()
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %q", first)
	}
	if second := fp(); second != first {
		t.Errorf("fingerprint not deterministic: %s vs %s", first, second)
	}
}

func TestFingerprint_SensitiveToAssetBytes(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "a.png", "pixels")

	m := Canonicalize(mustValidate(t, `{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [{"type": "image", "start": 0, "src": "a.png"}]
	}`))
	canonical, err := MarshalCanonical(m)
	if err != nil {
		t.Fatal(err)
	}
	r := &Resolver{AssetsRoot: dir}
	assets, err := CollectAssets(m, r)
	if err != nil {
		t.Fatal(err)
	}

	before, err := Fingerprint(canonical, assets)
	if err != nil {
		t.Fatal(err)
	}

	writeAsset(t, dir, "a.png", "different pixels")
	after, err := Fingerprint(canonical, assets)
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Error("fingerprint unchanged after asset content changed")
	}
}

func TestFingerprint_SensitiveToManifest(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "a.png", "pixels")
	r := &Resolver{AssetsRoot: dir}

	fp := func(body string) string {
		m := Canonicalize(mustValidate(t, body))
		canonical, err := MarshalCanonical(m)
		if err != nil {
			t.Fatal(err)
		}
		assets, err := CollectAssets(m, r)
		if err != nil {
			t.Fatal(err)
		}
		digest, err := Fingerprint(canonical, assets)
		if err != nil {
			t.Fatal(err)
		}
		return digest
	}

	a := fp(`{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [{"type": "image", "start": 0, "src": "a.png"}]
	}`)
	b := fp(`{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [{"type": "image", "start": 1, "src": "a.png"}]
	}`)
	if a == b {
		t.Error("fingerprint unchanged after manifest change")
	}
}
