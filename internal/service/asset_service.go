package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// AssetInfo describes one file under the assets root.
type AssetInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
}

// AssetService stores and lists the media files manifests may reference.
// Assets live on the local filesystem under a single root.
type AssetService struct {
	root string
}

func NewAssetService(root string) *AssetService {
	return &AssetService{root: root}
}

// Save writes an uploaded file under the assets root and returns its
// metadata, including the content digest used by job fingerprints.
func (s *AssetService) Save(name string, r io.Reader) (*AssetInfo, error) {
	name = filepath.Base(filepath.Clean(name))
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid asset name %q", name)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("create assets root: %w", err)
	}

	dest := filepath.Join(s.root, name)
	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("write asset: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, err
	}
	return &AssetInfo{
		Name:       name,
		Size:       size,
		SHA256:     hex.EncodeToString(h.Sum(nil)),
		ModifiedAt: info.ModTime(),
	}, nil
}

// List enumerates every regular file under the assets root, sorted by name.
// Hidden files are skipped.
func (s *AssetService) List() ([]AssetInfo, error) {
	out := []AssetInfo{}
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.root {
				return filepath.SkipAll
			}
			return err
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		out = append(out, AssetInfo{
			Name:       filepath.ToSlash(rel),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
