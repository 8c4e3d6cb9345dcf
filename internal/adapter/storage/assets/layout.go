// Package assets owns the on-disk layout of per-video asset
// directories and the naming conventions of everything inside them.
// All names are deterministic functions of the video id so that
// re-entrant pipeline runs can detect already-completed outputs.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm = 0o755

	manifestSuffix      = "_master.m3u8"
	originalPrefix      = "_original"
	staticThumbSuffix   = "_thumb.webp"
	animatedThumbSuffix = "_preview.webp"
	customThumbSuffix   = "_custom.webp"
)

type Store struct {
	root    string
	tempDir string
}

func NewStore(dataDir string) *Store {
	return &Store{
		root:    filepath.Join(dataDir, "assets"),
		tempDir: filepath.Join(dataDir, "uploads"),
	}
}

// TempDir is the staging area for multipart uploads before the
// pipeline moves them into their asset directory.
func (s *Store) TempDir() string {
	return s.tempDir
}

func (s *Store) EnsureTempDir() error {
	return os.MkdirAll(s.tempDir, dirPerm)
}

// Dir returns the asset directory for a video id.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *Store) EnsureDir(id string) error {
	return os.MkdirAll(s.Dir(id), dirPerm)
}

// DirExists is the pipeline's deletion signal: directory absence means
// the video was deleted concurrently and work must stop.
func (s *Store) DirExists(id string) bool {
	info, err := os.Stat(s.Dir(id))
	return err == nil && info.IsDir()
}

func (s *Store) Remove(id string) error {
	return os.RemoveAll(s.Dir(id))
}

// Path joins an asset filename onto the video's directory.
func (s *Store) Path(id, name string) string {
	return filepath.Join(s.Dir(id), name)
}

func (s *Store) FileExists(id, name string) bool {
	_, err := os.Stat(s.Path(id, name))
	return err == nil
}

func OriginalName(id, ext string) string {
	return id + originalPrefix + ext
}

func ManifestName(id string) string {
	return id + manifestSuffix
}

func RenditionPlaylistName(id string, height int) string {
	return fmt.Sprintf("%s_%dp.m3u8", id, height)
}

// SegmentPattern is the printf-style segment filename template handed
// to the codec tool.
func SegmentPattern(id string, height int) string {
	return fmt.Sprintf("%s_%dp_%%03d.ts", id, height)
}

func StaticThumbName(id string) string {
	return id + staticThumbSuffix
}

func AnimatedThumbName(id string) string {
	return id + animatedThumbSuffix
}

func CustomThumbName(id string) string {
	return id + customThumbSuffix
}

// ValidStreamFile reports whether name is a plain playlist or segment
// filename belonging to the given video id. It rejects anything with
// path separators or traversal components, and anything not derived
// from the id, so the stream handler can never be walked out of the
// asset directory.
func ValidStreamFile(id, name string) bool {
	if name == "" || name != filepath.Base(name) {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	if !strings.HasPrefix(name, id+"_") {
		return false
	}
	return strings.HasSuffix(name, ".m3u8") || strings.HasSuffix(name, ".ts")
}
