package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetNames(t *testing.T) {
	assert.Equal(t, "v1_original.mp4", OriginalName("v1", ".mp4"))
	assert.Equal(t, "v1_master.m3u8", ManifestName("v1"))
	assert.Equal(t, "v1_720p.m3u8", RenditionPlaylistName("v1", 720))
	assert.Equal(t, "v1_720p_%03d.ts", SegmentPattern("v1", 720))
	assert.Equal(t, "v1_thumb.webp", StaticThumbName("v1"))
	assert.Equal(t, "v1_preview.webp", AnimatedThumbName("v1"))
	assert.Equal(t, "v1_custom.webp", CustomThumbName("v1"))
}

func TestStoreDirLifecycle(t *testing.T) {
	s := NewStore(t.TempDir())

	assert.False(t, s.DirExists("v1"))
	require.NoError(t, s.EnsureDir("v1"))
	assert.True(t, s.DirExists("v1"))
	assert.Equal(t, filepath.Join(s.Dir("v1"), "v1_master.m3u8"), s.Path("v1", "v1_master.m3u8"))

	assert.False(t, s.FileExists("v1", "v1_master.m3u8"))
	require.NoError(t, os.WriteFile(s.Path("v1", "v1_master.m3u8"), []byte("#EXTM3U"), 0o644))
	assert.True(t, s.FileExists("v1", "v1_master.m3u8"))

	require.NoError(t, s.Remove("v1"))
	assert.False(t, s.DirExists("v1"))
	// Removing a missing directory is not an error.
	require.NoError(t, s.Remove("v1"))
}

func TestEnsureTempDir(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.EnsureTempDir())
	info, err := os.Stat(s.TempDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestValidStreamFile(t *testing.T) {
	tests := []struct {
		name string
		file string
		want bool
	}{
		{"master manifest", "v1_master.m3u8", true},
		{"rendition playlist", "v1_720p.m3u8", true},
		{"segment", "v1_720p_003.ts", true},
		{"wrong id prefix", "v2_master.m3u8", false},
		{"missing separator", "v1master.m3u8", false},
		{"non stream extension", "v1_original.mp4", false},
		{"thumbnail", "v1_thumb.webp", false},
		{"path traversal", "../v1_master.m3u8", false},
		{"nested path", "sub/v1_master.m3u8", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidStreamFile("v1", tt.file))
		})
	}
}
