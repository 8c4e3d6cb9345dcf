package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ependal/vidgate/internal/adapter/storage/assets"
	"github.com/ependal/vidgate/internal/infrastructure/logger"
)

func TestReaperRemovesDirectory(t *testing.T) {
	assetStore := assets.NewStore(t.TempDir())
	require.NoError(t, assetStore.EnsureDir("vid-1"))
	require.NoError(t, os.WriteFile(assetStore.Path("vid-1", "vid-1_master.m3u8"), []byte("#EXTM3U"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(assetStore.Dir("vid-1"), "vid-1_720p_000.ts"), []byte("seg"), 0o644))

	NewReaper(assetStore, logger.NewNop()).Reap("vid-1")

	assert.False(t, assetStore.DirExists("vid-1"))
}

func TestReaperAlreadyGone(t *testing.T) {
	assetStore := assets.NewStore(t.TempDir())

	// Must not error or retry-loop on a directory that never existed.
	NewReaper(assetStore, logger.NewNop()).Reap("never-existed")

	assert.False(t, assetStore.DirExists("never-existed"))
}
