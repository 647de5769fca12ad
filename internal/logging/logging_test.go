package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LucachuTW/TikTok-maker/internal/config"
	"github.com/LucachuTW/TikTok-maker/internal/logstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFileAndSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := config.LogConfig{
		Path:       filepath.Join(dir, "logs", "app.log"),
		SQLiteFile: filepath.Join(dir, "logs", "logs.db"),
		File:       true,
		SQLite:     true,
		Level:      "info",
	}

	closer, err := Init(cfg, false)
	require.NoError(t, err)

	cameraLog := WithComponent("camera")
	cameraLog.Info().Str(EventField, EventCamera).Msg("camera mounted")
	log.Debug().Msg("hidden at info level")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.Path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `"message":"camera mounted"`)
	assert.Contains(t, text, `"component":"camera"`)
	assert.NotContains(t, text, "hidden at info level")

	store, err := logstore.Open(cfg.SQLiteFile)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EventCamera, entries[0].EventType)
	assert.Equal(t, EventLogInit, entries[1].EventType)
}

func TestInitVerboseAndBadLevel(t *testing.T) {
	closer, err := Init(config.LogConfig{Level: "warn"}, true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	require.NoError(t, closer.Close())

	_, err = Init(config.LogConfig{Level: "loud"}, false)
	assert.Error(t, err)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestFileSinkPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	sink, err := newFileSink(path)
	require.NoError(t, err)
	defer sink.Close()

	assert.DirExists(t, filepath.Dir(path))
	assert.Equal(t, path, sink.Filename)
	assert.Equal(t, 10, sink.MaxSize)
	assert.Equal(t, 5, sink.MaxBackups)
}

func TestFileSinkRotates(t *testing.T) {
	dir := t.TempDir()
	sink, err := newFileSink(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	sink.MaxSize = 1

	line := []byte(strings.Repeat("x", 1023) + "\n")
	for i := 0; i < 1100; i++ {
		_, err := sink.Write(line)
		require.NoError(t, err)
	}
	require.NoError(t, sink.Close())

	backups, err := filepath.Glob(filepath.Join(dir, "app-*.log"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	info, err := os.Stat(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(1024*1024))

	// writing after a close reopens the file
	_, err = sink.Write([]byte("again\n"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}

func TestNewLogger(t *testing.T) {
	var a, b strings.Builder
	logger := NewLogger(&a, &b)
	logger.Info().Msg("both")
	assert.Contains(t, a.String(), "both")
	assert.Contains(t, b.String(), "both")

	discard := NewLogger()
	discard.Info().Msg("discarded")
}
