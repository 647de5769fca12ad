package logstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "logs", "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRunsMigrations(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert(context.Background(), Entry{Level: "info", Message: "first"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "first", entries[0].Message)
}

func TestInsertAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, 6, 1, 10, 30, 0, 0, time.Local)
	require.NoError(t, s.Insert(ctx, Entry{Timestamp: ts, Level: "info", Message: "one", LoggerName: "camera", EventType: "CAMERA_MOUNT"}))
	require.NoError(t, s.Insert(ctx, Entry{Level: "warn", Message: "two"}))
	require.NoError(t, s.Insert(ctx, Entry{Level: "error", Message: "three"}))

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "three", entries[0].Message)
	assert.Equal(t, "two", entries[1].Message)
	assert.Equal(t, DefaultEventType, entries[1].EventType)
	assert.Equal(t, "tiktokmaker", entries[1].LoggerName)

	all, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	oldest := all[len(all)-1]
	assert.Equal(t, "CAMERA_MOUNT", oldest.EventType)
	assert.Equal(t, "camera", oldest.LoggerName)
	assert.True(t, ts.Equal(oldest.Timestamp), "got %v", oldest.Timestamp)
}

func TestWriteFromZerolog(t *testing.T) {
	s := openTestStore(t)

	logger := zerolog.New(s).With().Timestamp().Str("component", "pipeline").Logger()
	logger.Info().Str(EventTypeField, "HIGHLIGHTS").Msg("clips written")
	logger.Error().Err(assert.AnError).Msg("extract failed")

	entries, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "error", entries[0].Level)
	assert.Contains(t, entries[0].Message, "extract failed: ")
	assert.Equal(t, DefaultEventType, entries[0].EventType)

	assert.Equal(t, "info", entries[1].Level)
	assert.Equal(t, "clips written", entries[1].Message)
	assert.Equal(t, "pipeline", entries[1].LoggerName)
	assert.Equal(t, "HIGHLIGHTS", entries[1].EventType)
	assert.WithinDuration(t, time.Now(), entries[1].Timestamp, time.Minute)
}

func TestWriteRejectsGarbage(t *testing.T) {
	s := openTestStore(t)
	n, err := s.Write([]byte("not json"))
	assert.Error(t, err)
	assert.Zero(t, n)
}
