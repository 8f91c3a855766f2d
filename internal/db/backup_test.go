package db

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotWritesConsistentCopy(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	hold := newHold(3, "alice@example.com", slotTime(10, 0), slotTime(11, 0))
	require.NoError(t, database.CreateHold(ctx, hold, 0))

	dir := t.TempDir()
	logger := zerolog.New(io.Discard)
	b := NewBackupper(database, BackupOptions{Dir: dir, Interval: time.Hour}, &logger)
	require.NoError(t, b.Snapshot(ctx))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	copyPath := dir + "/" + entries[0].Name()
	snapshot, err := NewDB(copyPath, &logger)
	require.NoError(t, err)
	defer snapshot.Close()

	got, err := snapshot.GetReservation(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, hold.Requester, got.Requester)
}

func TestBackupperDefaultsInterval(t *testing.T) {
	logger := zerolog.New(io.Discard)
	b := NewBackupper(nil, BackupOptions{Dir: "x"}, &logger)
	assert.Equal(t, 24*time.Hour, b.opts.Interval)
}
