package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beccrm/utils"
)

func writeBackupFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("dump"), 0o640))
	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, old, old))
	return path
}

func TestPruneRemovesOnlyExpiredBackups(t *testing.T) {
	dir := t.TempDir()
	m := &Manager{
		status:        Status{State: StateIdle},
		dir:           dir,
		retentionDays: 30,
		log:           utils.GetLogger(),
	}

	expired := writeBackupFile(t, dir, backupPrefix+"20260101_030000.dump", 45*24*time.Hour)
	recent := writeBackupFile(t, dir, backupPrefix+"20260820_030000.dump", 5*24*time.Hour)
	unrelated := writeBackupFile(t, dir, "notes.txt", 90*24*time.Hour)

	require.NoError(t, m.prune())

	assert.NoFileExists(t, expired)
	assert.FileExists(t, recent)
	assert.FileExists(t, unrelated)
}

func TestRunRejectsConcurrentBackups(t *testing.T) {
	m := &Manager{
		status:        Status{State: StateRunning, InProgress: true},
		dir:           t.TempDir(),
		retentionDays: 30,
		log:           utils.GetLogger(),
	}

	err := m.Run(context.Background())
	assert.Error(t, err)
}

func TestStatusReflectsState(t *testing.T) {
	m := &Manager{status: Status{State: StateIdle}, log: utils.GetLogger()}

	m.setState(StateRunning, "")
	assert.True(t, m.Status().InProgress)

	m.setState(StateError, "pg_dump failed")
	s := m.Status()
	assert.Equal(t, StateError, s.State)
	assert.Equal(t, "pg_dump failed", s.Error)
	assert.False(t, s.InProgress)
}
