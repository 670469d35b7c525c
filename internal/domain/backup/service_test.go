package backup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/renobook/renobook/internal/errors"
	"github.com/renobook/renobook/pkg/db"
)

func newTestService(t *testing.T, keep int) (*Service, *db.DB) {
	t.Helper()
	tmp := t.TempDir()
	database, err := db.New(db.Config{Path: filepath.Join(tmp, "budget.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = database.ExecContext(context.Background(),
		`CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)`)
	require.NoError(t, err)

	svc := NewService(database, filepath.Join(tmp, "backups"), keep, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, database
}

func setClock(s *Service, at time.Time) {
	s.now = func() time.Time { return at }
}

func createAt(t *testing.T, s *Service, at time.Time, description string) string {
	t.Helper()
	setClock(s, at)
	name, err := s.Create(context.Background(), description)
	require.NoError(t, err)
	return name
}

func addNote(t *testing.T, database *db.DB, body string) {
	t.Helper()
	_, err := database.ExecContext(context.Background(),
		`INSERT INTO notes (body) VALUES (?)`, body)
	require.NoError(t, err)
}

func countNotes(t *testing.T, database *db.DB) int {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM notes`).Scan(&n))
	return n
}

// openCopy reads a backup file as its own database.
func openCopy(t *testing.T, s *Service, name string) *db.DB {
	t.Helper()
	copyDB, err := db.New(db.Config{Path: filepath.Join(s.dir, name)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = copyDB.Close() })
	return copyDB
}

func TestCreate_NamesFileFromClock(t *testing.T) {
	svc, _ := newTestService(t, 10)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)

	t.Run("without description", func(t *testing.T) {
		name := createAt(t, svc, at, "")
		assert.Equal(t, "backup_20250102_030405.db", name)
	})

	t.Run("description is sanitized into the name", func(t *testing.T) {
		name := createAt(t, svc, at.Add(time.Second), "手动 备份/测试")
		assert.Equal(t, "backup_20250102_030406_手动_备份_测试.db", name)
	})
}

// A backup taken while the connection is open must include everything
// committed through it, not just what has already been checkpointed out
// of the WAL.
func TestCreate_IncludesUncheckpointedWrites(t *testing.T) {
	svc, database := newTestService(t, 10)
	addNote(t, database, "瓷砖下单")
	addNote(t, database, "水电增项")

	name := createAt(t, svc, time.Date(2025, 1, 2, 3, 0, 0, 0, time.Local), "")

	copyDB := openCopy(t, svc, name)
	assert.Equal(t, 2, countNotes(t, copyDB))
}

func TestCreate_MissingDatabase(t *testing.T) {
	svc, database := newTestService(t, 10)
	require.NoError(t, database.Checkpoint(context.Background()))
	require.NoError(t, os.Remove(svc.store.Path()))

	_, err := svc.Create(context.Background(), "")
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrStore.Code, appErr.Code)
}

func TestList_NewestFirst(t *testing.T) {
	svc, _ := newTestService(t, 10)
	base := time.Date(2025, 1, 2, 3, 0, 0, 0, time.Local)

	oldest := createAt(t, svc, base, "")
	middle := createAt(t, svc, base.Add(time.Minute), "scheduled")
	newest := createAt(t, svc, base.Add(2*time.Minute), "")

	// An unrelated file in the directory is not a backup.
	require.NoError(t, os.WriteFile(filepath.Join(svc.dir, "notes.txt"), []byte("x"), 0o600))

	backups, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, newest, backups[0].Filename)
	assert.Equal(t, middle, backups[1].Filename)
	assert.Equal(t, oldest, backups[2].Filename)
	assert.Equal(t, "scheduled", backups[1].Description)
	assert.Empty(t, backups[0].Description)
	assert.Positive(t, backups[0].Size)
}

// The creation time comes from the filename, not the file's mtime, which
// drifts when the backup directory itself gets copied or restored.
func TestList_TimestampFromFilename(t *testing.T) {
	svc, _ := newTestService(t, 10)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
	name := createAt(t, svc, at, "")

	drifted := at.Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(svc.dir, name), drifted, drifted))

	backups, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.True(t, backups[0].CreatedAt.Equal(at))
}

func TestList_MissingDirectoryIsEmpty(t *testing.T) {
	svc, _ := newTestService(t, 10)
	backups, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, backups)
}

// Restoring must rewind the live connection's view, not just the bytes on
// disk, and the overwritten state must survive as a before_restore
// snapshot.
func TestRestore_RewindsLiveStore(t *testing.T) {
	svc, database := newTestService(t, 10)
	base := time.Date(2025, 1, 2, 3, 0, 0, 0, time.Local)
	name := createAt(t, svc, base, "")

	addNote(t, database, "水电增项")
	require.Equal(t, 1, countNotes(t, database))

	setClock(svc, base.Add(time.Minute))
	require.NoError(t, svc.Restore(context.Background(), name))

	assert.Equal(t, 0, countNotes(t, database))

	pre := openCopy(t, svc, "backup_20250102_030100_before_restore.db")
	assert.Equal(t, 1, countNotes(t, pre))
}

// Writes after a restore land in the restored database, not in a replay
// of the pre-restore log.
func TestRestore_StoreUsableAfterwards(t *testing.T) {
	svc, database := newTestService(t, 10)
	name := createAt(t, svc, time.Date(2025, 1, 2, 3, 0, 0, 0, time.Local), "")

	addNote(t, database, "旧数据")
	setClock(svc, time.Date(2025, 1, 2, 3, 1, 0, 0, time.Local))
	require.NoError(t, svc.Restore(context.Background(), name))

	addNote(t, database, "新数据")
	assert.Equal(t, 1, countNotes(t, database))
}

func TestRestore_UnknownBackup(t *testing.T) {
	svc, _ := newTestService(t, 10)
	err := svc.Restore(context.Background(), "backup_20250102_030405.db")
	assert.ErrorIs(t, err, apperrors.ErrBackupNotFound)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t, 10)
	name := createAt(t, svc, time.Date(2025, 1, 2, 3, 0, 0, 0, time.Local), "")

	require.NoError(t, svc.Delete(context.Background(), name))
	_, err := os.Stat(filepath.Join(svc.dir, name))
	assert.True(t, os.IsNotExist(err))
}

func TestResolve_RejectsBadNames(t *testing.T) {
	svc, _ := newTestService(t, 10)

	for _, name := range []string{
		"notes.txt",
		"../backup_20250102_030405.db",
		"backup_x/../../etc/passwd.db",
		"snapshot_20250102_030405.db",
	} {
		err := svc.Delete(context.Background(), name)
		assert.ErrorIs(t, err, apperrors.ErrInvalidBackup, name)
	}
}

func TestCleanup_PrunesOldestBeyondRetention(t *testing.T) {
	svc, _ := newTestService(t, 3)
	base := time.Date(2025, 1, 2, 3, 0, 0, 0, time.Local)

	names := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		names = append(names, createAt(t, svc, base.Add(time.Duration(i)*time.Minute), ""))
	}

	removed, err := svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	backups, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, names[4], backups[0].Filename)
	assert.Equal(t, names[2], backups[2].Filename)

	// Already within retention, nothing more to do.
	removed, err = svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
