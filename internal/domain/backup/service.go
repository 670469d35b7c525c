// Package backup snapshots the SQLite database file and restores from
// those snapshots. A backup is a plain byte copy named
// backup_YYYYMMDD_HHMMSS[_description].db; retention keeps a bounded
// number of the newest ones.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/renobook/renobook/internal/errors"
)

const (
	filePrefix = "backup_"
	fileSuffix = ".db"

	timestampLayout = "20060102_150405"
	maxDescRunes    = 50
)

// Info describes one backup file.
type Info struct {
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description"`
}

// Store is the slice of the database the backup service needs: the file
// location plus WAL control, so a byte copy of the file is complete and a
// restored file is not clobbered by a stale log.
type Store interface {
	Path() string
	Checkpoint(ctx context.Context) error
	Close() error
	Reopen() error
}

// Service copies the database file to and from the backup directory.
type Service struct {
	store  Store
	dir    string
	keep   int
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a backup service keeping at most keep snapshots.
func NewService(store Store, dir string, keep int, logger *slog.Logger) *Service {
	if keep <= 0 {
		keep = 10
	}
	return &Service{store: store, dir: dir, keep: keep, logger: logger, now: time.Now}
}

// Create snapshots the current database file. The WAL is checkpointed
// first so the copy includes everything committed through the live
// connection. The description, if any, is sanitized into the filename.
func (s *Service) Create(ctx context.Context, description string) (string, error) {
	dbPath := s.store.Path()
	if _, err := os.Stat(dbPath); err != nil {
		return "", apperrors.Wrap(apperrors.ErrStore, fmt.Errorf("database file missing: %w", err))
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", apperrors.Wrap(apperrors.ErrStore, err)
	}
	if err := s.store.Checkpoint(ctx); err != nil {
		return "", apperrors.Wrap(apperrors.ErrStore, err)
	}

	name := filePrefix + s.now().Format(timestampLayout)
	if desc := sanitizeDescription(description); desc != "" {
		name += "_" + desc
	}
	name += fileSuffix

	if err := copyFile(dbPath, filepath.Join(s.dir, name)); err != nil {
		return "", apperrors.Wrap(apperrors.ErrStore, fmt.Errorf("failed to write backup: %w", err))
	}
	s.logger.InfoContext(ctx, "backup created", slog.String("filename", name))
	return name, nil
}

// List returns all backups, newest first.
func (s *Service) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}

	backups := make([]Info, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isBackupName(name) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		createdAt, ok := timestampOf(name)
		if !ok {
			createdAt = fi.ModTime()
		}
		backups = append(backups, Info{
			Filename:    name,
			Size:        fi.Size(),
			CreatedAt:   createdAt,
			Description: descriptionOf(name),
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Restore replaces the database file with a named backup. The current
// database is snapshotted first so a restore is itself undoable; a failure
// there is logged and the restore proceeds. The connection is quiesced
// across the file swap and its WAL siblings removed, then reopened against
// the restored file.
func (s *Service) Restore(ctx context.Context, filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}

	if _, err := s.Create(ctx, "before_restore"); err != nil {
		s.logger.WarnContext(ctx, "pre-restore backup failed", slog.Any("error", err))
	}

	if err := s.store.Close(); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, fmt.Errorf("failed to close database: %w", err))
	}
	dbPath := s.store.Path()
	for _, sibling := range []string{dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(sibling); err != nil && !os.IsNotExist(err) {
			return apperrors.Wrap(apperrors.ErrStore, err)
		}
	}
	copyErr := copyFile(path, dbPath)
	if err := s.store.Reopen(); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, err)
	}
	if copyErr != nil {
		return apperrors.Wrap(apperrors.ErrStore, fmt.Errorf("failed to restore backup: %w", copyErr))
	}

	s.logger.InfoContext(ctx, "database restored", slog.String("filename", filename))
	return nil
}

// Delete removes a named backup file.
func (s *Service) Delete(ctx context.Context, filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, err)
	}
	s.logger.InfoContext(ctx, "backup deleted", slog.String("filename", filename))
	return nil
}

// Cleanup prunes backups beyond the retention count, oldest first, and
// returns how many were removed.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	backups, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= s.keep {
		return 0, nil
	}

	removed := 0
	for _, b := range backups[s.keep:] {
		if err := os.Remove(filepath.Join(s.dir, b.Filename)); err != nil {
			s.logger.WarnContext(ctx, "failed to prune backup",
				slog.String("filename", b.Filename), slog.Any("error", err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "old backups pruned", slog.Int("removed", removed))
	}
	return removed, nil
}

// resolve validates a backup filename and returns its path, refusing
// anything that is not a plain backup file in the backup directory.
func (s *Service) resolve(filename string) (string, error) {
	if !isBackupName(filename) || filename != filepath.Base(filename) {
		return "", apperrors.ErrInvalidBackup
	}
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", apperrors.ErrBackupNotFound
	}
	return path, nil
}

func isBackupName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}

// timestampOf parses the creation time embedded in a backup filename.
// The name is authoritative; file mtimes drift when the backup directory
// is copied around.
func timestampOf(name string) (time.Time, bool) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	parts := strings.SplitN(trimmed, "_", 3)
	if len(parts) < 2 {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(timestampLayout, parts[0]+"_"+parts[1], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// descriptionOf extracts the free-text suffix from a backup filename.
func descriptionOf(name string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	parts := strings.SplitN(trimmed, "_", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

func sanitizeDescription(desc string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	desc = replacer.Replace(strings.TrimSpace(desc))
	runes := []rune(desc)
	if len(runes) > maxDescRunes {
		runes = runes[:maxDescRunes]
	}
	return string(runes)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
