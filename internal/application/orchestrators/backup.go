package orchestrators

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"nursery/internal/adapters/storage"
	"nursery/internal/domain/account"
)

// BackupDeps holds the database lifecycle handle for backup and restore.
type BackupDeps struct {
	Manager       *storage.Manager
	ActivityStore ActivityStore
	Now           func() time.Time // nil means time.Now
}

func (d BackupDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// ExecuteBackup snapshots the live database into destDir using VACUUM INTO,
// which produces a consistent copy without closing the connection.
// POST: a timestamped .db file exists in destDir
func ExecuteBackup(ctx context.Context, principal account.Principal, destDir string, deps BackupDeps) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("backup: create dir: %w", err)
	}
	name := fmt.Sprintf("nursery-%s.db", deps.now().UTC().Format("20060102-150405"))
	dest := filepath.Join(destDir, name)

	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("backup: %s already exists", dest)
	}
	if _, err := deps.Manager.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return "", fmt.Errorf("backup: vacuum into %s: %w", dest, err)
	}

	slog.Info("backup_event", "event", "backup_created", "path", dest)
	recordActivity(ctx, deps.ActivityStore, principal, "backup_created", map[string]string{"path": dest})
	return dest, nil
}

// ExecuteRestore replaces the live database file with the backup at srcPath.
// The connection is quiesced for the copy and resumed afterwards, which
// re-runs migrations in case the backup predates the current schema.
// POST: on success the live database holds the backup's contents; on a copy
// failure the original file is left in place and the connection resumes
func ExecuteRestore(ctx context.Context, principal account.Principal, srcPath string, deps BackupDeps) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("restore: open backup: %w", err)
	}
	defer src.Close()

	if err := deps.Manager.Quiesce(); err != nil {
		return fmt.Errorf("restore: quiesce: %w", err)
	}
	copyErr := overwriteFile(src, deps.Manager.Path())
	if err := deps.Manager.Resume(); err != nil {
		return fmt.Errorf("restore: resume: %w", err)
	}
	if copyErr != nil {
		return fmt.Errorf("restore: copy %s: %w", srcPath, copyErr)
	}

	slog.Info("backup_event", "event", "restore_completed", "source", srcPath)
	recordActivity(ctx, deps.ActivityStore, principal, "restore_completed", map[string]string{"source": srcPath})
	return nil
}

// overwriteFile writes src to a sibling temp file and renames it over dest,
// so a failed copy never leaves dest truncated. Stale WAL and SHM sidecars
// are removed so the resumed connection does not replay old pages.
func overwriteFile(src io.Reader, dest string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".restore-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	os.Remove(dest + "-wal")
	os.Remove(dest + "-shm")
	return nil
}
