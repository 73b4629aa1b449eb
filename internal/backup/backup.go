// Package backup snapshots the state directory and changelog into
// timestamped directories and restores them.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"morningstar/internal/domain"
	"morningstar/internal/fsutil"
)

const (
	namePrefix   = "backup_"
	nameLayout   = "20060102_150405"
	metadataFile = "backup_metadata.json"
	stateSubdir  = "state"

	DefaultDescription = "Manual backup"
	SafetyDescription  = "Pre-restore safety backup"
)

// ErrNotFound is returned when an identifier matches no backup.
var ErrNotFound = errors.New("backup not found")

// Metadata is written alongside each backup.
type Metadata struct {
	Timestamp   string   `json:"timestamp"`
	Description string   `json:"description"`
	Files       []string `json:"files_backed_up"`
}

// Manager owns one backups directory.
type Manager struct {
	Dir       string
	StateDir  string
	Changelog string
	Now       func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Create copies the state directory and changelog into a new backup.
// A failed backup leaves nothing behind.
func (m *Manager) Create(description string) (b domain.Backup, err error) {
	if description == "" {
		description = DefaultDescription
	}
	if inside(m.StateDir, m.Dir) {
		return domain.Backup{}, fmt.Errorf("backups dir %s is inside state dir %s", m.Dir, m.StateDir)
	}
	now := m.now()
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return domain.Backup{}, fmt.Errorf("create backups dir: %w", err)
	}
	path, err := m.reserve(namePrefix + now.Format(nameLayout))
	if err != nil {
		return domain.Backup{}, err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(path)
		}
	}()

	if ok, err := isDir(m.StateDir); err != nil {
		return domain.Backup{}, err
	} else if ok {
		if err := os.CopyFS(filepath.Join(path, stateSubdir), os.DirFS(m.StateDir)); err != nil {
			return domain.Backup{}, fmt.Errorf("copy state: %w", err)
		}
	}
	if err := copyFile(m.Changelog, filepath.Join(path, filepath.Base(m.Changelog))); err != nil {
		return domain.Backup{}, err
	}

	files, err := walkFiles(path)
	if err != nil {
		return domain.Backup{}, err
	}
	meta := Metadata{Timestamp: now.Format(time.RFC3339), Description: description, Files: files}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return domain.Backup{}, err
	}
	if err := fsutil.WriteFile(filepath.Join(path, metadataFile), data, 0o644); err != nil {
		return domain.Backup{}, fmt.Errorf("write backup metadata: %w", err)
	}
	return domain.Backup{
		Name:        filepath.Base(path),
		Path:        path,
		Timestamp:   meta.Timestamp,
		Description: description,
		FileCount:   len(files),
	}, nil
}

// reserve creates a fresh backup directory, suffixing the name when a
// backup already exists for the same second.
func (m *Manager) reserve(name string) (string, error) {
	for i := 1; ; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d", name, i)
		}
		path := filepath.Join(m.Dir, candidate)
		err := os.Mkdir(path, 0o755)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("create backup dir: %w", err)
		}
	}
}

// List returns every backup, newest first.
func (m *Manager) List() ([]domain.Backup, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []domain.Backup
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		b := domain.Backup{
			Name:        e.Name(),
			Path:        filepath.Join(m.Dir, e.Name()),
			Timestamp:   domain.Unknown,
			Description: "No metadata",
		}
		if data, err := os.ReadFile(filepath.Join(b.Path, metadataFile)); err == nil {
			var meta Metadata
			if err := json.Unmarshal(data, &meta); err == nil {
				b.Timestamp = orDefault(meta.Timestamp, domain.Unknown)
				b.Description = orDefault(meta.Description, "No description")
				b.FileCount = len(meta.Files)
			}
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].Name, out[j].Name) })
	return out, nil
}

// parseName splits "backup_<stamp>[_N]" into its time and sequence number.
func parseName(name string) (time.Time, int, bool) {
	rest, ok := strings.CutPrefix(name, namePrefix)
	if !ok || len(rest) < len(nameLayout) {
		return time.Time{}, 0, false
	}
	ts, err := time.Parse(nameLayout, rest[:len(nameLayout)])
	if err != nil {
		return time.Time{}, 0, false
	}
	seq := 1
	if suffix := rest[len(nameLayout):]; suffix != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(suffix, "_"))
		if err != nil || !strings.HasPrefix(suffix, "_") || n < 2 {
			return time.Time{}, 0, false
		}
		seq = n
	}
	return ts, seq, true
}

// newer orders backups newest first. Directories that do not follow the
// naming scheme sort after the rest, by name.
func newer(a, b string) bool {
	ta, sa, okA := parseName(a)
	tb, sb, okB := parseName(b)
	switch {
	case okA != okB:
		return okA
	case !okA:
		return a > b
	case !ta.Equal(tb):
		return ta.After(tb)
	case sa != sb:
		return sa > sb
	}
	return a > b
}

// Find resolves a backup by directory name or 1-based position in List.
func (m *Manager) Find(id string) (domain.Backup, error) {
	backups, err := m.List()
	if err != nil {
		return domain.Backup{}, err
	}
	if n, err := strconv.Atoi(id); err == nil {
		if n >= 1 && n <= len(backups) {
			return backups[n-1], nil
		}
		return domain.Backup{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, b := range backups {
		if b.Name == id {
			return b, nil
		}
	}
	return domain.Backup{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Restore takes a safety backup of the current files, then replaces the
// state directory and changelog with the contents of the chosen backup.
func (m *Manager) Restore(id string) (restored, safety domain.Backup, err error) {
	restored, err = m.Find(id)
	if err != nil {
		return restored, safety, err
	}
	safety, err = m.Create(SafetyDescription)
	if err != nil {
		return restored, safety, fmt.Errorf("safety backup: %w", err)
	}

	src := filepath.Join(restored.Path, stateSubdir)
	if ok, err := isDir(src); err != nil {
		return restored, safety, err
	} else if ok {
		if err := os.RemoveAll(m.StateDir); err != nil {
			return restored, safety, fmt.Errorf("clear state dir: %w", err)
		}
		if err := os.CopyFS(m.StateDir, os.DirFS(src)); err != nil {
			return restored, safety, fmt.Errorf("restore state: %w", err)
		}
	}
	if err := copyFile(filepath.Join(restored.Path, filepath.Base(m.Changelog)), m.Changelog); err != nil {
		return restored, safety, err
	}
	return restored, safety, nil
}

// Delete removes one backup.
func (m *Manager) Delete(id string) (domain.Backup, error) {
	b, err := m.Find(id)
	if err != nil {
		return b, err
	}
	if err := os.RemoveAll(b.Path); err != nil {
		return b, fmt.Errorf("delete backup %s: %w", b.Name, err)
	}
	return b, nil
}

// Prune deletes all but the keep newest backups and returns what it removed.
func (m *Manager) Prune(keep int) ([]domain.Backup, error) {
	if keep < 0 {
		keep = 0
	}
	backups, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(backups) <= keep {
		return nil, nil
	}
	var removed []domain.Backup
	var errs []error
	for _, b := range backups[keep:] {
		if err := os.RemoveAll(b.Path); err != nil {
			errs = append(errs, fmt.Errorf("delete backup %s: %w", b.Name, err))
			continue
		}
		removed = append(removed, b)
	}
	return removed, errors.Join(errs...)
}

// copyFile copies src to dst; a missing src is skipped.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := fsutil.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return nil
}

func walkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

// inside reports whether path is dir or lies below it.
func inside(dir, path string) bool {
	if dir == "" || path == "" {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
