package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	m    *Manager
	now  time.Time
	root string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{root: root, now: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}
	f.m = &Manager{
		Dir:       filepath.Join(root, "backups"),
		StateDir:  filepath.Join(root, "state"),
		Changelog: filepath.Join(root, "CHANGELOG.md"),
		Now:       func() time.Time { return f.now },
	}
	f.write(t, "state/current.md", "v1")
	f.write(t, "CHANGELOG.md", "log v1")
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, rel))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) tick() { f.now = f.now.Add(time.Minute) }

func TestCreateWritesMetadata(t *testing.T) {
	f := newFixture(t)
	b, err := f.m.Create("")
	require.NoError(t, err)
	require.Equal(t, "backup_20240301_093000", b.Name)
	require.Equal(t, DefaultDescription, b.Description)
	require.Equal(t, 2, b.FileCount)
	require.Equal(t, "v1", f.read(t, "backups/backup_20240301_093000/state/current.md"))
	require.Equal(t, "log v1", f.read(t, "backups/backup_20240301_093000/CHANGELOG.md"))

	list, err := f.m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "2024-03-01T09:30:00Z", list[0].Timestamp)
	require.Equal(t, 2, list[0].FileCount)
}

func TestCreateSameSecondGetsSuffix(t *testing.T) {
	f := newFixture(t)
	a, err := f.m.Create("a")
	require.NoError(t, err)
	b, err := f.m.Create("b")
	require.NoError(t, err)
	require.NotEqual(t, a.Name, b.Name)
	require.Equal(t, a.Name+"_2", b.Name)
}

func TestListOrdersSuffixesNumerically(t *testing.T) {
	f := newFixture(t)
	var last string
	for i := 0; i < 11; i++ {
		b, err := f.m.Create("")
		require.NoError(t, err)
		last = b.Name
	}
	require.Equal(t, "backup_20240301_093000_11", last)
	f.tick()
	later, err := f.m.Create("later")
	require.NoError(t, err)

	list, err := f.m.List()
	require.NoError(t, err)
	require.Len(t, list, 12)
	require.Equal(t, later.Name, list[0].Name)
	require.Equal(t, "backup_20240301_093000_11", list[1].Name)
	require.Equal(t, "backup_20240301_093000_10", list[2].Name)
	require.Equal(t, "backup_20240301_093000_2", list[10].Name)
	require.Equal(t, "backup_20240301_093000", list[11].Name)

	second, err := f.m.Find("2")
	require.NoError(t, err)
	require.Equal(t, last, second.Name)
}

func TestCreateRefusesBackupsInsideStateDir(t *testing.T) {
	f := newFixture(t)
	f.m.Dir = filepath.Join(f.m.StateDir, "backups")
	_, err := f.m.Create("")
	require.Error(t, err)
	_, err = os.Stat(f.m.Dir)
	require.True(t, os.IsNotExist(err))
}

func TestCreateFailureLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	f.m.Changelog = filepath.Join(f.root, "state")
	_, err := f.m.Create("")
	require.Error(t, err)
	entries, err := os.ReadDir(f.m.Dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListNewestFirstAndFind(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Create("first")
	require.NoError(t, err)
	f.tick()
	second, err := f.m.Create("second")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(f.m.Dir, "backup_00000000_000000"), 0o755))

	list, err := f.m.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "second", list[0].Description)
	require.Equal(t, "No metadata", list[2].Description)

	byIndex, err := f.m.Find("1")
	require.NoError(t, err)
	require.Equal(t, second.Name, byIndex.Name)
	byName, err := f.m.Find(second.Name)
	require.NoError(t, err)
	require.Equal(t, second.Path, byName.Path)

	_, err = f.m.Find("9")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.m.Find("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRestoreTakesSafetyBackup(t *testing.T) {
	f := newFixture(t)
	orig, err := f.m.Create("v1")
	require.NoError(t, err)

	f.tick()
	f.write(t, "state/current.md", "v2")
	f.write(t, "state/extra.md", "stray")
	f.write(t, "CHANGELOG.md", "log v2")

	restored, safety, err := f.m.Restore(orig.Name)
	require.NoError(t, err)
	require.Equal(t, orig.Name, restored.Name)
	require.Equal(t, SafetyDescription, safety.Description)

	require.Equal(t, "v1", f.read(t, "state/current.md"))
	require.Equal(t, "log v1", f.read(t, "CHANGELOG.md"))
	_, err = os.Stat(filepath.Join(f.m.StateDir, "extra.md"))
	require.True(t, os.IsNotExist(err))

	require.Equal(t, "v2", f.read(t, filepath.Join("backups", safety.Name, "state", "current.md")))
	require.Equal(t, "log v2", f.read(t, filepath.Join("backups", safety.Name, "CHANGELOG.md")))
}

func TestRestoreUnknownLeavesFilesAlone(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.m.Restore("missing")
	require.ErrorIs(t, err, ErrNotFound)
	list, err := f.m.List()
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestDeleteAndPrune(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		_, err := f.m.Create("")
		require.NoError(t, err)
		f.tick()
	}
	deleted, err := f.m.Delete("4")
	require.NoError(t, err)
	require.Equal(t, "backup_20240301_093000", deleted.Name)

	removed, err := f.m.Prune(1)
	require.NoError(t, err)
	require.Len(t, removed, 2)

	list, err := f.m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "backup_20240301_093300", list[0].Name)

	removed, err = f.m.Prune(5)
	require.NoError(t, err)
	require.Empty(t, removed)
}

func TestListWithoutDir(t *testing.T) {
	m := &Manager{Dir: filepath.Join(t.TempDir(), "none")}
	list, err := m.List()
	require.NoError(t, err)
	require.Empty(t, list)
}
