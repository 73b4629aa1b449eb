package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenWithDefaults(t *testing.T) {
	dir := t.TempDir()
	ws, err := Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close()
	if ws.Config.Backup.Keep != 10 {
		t.Fatalf("config = %+v", ws.Config)
	}
	if _, err := os.Stat(filepath.Join(dir, ".morningstar", "journal.db")); err != nil {
		t.Fatalf("journal not created: %v", err)
	}
	if ws.Engine.State.Path != filepath.Join(dir, "state", "current.md") {
		t.Errorf("state path = %s", ws.Engine.State.Path)
	}
}

func TestOpenHonoursConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := "paths:\n  state: notes/state.md\n  journal: j.db\n"
	if err := os.WriteFile(filepath.Join(dir, "morningstar.yml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	ws, err := Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close()
	if ws.Engine.State.Path != filepath.Join(dir, "notes", "state.md") {
		t.Errorf("state path = %s", ws.Engine.State.Path)
	}
	if ws.Engine.Backups.StateDir != filepath.Join(dir, "notes") {
		t.Errorf("backup state dir = %s", ws.Engine.Backups.StateDir)
	}
}

func TestOpenRejectsMissingWorkspace(t *testing.T) {
	if _, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	wrote, err := WriteDefaultConfig(dir)
	if err != nil || !wrote {
		t.Fatalf("first write = %v, %v", wrote, err)
	}
	wrote, err = WriteDefaultConfig(dir)
	if err != nil || wrote {
		t.Fatalf("second write = %v, %v", wrote, err)
	}
	if _, err := LoadConfig(dir); err != nil {
		t.Fatalf("generated config invalid: %v", err)
	}
}
