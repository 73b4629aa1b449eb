package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"morningstar/internal/config"
	"morningstar/internal/db"
	"morningstar/internal/engine"
	"morningstar/internal/fsutil"
	"morningstar/internal/migrate"
)

// Workspace is an opened workspace: its config, journal handle and engine.
type Workspace struct {
	Dir    string
	Config *config.Config
	DB     *sql.DB
	Engine engine.Engine
}

// LoadConfig returns the workspace config, falling back to defaults when
// morningstar.yml is absent.
func LoadConfig(dir string) (*config.Config, error) {
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", config.Path(dir), err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// Open resolves config, opens and migrates the journal, and builds the engine.
func Open(ctx context.Context, dir string) (*Workspace, error) {
	if dir == "" {
		dir = "."
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", dir)
	}
	cfg, err := LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Path: config.Resolve(dir, cfg.Paths.Journal)})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Workspace{Dir: dir, Config: cfg, DB: conn, Engine: engine.New(conn, cfg, dir)}, nil
}

func (w *Workspace) Close() error {
	if w == nil || w.DB == nil {
		return nil
	}
	return w.DB.Close()
}

// WriteDefaultConfig writes morningstar.yml unless one already exists.
// It reports whether a file was written.
func WriteDefaultConfig(dir string) (bool, error) {
	path := config.Path(dir)
	exists, err := fsutil.Exists(path)
	if err != nil || exists {
		return false, err
	}
	if err := fsutil.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
