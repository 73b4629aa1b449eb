package statedoc

import (
	"fmt"
	"os"
	"time"

	"morningstar/internal/domain"
	"morningstar/internal/fsutil"
)

// Store binds state operations to one document path. Now, when set,
// stamps documents created by Init.
type Store struct {
	Path string
	Now  func() time.Time
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Exists reports whether the backing document is present.
func (s *Store) Exists() (bool, error) {
	return fsutil.Exists(s.Path)
}

// Load reads and parses the document. A missing file yields ErrAbsent; an
// empty file yields an empty state.
func (s *Store) Load(strict bool) (domain.State, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.State{}, ErrAbsent
		}
		return domain.State{}, fmt.Errorf("read state %s: %w", s.Path, err)
	}
	st, _, err := Read(string(data), strict)
	if err != nil {
		return domain.State{}, err
	}
	return st, nil
}

// Save writes st in canonical form, replacing the file wholly.
func (s *Store) Save(st domain.State) error {
	if err := fsutil.WriteFile(s.Path, []byte(Write(st)), 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Init writes a fresh state seeded with one work item.
func (s *Store) Init() (domain.State, error) {
	stamp := nowStamp()
	if s.Now != nil {
		stamp = s.Now().UTC().Format(time.RFC3339)
	}
	st := domain.NewState(stamp)
	st.ActiveWork = append(st.ActiveWork, domain.SeedWorkItem)
	if err := s.Save(st); err != nil {
		return domain.State{}, err
	}
	return st, nil
}
