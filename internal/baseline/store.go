package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"paritycheck/internal/logging"
)

// Store persists baselines as one JSON artifact per module under a
// directory. Value snapshots keep numbers as canonical decimal text,
// so nothing is lost to JSON float encoding. Each artifact belongs to
// one validation session; concurrent sessions use distinct artifacts,
// so no locking is needed.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the artifact path for a module ID.
func (s *Store) Path(moduleID string) string {
	return filepath.Join(s.dir, artifactName(moduleID)+".json")
}

// Save writes the baseline artifact and returns its path.
func (s *Store) Save(b *Baseline) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating artifacts dir: %w", err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding baseline: %w", err)
	}
	path := s.Path(b.ModuleID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing baseline: %w", err)
	}
	logging.Store().Info("baseline saved",
		zap.String("module", b.ModuleID), zap.String("path", path))
	return path, nil
}

// Load reads a baseline by reference: either a direct path to an
// artifact file or the module ID it was captured from. Module IDs are
// usually directories that still exist at validate time, so only a
// regular file counts as a direct artifact path.
func (s *Store) Load(ref string) (*Baseline, error) {
	path := ref
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		path = s.Path(ref)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading baseline %q: %w", ref, err)
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decoding baseline %q: %w", ref, err)
	}
	if b.ModuleID == "" {
		return nil, fmt.Errorf("baseline %q has no module ID", ref)
	}
	return &b, nil
}

// Delete removes a stored artifact. Deleting a missing artifact is not
// an error.
func (s *Store) Delete(moduleID string) error {
	err := os.Remove(s.Path(moduleID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting baseline for %q: %w", moduleID, err)
	}
	return nil
}

// List returns the module IDs with stored artifacts, in name order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading artifacts dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		b, err := s.Load(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		ids = append(ids, b.ModuleID)
	}
	return ids, nil
}

// artifactName flattens a module ID (usually a directory path) into a
// filesystem-safe artifact name.
func artifactName(moduleID string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_", "..", "_")
	name := strings.Trim(r.Replace(filepath.Clean(moduleID)), "._")
	if name == "" {
		return "module"
	}
	return name
}
