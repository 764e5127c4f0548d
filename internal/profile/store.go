package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when no profile exists for an id.
var ErrNotFound = errors.New("profile not found")

var validID = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Store loads and saves profiles by id.
type Store interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
	List(ctx context.Context) ([]string, error)
}

// FileStore keeps one JSON document per profile in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Get(ctx context.Context, id string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	defer file.Close()

	var p Profile
	if err := json.NewDecoder(file).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
	}

	return &p, nil
}

func (s *FileStore) Save(ctx context.Context, p *Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil {
		return errors.New("profile is required")
	}

	path, err := s.path(p.ID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	p.UpdatedAt = now().UTC().Truncate(time.Second)

	tmp, err := os.CreateTemp(s.dir, ".profile-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) path(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !validID.MatchString(id) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid profile id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}
