package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m3rciful/rentbot/core/logger"
	"github.com/m3rciful/rentbot/internal/model"
)

// FileStore keeps the record set as a JSON array in a single file.
// All mutations go through one mutex, so the store is the only writer of the file
// inside the process.
type FileStore struct {
	path string

	mu      sync.Mutex
	users   []model.User
	cached  bool
	modTime time.Time
	size    int64
	parses  int
}

// NewFileStore returns a store backed by path. The file is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the record set, re-reading the file only when its mtime changed.
func (s *FileStore) Load(ctx context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return cloneAll(users), nil
}

// Save overwrites the file with users and refreshes the cache.
func (s *FileStore) Save(ctx context.Context, users []model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, users)
}

// Find returns a single record.
func (s *FileStore) Find(ctx context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return model.User{}, err
	}
	if i := indexOf(users, id); i >= 0 {
		return users[i].Clone(), nil
	}
	return model.User{}, model.NewError("user", model.ErrNotFound)
}

// Ensure returns the stored record or creates it from defaults.
func (s *FileStore) Ensure(ctx context.Context, defaults model.User) (model.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return model.User{}, false, err
	}
	if i := indexOf(users, defaults.ID); i >= 0 {
		return users[i].Clone(), false, nil
	}
	created := defaults.Clone()
	if created.Payments == nil {
		created.Payments = []model.Payment{}
	}
	next := append(cloneAll(users), created)
	if err := s.save(ctx, next); err != nil {
		return model.User{}, false, err
	}
	logger.Info(ctx, component, "user.created",
		slog.Int64("user_id", created.ID),
		slog.Int("count", len(next)),
	)
	return created.Clone(), true, nil
}

// Update runs fn against a copy of the record and saves the result.
// Nothing is written when fn fails.
func (s *FileStore) Update(ctx context.Context, id int64, fn func(*model.User) error) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load(ctx)
	if err != nil {
		return model.User{}, err
	}
	i := indexOf(users, id)
	if i < 0 {
		return model.User{}, model.NewError("user", model.ErrNotFound)
	}
	next := users[i].Clone()
	if err := fn(&next); err != nil {
		return model.User{}, err
	}
	next.ID = id
	updated := cloneAll(users)
	updated[i] = next
	if err := s.save(ctx, updated); err != nil {
		return model.User{}, err
	}
	return next.Clone(), nil
}

// Ping reports whether the file can be loaded.
func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.load(ctx)
	return err
}

func (s *FileStore) load(ctx context.Context) ([]model.User, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.users, s.cached, s.modTime, s.size = nil, false, time.Time{}, 0
		return nil, nil
	}
	if err != nil {
		logger.Error(ctx, component, "load.stat",
			slog.String("path", s.path),
			logger.Err(err),
		)
		return nil, fmt.Errorf("store: stat %s: %w", s.path, err)
	}
	if s.cached && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.users, nil
	}

	start := time.Now()
	data, err := os.ReadFile(s.path)
	if err != nil {
		logger.Error(ctx, component, "load.read",
			slog.String("path", s.path),
			logger.Err(err),
		)
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	var users []model.User
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &users); err != nil {
			s.cached = false
			logger.Error(ctx, component, "load.parse",
				slog.String("path", s.path),
				logger.Err(err),
			)
			return nil, fmt.Errorf("store: parse %s: %w: %w", s.path, model.ErrCorrupt, err)
		}
	}
	s.parses++
	s.users, s.cached, s.modTime, s.size = users, true, info.ModTime(), info.Size()
	logger.Debug(ctx, component, "load",
		slog.String("status", "ok"),
		slog.String("cache", "refresh"),
		slog.Int("count", len(users)),
		slog.Duration("duration", logger.Took(start)),
	)
	return users, nil
}

func (s *FileStore) save(ctx context.Context, users []model.User) error {
	start := time.Now()
	snapshot := cloneAll(users)
	for i := range snapshot {
		if snapshot[i].Payments == nil {
			snapshot[i].Payments = []model.Payment{}
		}
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		logger.Error(ctx, component, "save",
			slog.String("status", "fail"),
			slog.String("path", s.path),
			logger.Err(err),
		)
		return fmt.Errorf("store: write %s: %w", s.path, err)
	}
	info, err := os.Stat(s.path)
	if err != nil {
		s.cached = false
		return fmt.Errorf("store: stat %s: %w", s.path, err)
	}
	s.users, s.cached, s.modTime, s.size = snapshot, true, info.ModTime(), info.Size()
	logger.Debug(ctx, component, "save",
		slog.String("status", "ok"),
		slog.Int("count", len(snapshot)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
