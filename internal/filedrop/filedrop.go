// Package filedrop is the ephemeral upload store behind the file-transfer
// convenience endpoints. Files live in a scratch directory for a fixed TTL
// and are reaped in the background; nothing survives a restart.
package filedrop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrEmptyName = errors.New("file name is empty after sanitizing")
	ErrNotFound  = errors.New("file not found or expired")
)

// Entry describes one live upload.
type Entry struct {
	Name   string
	Expiry time.Time
}

// Store is the upload registry. The directory is wiped at construction; the
// in-memory table is the source of truth for what is still live.
type Store struct {
	dir string
	ttl time.Duration
	log *zap.Logger

	mu    sync.Mutex
	files map[string]time.Time
}

// New wipes and recreates dir and returns an empty store.
func New(dir string, ttl time.Duration, log *zap.Logger) (*Store, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clear upload dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &Store{
		dir:   dir,
		ttl:   ttl,
		log:   log,
		files: make(map[string]time.Time),
	}, nil
}

// SanitizeName reduces an uploaded file name to a safe flat name: spaces
// become dashes, path separators and relative components are stripped.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, " ", "-")
	name = filepath.Base(filepath.Clean(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == '/', r == '\\', r == ':':
			return -1
		}
		return r
	}, name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// Save stores src under the sanitized name and returns the name it is
// served as. Saving an existing name replaces the file and restarts its TTL.
func (s *Store) Save(name string, src io.Reader) (string, error) {
	name = SanitizeName(name)
	if name == "" {
		return "", ErrEmptyName
	}

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}

	expiry := time.Now().Add(s.ttl)
	s.mu.Lock()
	s.files[name] = expiry
	s.mu.Unlock()

	s.log.Info("file stored", zap.String("name", name), zap.Time("expiry", expiry))
	return name, nil
}

// List returns the live uploads sorted by name.
func (s *Store) List() []Entry {
	now := time.Now()

	s.mu.Lock()
	entries := make([]Entry, 0, len(s.files))
	for name, expiry := range s.files {
		if expiry.After(now) {
			entries = append(entries, Entry{Name: name, Expiry: expiry})
		}
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Open returns the on-disk path and expiry of a live upload.
func (s *Store) Open(name string) (path string, expiry time.Time, err error) {
	name = SanitizeName(name)

	s.mu.Lock()
	expiry, ok := s.files[name]
	s.mu.Unlock()

	if !ok || !expiry.After(time.Now()) {
		return "", time.Time{}, ErrNotFound
	}
	return filepath.Join(s.dir, name), expiry, nil
}

// Run reaps expired uploads until ctx is cancelled. The reap period is a
// fraction of the TTL so files disappear soon after expiring.
func (s *Store) Run(ctx context.Context) {
	period := s.ttl / 4
	if period < time.Second {
		period = time.Second
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reap()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Store) reap() {
	now := time.Now()

	s.mu.Lock()
	var expired []string
	for name, expiry := range s.files {
		if !expiry.After(now) {
			expired = append(expired, name)
			delete(s.files, name)
		}
	}
	s.mu.Unlock()

	for _, name := range expired {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			s.log.Warn("reap failed", zap.String("name", name), zap.Error(err))
			continue
		}
		s.log.Info("file expired", zap.String("name", name))
	}
}
