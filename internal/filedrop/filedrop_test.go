package filedrop

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// TestSanitizeName tests upload name flattening
func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "report.pdf", want: "report.pdf"},
		{name: "spaces become dashes", input: "my holiday photo.jpg", want: "my-holiday-photo.jpg"},
		{name: "path stripped", input: "/etc/passwd", want: "passwd"},
		{name: "traversal stripped", input: "../../secret.txt", want: "secret.txt"},
		{name: "backslashes stripped", input: `..\..\boot.ini`, want: "....boot.ini"},
		{name: "control chars stripped", input: "a\x00b\nc", want: "abc"},
		{name: "dot", input: ".", want: ""},
		{name: "dotdot", input: "..", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeName(tt.input); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestNewWipesDir tests that construction clears leftovers from a previous run
func TestNewWipesDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "stale.txt")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(dir, time.Minute, zap.NewNop()); err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file survived store construction")
	}
}

// TestSaveListOpen tests the upload round trip
func TestSaveListOpen(t *testing.T) {
	t.Parallel()

	s, err := New(filepath.Join(t.TempDir(), "uploads"), time.Minute, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	name, err := s.Save("my file.txt", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if name != "my-file.txt" {
		t.Errorf("Save() served name = %q, want my-file.txt", name)
	}

	entries := s.List()
	if len(entries) != 1 || entries[0].Name != "my-file.txt" {
		t.Fatalf("List() = %v, want one entry my-file.txt", entries)
	}

	path, expiry, err := s.Open("my-file.txt")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if !expiry.After(time.Now()) {
		t.Error("Open() returned an expiry in the past")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("stored content = %q, want payload", data)
	}
}

// TestSaveRejectsEmptyName tests names that sanitize to nothing
func TestSaveRejectsEmptyName(t *testing.T) {
	t.Parallel()

	s, err := New(filepath.Join(t.TempDir(), "uploads"), time.Minute, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Save("..", strings.NewReader("x")); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Save(..) error = %v, want ErrEmptyName", err)
	}
}

// TestOpenUnknown tests lookups of files that were never stored
func TestOpenUnknown(t *testing.T) {
	t.Parallel()

	s, err := New(filepath.Join(t.TempDir(), "uploads"), time.Minute, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.Open("nothing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(nothing.txt) error = %v, want ErrNotFound", err)
	}
}

// TestExpiry tests that expired files vanish from List, Open and disk
func TestExpiry(t *testing.T) {
	t.Parallel()

	s, err := New(filepath.Join(t.TempDir(), "uploads"), 30*time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	name, err := s.Save("short-lived.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(60 * time.Millisecond)

	if entries := s.List(); len(entries) != 0 {
		t.Errorf("List() = %v after TTL, want empty", entries)
	}
	if _, _, err := s.Open(name); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() after TTL error = %v, want ErrNotFound", err)
	}

	// The reaper removes the bytes from disk too.
	s.reap()
	if _, err := os.Stat(filepath.Join(s.dir, name)); !os.IsNotExist(err) {
		t.Error("expired file still on disk after reap")
	}
}
