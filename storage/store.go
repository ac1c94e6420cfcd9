// storage 把每个故事的最终文本落到磁盘：story_NN.txt，覆盖前
// 先留时间戳备份，写后回读校验。
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError reports an artifact that is missing or fails the content
// validity check. It is fatal to the sequencing loop.
type ValidationError struct {
	Story  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("storage: story %d artifact invalid: %s", e.Story, e.Reason)
}

// Store is a file-backed artifact store keyed by story number. Each store
// carries a run identifier that is stamped into logs and backup file
// names, so backups from different runs never collide even within one
// timestamp second.
type Store struct {
	dir   string
	runID string
	// now is swappable so tests get deterministic backup names.
	now func() time.Time
}

func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("storage: output dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure output dir: %w", err)
	}
	return &Store{dir: dir, runID: uuid.NewString(), now: time.Now}, nil
}

// RunID returns the identifier of the run this store belongs to.
func (s *Store) RunID() string {
	return s.runID
}

// Key returns the artifact key for a story: zero-padded two-digit index.
func Key(story int) string {
	return fmt.Sprintf("story_%02d.txt", story)
}

func (s *Store) path(story int) string {
	return filepath.Join(s.dir, Key(story))
}

// Exists reports whether the story's artifact is on disk.
func (s *Store) Exists(story int) bool {
	_, err := os.Stat(s.path(story))
	return err == nil
}

// Read returns the artifact text. A missing artifact surfaces as
// os.ErrNotExist for the caller to branch on.
func (s *Store) Read(story int) (string, error) {
	data, err := os.ReadFile(s.path(story))
	if err != nil {
		return "", fmt.Errorf("storage: read story %d: %w", story, err)
	}
	return string(data), nil
}

// Write persists the story text in UTF-8, preserving any existing artifact
// under a timestamped backup key first, then verifies the write by reading
// it back.
func (s *Store) Write(story int, text string) error {
	path := s.path(story)

	if _, err := os.Stat(path); err == nil {
		backup := fmt.Sprintf("%s.%s.%s.backup", path, s.now().Format("20060102-150405"), s.runID)
		if err := copyFile(path, backup); err != nil {
			return fmt.Errorf("storage: backup story %d: %w", story, err)
		}
	}

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("storage: write story %d: %w", story, err)
	}

	saved, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("storage: verify story %d: %w", story, err)
	}
	if len(strings.TrimSpace(string(saved))) == 0 {
		return &ValidationError{Story: story, Reason: "file is empty after write"}
	}
	return nil
}

// Validate runs the content validity check on the persisted artifact:
// present, carries its own header token, and has at least two real content
// lines beyond the header (metadata lines do not count).
func (s *Store) Validate(story int) error {
	text, err := s.Read(story)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ValidationError{Story: story, Reason: "artifact not found"}
		}
		return err
	}
	return ValidateContent(story, text)
}

// ValidateContent checks artifact text without touching the filesystem.
func ValidateContent(story int, text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Story: story, Reason: "empty content"}
	}
	header := fmt.Sprintf("Story %d", story)
	if !strings.Contains(text, header) {
		return &ValidationError{Story: story, Reason: fmt.Sprintf("missing header %q", header)}
	}
	var contentLines int
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, "MEMORY UPDATE:") {
			continue
		}
		contentLines++
	}
	// header line + at least 2 lines of prose
	if contentLines < 3 {
		return &ValidationError{Story: story, Reason: fmt.Sprintf("only %d content lines", contentLines)}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
