package outline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
)

// WriteSidecar renders the outline for human inspection: outline.txt in
// the format the pipeline logs use, plus an outline.html preview. The
// pipeline never reads these back.
func WriteSidecar(dir string, specs []StorySpec) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("outline: ensure output dir: %w", err)
	}

	var txt strings.Builder
	var md strings.Builder
	for _, s := range specs {
		fmt.Fprintf(&txt, "\nStory %d: %s\n", s.Number, s.Title)
		txt.WriteString(strings.Repeat("-", 50) + "\n")
		txt.WriteString(s.Requirements() + "\n")

		fmt.Fprintf(&md, "## Story %d: %s\n\n%s\n\n", s.Number, s.Title, s.Requirements())
	}

	if err := os.WriteFile(filepath.Join(dir, "outline.txt"), []byte(txt.String()), 0o644); err != nil {
		return fmt.Errorf("outline: write sidecar: %w", err)
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(md.String()), &html); err != nil {
		return fmt.Errorf("outline: render preview: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "outline.html"), html.Bytes(), 0o644); err != nil {
		return fmt.Errorf("outline: write preview: %w", err)
	}
	return nil
}
