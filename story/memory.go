package story

import (
	"fmt"
	"strings"
)

// Entry is one story's continuity summary.
type Entry struct {
	Story   int
	Summary string
}

// Memory is the append-only continuity log consulted when preparing
// context for later stories. Window and budget bound how much of it is
// replayed; zero means unlimited.
type Memory struct {
	entries []Entry
	window  int
	budget  int
}

func NewMemory(window, budget int) *Memory {
	return &Memory{window: window, budget: budget}
}

// Add appends a summary. Entries are never rewritten or truncated.
func (m *Memory) Add(story int, summary string) {
	m.entries = append(m.entries, Entry{Story: story, Summary: summary})
}

func (m *Memory) Len() int {
	return len(m.entries)
}

// Context renders the summaries of strictly earlier stories, newest-K
// windowed and capped to the character budget (oldest trimmed first).
// Returns empty for the first story.
func (m *Memory) Context(story int) string {
	var prior []Entry
	for _, e := range m.entries {
		if e.Story < story {
			prior = append(prior, e)
		}
	}
	if len(prior) == 0 {
		return ""
	}
	if m.window > 0 && len(prior) > m.window {
		prior = prior[len(prior)-m.window:]
	}

	lines := make([]string, 0, len(prior))
	for _, e := range prior {
		lines = append(lines, fmt.Sprintf("Story %d: %s", e.Story, e.Summary))
	}
	if m.budget > 0 {
		for len(lines) > 1 && totalRunes(lines) > m.budget {
			lines = lines[1:]
		}
	}
	return "Previous Story Summaries:\n" + strings.Join(lines, "\n")
}

func totalRunes(lines []string) int {
	n := 0
	for _, l := range lines {
		n += len([]rune(l))
	}
	return n
}
