// outline 负责大纲阶段：驱动规划会话，并把自由文本的大纲
// 解析成结构化的故事规格。
package outline

import (
	"fmt"
	"strings"
)

// 占位字段值，解析完全失败时兜底用。
const ToBeDetermined = "[To be determined]"

// StorySpec is one story's slot in the outline: contiguous number, title
// and the labeled requirement block. Read-only after extraction.
type StorySpec struct {
	Number    int
	Title     string
	KeyEvents []string
	Setting   string
	Tone      string
}

// Placeholder synthesizes a spec for a slot nothing could be recovered for.
func Placeholder(number int) StorySpec {
	return StorySpec{
		Number:    number,
		Title:     fmt.Sprintf("Story %d", number),
		KeyEvents: []string{ToBeDetermined},
		Setting:   ToBeDetermined,
		Tone:      ToBeDetermined,
	}
}

// IsPlaceholder reports whether the spec carries no recovered content.
func (s StorySpec) IsPlaceholder() bool {
	return s.Setting == ToBeDetermined && s.Tone == ToBeDetermined
}

// Requirements renders the labeled block handed to the story phase.
func (s StorySpec) Requirements() string {
	var sb strings.Builder
	sb.WriteString("- Key Events:\n")
	for _, e := range s.KeyEvents {
		fmt.Fprintf(&sb, "  - %s\n", e)
	}
	fmt.Fprintf(&sb, "- Setting: %s\n", s.Setting)
	fmt.Fprintf(&sb, "- Tone: %s", s.Tone)
	return sb.String()
}

// FormatContext renders the whole outline for embedding into role
// instructions.
func FormatContext(specs []StorySpec) string {
	if len(specs) == 0 {
		return ""
	}
	parts := []string{"Complete Book Outline:"}
	for _, s := range specs {
		parts = append(parts, fmt.Sprintf("\nStory %d: %s\n%s", s.Number, s.Title, s.Requirements()))
	}
	return strings.Join(parts, "\n")
}
