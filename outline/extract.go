package outline

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"auto_story_script_generator/chat"
)

// 大纲内容的定界标记，由 outline_creator 的指令约定。
const (
	startMarker = "OUTLINE:"
	endMarker   = "END OF OUTLINE"
)

// IncompleteError reports that structured extraction recovered fewer valid
// stories than the run requires.
type IncompleteError struct {
	Valid int
	Want  int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("outline: only %d valid stories out of %d required", e.Valid, e.Want)
}

var (
	storyHeadRe = regexp.MustCompile(`Story (\d+):`)
	titleRe     = regexp.MustCompile(`(?i)\*?\*?Title:\*?\*?[ \t]*(.+)`)
	eventsRe    = regexp.MustCompile(`(?is)\*?\*?Key Events:\*?\*?\s*(.*?)(?:\*?\*?(?:Character Developments|Setting):|$)`)
	settingRe   = regexp.MustCompile(`(?is)\*?\*?Setting:\*?\*?\s*(.*?)(?:\*?\*?Tone:|$)`)
	toneRe      = regexp.MustCompile(`(?is)\*?\*?Tone:\*?\*?\s*(.*?)(?:\*?\*?Story \d+:|$)`)
	bulletRe    = regexp.MustCompile(`(?m)^\s*-\s*(.+)$`)
	storyNumRe  = regexp.MustCompile(`Story (\d+)`)
)

// Parse turns the outline-phase transcript into exactly the structured
// story specs the run needs. The structured path errors on a shortfall so
// the caller can treat it as a model failure; the emergency path always
// pads to the requested count instead.
func Parse(msgs []chat.Message, want int, logger *log.Logger) ([]StorySpec, error) {
	if logger == nil {
		logger = log.Default()
	}

	content := extractOutlineContent(msgs)
	if content == "" {
		logger.Printf("[outline] no structured outline found, attempting emergency extraction")
		return Emergency(msgs, want, logger), nil
	}

	specs := parseStructured(content, logger)
	if len(specs) < want {
		return nil, &IncompleteError{Valid: len(specs), Want: want}
	}
	return specs, nil
}

// extractOutlineContent 倒序扫描消息，让最新的一次尝试生效。
func extractOutlineContent(msgs []chat.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		content := msgs[i].Content
		start := strings.Index(content, startMarker)
		if start == -1 {
			continue
		}
		end := strings.Index(content, endMarker)
		if end > start {
			return strings.TrimSpace(content[start:end])
		}
		// 缺少结束标记就取起始标记之后的全部内容。
		return strings.TrimSpace(content[start:])
	}

	// Fallback: any message that at least carries a story heading.
	for i := len(msgs) - 1; i >= 0; i-- {
		content := msgs[i].Content
		if strings.Contains(content, "Story 1:") || strings.Contains(content, "**Story 1:**") {
			return content
		}
	}
	return ""
}

func parseStructured(content string, logger *log.Logger) []StorySpec {
	heads := storyHeadRe.FindAllStringIndex(content, -1)
	var specs []StorySpec

	for i, head := range heads {
		segStart := head[1]
		segEnd := len(content)
		if i+1 < len(heads) {
			segEnd = heads[i+1][0]
		}
		section := content[segStart:segEnd]
		number := i + 1

		spec, missing := parseSection(number, section)
		if len(missing) > 0 {
			logger.Printf("[outline] Story %d missing required fields: %s", number, strings.Join(missing, ", "))
			continue
		}
		if len(spec.KeyEvents) < 3 {
			logger.Printf("[outline] Story %d has fewer than 3 key events", number)
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}

// parseSection extracts the four labeled fields from one story segment,
// tolerating markdown emphasis and case drift.
func parseSection(number int, section string) (StorySpec, []string) {
	var missing []string
	spec := StorySpec{Number: number}

	if m := titleRe.FindStringSubmatch(section); m != nil {
		spec.Title = strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*"))
	} else if line := firstLine(section); line != "" {
		// 没有显式 Title 字段时，故事标题行本身就是标题。
		spec.Title = strings.Trim(line, "* ")
	}
	if spec.Title == "" {
		missing = append(missing, "Title")
	}

	if m := eventsRe.FindStringSubmatch(section); m != nil {
		for _, b := range bulletRe.FindAllStringSubmatch(m[1], -1) {
			spec.KeyEvents = append(spec.KeyEvents, strings.TrimSpace(b[1]))
		}
	} else {
		missing = append(missing, "Key Events")
	}

	if m := settingRe.FindStringSubmatch(section); m != nil {
		spec.Setting = strings.TrimSpace(m[1])
	}
	if spec.Setting == "" {
		missing = append(missing, "Setting")
	}

	if m := toneRe.FindStringSubmatch(section); m != nil {
		spec.Tone = strings.TrimSpace(m[1])
	}
	if spec.Tone == "" {
		missing = append(missing, "Tone")
	}

	return spec, missing
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// Emergency scans every message line by line for story markers co-occurring
// with a key-events token and salvages whatever bullet lines follow. It
// never fails: zero recoverable stories yields pure placeholders. The
// result is always renumbered, padded and trimmed to exactly want specs.
func Emergency(msgs []chat.Message, want int, logger *log.Logger) []StorySpec {
	if logger == nil {
		logger = log.Default()
	}
	var specs []StorySpec
	var cur *StorySpec

	flush := func() {
		if cur != nil && len(cur.KeyEvents) > 0 {
			specs = append(specs, *cur)
		}
		cur = nil
	}

	for _, msg := range msgs {
		hasEvents := strings.Contains(strings.ToLower(msg.Content), "key events:")
		for _, line := range strings.Split(msg.Content, "\n") {
			if m := storyNumRe.FindStringSubmatch(line); m != nil && hasEvents {
				flush()
				num, _ := strconv.Atoi(m[1])
				cur = &StorySpec{
					Number:  num,
					Title:   emergencyTitle(line, num),
					Setting: ToBeDetermined,
					Tone:    ToBeDetermined,
				}
				continue
			}
			if cur == nil {
				continue
			}
			trimmed := strings.TrimSpace(line)
			if !strings.HasPrefix(trimmed, "-") {
				continue
			}
			value := strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
			lower := strings.ToLower(value)
			switch {
			case strings.HasPrefix(lower, "setting:"):
				cur.Setting = strings.TrimSpace(value[len("setting:"):])
			case strings.HasPrefix(lower, "tone:"):
				cur.Tone = strings.TrimSpace(value[len("tone:"):])
			case value != "":
				cur.KeyEvents = append(cur.KeyEvents, value)
			}
		}
	}
	// 跨消息携带未完成的故事，等最后再一并收尾。
	flush()

	if len(specs) == 0 {
		logger.Printf("[outline] emergency extraction found nothing, synthesizing %d placeholders", want)
		for i := 1; i <= want; i++ {
			specs = append(specs, Placeholder(i))
		}
	}
	return normalize(specs, want)
}

func emergencyTitle(line string, num int) string {
	if idx := strings.LastIndex(line, ":"); idx != -1 {
		if t := strings.TrimSpace(line[idx+1:]); t != "" {
			return t
		}
	}
	return fmt.Sprintf("Story %d", num)
}

// normalize sorts by story number, renumbers contiguously from 1, pads
// with placeholders and trims to exactly want entries.
func normalize(specs []StorySpec, want int) []StorySpec {
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].Number < specs[j].Number })
	for i := range specs {
		specs[i].Number = i + 1
	}
	for len(specs) < want {
		specs = append(specs, Placeholder(len(specs)+1))
	}
	return specs[:want]
}
