// story 负责逐篇生成：驱动单个故事的会话、校验完成信号、
// 提取并清洗最终文本、维护连续性记忆。
package story

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"auto_story_script_generator/chat"
)

// Protocol step names, one per required marker in a story conversation.
const (
	StepMemoryUpdate = "memory_update"
	StepPlan         = "plan"
	StepSetting      = "setting"
	StepScene        = "scene"
	StepFeedback     = "feedback"
	StepSceneFinal   = "scene_final"
	StepConfirmation = "confirmation"
)

// StepDetector decides whether a protocol step completed somewhere in a
// message. Scanning is content-based, not position-based, so the check is
// idempotent and order-tolerant; a marker inside unrelated prose is an
// accepted false positive of the literal-marker scheme.
type StepDetector interface {
	Steps() []string
	Detect(step, content string) bool
}

// MarkerDetector detects steps by literal text markers. A step may require
// several substrings in the same message (the confirmation step does).
type MarkerDetector struct {
	order   []string
	markers map[string][]string
}

func (d *MarkerDetector) Steps() []string { return d.order }

func (d *MarkerDetector) Detect(step, content string) bool {
	subs, ok := d.markers[step]
	if !ok {
		return false
	}
	for _, sub := range subs {
		if !strings.Contains(content, sub) {
			return false
		}
	}
	return true
}

// UnitDetector covers the full story protocol.
func UnitDetector() *MarkerDetector {
	return &MarkerDetector{
		order: []string{
			StepMemoryUpdate, StepPlan, StepSetting, StepScene,
			StepFeedback, StepSceneFinal, StepConfirmation,
		},
		markers: map[string][]string{
			StepMemoryUpdate: {"MEMORY UPDATE:"},
			StepPlan:         {"PLAN:"},
			StepSetting:      {"SETTING:"},
			StepScene:        {"SCENE:"},
			StepFeedback:     {"FEEDBACK:"},
			StepSceneFinal:   {"SCENE FINAL:"},
			StepConfirmation: {"**Confirmation:**", "successfully"},
		},
	}
}

// RetryDetector is the reduced contract of the degraded pipeline.
func RetryDetector() *MarkerDetector {
	return &MarkerDetector{
		order: []string{StepPlan, StepSceneFinal},
		markers: map[string][]string{
			StepPlan:       {"PLAN:"},
			StepSceneFinal: {"SCENE FINAL:"},
		},
	}
}

// Signature is the set of completion flags over one phase's transcript.
type Signature map[string]bool

func (s Signature) Complete() bool {
	for _, ok := range s {
		if !ok {
			return false
		}
	}
	return true
}

// Missing lists the unfinished steps, sorted for stable diagnostics.
func (s Signature) Missing() []string {
	var out []string
	for step, ok := range s {
		if !ok {
			out = append(out, step)
		}
	}
	sort.Strings(out)
	return out
}

var storyHeadingRe = regexp.MustCompile(`Story (\d+):`)

// Evaluate scans the whole transcript and computes the completion
// signature plus the in-transcript story number (0 when absent).
func Evaluate(msgs []chat.Message, det StepDetector) (Signature, int) {
	sig := make(Signature, len(det.Steps()))
	for _, step := range det.Steps() {
		sig[step] = false
	}
	storyNum := 0
	for _, msg := range msgs {
		if storyNum == 0 {
			if m := storyHeadingRe.FindStringSubmatch(msg.Content); m != nil {
				storyNum, _ = strconv.Atoi(m[1])
			}
		}
		for _, step := range det.Steps() {
			if !sig[step] && det.Detect(step, msg.Content) {
				sig[step] = true
			}
		}
	}
	return sig, storyNum
}

// ExtractFinal pulls the story text out of the transcript: latest message
// from a drafting/finalizing sender, preferring text after SCENE FINAL:,
// then after SCENE:, then the raw body when it clears minChars.
func ExtractFinal(msgs []chat.Message, senders map[string]bool, minChars int) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if !senders[msg.Sender] {
			continue
		}
		if _, after, ok := strings.Cut(msg.Content, "SCENE FINAL:"); ok {
			if text := strings.TrimSpace(after); text != "" {
				return text
			}
		}
		if _, after, ok := strings.Cut(msg.Content, "SCENE:"); ok {
			if text := strings.TrimSpace(after); text != "" {
				return text
			}
		}
		// 中文正文按字符数而不是字节数计。
		if text := strings.TrimSpace(msg.Content); utf8.RuneCountInString(text) > minChars {
			return text
		}
	}
	return ""
}

var (
	storyRefParenRe = regexp.MustCompile(`\*?\s*\(Story \d+[^)]*\)`)
	storyRefLineRe  = regexp.MustCompile(`\*?\s*Story \d+[^\n]*\n`)
)

// Clean normalizes extracted content before persistence: story-number
// back-references and residual emphasis markup go away. Pure text
// normalization, no semantic effect.
func Clean(content string) string {
	content = storyRefParenRe.ReplaceAllString(content, "")
	if loc := storyRefLineRe.FindStringIndex(content); loc != nil {
		content = content[:loc[0]] + content[loc[1]:]
	}
	content = strings.ReplaceAll(content, "*", "")
	return strings.TrimSpace(content)
}

// IncompleteError reports a story whose primary conversation did not
// satisfy the completion signature.
type IncompleteError struct {
	Story   int
	Missing []string
}

func (e *IncompleteError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("story %d: generation incomplete", e.Story)
	}
	return fmt.Sprintf("story %d: generation incomplete (missing: %s)", e.Story, strings.Join(e.Missing, ", "))
}
