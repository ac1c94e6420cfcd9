package outline

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"auto_story_script_generator/chat"
)

func quiet() *log.Logger {
	return log.New(discard{}, "", 0)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func wellFormedOutline(n int) string {
	var sb strings.Builder
	sb.WriteString("OUTLINE:\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "Story %d: Title %d\n", i, i)
		sb.WriteString("Key Events:\n- first thing\n- second thing\n- third thing\n")
		fmt.Fprintf(&sb, "Setting: place %d\n", i)
		fmt.Fprintf(&sb, "Tone: tense\n\n")
	}
	sb.WriteString("END OF OUTLINE")
	return sb.String()
}

func TestParseSingleStoryScenario(t *testing.T) {
	msgs := []chat.Message{{
		Sender: "outline_creator",
		Content: "OUTLINE:\nStory 1: Dusk Delivery\nKey Events:\n- a\n- b\n- c\n" +
			"Setting: yard\nTone: tense\nEND OF OUTLINE",
	}}
	specs, err := Parse(msgs, 1, quiet())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(specs))
	}
	s := specs[0]
	if s.Number != 1 || s.Title != "Dusk Delivery" {
		t.Fatalf("spec = %+v", s)
	}
	if len(s.KeyEvents) != 3 || s.KeyEvents[0] != "a" || s.KeyEvents[2] != "c" {
		t.Fatalf("events = %v", s.KeyEvents)
	}
	if s.Setting != "yard" || s.Tone != "tense" {
		t.Fatalf("setting/tone = %q/%q", s.Setting, s.Tone)
	}
}

func TestParseWellFormedYieldsExactlyN(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		msgs := []chat.Message{{Sender: "outline_creator", Content: wellFormedOutline(n)}}
		specs, err := Parse(msgs, n, quiet())
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if len(specs) != n {
			t.Fatalf("got %d specs, want %d", len(specs), n)
		}
		for i, s := range specs {
			if s.Number != i+1 {
				t.Fatalf("spec %d has number %d", i, s.Number)
			}
			if s.Title != fmt.Sprintf("Title %d", i+1) {
				t.Fatalf("spec %d title = %q", i, s.Title)
			}
			if len(s.KeyEvents) < 3 {
				t.Fatalf("spec %d has %d events", i, len(s.KeyEvents))
			}
		}
	})
}

func TestParseLatestAttemptWins(t *testing.T) {
	stale := "OUTLINE:\nStory 1: Old Title\nKey Events:\n- x\n- y\n- z\nSetting: s\nTone: t\nEND OF OUTLINE"
	fresh := "OUTLINE:\nStory 1: New Title\nKey Events:\n- x\n- y\n- z\nSetting: s\nTone: t\nEND OF OUTLINE"
	msgs := []chat.Message{
		{Sender: "outline_creator", Content: stale},
		{Sender: "outline_creator", Content: fresh},
	}
	specs, err := Parse(msgs, 1, quiet())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if specs[0].Title != "New Title" {
		t.Fatalf("title = %q, want the most recent attempt", specs[0].Title)
	}
}

func TestParseToleratesEmphasisAndCase(t *testing.T) {
	content := "OUTLINE:\nStory 1: Heading\n**Title:** Night Watch\n**key events:**\n- a\n- b\n- c\n**Setting:** porch\n**Tone:** calm\nEND OF OUTLINE"
	specs, err := Parse([]chat.Message{{Sender: "outline_creator", Content: content}}, 1, quiet())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if specs[0].Title != "Night Watch" {
		t.Fatalf("title = %q", specs[0].Title)
	}
	if specs[0].Setting != "porch" || specs[0].Tone != "calm" {
		t.Fatalf("setting/tone = %q/%q", specs[0].Setting, specs[0].Tone)
	}
}

func TestParseMissingEndMarkerTakesRest(t *testing.T) {
	content := "OUTLINE:\nStory 1: Open Ended\nKey Events:\n- a\n- b\n- c\nSetting: s\nTone: t"
	specs, err := Parse([]chat.Message{{Sender: "outline_creator", Content: content}}, 1, quiet())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if specs[0].Title != "Open Ended" {
		t.Fatalf("title = %q", specs[0].Title)
	}
}

func TestParseDropsSegmentMissingFieldsAndErrors(t *testing.T) {
	// Story 2 has no Setting, so only one valid story remains out of two.
	content := "OUTLINE:\n" +
		"Story 1: Complete\nKey Events:\n- a\n- b\n- c\nSetting: s\nTone: t\n" +
		"Story 2: Broken\nKey Events:\n- a\n- b\n- c\nTone: t\n" +
		"END OF OUTLINE"
	_, err := Parse([]chat.Message{{Sender: "outline_creator", Content: content}}, 2, quiet())
	var incomplete *IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("err = %v, want IncompleteError", err)
	}
	if incomplete.Valid != 1 || incomplete.Want != 2 {
		t.Fatalf("IncompleteError = %+v", incomplete)
	}
}

func TestParseRejectsTooFewEvents(t *testing.T) {
	content := "OUTLINE:\nStory 1: Thin\nKey Events:\n- only\n- two\nSetting: s\nTone: t\nEND OF OUTLINE"
	_, err := Parse([]chat.Message{{Sender: "outline_creator", Content: content}}, 1, quiet())
	var incomplete *IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("err = %v, want IncompleteError", err)
	}
}

func TestParseNoMarkersYieldsPlaceholders(t *testing.T) {
	msgs := []chat.Message{
		{Sender: "story_planner", Content: "nothing useful here"},
		{Sender: "world_builder", Content: "still nothing"},
	}
	specs, err := Parse(msgs, 4, quiet())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(specs) != 4 {
		t.Fatalf("got %d specs, want 4", len(specs))
	}
	for i, s := range specs {
		if s.Number != i+1 {
			t.Fatalf("spec %d number = %d", i, s.Number)
		}
		if !s.IsPlaceholder() {
			t.Fatalf("spec %d should be a placeholder: %+v", i, s)
		}
	}
}

func TestEmergencySalvagesBulletsAndPads(t *testing.T) {
	msgs := []chat.Message{{
		Sender: "outline_creator",
		Content: "Story 3: 夜色包裹\nKey events:\n- 快递员走下货车\n- 院子里爆发冲突\n- Setting: 院子\n- Tone: 紧张",
	}}
	specs := Emergency(msgs, 3, quiet())
	if len(specs) != 3 {
		t.Fatalf("got %d specs, want 3", len(specs))
	}
	// salvaged story is renumbered to 1, the rest are placeholders
	if specs[0].Title != "夜色包裹" {
		t.Fatalf("title = %q", specs[0].Title)
	}
	if len(specs[0].KeyEvents) != 2 {
		t.Fatalf("events = %v", specs[0].KeyEvents)
	}
	if specs[0].Setting != "院子" || specs[0].Tone != "紧张" {
		t.Fatalf("setting/tone = %q/%q", specs[0].Setting, specs[0].Tone)
	}
	if !specs[1].IsPlaceholder() || !specs[2].IsPlaceholder() {
		t.Fatal("missing slots should be placeholders")
	}
}

func TestEmergencyCarriesStoryAcrossMessages(t *testing.T) {
	// the heading arrives in one message, its bullets in the next
	msgs := []chat.Message{
		{Sender: "outline_creator", Content: "Story 2: 深夜访客\nKey events:"},
		{Sender: "outline_creator", Content: "- 门被推开\n- 有人倒地\n- Setting: 客厅"},
	}
	specs := Emergency(msgs, 1, quiet())
	if len(specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(specs))
	}
	if specs[0].Title != "深夜访客" {
		t.Fatalf("title = %q", specs[0].Title)
	}
	if len(specs[0].KeyEvents) != 2 || specs[0].Setting != "客厅" {
		t.Fatalf("spec = %+v, bullets from the later message should count", specs[0])
	}
}

func TestNormalizeTrimsExcess(t *testing.T) {
	msgs := []chat.Message{{
		Sender:  "x",
		Content: "Story 1: A\nKey events:\n- e1\nStory 2: B\n- e2\nStory 3: C\n- e3",
	}}
	specs := Emergency(msgs, 2, quiet())
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
	if specs[0].Number != 1 || specs[1].Number != 2 {
		t.Fatalf("numbers = %d, %d", specs[0].Number, specs[1].Number)
	}
}

func TestFormatContextListsEveryStory(t *testing.T) {
	specs := []StorySpec{
		{Number: 1, Title: "A", KeyEvents: []string{"x", "y", "z"}, Setting: "s", Tone: "t"},
		{Number: 2, Title: "B", KeyEvents: []string{"x", "y", "z"}, Setting: "s", Tone: "t"},
	}
	ctx := FormatContext(specs)
	if !strings.Contains(ctx, "Story 1: A") || !strings.Contains(ctx, "Story 2: B") {
		t.Fatalf("context missing stories:\n%s", ctx)
	}
	if FormatContext(nil) != "" {
		t.Fatal("empty outline should render empty context")
	}
}
