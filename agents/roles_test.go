package agents

import (
	"strings"
	"testing"
)

func TestBuildContainsAllRoles(t *testing.T) {
	set := Build(BuildParams{Premise: "premise", NumStories: 5})
	for _, name := range []string{
		NameUserProxy, NameStoryPlanner, NameWorldBuilder, NameOutlineCreator,
		NameMemoryKeeper, NameWriter, NameEditor, NameWriterFinal,
	} {
		if _, ok := set[name]; !ok {
			t.Fatalf("role %q missing from set", name)
		}
	}
}

func TestBuildEmbedsOutlineContext(t *testing.T) {
	ctx := "Story 1: 黄昏送货\n- Key Events: ..."
	set := Build(BuildParams{Premise: "p", NumStories: 3, OutlineContext: ctx})
	for _, name := range []string{NameMemoryKeeper, NameWorldBuilder, NameWriter, NameEditor, NameWriterFinal} {
		if !strings.Contains(set[name].Instructions, ctx) {
			t.Fatalf("role %q instructions missing outline context", name)
		}
	}
}

func TestOutlineCreatorEmbedsPremiseAndCount(t *testing.T) {
	set := Build(BuildParams{Premise: "安防摄像头视角", NumStories: 7})
	inst := set[NameOutlineCreator].Instructions
	if !strings.Contains(inst, "安防摄像头视角") {
		t.Fatal("premise not embedded")
	}
	if !strings.Contains(inst, "7 个故事") {
		t.Fatal("story count not embedded")
	}
	if !strings.Contains(inst, "OUTLINE:") || !strings.Contains(inst, "END OF OUTLINE") {
		t.Fatal("outline markers missing from instructions")
	}
}

func TestOnlyProxyIsHuman(t *testing.T) {
	set := Build(BuildParams{NumStories: 1})
	for name, role := range set {
		human := role.Participant().Human
		if name == NameUserProxy && !human {
			t.Fatal("user proxy should be the human seat")
		}
		if name != NameUserProxy && human {
			t.Fatalf("role %q should not be human", name)
		}
	}
}

func TestParticipantsPreserveOrder(t *testing.T) {
	set := Build(BuildParams{NumStories: 1})
	parts, err := set.Participants(NameUserProxy, NameWriter, NameEditor)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	got := []string{parts[0].Name, parts[1].Name, parts[2].Name}
	want := []string{NameUserProxy, NameWriter, NameEditor}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if _, err := set.Participants("nobody"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
