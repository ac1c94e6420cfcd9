package story

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"auto_story_script_generator/agents"
	"auto_story_script_generator/chat"
	"auto_story_script_generator/config"
	"auto_story_script_generator/outline"
	"auto_story_script_generator/storage"
)

// Generator runs the per-story pipeline over the extracted outline:
// one conversation per story, completion verification, cleanup, persistence
// and continuity-memory upkeep, in strict story order.
type Generator struct {
	llm       chat.LLMClient
	roles     agents.Set
	artifacts *storage.Store
	specs     []outline.StorySpec
	memory    *Memory
	logger    *log.Logger
	runID     string

	rounds      int
	retryRounds int
	delay       time.Duration
	minChars    int
}

func NewGenerator(llm chat.LLMClient, roles agents.Set, artifacts *storage.Store, specs []outline.StorySpec, cfg config.Generation, logger *log.Logger) (*Generator, error) {
	if llm == nil {
		return nil, errors.New("story: llm client is required")
	}
	if roles == nil {
		return nil, errors.New("story: role set is required")
	}
	if artifacts == nil {
		return nil, errors.New("story: artifact store is required")
	}
	if len(specs) == 0 {
		return nil, errors.New("story: outline is empty")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		llm:         llm,
		roles:       roles,
		artifacts:   artifacts,
		specs:       specs,
		memory:      NewMemory(cfg.MemoryWindow, cfg.MemoryBudget),
		logger:      logger,
		runID:       artifacts.RunID(),
		rounds:      cfg.StoryRounds,
		retryRounds: cfg.RetryRounds,
		delay:       time.Duration(cfg.StoryDelaySec) * time.Second,
		minChars:    cfg.MinContentChars,
	}, nil
}

// Run generates every story in order. A story is never started unless its
// predecessor's artifact exists and passes validation, and the run halts
// on the first story that cannot be persisted and validated — later
// stories depend on contiguous continuity memory, so there is no skipping.
func (g *Generator) Run(ctx context.Context) error {
	sorted := append([]outline.StorySpec{}, g.specs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	g.logger.Printf("[story] run %s: generating %d stories", g.runID, len(sorted))
	for i, spec := range sorted {
		if spec.Number > 1 {
			if err := g.artifacts.Validate(spec.Number - 1); err != nil {
				return fmt.Errorf("story %d: predecessor check: %w", spec.Number, err)
			}
		}

		g.logger.Printf("[story] ==== Story %d: %s ====", spec.Number, spec.Title)
		if err := g.generateStory(ctx, spec); err != nil {
			return err
		}
		if err := g.artifacts.Validate(spec.Number); err != nil {
			return err
		}
		g.logger.Printf("[story] story %d complete", spec.Number)

		// 固定间隔，避免压垮上游模型服务。
		if g.delay > 0 && i < len(sorted)-1 {
			time.Sleep(g.delay)
		}
	}
	return nil
}

// generateStory runs the primary pipeline and falls back to the reduced
// retry pipeline on any failure: scheduler abort, incomplete signature or
// failed extraction alike.
func (g *Generator) generateStory(ctx context.Context, spec outline.StorySpec) error {
	err := g.primary(ctx, spec)
	if err == nil {
		return nil
	}
	g.logger.Printf("[story] story %d primary pipeline failed: %v; attempting simplified retry", spec.Number, err)
	if rerr := g.retry(ctx, spec); rerr != nil {
		return fmt.Errorf("story %d: retry failed: %w (primary: %v)", spec.Number, rerr, err)
	}
	return nil
}

func (g *Generator) primary(ctx context.Context, spec outline.StorySpec) error {
	store := chat.NewStore()
	parts, err := g.roles.Participants(
		agents.NameUserProxy,
		agents.NameMemoryKeeper,
		agents.NameWriter,
		agents.NameEditor,
		agents.NameWriterFinal,
	)
	if err != nil {
		return err
	}
	sched, err := chat.NewScheduler(g.llm, store, parts, g.rounds, g.logger)
	if err != nil {
		return err
	}
	// 定稿确认出现后就不再空转剩余轮次。
	sched.TerminateKeyword = "**Confirmation:**"

	kickoff := chat.Message{Sender: agents.NameUserProxy, Content: g.storyPrompt(spec)}
	if err := sched.Run(ctx, kickoff); err != nil {
		return err
	}

	msgs := store.Messages()
	sig, num := Evaluate(msgs, UnitDetector())
	content := ExtractFinal(msgs, g.drafterSenders(), g.minChars)

	if !sig.Complete() || num == 0 || content == "" {
		missing := sig.Missing()
		if num == 0 {
			missing = append(missing, "story number")
		}
		if content == "" {
			missing = append(missing, "final content")
		}
		return &IncompleteError{Story: spec.Number, Missing: missing}
	}

	if err := g.persist(spec.Number, content, msgs); err != nil {
		return err
	}
	store.Append(agents.NameUserProxy, fmt.Sprintf("Story %d is complete. Proceed with next story.", spec.Number))
	return nil
}

// retry is the degraded two-step pipeline: planner then writer, reduced
// round cap, and only the plan and final markers required. Whatever
// content it yields is persisted even though the verification is weaker.
func (g *Generator) retry(ctx context.Context, spec outline.StorySpec) error {
	store := chat.NewStore()
	parts, err := g.roles.Participants(
		agents.NameUserProxy,
		agents.NameStoryPlanner,
		agents.NameWriter,
	)
	if err != nil {
		return err
	}
	sched, err := chat.NewScheduler(g.llm, store, parts, g.retryRounds, g.logger)
	if err != nil {
		return err
	}
	sched.TerminateKeyword = "SCENE FINAL:"

	kickoff := chat.Message{Sender: agents.NameUserProxy, Content: g.retryPrompt(spec)}
	if err := sched.Run(ctx, kickoff); err != nil {
		return err
	}

	msgs := store.Messages()
	sig, _ := Evaluate(msgs, RetryDetector())
	content := ExtractFinal(msgs, g.drafterSenders(), g.minChars)
	if !sig.Complete() || content == "" {
		missing := sig.Missing()
		if content == "" {
			missing = append(missing, "final content")
		}
		return &IncompleteError{Story: spec.Number, Missing: missing}
	}
	return g.persist(spec.Number, content, msgs)
}

// persist cleans the content, writes the artifact and appends the
// continuity summary for later stories.
func (g *Generator) persist(number int, content string, msgs []chat.Message) error {
	content = Clean(content)
	if content == "" {
		return &IncompleteError{Story: number, Missing: []string{"final content"}}
	}
	if err := g.artifacts.Write(number, fmt.Sprintf("Story %d\n\n%s", number, content)); err != nil {
		return err
	}
	g.memory.Add(number, g.summaryFor(number, content, msgs))
	return nil
}

// summaryFor prefers the memory keeper's last MEMORY UPDATE: excerpt and
// falls back to a truncated slice of the story itself.
func (g *Generator) summaryFor(number int, content string, msgs []chat.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.Sender != agents.NameMemoryKeeper {
			continue
		}
		if _, after, ok := strings.Cut(msg.Content, "MEMORY UPDATE:"); ok {
			return strings.TrimSpace(after)
		}
	}
	runes := []rune(content)
	if len(runes) > 200 {
		runes = runes[:200]
	}
	return fmt.Sprintf("Story %d Summary: %s...", number, string(runes))
}

// drafterSenders lists the roles whose messages can carry final content.
func (g *Generator) drafterSenders() map[string]bool {
	senders := make(map[string]bool)
	for name, role := range g.roles {
		if role.Capability == agents.CapDrafter || role.Capability == agents.CapFinalizer {
			senders[name] = true
		}
	}
	return senders
}

func (g *Generator) storyPrompt(spec outline.StorySpec) string {
	prior := g.memory.Context(spec.Number)
	if prior == "" {
		prior = "（这是系列的第一篇，没有之前的故事。）"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "重要：本次任务只生成 Story %d 的内容。未经确认不要进入下一个故事，也不要在这里结束整个系列。\n\n", spec.Number)
	fmt.Fprintf(&sb, "Story %d: %s\n\n", spec.Number, spec.Title)
	fmt.Fprintf(&sb, "故事需求：\n%s\n\n", spec.Requirements())
	fmt.Fprintf(&sb, "参考上下文：\n%s\n\n", prior)
	sb.WriteString(`请严格按以下顺序进行，每一步完成后再进行下一步：
1. memory_keeper：上下文更新（标记 MEMORY UPDATE）
2. writer：写作计划、场景设定与初稿（标记 PLAN、SETTING、SCENE）
3. editor：审阅（标记 FEEDBACK）
4. writer_final：修订定稿并确认（标记 SCENE FINAL、Confirmation）`)
	return sb.String()
}

func (g *Generator) retryPrompt(spec outline.StorySpec) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Story %d 的应急生成任务。\n\n", spec.Number)
	fmt.Fprintf(&sb, "标题：%s\n%s\n\n", spec.Title, spec.Requirements())
	sb.WriteString(`请分两步完成这个故事：
1. story_planner：给出一个简单的大纲（输出以 PLAN 加冒号开头）
2. writer：写出完整的故事（输出以 SCENE FINAL 加冒号开头）

保持简单直接。`)
	return sb.String()
}
