package outline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"auto_story_script_generator/agents"
	"auto_story_script_generator/chat"
)

// Generator drives the outline phase: one bounded round-robin conversation
// over the planning roles, then extraction of the transcript.
type Generator struct {
	llm    chat.LLMClient
	roles  agents.Set
	rounds int
	logger *log.Logger
}

func NewGenerator(llm chat.LLMClient, roles agents.Set, rounds int, logger *log.Logger) (*Generator, error) {
	if llm == nil {
		return nil, errors.New("outline: llm client is required")
	}
	if roles == nil {
		return nil, errors.New("outline: role set is required")
	}
	if rounds < 1 {
		return nil, fmt.Errorf("outline: rounds must be >= 1, got %d", rounds)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{llm: llm, roles: roles, rounds: rounds, logger: logger}, nil
}

// Generate runs the planning conversation and returns the extracted story
// specs. A transport failure mid-phase degrades to emergency salvage of
// whatever transcript exists instead of losing the run outright; a
// structured shortfall surfaces as *IncompleteError.
func (g *Generator) Generate(ctx context.Context, premise string, numStories int) ([]StorySpec, error) {
	g.logger.Printf("[outline] generating %d-story outline", numStories)

	store := chat.NewStore()
	parts, err := g.roles.Participants(
		agents.NameUserProxy,
		agents.NameStoryPlanner,
		agents.NameWorldBuilder,
		agents.NameOutlineCreator,
	)
	if err != nil {
		return nil, err
	}

	sched, err := chat.NewScheduler(g.llm, store, parts, g.rounds, g.logger)
	if err != nil {
		return nil, err
	}
	sched.TerminateKeyword = endMarker

	kickoff := chat.Message{Sender: agents.NameUserProxy, Content: kickoffPrompt(premise, numStories)}
	if err := sched.Run(ctx, kickoff); err != nil {
		// 会话中断时抢救已有的消息，而不是整轮作废。
		g.logger.Printf("[outline] conversation aborted: %v; salvaging transcript", err)
		return Emergency(store.Messages(), numStories, g.logger), nil
	}

	return Parse(store.Messages(), numStories, g.logger)
}

// kickoffPrompt 是大纲阶段的开场任务描述。注意不要包含会被
// 提取器当成定界标记的字面量。
func kickoffPrompt(premise string, numStories int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "我们来为一本书创建 %d 个故事的大纲，前提如下：\n\n%s\n\n", numStories, premise)
	sb.WriteString(`流程：
1. story_planner：给出系列的高层故事线与主要情节点
2. world_builder：给出需要的关键地点与世界观元素
3. outline_creator：生成带标题和需求说明的详细大纲，这是一系列既可独立阅读又各不相同的故事
4. 每个故事要有清晰的开端、发展和结局

请用中文写作。各故事相互独立，内容不重复。故事中没有人物对话，只有旁白叙述。

从 Story 1 开始按顺序编号，每个故事至少 3 个场景。
`)
	fmt.Fprintf(&sb, `
请输出全部故事，一个都不要省略，也不要留待以后补充。
每个故事都要有明确的内容，系列总共 %d 个故事。

大纲以 'END OF OUTLINE' 结尾。`, numStories)
	return sb.String()
}
