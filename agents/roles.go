// agents 定义故事生成系统里的所有角色：身份、能力与指令模板。
// 角色在构造时嵌入共享上下文（前提、大纲），构造后不可变。
package agents

import (
	"fmt"
	"strings"

	"auto_story_script_generator/chat"
)

// Capability classifies what a role is for.
type Capability string

const (
	CapPlanner        Capability = "planner"
	CapWorldBuilder   Capability = "world-builder"
	CapOutlineCreator Capability = "outline-creator"
	CapMemoryKeeper   Capability = "memory-keeper"
	CapDrafter        Capability = "drafter"
	CapReviewer       Capability = "reviewer"
	CapFinalizer      Capability = "finalizer"
	CapHumanProxy     Capability = "human-proxy"
)

// Role names, fixed across the whole pipeline.
const (
	NameUserProxy      = "user_proxy"
	NameStoryPlanner   = "story_planner"
	NameWorldBuilder   = "world_builder"
	NameOutlineCreator = "outline_creator"
	NameMemoryKeeper   = "memory_keeper"
	NameWriter         = "writer"
	NameEditor         = "editor"
	NameWriterFinal    = "writer_final"
)

// Role 是一个不可变的角色定义。
type Role struct {
	Name         string
	Capability   Capability
	Instructions string
}

// Participant adapts the role for the chat scheduler.
func (r Role) Participant() chat.Participant {
	return chat.Participant{
		Name:   r.Name,
		System: r.Instructions,
		Human:  r.Capability == CapHumanProxy,
	}
}

// Set indexes roles by name.
type Set map[string]Role

// Participants resolves names into scheduler seats, preserving order.
func (s Set) Participants(names ...string) ([]chat.Participant, error) {
	out := make([]chat.Participant, 0, len(names))
	for _, name := range names {
		role, ok := s[name]
		if !ok {
			return nil, fmt.Errorf("agents: unknown role %q", name)
		}
		out = append(out, role.Participant())
	}
	return out, nil
}

// BuildParams carries the shared context embedded into the instruction
// templates. OutlineContext is empty for the outline phase and filled for
// the story phase; the factory is called once per phase instead of
// mutating roles in place.
type BuildParams struct {
	Premise        string
	NumStories     int
	OutlineContext string
}

// 所有角色共用的写作纪律。
const commonRules = `请用中文写作。
各个故事之间必须相互独立，内容绝对不能重复。
故事中没有人物对话，只有旁白叙述。`

// Build constructs the full role set for one phase.
func Build(p BuildParams) Set {
	roles := []Role{
		{Name: NameUserProxy, Capability: CapHumanProxy},
		memoryKeeper(p),
		storyPlanner(),
		outlineCreator(p),
		worldBuilder(p),
		writer(p),
		editor(p),
		finalWriter(p),
	}
	set := make(Set, len(roles))
	for _, r := range roles {
		set[r.Name] = r
	}
	return set
}

func memoryKeeper(p BuildParams) Role {
	var sb strings.Builder
	sb.WriteString(`你是这个故事系列的记忆管理者，负责保持系列的丰富性、每个故事的独立性、以及内容不重复。
你的职责：
1. 跟踪并总结每个故事的关键事件
2. 保证各故事彼此独立、内容不重复
3. 维护世界观的一致性
4. 标记任何连续性问题
`)
	sb.WriteString(commonRules)
	sb.WriteString("\n\n故事总览：\n")
	sb.WriteString(p.OutlineContext)
	sb.WriteString(`

输出格式：
- 更新以 'MEMORY UPDATE:' 开头
- 关键事件用 'EVENT:' 列出
- 已完成的故事用 'STORY:' 列出
- 世界观细节用 'WORLD:' 列出
- 连续性问题用 'CONTINUITY ALERT:' 标记`)
	return Role{Name: NameMemoryKeeper, Capability: CapMemoryKeeper, Instructions: sb.String()}
}

func storyPlanner() Role {
	return Role{
		Name:       NameStoryPlanner,
		Capability: CapPlanner,
		Instructions: `你是一名专注于整体叙事结构的故事架构师。
给定一个故事前提，你只负责搭建高层故事线：
1. 找出推动故事的主要情节点
2. 规划每个故事线的独立性与差异
` + commonRules + `

输出必须严格遵循：
STORY_ARC:
- Major Plot Points:
[列出推动故事的每个主要事件]

- Story Beats:
[按顺序列出关键的情绪与叙事节点]

内容必须具体、详尽、完整。`,
	}
}

func outlineCreator(p BuildParams) Role {
	var sb strings.Builder
	fmt.Fprintf(&sb, "请生成一份 %d 个故事的详细大纲。\n\n", p.NumStories)
	sb.WriteString(`每个故事必须严格使用以下格式，不得有任何偏差：

Story 1: [标题]
Title: [与上面相同的标题]
Key Events:
- [事件 1]
- [事件 2]
- [事件 3]
Setting: [具体地点与氛围]
Tone: [具体的情绪与叙事基调]

`)
	fmt.Fprintf(&sb, "[对全部 %d 个故事重复这个格式]\n\n", p.NumStories)
	sb.WriteString(`要求：
1. 每个故事的每个字段都必须出现
2. 每个故事至少包含 3 个具体的 Key Events
3. 所有故事都要详细、完整且各不相同
4. 格式必须完全一致，包括标题与项目符号
`)
	sb.WriteString(commonRules)
	sb.WriteString("\n\n初始前提：\n")
	sb.WriteString(p.Premise)
	sb.WriteString("\n\n以 'OUTLINE:' 开头，以 'END OF OUTLINE' 结尾。")
	return Role{Name: NameOutlineCreator, Capability: CapOutlineCreator, Instructions: sb.String()}
}

func worldBuilder(p BuildParams) Role {
	var sb strings.Builder
	sb.WriteString(`你是一名世界观构建专家，负责创建丰富、一致的故事环境。
基于给定的故事线，建立整个系列需要的全部地点与设定。

故事总览：
`)
	sb.WriteString(p.OutlineContext)
	sb.WriteString(`

你的职责：
1. 梳理系列故事线，找出每一个需要的地点与设定
2. 为每个设定写出详细描述：布局外观、氛围环境、重要物件、感官细节
3. 标出重复出现的地点
4. 注明设定随时间的变化
`)
	sb.WriteString(commonRules)
	sb.WriteString(`

输出格式：
WORLD_ELEMENTS:

[地点名称]:
- Physical Description: [详细描述]
- Atmosphere: [情绪、时间、光线等]
- Key Features: [重要物件、布局元素]
- Sensory Details: [身临其境的感官体验]

[RECURRING ELEMENTS]:
- 列出会多次出现的设定
- 注明设定随时间的变化`)
	return Role{Name: NameWorldBuilder, Capability: CapWorldBuilder, Instructions: sb.String()}
}

func writerInstructions(p BuildParams) string {
	var sb strings.Builder
	sb.WriteString(`你是一名把场景写活的创意写作者。

系列背景：
`)
	sb.WriteString(p.OutlineContext)
	sb.WriteString(`

你的重点：
1. 严格按照大纲的情节点写作
2. 保持系列的丰富性、故事独立性与内容不重复
3. 融入世界观细节，写出有画面感的叙述
4. 务必写完整个场景，不要写一半
5. 每个故事不少于 1000 字，这是硬性要求；不够就继续写
6. 给场景一个完整的结尾，多写细节，描写环境
`)
	sb.WriteString(commonRules)
	sb.WriteString(`

始终参考大纲和此前的内容。
正文开始前，先给出以 'PLAN:' 开头的写作计划和以 'SETTING:' 开头的场景设定。
草稿以 'SCENE:' 标记，最终稿以 'SCENE FINAL:' 标记。`)
	return sb.String()
}

func writer(p BuildParams) Role {
	return Role{Name: NameWriter, Capability: CapDrafter, Instructions: writerInstructions(p)}
}

// finalWriter 与 writer 指令基本相同，额外负责定稿确认。
func finalWriter(p BuildParams) Role {
	inst := writerInstructions(p) + `
定稿之后另起一行输出 '**Confirmation:**'，说明本篇已 successfully 完成。`
	return Role{Name: NameWriterFinal, Capability: CapFinalizer, Instructions: inst}
}

func editor(p BuildParams) Role {
	var sb strings.Builder
	sb.WriteString(`你是一名确保质量与一致性的资深编辑。

系列背景：
`)
	sb.WriteString(p.OutlineContext)
	sb.WriteString(`

你的重点：
1. 核对内容与大纲的一致性
2. 检查系列的丰富性、故事独立性与内容不重复
3. 维护世界观规则，提升文字质量
4. 返回完整的修改稿
5. 每个故事不得少于 800 字，偏短就退回写手扩写
`)
	sb.WriteString(commonRules)
	sb.WriteString(`

输出格式：
1. 评语以 'FEEDBACK:' 开头
2. 修改建议用 'SUGGEST:'
3. 返回完整修改稿用 'EDITED_SCENE:'

反馈中要引用大纲里的具体元素。`)
	return Role{Name: NameEditor, Capability: CapReviewer, Instructions: sb.String()}
}
