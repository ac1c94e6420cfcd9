package chat

import (
	"context"
	"strings"
)

// ScriptedLLM 一个简单的占位实现，便于本地调试和测试，不调用外部模型。
// 每个角色名对应一个回复队列，取完后落到 Default。
type ScriptedLLM struct {
	Replies map[string][]string
	Default string
}

func (m *ScriptedLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	if q := m.Replies[prompt.Speaker]; len(q) > 0 {
		reply := q[0]
		m.Replies[prompt.Speaker] = q[1:]
		return reply, nil
	}
	if m.Default != "" {
		return m.Default, nil
	}
	// 拼一个可辨认的占位回复。
	var sb strings.Builder
	sb.WriteString(prompt.Speaker)
	sb.WriteString(" 占位输出：\n")
	if len(prompt.History) > 0 {
		sb.WriteString(prompt.History[len(prompt.History)-1].Content)
	}
	return sb.String(), nil
}
