package chat

import "context"

// Prompt 表示一次代理调用：以 Speaker 的身份，基于群聊历史续写。
type Prompt struct {
	// Speaker is the role about to talk; its own past messages map to the
	// assistant side, everyone else's to the user side.
	Speaker string
	// System carries the role's instruction template.
	System string
	// History is the full phase log so far, oldest first.
	History []Message
}

// LLMClient 抽象大模型客户端，便于替换/Mock。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Settings 提供给具体实现的基础配置。
type Settings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	TimeoutSec  int
	Seed        *int64
}
