package chat

import (
	"context"
	"crypto/sha256"
	"fmt"
)

// CachedLLM memoizes replies for identical prompts within one run. The
// pipeline is strictly sequential, so a plain map is enough.
type CachedLLM struct {
	inner   LLMClient
	replies map[string]string
}

func NewCachedLLM(inner LLMClient) *CachedLLM {
	return &CachedLLM{inner: inner, replies: make(map[string]string)}
}

func (c *CachedLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	key := promptKey(prompt)
	if reply, ok := c.replies[key]; ok {
		return reply, nil
	}
	reply, err := c.inner.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	c.replies[key] = reply
	return reply, nil
}

func promptKey(prompt Prompt) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", prompt.Speaker, prompt.System)
	for _, m := range prompt.History {
		fmt.Fprintf(h, "%s\x00%s\x00", m.Sender, m.Content)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
