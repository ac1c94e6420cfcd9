package chat

import (
	"fmt"
	"strings"
)

// Message 是会话日志中的一条记录：发送角色 + 原始文本。
// 追加后不再修改。
type Message struct {
	Sender  string
	Content string
}

// Store is the append-only message log shared by one conversation phase.
// Every phase gets a fresh Store; the log is the only state the phase
// exposes to extraction.
type Store struct {
	msgs []Message
}

func NewStore() *Store {
	return &Store{}
}

// Append records a message as-is. Empty content still consumes a slot so
// the ordinal positions stay faithful to the turn order.
func (s *Store) Append(sender, content string) {
	s.msgs = append(s.msgs, Message{Sender: sender, Content: content})
}

// Messages returns a copy of the log.
func (s *Store) Messages() []Message {
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func (s *Store) Len() int {
	return len(s.msgs)
}

// Last returns the most recent message, if any.
func (s *Store) Last() (Message, bool) {
	if len(s.msgs) == 0 {
		return Message{}, false
	}
	return s.msgs[len(s.msgs)-1], true
}

// Transcript renders the log for prompts and diagnostics.
func (s *Store) Transcript() string {
	var sb strings.Builder
	for _, m := range s.msgs {
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", m.Sender, m.Content)
	}
	return sb.String()
}
