package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Participant 是一次群聊中的一个席位。Human 席位不调用模型，
// 只负责判断是否继续。
type Participant struct {
	Name   string
	System string
	Human  bool
}

const (
	// DefaultTerminate 与上游代理约定的终止口令。
	DefaultTerminate = "TERMINATE"

	continueMessage = "请继续。"
)

// Scheduler drives a bounded-round, strict round-robin conversation over a
// fixed participant order. Every produced message is appended to the store
// as-is; empty or malformed output still consumes the turn. There are no
// retries here: salvage is the extractor's job.
type Scheduler struct {
	llm          LLMClient
	store        *Store
	participants []Participant
	maxRounds    int
	logger       *log.Logger

	// TerminateKeyword stops the chat when the human participant sees it in
	// the latest message. Defaults to DefaultTerminate.
	TerminateKeyword string
}

func NewScheduler(llm LLMClient, store *Store, participants []Participant, maxRounds int, logger *log.Logger) (*Scheduler, error) {
	if llm == nil {
		return nil, errors.New("chat: llm client is required")
	}
	if store == nil {
		return nil, errors.New("chat: message store is required")
	}
	if len(participants) == 0 {
		return nil, errors.New("chat: at least one participant is required")
	}
	if maxRounds < 1 {
		return nil, fmt.Errorf("chat: max rounds must be >= 1, got %d", maxRounds)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		llm:              llm,
		store:            store,
		participants:     participants,
		maxRounds:        maxRounds,
		logger:           logger,
		TerminateKeyword: DefaultTerminate,
	}, nil
}

// Run appends the initial message and cycles through the participants until
// the round limit is reached or the human participant sees the terminate
// keyword. A transport failure aborts the whole phase.
func (s *Scheduler) Run(ctx context.Context, initial Message) error {
	s.store.Append(initial.Sender, initial.Content)

	for round := 1; round <= s.maxRounds; round++ {
		for _, p := range s.participants {
			if p.Human {
				// 首轮由开场消息代替人类发言；之后每满一轮判断一次去留。
				if round > 1 {
					if s.sawTerminate() {
						s.logger.Printf("[chat] %s terminated the conversation in round %d", p.Name, round)
						return nil
					}
					s.store.Append(p.Name, continueMessage)
				}
				continue
			}

			reply, err := s.llm.Complete(ctx, Prompt{
				Speaker: p.Name,
				System:  p.System,
				History: s.store.Messages(),
			})
			if err != nil {
				return fmt.Errorf("chat: turn for %s in round %d: %w", p.Name, round, err)
			}
			s.store.Append(p.Name, reply)
		}
	}
	s.logger.Printf("[chat] round limit %d reached with %d messages", s.maxRounds, s.store.Len())
	return nil
}

func (s *Scheduler) sawTerminate() bool {
	last, ok := s.store.Last()
	if !ok {
		return false
	}
	return strings.Contains(last.Content, s.TerminateKeyword)
}
