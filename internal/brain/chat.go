package brain

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ChatEventKind tags one event in a brain.chat stream.
type ChatEventKind string

const (
	EventThinking ChatEventKind = "thinking"
	EventChunk    ChatEventKind = "chunk"
	EventToolUse  ChatEventKind = "tool_use"
	EventDone     ChatEventKind = "done"
	EventError    ChatEventKind = "error"
)

// ChatEvent is one event of the brain.chat streaming contract consumed by
// any transport layer: {thinking, chunk, tool_use, done} plus at most one
// terminal error. AuthRequired belongs to the transport, never emitted here.
type ChatEvent struct {
	Kind      ChatEventKind
	Tier      int
	Status    string
	Text      string
	Tools     []string
	ToolCalls []string
	Cost      float64
	Err       error
}

// Chat runs one ad hoc reasoning pass against message, outside the regular
// wake cycle, streaming events on the returned channel. The channel is
// closed once a done or error event has been sent. The channel buffers 8
// events; a caller that stops reading early should cancel ctx, since every
// send also gives up on ctx.Done, or the goroutine blocks once the buffer
// is full.
func (b *Brain) Chat(ctx context.Context, message string) <-chan ChatEvent {
	events := make(chan ChatEvent, 8)
	go b.runChat(ctx, message, events)
	return events
}

func (b *Brain) runChat(ctx context.Context, message string, events chan<- ChatEvent) {
	defer close(events)
	send := func(e ChatEvent) bool {
		select {
		case events <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}

	b.setStatus(StatusReasoning)
	defer b.setStatus(StatusSleeping)

	if !send(ChatEvent{Kind: EventThinking, Tier: 1, Status: "reflex check"}) {
		return
	}
	pass, _ := DispatchReflex(ctx, b.deps.ReflexRules, nil, b.deps.Actuator)
	if !pass {
		send(ChatEvent{Kind: EventDone, Tier: 1, Cost: b.Budget.SpentUSD()})
		return
	}

	if !send(ChatEvent{Kind: EventThinking, Tier: 2, Status: "reasoning"}) {
		return
	}
	b.mu.Lock()
	b.thoughtSeq++
	seq := b.thoughtSeq
	b.mu.Unlock()

	thought := NewThought(fmt.Sprintf("%s-chat-%d", b.HologramID, seq), message)
	result := thought.Run(ctx, b.silos(), b.WorkingMemory.Prime(5))
	b.WorkingMemory.AddChain(result.Chain)

	if result.Confidence > tier2ActThreshold {
		send(ChatEvent{Kind: EventChunk, Text: summarizeChain(result.Chain)})
		send(ChatEvent{Kind: EventDone, Tier: 2, Cost: b.Budget.SpentUSD()})
		return
	}

	b.chatTier3(ctx, message, result.Chain, send)
}

// chatTier3 mirrors runTier3's model dispatch but streams tool_use and
// chunk events instead of applying distillation silently in the background.
// No model wired, or the monthly budget already spent, is not a protocol
// error: it falls back to the Tier 2 chain's best guess, same as a quiet
// Wake cycle would.
func (b *Brain) chatTier3(ctx context.Context, message string, tier2Chain Chain, send func(ChatEvent) bool) {
	if b.deps.ExternalModel == nil || !b.Budget.WithinBudget(b.Config.MonthlyBudgetLimitUSD) {
		send(ChatEvent{Kind: EventChunk, Text: summarizeChain(tier2Chain)})
		send(ChatEvent{Kind: EventDone, Tier: 2, Cost: b.Budget.SpentUSD()})
		return
	}

	send(ChatEvent{Kind: EventThinking, Tier: 3, Status: "external model"})

	ctx, cancel := context.WithTimeout(ctx, tier3Timeout)
	defer cancel()

	systemPrompt := "You are the sovereign reasoning core of a kudzu node. Use tools when a concrete action is warranted."
	result, err := b.deps.ExternalModel.Converse(ctx, systemPrompt, message, b.deps.Tools, b.deps.ToolExecutor, ModelOptions{
		Model:    b.Config.Model,
		MaxTurns: b.Config.MaxTurns,
		Timeout:  tier3Timeout,
	})
	if err != nil {
		b.logger.Warn("tier 3 chat conversation failed", zap.Error(err))
		send(ChatEvent{Kind: EventError, Err: err})
		return
	}
	b.Budget.Record(b.Config.Model, result.Usage)

	if len(result.ToolCalls) > 0 {
		send(ChatEvent{Kind: EventToolUse, Tools: result.ToolCalls})
	}
	send(ChatEvent{Kind: EventChunk, Text: result.Text})

	domain := b.distillDomain()
	distilled, err := Distill(ctx, result.Text, b.deps.Registry, b.deps.Storer, domain, b.silos(), b.deps.AvailableActions)
	if err != nil {
		b.logger.Warn("distillation failed", zap.Error(err))
	} else {
		b.mu.Lock()
		for _, q := range distilled.KnowledgeGaps {
			b.WorkingMemory.AddQuestion(q)
		}
		b.reflexCandidates = append(b.reflexCandidates, distilled.ReflexCandidates...)
		b.mu.Unlock()
	}

	send(ChatEvent{Kind: EventDone, Tier: 3, ToolCalls: result.ToolCalls, Cost: b.Budget.SpentUSD()})
}

// summarizeChain renders a Tier 2 chain as chat text: the strongest
// activation found, or a no-match notice.
func summarizeChain(c Chain) string {
	var best *ChainLink
	for i := range c {
		if c[i].Source == "input" || c[i].Source == "dead_end" {
			continue
		}
		if best == nil || c[i].Similarity > best.Similarity {
			best = &c[i]
		}
	}
	if best == nil {
		return "no strong association found"
	}
	return fmt.Sprintf("%s (via %s, similarity %.2f)", best.Concept, best.Source, best.Similarity)
}
