package brain

import (
	"context"
	"time"

	"github.com/tochemey/goakt/v2/actors"
)

// Actor is the goakt-hosted mailbox wrapping a Brain. It runs a
// wake ticker in place of hologram.Actor's decay/discovery timers, and every
// exported Brain operation is reachable as a Tell carrying an explicit
// Reply channel, the same request/reply contract hologram.Actor uses rather than
// goakt's Ask.
type Actor struct {
	brain *Brain

	cancelTicker context.CancelFunc
}

// NewActor wraps brain for hosting under a goakt.ActorSystem.
func NewActor(brain *Brain) *Actor {
	return &Actor{brain: brain}
}

// PreStart launches the wake ticker at the brain's configured cycle
// interval.
func (a *Actor) PreStart(ctx context.Context) error {
	tickerCtx, cancel := context.WithCancel(context.Background())
	a.cancelTicker = cancel
	go a.runWakeTicker(tickerCtx)
	return nil
}

// PostStop cancels the wake ticker.
func (a *Actor) PostStop(ctx context.Context) error {
	if a.cancelTicker != nil {
		a.cancelTicker()
	}
	return nil
}

func (a *Actor) runWakeTicker(ctx context.Context) {
	interval := a.brain.CycleInterval
	if interval <= 0 {
		interval = time.Duration(DefaultCycleIntervalMS) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.brain.Wake(context.Background())
		}
	}
}

// Receive dispatches incoming mailbox messages. ChatMsg and
// ReflexCandidatesMsg are call-style, each carrying a Reply channel this
// handler sends to exactly once; EnqueueExternalQueryMsg is cast-style.
func (a *Actor) Receive(ctx actors.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *ChatMsg:
		a.brain.EnqueueExternalQuery(ExternalQuery{ID: msg.ID, Input: msg.Input})
		msg.Reply <- chatResult{Accepted: true}
	case *EnqueueExternalQueryMsg:
		a.brain.EnqueueExternalQuery(msg.Query)
	case *ReflexCandidatesMsg:
		msg.Reply <- a.brain.ReflexCandidates()
	case *WakeNowMsg:
		a.brain.Wake(context.Background())
		msg.Reply <- struct{}{}
	default:
		ctx.Unhandled()
	}
}

// Message types. Call-style messages embed a buffered Reply channel
// (capacity 1) so Receive never blocks on a slow or absent receiver.

type chatResult struct {
	Accepted bool
}

// ChatMsg is the brain.chat operation's entry point: an external
// caller's query is enqueued for the next wake cycle, acknowledged
// immediately rather than answered synchronously, since a Thought or Tier 3
// turn can run far longer than a single mailbox round trip.
type ChatMsg struct {
	ID    string
	Input string
	Reply chan chatResult
}

// EnqueueExternalQueryMsg is the cast-style equivalent of ChatMsg, for
// callers that don't need an acknowledgement (e.g. mesh-forwarded queries).
type EnqueueExternalQueryMsg struct {
	Query ExternalQuery
}

// ReflexCandidatesMsg drains and returns the accumulated distiller-proposed
// reflex candidates for an operator approval surface.
type ReflexCandidatesMsg struct {
	Reply chan []ReflexAction
}

// WakeNowMsg forces an out-of-cycle wake, e.g. from an operator "status"
// command or a test harness.
type WakeNowMsg struct {
	Reply chan struct{}
}
