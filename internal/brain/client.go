package brain

import (
	"context"

	"github.com/tochemey/goakt/v2/actors"
	"github.com/tochemey/goakt/v2/goakt"

	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

// Client is the public handle other subsystems (api, mesh, cmd) use to
// talk to the brain actor without importing goakt themselves or knowing
// the message/reply-channel plumbing in actor.go.
type Client struct {
	system goakt.ActorSystem
	pid    actors.PID
}

// NewClient wraps an already-spawned brain actor's PID.
func NewClient(system goakt.ActorSystem, pid actors.PID) *Client {
	return &Client{system: system, pid: pid}
}

// Chat enqueues an external query for the brain's next wake cycle and
// returns once the actor has accepted it.
func (c *Client) Chat(ctx context.Context, id, input string) error {
	msg := &ChatMsg{ID: id, Input: input, Reply: make(chan chatResult, 1)}
	if err := c.system.Tell(ctx, c.pid, msg); err != nil {
		return kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "tell brain actor")
	}
	select {
	case <-msg.Reply:
		return nil
	case <-ctx.Done():
		return kudzuerr.Of(kudzuerr.KindTimeout)
	}
}

// ReflexCandidates drains the accumulated distiller-proposed reflex
// candidates awaiting operator approval.
func (c *Client) ReflexCandidates(ctx context.Context) ([]ReflexAction, error) {
	msg := &ReflexCandidatesMsg{Reply: make(chan []ReflexAction, 1)}
	if err := c.system.Tell(ctx, c.pid, msg); err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "tell brain actor")
	}
	select {
	case candidates := <-msg.Reply:
		return candidates, nil
	case <-ctx.Done():
		return nil, kudzuerr.Of(kudzuerr.KindTimeout)
	}
}

// WakeNow forces an out-of-cycle wake.
func (c *Client) WakeNow(ctx context.Context) error {
	msg := &WakeNowMsg{Reply: make(chan struct{}, 1)}
	if err := c.system.Tell(ctx, c.pid, msg); err != nil {
		return kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "tell brain actor")
	}
	select {
	case <-msg.Reply:
		return nil
	case <-ctx.Done():
		return kudzuerr.Of(kudzuerr.KindTimeout)
	}
}
