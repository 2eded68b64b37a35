package hologram

import (
	"context"
	"time"

	"github.com/tochemey/goakt/v2/actors"

	"github.com/meshrepublic/kudzu/internal/trace"
)

const (
	proximityDecayInterval    = 30 * time.Second
	beamletDiscoveryInterval  = 60 * time.Second
)

// BeamletDiscoverer re-queries the capability registry for a capability
// tag, returning the beamlet ids currently offering it. A nil discoverer
// passed to NewActor disables the discovery timer.
type BeamletDiscoverer interface {
	Discover(ctx context.Context, capability string) ([]string, error)
}

// Actor is the goakt-hosted mailbox wrapping a hologram's State. Every exported
// operation on State is reachable here either as a Tell (cast, no reply)
// or a message carrying a reply channel (call, synchronous from the
// sender's perspective) — this package never relies on goakt's Ask, so the
// request/reply contract is explicit Go rather than a framework guess.
type Actor struct {
	state        *State
	discoverer   BeamletDiscoverer
	capabilities []string
	production   bool

	cancelTimers context.CancelFunc
}

// NewActor wraps state for hosting under a goakt.ActorSystem. capabilities
// lists the capability tags the beamlet discovery timer re-queries;
// discoverer may be nil to disable that timer.
func NewActor(state *State, discoverer BeamletDiscoverer, capabilities []string, production bool) *Actor {
	return &Actor{state: state, discoverer: discoverer, capabilities: capabilities, production: production}
}

// PreStart launches the proximity decay and beamlet discovery timers.
func (a *Actor) PreStart(ctx context.Context) error {
	timerCtx, cancel := context.WithCancel(context.Background())
	a.cancelTimers = cancel
	go a.runTimers(timerCtx)
	return nil
}

// PostStop cancels the hologram's background timers.
func (a *Actor) PostStop(ctx context.Context) error {
	if a.cancelTimers != nil {
		a.cancelTimers()
	}
	return nil
}

func (a *Actor) runTimers(ctx context.Context) {
	decay := time.NewTicker(proximityDecayInterval)
	defer decay.Stop()

	var discovery *time.Ticker
	var discoveryC <-chan time.Time
	if a.discoverer != nil {
		discovery = time.NewTicker(beamletDiscoveryInterval)
		defer discovery.Stop()
		discoveryC = discovery.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-decay.C:
			a.state.DecayTick()
		case <-discoveryC:
			for _, capability := range a.capabilities {
				found, err := a.discoverer.Discover(ctx, capability)
				if err == nil {
					a.state.MergeBeamlets(capability, found)
				}
			}
		}
	}
}

// Receive dispatches incoming mailbox messages. Cast-style messages
// (ReceiveTraceMsg, IntroducePeerMsg, RemoveDesireMsg, ClearDesiresMsg) run
// fire-and-forget; call-style messages carry a Reply channel this handler
// sends on exactly once before returning, giving the caller a synchronous
// round trip without depending on goakt's Ask signature.
func (a *Actor) Receive(ctx actors.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *RecordTraceMsg:
		t, err := a.state.RecordTrace(context.Background(), msg.Purpose, msg.Hint, msg.Importance)
		msg.Reply <- recordTraceResult{Trace: t, Err: err}
	case *RecallMsg:
		msg.Reply <- a.state.Recall(msg.Purpose)
	case *IntroducePeerMsg:
		a.state.IntroducePeer(msg.PeerID)
	case *ReceiveTraceMsg:
		_ = a.state.ReceiveTrace(context.Background(), msg.Trace, msg.FromID)
	case *QueryPeerMsg:
		traces, err := a.state.QueryPeer(context.Background(), msg.Dialer, msg.PeerID, msg.Purpose, msg.MaxHops)
		msg.Reply <- queryPeerResult{Traces: traces, Err: err}
	case *AddDesireMsg:
		msg.Reply <- a.state.AddDesire(msg.Desire)
	case *RemoveDesireMsg:
		a.state.RemoveDesire(msg.Desire)
	case *ClearDesiresMsg:
		a.state.ClearDesires()
	case *StimulateMsg:
		result, err := a.state.Stimulate(context.Background(), msg.Stimulus)
		msg.Reply <- stimulateResult{Result: result, Err: err}
	case *SetConstitutionMsg:
		t, err := a.state.SetConstitution(context.Background(), msg.Framework, a.production)
		msg.Reply <- setConstitutionResult{Trace: t, Err: err}
	case *DelegateIOMsg:
		beamletID, err := a.state.DelegateIO(msg.Capability)
		msg.Reply <- delegateIOResult{BeamletID: beamletID, Err: err}
	case *HandleEnvelopeMsg:
		env, err := a.state.HandleEnvelope(context.Background(), msg.Envelope)
		msg.Reply <- handleEnvelopeResult{Envelope: env, Err: err}
	default:
		ctx.Unhandled()
	}
}

// Message types. Every call-style message embeds a buffered Reply channel
// (capacity 1) so Receive never blocks on a slow or absent receiver.

type recordTraceResult struct {
	Trace trace.Trace
	Err   error
}

type RecordTraceMsg struct {
	Purpose    trace.Purpose
	Hint       trace.Hint
	Importance trace.Importance
	Reply      chan recordTraceResult
}

type RecallMsg struct {
	Purpose trace.Purpose
	Reply   chan []trace.Trace
}

type IntroducePeerMsg struct {
	PeerID string
}

type ReceiveTraceMsg struct {
	Trace  trace.Trace
	FromID string
}

type queryPeerResult struct {
	Traces []trace.Trace
	Err    error
}

type QueryPeerMsg struct {
	Dialer  PeerDialer
	PeerID  string
	Purpose trace.Purpose
	MaxHops int
	Reply   chan queryPeerResult
}

type AddDesireMsg struct {
	Desire string
	Reply  chan error
}

type RemoveDesireMsg struct {
	Desire string
}

type ClearDesiresMsg struct{}

type stimulateResult struct {
	Result StimulateResult
	Err    error
}

type StimulateMsg struct {
	Stimulus string
	Reply    chan stimulateResult
}

type setConstitutionResult struct {
	Trace trace.Trace
	Err   error
}

type SetConstitutionMsg struct {
	Framework Constitution
	Reply     chan setConstitutionResult
}

type delegateIOResult struct {
	BeamletID string
	Err       error
}

type DelegateIOMsg struct {
	Capability string
	Reply      chan delegateIOResult
}

type handleEnvelopeResult struct {
	Envelope Envelope
	Err      error
}

type HandleEnvelopeMsg struct {
	Envelope Envelope
	Reply    chan handleEnvelopeResult
}
