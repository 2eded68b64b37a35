package brain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meshrepublic/kudzu/internal/hologram"
	"github.com/meshrepublic/kudzu/internal/silo"
)

// Status is the brain's current activity.
type Status string

const (
	StatusSleeping  Status = "sleeping"
	StatusReasoning Status = "reasoning"
	StatusActing    Status = "acting"
)

// DefaultCycleIntervalMS is the default wake period.
const DefaultCycleIntervalMS = 300_000

// tier2ActThreshold is the Thought confidence above which Tier 2 acts
// directly instead of escalating to Tier 3.
const tier2ActThreshold = 0.7

// tier3Timeout bounds an external-model call.
const tier3Timeout = 120 * time.Second

// Config holds the brain's model and budget settings.
type Config struct {
	Model                 string
	APIKey                string
	MaxTurns              int
	MonthlyBudgetLimitUSD float64
}

// ExternalQuery is one entry in the brain's inbound query queue of
// pending external queries (e.g. a brain.chat call), distinct from working
// memory's self-generated pending_questions.
type ExternalQuery struct {
	ID    string
	Input string
}

// Deps bundles every collaborator the brain needs but does not own: the
// other process-wide singletons plus the reasoning backends.
// SilosFn returns the current live expertise silos; it is a function
// rather than a fixed slice because silos are created on demand and the brain must always see the
// latest set.
type Deps struct {
	Registry      *hologram.Registry
	Storer        hologram.Storer
	Consolidation ConsolidationFreshness
	Holograms     HologramCounter
	Storage       StorageProbe
	Unresolved    UnresolvedFinder
	SilosFn       func() []*silo.Silo
	ReflexRules   []ReflexRule
	Actuator      Actuator
	ExternalModel ExternalModel
	Tools         []ToolDefinition
	ToolExecutor  ToolExecutor
	AvailableActions []string
	Logger        *zap.Logger
	Clock         func() time.Time
}

// Brain is the per-node sovereign cognition core, one of
// the three process-wide singletons.
type Brain struct {
	mu sync.Mutex

	HologramID    string
	Desires       []string
	Status        Status
	CycleInterval time.Duration
	CycleCount    int64
	WorkingMemory *WorkingMemory
	Budget        *Budget
	Config        Config

	pendingExternal  []ExternalQuery
	reflexCandidates []ReflexAction

	deps       Deps
	thoughtSeq int64
	logger     *zap.Logger
}

// New constructs a brain for hologramID with cycle_interval_ms defaulting
// to 300000.
func New(hologramID string, cfg Config, deps Deps) *Brain {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.ReflexRules == nil {
		deps.ReflexRules = DefaultReflexRules()
	}
	return &Brain{
		HologramID:    hologramID,
		Status:        StatusSleeping,
		CycleInterval: time.Duration(DefaultCycleIntervalMS) * time.Millisecond,
		WorkingMemory: NewWorkingMemory(),
		Budget:        NewBudget(DefaultPriceSheet(), deps.Clock),
		Config:        cfg,
		deps:          deps,
		logger:        logger.Named("brain"),
	}
}

// EnqueueExternalQuery pushes a query onto the inbound queue the next wake
// cycle drains first.
func (b *Brain) EnqueueExternalQuery(q ExternalQuery) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingExternal = append(b.pendingExternal, q)
}

func (b *Brain) dequeueExternal() (ExternalQuery, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pendingExternal) == 0 {
		return ExternalQuery{}, false
	}
	q := b.pendingExternal[0]
	b.pendingExternal = b.pendingExternal[1:]
	return q, true
}

func (b *Brain) silos() []*silo.Silo {
	if b.deps.SilosFn == nil {
		return nil
	}
	return b.deps.SilosFn()
}

func (b *Brain) domains() []string {
	silos := b.silos()
	out := make([]string, 0, len(silos))
	for _, s := range silos {
		out = append(out, s.Domain)
	}
	return out
}

func (b *Brain) setStatus(s Status) {
	b.mu.Lock()
	b.Status = s
	b.mu.Unlock()
}

// Wake runs exactly one pass of the wake cycle.
func (b *Brain) Wake(ctx context.Context) {
	b.mu.Lock()
	b.CycleCount++
	b.mu.Unlock()
	b.setStatus(StatusReasoning)
	defer b.setStatus(StatusSleeping)

	now := b.deps.Clock()

	if q, ok := b.dequeueExternal(); ok {
		b.reason(ctx, nil, q.Input)
		b.WorkingMemory.Decay(0.05)
		return
	}

	anomalies := PreCheck(ctx, b.deps.Consolidation, b.deps.Holograms, b.deps.Storage, now)

	var input string
	if len(anomalies) == 0 {
		questions := GenerateCuriosityQuestions(b.Desires, b.domains(), b.WorkingMemory, b.deps.Unresolved)
		for _, q := range questions {
			b.WorkingMemory.AddQuestion(q)
		}
		if len(questions) > 0 {
			input = questions[0]
		}
	}

	b.reason(ctx, anomalies, input)
	b.WorkingMemory.Decay(0.05)
}

// reason is the tier dispatch: Tier 1 against anomalies, then
// Tier 2's Thought against input, then Tier 3 if neither resolved it.
func (b *Brain) reason(ctx context.Context, anomalies []Anomaly, input string) {
	pass, _ := DispatchReflex(ctx, b.deps.ReflexRules, anomalies, b.deps.Actuator)
	if !pass {
		return
	}
	if input == "" {
		return
	}

	b.thoughtSeq++
	thought := NewThought(fmt.Sprintf("%s-%d", b.HologramID, b.thoughtSeq), input)
	result := thought.Run(ctx, b.silos(), b.WorkingMemory.Prime(5))
	b.WorkingMemory.AddChain(result.Chain)

	if result.Confidence > tier2ActThreshold {
		b.setStatus(StatusActing)
		return
	}

	b.runTier3(ctx, input)
}

// runTier3 invokes the external model, only when the monthly budget
// allows it, then hands the response to the distiller. Storage-unreachable,
// the one anomaly kind that might argue for an override, is always caught
// earlier by Tier 1's escalate rule, so the budget gate here is unconditional.
func (b *Brain) runTier3(ctx context.Context, input string) {
	if b.deps.ExternalModel == nil {
		return
	}
	if !b.Budget.WithinBudget(b.Config.MonthlyBudgetLimitUSD) {
		b.logger.Info("tier 3 skipped: monthly budget exceeded")
		return
	}

	b.setStatus(StatusActing)
	ctx, cancel := context.WithTimeout(ctx, tier3Timeout)
	defer cancel()

	systemPrompt := "You are the sovereign reasoning core of a kudzu node. Use tools when a concrete action is warranted."
	result, err := b.deps.ExternalModel.Converse(ctx, systemPrompt, input, b.deps.Tools, b.deps.ToolExecutor, ModelOptions{
		Model:    b.Config.Model,
		MaxTurns: b.Config.MaxTurns,
		Timeout:  tier3Timeout,
	})
	if err != nil {
		b.logger.Warn("tier 3 conversation failed", zap.Error(err))
		return
	}
	b.Budget.Record(b.Config.Model, result.Usage)

	domain := b.distillDomain()
	distilled, err := Distill(ctx, result.Text, b.deps.Registry, b.deps.Storer, domain, b.silos(), b.deps.AvailableActions)
	if err != nil {
		b.logger.Warn("distillation failed", zap.Error(err))
		return
	}
	b.mu.Lock()
	for _, q := range distilled.KnowledgeGaps {
		b.WorkingMemory.AddQuestion(q)
	}
	b.reflexCandidates = append(b.reflexCandidates, distilled.ReflexCandidates...)
	b.mu.Unlock()
}

// distillDomain picks the silo domain freshly-distilled triples land in:
// working memory's current focus tag, falling back to "general".
func (b *Brain) distillDomain() string {
	b.mu.Lock()
	ctx := b.WorkingMemory.Context
	b.mu.Unlock()
	ctx = strings.TrimSpace(ctx)
	if ctx == "" {
		return "general"
	}
	return ctx
}

// ReflexCandidates returns the reflex rule proposals accumulated since the
// last call, for an operator-facing approval surface.
func (b *Brain) ReflexCandidates() []ReflexAction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.reflexCandidates
	b.reflexCandidates = nil
	return out
}
