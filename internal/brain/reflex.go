package brain

import "context"

// AnomalyKind is the closed set of pre-check findings the wake cycle can
// hand to Tier 1.
type AnomalyKind string

const (
	AnomalyStaleConsolidation AnomalyKind = "stale_consolidation"
	AnomalyNoHolograms        AnomalyKind = "no_holograms"
	AnomalyStorageUnreachable AnomalyKind = "storage_unreachable"
)

// Anomaly is one non-nominal pre-check finding.
type Anomaly struct {
	Kind   AnomalyKind
	Detail string
}

// ReflexActionKind distinguishes Tier 1's two action shapes.
type ReflexActionKind string

const (
	ReflexAct      ReflexActionKind = "act"
	ReflexEscalate ReflexActionKind = "escalate"
)

// ReflexAction is what a matched rule executes.
type ReflexAction struct {
	Kind    ReflexActionKind
	Name    string
	Payload map[string]interface{}
}

// ReflexRule is one (matcher, action) pair in the Tier 1 table.
type ReflexRule struct {
	Name   string
	Match  func(Anomaly) bool
	Action ReflexAction
}

// DefaultReflexRules is the small built-in rule table: enough to make
// Tier 1 a real first line of defense for the two anomaly kinds the
// pre-check can self-remediate, without inventing a general policy
// language.
func DefaultReflexRules() []ReflexRule {
	return []ReflexRule{
		{
			Name:  "kick_stale_consolidation",
			Match: func(a Anomaly) bool { return a.Kind == AnomalyStaleConsolidation },
			Action: ReflexAction{
				Kind: ReflexAct,
				Name: "trigger_light_consolidation",
			},
		},
		{
			Name:  "alert_storage_unreachable",
			Match: func(a Anomaly) bool { return a.Kind == AnomalyStorageUnreachable },
			Action: ReflexAction{
				Kind: ReflexEscalate,
				Name: "storage_unreachable",
			},
		},
	}
}

// Actuator carries out a Tier 1 action outside the brain task: "act"
// performs a remediation (e.g. triggering a consolidation cycle), "escalate"
// raises an operator-visible alert. Supplied by the node wiring the brain
// to its other singletons.
type Actuator interface {
	Act(ctx context.Context, action ReflexAction) error
	Escalate(ctx context.Context, action ReflexAction) error
}

// DispatchReflex runs Tier 1 against anomalies: every rule whose matcher
// fires has its action executed. pass is true only if nothing matched.
func DispatchReflex(ctx context.Context, rules []ReflexRule, anomalies []Anomaly, actuator Actuator) (pass bool, executed []ReflexAction) {
	pass = true
	for _, anomaly := range anomalies {
		for _, rule := range rules {
			if !rule.Match(anomaly) {
				continue
			}
			pass = false
			executed = append(executed, rule.Action)
			if actuator == nil {
				continue
			}
			switch rule.Action.Kind {
			case ReflexAct:
				_ = actuator.Act(ctx, rule.Action)
			case ReflexEscalate:
				_ = actuator.Escalate(ctx, rule.Action)
			}
		}
	}
	return pass, executed
}
