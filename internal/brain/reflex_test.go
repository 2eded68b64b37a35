package brain

import (
	"context"
	"testing"
)

type recordingActuator struct {
	acted      []ReflexAction
	escalated  []ReflexAction
}

func (a *recordingActuator) Act(ctx context.Context, action ReflexAction) error {
	a.acted = append(a.acted, action)
	return nil
}

func (a *recordingActuator) Escalate(ctx context.Context, action ReflexAction) error {
	a.escalated = append(a.escalated, action)
	return nil
}

func TestDispatchReflexPassesWhenNothingMatches(t *testing.T) {
	pass, executed := DispatchReflex(context.Background(), DefaultReflexRules(), nil, nil)
	if !pass {
		t.Fatalf("expected pass with no anomalies")
	}
	if len(executed) != 0 {
		t.Fatalf("expected no executed actions, got %v", executed)
	}
}

func TestDispatchReflexRunsMatchedActionsAndReturnsNotPass(t *testing.T) {
	actuator := &recordingActuator{}
	anomalies := []Anomaly{
		{Kind: AnomalyStaleConsolidation},
		{Kind: AnomalyStorageUnreachable},
	}
	pass, executed := DispatchReflex(context.Background(), DefaultReflexRules(), anomalies, actuator)
	if pass {
		t.Fatalf("expected not-pass once a rule matched")
	}
	if len(executed) != 2 {
		t.Fatalf("expected 2 executed actions, got %d", len(executed))
	}
	if len(actuator.acted) != 1 || actuator.acted[0].Name != "trigger_light_consolidation" {
		t.Fatalf("expected the stale-consolidation rule to act, got %v", actuator.acted)
	}
	if len(actuator.escalated) != 1 || actuator.escalated[0].Name != "storage_unreachable" {
		t.Fatalf("expected the storage-unreachable rule to escalate, got %v", actuator.escalated)
	}
}

func TestDispatchReflexUnmatchedAnomalyStillPasses(t *testing.T) {
	anomalies := []Anomaly{{Kind: AnomalyNoHolograms}}
	pass, executed := DispatchReflex(context.Background(), DefaultReflexRules(), anomalies, nil)
	if !pass {
		t.Fatalf("expected pass when no rule matches the given anomaly kind")
	}
	if len(executed) != 0 {
		t.Fatalf("expected no executed actions, got %v", executed)
	}
}
