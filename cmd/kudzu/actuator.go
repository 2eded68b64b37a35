package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/meshrepublic/kudzu/internal/brain"
	"github.com/meshrepublic/kudzu/internal/consolidation"
)

// nodeActuator carries out Tier 1's two built-in reflex actions: kicking an
// out-of-schedule light consolidation cycle, and logging an operator-visible
// alert for anything the node can't self-remediate.
type nodeActuator struct {
	consolidation *consolidation.Daemon
	logger        *zap.Logger
}

func (a *nodeActuator) Act(ctx context.Context, action brain.ReflexAction) error {
	if action.Name == "trigger_light_consolidation" {
		a.consolidation.LightCycle(ctx)
	}
	return nil
}

func (a *nodeActuator) Escalate(ctx context.Context, action brain.ReflexAction) error {
	a.logger.Warn("reflex escalation", zap.String("name", action.Name), zap.Any("payload", action.Payload))
	return nil
}
