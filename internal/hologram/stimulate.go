package hologram

import (
	"context"

	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/trace"
)

// StimulateResult is what stimulate() returns: the cognition backend's
// response text plus the actions that actually executed.
type StimulateResult struct {
	Response        string
	ExecutedActions []Action
}

// Stimulate builds a prompt from state, invokes the cognition backend,
// passes each returned action through the constitutional gate, executes
// the permitted ones, and records the stimulus as a trace.
// CognitionDisabled is returned verbatim when no backend is wired.
func (s *State) Stimulate(ctx context.Context, stimulus string) (StimulateResult, error) {
	s.mu.Lock()
	cognition := s.cognition
	framework := s.Constitution
	s.mu.Unlock()

	if cognition == nil {
		return StimulateResult{}, kudzuerr.Of(kudzuerr.KindCognitionDisabled)
	}

	if _, err := s.RecordTrace(ctx, trace.PurposeStimulus, trace.Hint{"stimulus": stimulus}, trace.ImportanceNormal); err != nil {
		return StimulateResult{}, err
	}

	result, err := cognition.Generate(ctx, s.buildPrompt(stimulus))
	if err != nil {
		return StimulateResult{}, kudzuerr.Wrap(kudzuerr.KindCognitionError, err, "cognition backend failed")
	}

	executed := make([]Action, 0, len(result.Actions))
	for _, action := range result.Actions {
		decision := Permitted(framework, action)
		if _, auditErr := s.RecordTrace(ctx, trace.PurposeActionAudit,
			trace.Hint{"action": action.Type, "verdict": string(decision.Verdict)}, trace.ImportanceNormal); auditErr != nil {
			return StimulateResult{}, auditErr
		}

		switch decision.Verdict {
		case VerdictPermitted:
			executed = append(executed, action)
		case VerdictDenied:
			if _, err := s.RecordTrace(ctx, trace.PurposeActionDenied,
				trace.Hint{"action": action.Type, "reason": decision.Reason, "constitution": string(framework)},
				trace.ImportanceNormal); err != nil {
				return StimulateResult{}, err
			}
		case VerdictRequiresConsensus:
			// Logged via the audit trace above; no consensus protocol
			// exists yet, so the action is simply not executed.
		}
	}

	return StimulateResult{Response: result.Response, ExecutedActions: executed}, nil
}

// buildPrompt assembles the cognition backend prompt from current state:
// desires, recent traces, and the stimulus itself.
func (s *State) buildPrompt(stimulus string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prompt := "stimulus: " + stimulus
	if len(s.Desires) > 0 {
		prompt += "\ndesires:"
		for _, d := range s.Desires {
			prompt += " " + d
		}
	}
	return prompt
}
