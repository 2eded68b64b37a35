package hologram

import "github.com/meshrepublic/kudzu/internal/kudzuerr"

// Constitution names the policy framework governing a hologram's actions
//. Closed set; never constructed from untrusted input without
// validation against validConstitutions.
type Constitution string

const (
	ConstitutionMeshRepublic Constitution = "mesh_republic"
	ConstitutionCautious     Constitution = "cautious"
	ConstitutionOpen         Constitution = "open"
	ConstitutionKudzuEvolve  Constitution = "kudzu_evolve"
)

var validConstitutions = map[Constitution]struct{}{
	ConstitutionMeshRepublic: {},
	ConstitutionCautious:     {},
	ConstitutionOpen:         {},
	ConstitutionKudzuEvolve:  {},
}

func (c Constitution) Valid() bool {
	_, ok := validConstitutions[c]
	return ok
}

// Action is a structured action produced by a cognition backend, destined
// for the constitutional gate.
type Action struct {
	Type   string
	Params map[string]interface{}
}

// Verdict is the gate's decision.
type Verdict string

const (
	VerdictPermitted         Verdict = "permitted"
	VerdictDenied            Verdict = "denied"
	VerdictRequiresConsensus Verdict = "requires_consensus"
)

// Decision is the gate's full answer: a verdict plus whatever detail it
// carries (a denial reason, a consensus threshold).
type Decision struct {
	Verdict   Verdict
	Reason    string
	Threshold float64
}

// cautiousDenied is the small, closed set of action types the "cautious"
// framework refuses outright. A real policy table is out of scope for the
// core — this is the minimal table needed to deny a file_write attempt.
var cautiousDenied = map[string]struct{}{
	"file_write":   {},
	"shell_exec":   {},
	"network_call": {},
}

// meshRepublicConsensus requires consensus for actions with a threshold of
// external impact the mesh_republic framework treats as collectively owned.
var meshRepublicConsensus = map[string]float64{
	"delete_hologram":    0.6,
	"set_constitution":   0.5,
	"broadcast_to_nodes": 0.5,
}

// Permitted evaluates action against framework's policy, returning one of
// permitted, denied, or requires_consensus. kudzu_evolve and
// open both permit everything a hologram can locally produce; mesh_republic
// gates a short list of high-impact actions behind consensus;
// cautious denies a short list outright.
func Permitted(framework Constitution, action Action) Decision {
	switch framework {
	case ConstitutionCautious:
		if _, denied := cautiousDenied[action.Type]; denied {
			return Decision{Verdict: VerdictDenied, Reason: "action type " + action.Type + " is denied under the cautious constitution"}
		}
		return Decision{Verdict: VerdictPermitted}
	case ConstitutionMeshRepublic:
		if threshold, needsConsensus := meshRepublicConsensus[action.Type]; needsConsensus {
			return Decision{Verdict: VerdictRequiresConsensus, Threshold: threshold}
		}
		return Decision{Verdict: VerdictPermitted}
	case ConstitutionOpen, ConstitutionKudzuEvolve:
		return Decision{Verdict: VerdictPermitted}
	default:
		return Decision{Verdict: VerdictDenied, Reason: "unrecognized constitution framework"}
	}
}

// ValidateForProduction rejects the open constitution when production is
// true.
func ValidateForProduction(framework Constitution, production bool) error {
	if !framework.Valid() {
		return kudzuerr.New(kudzuerr.KindInvalidInput, "unrecognized constitution %q", string(framework))
	}
	if production && framework == ConstitutionOpen {
		return kudzuerr.Of(kudzuerr.KindOpenBlockedInProd)
	}
	return nil
}
