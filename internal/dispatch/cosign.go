package dispatch

import "github.com/anquanyun/safety-approval/internal/models"

// CosignEvaluation is the tracker's verdict on one co-sign action. The
// engine is stateless between calls: Candidates must be persisted by the
// caller and fed back in on the next dispatch, which is how AND-mode state
// survives across independent requests.
type CosignEvaluation struct {
	Authorized    bool
	AlreadyActed  bool
	RoundComplete bool
	Candidates    []models.CandidateHandler
}

// EvaluateCosign turns "N resolved approvers, M of whom have acted" into a
// step-complete decision and enforces one action per person per round.
//
// An absent prior list means this is the first action on the step: it is
// seeded from the resolved approvers with nobody having acted. The prior
// list is never mutated.
func EvaluateCosign(resolved HandlerSet, prior []models.CandidateHandler, operatorID string) CosignEvaluation {
	candidates := make([]models.CandidateHandler, 0, len(prior))
	if len(prior) == 0 {
		for i, id := range resolved.UserIDs {
			name := ""
			if i < len(resolved.UserNames) {
				name = resolved.UserNames[i]
			}
			candidates = append(candidates, models.CandidateHandler{UserID: id, UserName: name})
		}
	} else {
		for _, c := range prior {
			candidates = append(candidates, c)
		}
	}

	eval := CosignEvaluation{Candidates: candidates}

	for i, c := range candidates {
		if c.UserID != operatorID {
			continue
		}
		eval.Authorized = true
		if c.HasOperated {
			// Must not mutate anything on a duplicate action.
			eval.AlreadyActed = true
			return eval
		}
		candidates[i].HasOperated = true
		break
	}

	if !eval.Authorized {
		return eval
	}

	eval.RoundComplete = true
	for _, c := range candidates {
		if !c.HasOperated {
			eval.RoundComplete = false
			break
		}
	}
	return eval
}

// SeedCandidates builds a fresh candidate list for a step being entered.
func SeedCandidates(resolved HandlerSet) []models.CandidateHandler {
	candidates := make([]models.CandidateHandler, 0, len(resolved.UserIDs))
	for i, id := range resolved.UserIDs {
		name := ""
		if i < len(resolved.UserNames) {
			name = resolved.UserNames[i]
		}
		candidates = append(candidates, models.CandidateHandler{UserID: id, UserName: name})
	}
	return candidates
}
