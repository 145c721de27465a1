package exam

import (
	"math"

	"github.com/thomas-x-69/exams-sub001/internal/bank"
)

// PhaseResult is the derived score for a single finalized phase.
// Correct is meaningful for binary phases, TotalPoints/MaxPossiblePoints for
// weighted ones; Percentage is the normalized 0-100 score either way.
type PhaseResult struct {
	Total             int     `json:"total"`
	Correct           int     `json:"correct"`
	TotalPoints       float64 `json:"totalPoints"`
	MaxPossiblePoints float64 `json:"maxPossiblePoints"`
	Percentage        int     `json:"percentage"`
}

// Default-credit policy for weighted answers that cannot be scored properly
// (unresolvable question, out-of-range index, bad weight): credit a mid-range
// 3 against a mid-range ceiling of 5 so one bad record does not zero the
// learner's phase. The 50% floor keeps a learner who did answer from seeing
// a 0% weighted phase after rounding.
const (
	defaultCreditPoints  = 3.0
	defaultCreditCeiling = 5.0
	weightedFloorPercent = 50
)

// applyDefaultCredit is the single source of the degraded-scoring fallback.
func applyDefaultCredit(r *PhaseResult) {
	r.TotalPoints += defaultCreditPoints
	r.MaxPossiblePoints += defaultCreditCeiling
}

// ScorePhase computes a phase percentage from the effective question set for
// (subject, phase) and the learner's raw answers. Pure and deterministic:
// malformed input always degrades to the default-credit policy, never an
// error. Unanswered questions are excluded, not scored as zero.
func ScorePhase(b *bank.Bank, subject string, phase PhaseID, answers map[string]int) PhaseResult {
	questions := b.Resolve(subject, phase.Main, phase.Sub)

	byID := make(map[string]bank.Question, len(questions))
	weighted := false
	for _, q := range questions {
		byID[q.ID] = q
		if q.Weighted() {
			weighted = true
		}
	}

	var result PhaseResult
	for questionID, selected := range answers {
		result.Total++

		q, ok := byID[questionID]
		if !ok {
			// Bank lookup miss. Weighted phases still get credit so the
			// answer is not silently dropped; binary phases simply do not
			// count it toward Correct.
			if weighted {
				applyDefaultCredit(&result)
			}
			continue
		}

		if q.Weighted() {
			if selected < 0 || selected >= len(q.Points) {
				applyDefaultCredit(&result)
				continue
			}
			points := q.Points[selected]
			if math.IsNaN(points) || math.IsInf(points, 0) || points < 0 {
				applyDefaultCredit(&result)
				continue
			}
			result.TotalPoints += points
			result.MaxPossiblePoints += q.MaxPoints()
			continue
		}

		if selected == q.CorrectAnswer {
			result.Correct++
		}
	}

	result.Percentage = phasePercentage(result)
	return result
}

func phasePercentage(r PhaseResult) int {
	if r.MaxPossiblePoints > 0 {
		pct := int(math.Round(100 * r.TotalPoints / r.MaxPossiblePoints))
		if pct == 0 && r.Total > 0 {
			return weightedFloorPercent
		}
		return pct
	}
	if r.Total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(r.Correct) / float64(r.Total)))
}
