// workflow/progress.go
package workflow

import (
	"fmt"

	"github.com/Danhnam1/Audit-System-sub002/models"
)

// Transition is the outcome of a successful progress gate check: the
// progress value to persist and the status it implies. The caller persists
// progress first, then status, as two sequential remote calls — progress is
// the durable fact, the status change is best-effort and retryable.
type Transition struct {
	Progress     int
	TargetStatus models.ActionStatus
}

// ApplyProgress validates a progress save against the gate rules:
// the requested percent must be one of the fixed tiers, strictly greater
// than the action's current progress, and accompanied by at least one new
// non-rejected attachment.
func ApplyProgress(a models.Action, requested, newEvidenceCount int) (Transition, error) {
	if !validTier(requested) {
		return Transition{}, fmt.Errorf("%w: progress %d is not a valid tier", ErrInvalidTransition, requested)
	}
	if requested <= a.Progress {
		return Transition{}, fmt.Errorf("%w: requested %d, current %d", ErrProgressNotIncreasing, requested, a.Progress)
	}
	if newEvidenceCount == 0 {
		return Transition{}, fmt.Errorf("%w: a progress save needs new evidence", ErrEvidenceRequired)
	}

	target := models.ActionInProgress
	if requested == 100 {
		target = models.ActionReviewed
	}
	return Transition{Progress: requested, TargetStatus: target}, nil
}

func validTier(p int) bool {
	for _, t := range models.ProgressTiers {
		if p == t {
			return true
		}
	}
	return false
}
