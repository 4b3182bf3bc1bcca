package plan

import (
	"github.com/claude/coachplan/internal/apperr"
	"github.com/claude/coachplan/internal/models"
)

// transitions lists every legal status change. Edits are not
// transitions: they keep the status they found.
var transitions = map[models.PlanStatus][]models.PlanStatus{
	models.PlanDraft:         {models.PlanPendingReview},
	models.PlanPendingReview: {models.PlanPendingReview, models.PlanActive, models.PlanDraft},
	models.PlanActive:        {models.PlanArchived},
}

// CanTransition reports whether a plan may move from one status to another.
func CanTransition(from, to models.PlanStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Editable reports whether a plan's sets may still be replaced.
func Editable(s models.PlanStatus) bool {
	return s == models.PlanDraft || s == models.PlanPendingReview
}

func illegal(from, to models.PlanStatus, op string) error {
	return apperr.Conflict("illegal plan transition %s -> %s (%s)", from, to, op)
}
