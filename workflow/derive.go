// workflow/derive.go
package workflow

import (
	"time"

	"github.com/Danhnam1/Audit-System-sub002/models"
)

// DerivedStatus is the user-facing status every list, card and filter tab
// shows for an action. It is computed, never persisted.
type DerivedStatus string

const (
	DerivedPending    DerivedStatus = "Pending"
	DerivedInProgress DerivedStatus = "InProgress"
	DerivedCompleted  DerivedStatus = "Completed"
	DerivedOverdue    DerivedStatus = "Overdue"
)

// DeriveActionStatus computes the display status for an action from its
// persisted fields and the supplied clock. The rules apply in order:
//
//  1. terminal status or a closed timestamp -> Completed
//  2. open/approved with a due date before now (date-only) -> Overdue
//  3. any progress -> InProgress
//  4. otherwise -> Pending
//
// Pure: identical inputs always yield identical output.
func DeriveActionStatus(a models.Action, now time.Time) DerivedStatus {
	if a.Status == models.ActionClosed || a.Status == models.ActionArchived || a.ClosedAt != nil {
		return DerivedCompleted
	}
	if isOpenLike(a.Status) && a.DueDate != nil && dateBefore(*a.DueDate, now) {
		return DerivedOverdue
	}
	if a.Progress > 0 {
		return DerivedInProgress
	}
	return DerivedPending
}

func isOpenLike(s models.ActionStatus) bool {
	return s == models.ActionOpen || s == models.ActionApproved
}

// dateBefore compares calendar dates only; time of day is ignored.
func dateBefore(due, now time.Time) bool {
	dy, dm, dd := due.Date()
	ny, nm, nd := now.Date()
	if dy != ny {
		return dy < ny
	}
	if dm != nm {
		return dm < nm
	}
	return dd < nd
}

// DeriveRootCauseStatus maps a root cause to its display status. A Draft
// that carries a retained rejection reason is shown as returned for rework
// rather than a fresh draft.
func DeriveRootCauseStatus(rc models.RootCause) string {
	if rc.Status == models.RootCauseDraft && rc.RejectionReason != "" {
		return "ReturnedForRework"
	}
	return string(rc.Status)
}
