// models/action.go
package models

import "time"

type ActionStatus string

const (
	ActionOpen       ActionStatus = "Open"
	ActionInProgress ActionStatus = "InProgress"
	ActionReviewed   ActionStatus = "Reviewed"
	ActionVerified   ActionStatus = "Verified"
	ActionApproved   ActionStatus = "Approved"
	ActionRejected   ActionStatus = "Rejected" // returned to the assignee by either review tier
	ActionClosed     ActionStatus = "Closed"
	ActionArchived   ActionStatus = "Archived"
)

func (s ActionStatus) Valid() bool {
	switch s {
	case ActionOpen, ActionInProgress, ActionReviewed, ActionVerified,
		ActionApproved, ActionRejected, ActionClosed, ActionArchived:
		return true
	}
	return false
}

// ProgressTiers are the only progress values an assignee may save.
var ProgressTiers = []int{25, 50, 75, 100}

// Action is a remediation task created when a root cause is approved and
// work is assigned. Progress moves through fixed tiers and only upward;
// closure requires both review tiers to sign off independently.
type Action struct {
	ID               string       `json:"id,omitempty"`
	FindingID        string       `json:"findingId"`
	RootCauseID      string       `json:"rootCauseId,omitempty"`
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	Status           ActionStatus `json:"status"`
	Progress         int          `json:"progress"`
	DueDate          *time.Time   `json:"dueDate,omitempty"`
	AssigneeID       string       `json:"assigneeId"`
	ReviewerFeedback string       `json:"reviewerFeedback,omitempty"`
	ClosedAt         *time.Time   `json:"closedAt,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}
