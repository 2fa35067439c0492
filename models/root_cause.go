// models/root_cause.go
package models

import "time"

type RootCauseStatus string

const (
	RootCauseDraft    RootCauseStatus = "Draft"
	RootCausePending  RootCauseStatus = "Pending"
	RootCauseApproved RootCauseStatus = "Approved"
	RootCauseRejected RootCauseStatus = "Rejected"
)

func (s RootCauseStatus) Valid() bool {
	switch s {
	case RootCauseDraft, RootCausePending, RootCauseApproved, RootCauseRejected:
		return true
	}
	return false
}

// RootCause is an analyzed underlying reason for a Finding. The department
// owner drafts it; a Draft is freely editable and deletable, but once
// submitted (Pending) it is immutable until the reviewer decides. A rejected
// root cause re-enters Draft with the prior rejection reason retained so the
// owner can see why it came back.
type RootCause struct {
	ID              string          `json:"id,omitempty"`
	FindingID       string          `json:"findingId"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Category        string          `json:"category,omitempty"`
	Status          RootCauseStatus `json:"status"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	ReviewerID      string          `json:"reviewerId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
