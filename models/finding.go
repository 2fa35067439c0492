// models/finding.go
package models

import "time"

type FindingStatus string

const (
	FindingOpen     FindingStatus = "Open"
	FindingReceived FindingStatus = "Received"
	FindingClosed   FindingStatus = "Closed"
	FindingArchived FindingStatus = "Archived"
)

func (s FindingStatus) Valid() bool {
	switch s {
	case FindingOpen, FindingReceived, FindingClosed, FindingArchived:
		return true
	}
	return false
}

type Severity string

const (
	SeverityMinor    Severity = "Minor"
	SeverityMedium   Severity = "Medium"
	SeverityMajor    Severity = "Major"
	SeverityCritical Severity = "Critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityMedium, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// Finding is a recorded non-conformance raised by an auditor from a
// checklist item. Findings are never deleted, only archived.
type Finding struct {
	ID           string        `json:"id,omitempty"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Severity     Severity      `json:"severity"`
	DepartmentID string        `json:"departmentId"`
	Status       FindingStatus `json:"status"`
	Deadline     *time.Time    `json:"deadline,omitempty"`
	CreatedBy    string        `json:"createdBy"`
	WitnessID    string        `json:"witnessId,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
