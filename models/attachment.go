// models/attachment.go
package models

import "time"

type AttachmentStatus string

const (
	AttachmentOpen     AttachmentStatus = "Open"
	AttachmentApproved AttachmentStatus = "Approved"
	AttachmentReturned AttachmentStatus = "Returned"
	AttachmentRejected AttachmentStatus = "Rejected"
	AttachmentInactive AttachmentStatus = "Inactive"
)

func (s AttachmentStatus) Valid() bool {
	switch s {
	case AttachmentOpen, AttachmentApproved, AttachmentReturned,
		AttachmentRejected, AttachmentInactive:
		return true
	}
	return false
}

type EntityType string

const (
	EntityFinding EntityType = "finding"
	EntityAction  EntityType = "action"
)

func (t EntityType) Valid() bool {
	return t == EntityFinding || t == EntityAction
}

// Attachment is a piece of evidence uploaded against a Finding or an Action.
// Rejected and Inactive attachments disappear from active views but are
// retained for audit history.
type Attachment struct {
	ID             string           `json:"id,omitempty"`
	EntityType     EntityType       `json:"entityType"`
	EntityID       string           `json:"entityId"`
	FileName       string           `json:"fileName"`
	ContentType    string           `json:"contentType,omitempty"`
	SizeBytes      int64            `json:"sizeBytes,omitempty"`
	Status         AttachmentStatus `json:"status"`
	UploadedBy     string           `json:"uploadedBy"`
	RetentionUntil *time.Time       `json:"retentionUntil,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}
