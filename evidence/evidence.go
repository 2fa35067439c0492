// evidence/evidence.go
package evidence

import (
	"fmt"

	"github.com/Danhnam1/Audit-System-sub002/models"
)

// Summary counts an entity's evidence by review status. Rejected and
// Inactive attachments are outside every count, including the total.
type Summary struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Approved int `json:"approved"`
	Returned int `json:"returned"`
}

func isActive(a models.Attachment) bool {
	return a.Status != models.AttachmentRejected && a.Status != models.AttachmentInactive
}

// ActiveFor returns the attachments for one owning entity, excluding
// Rejected and Inactive ones. The rejected history stays in the store; it
// just never reaches an active view.
func ActiveFor(attachments []models.Attachment, entityType models.EntityType, entityID string) []models.Attachment {
	out := make([]models.Attachment, 0, len(attachments))
	for _, a := range attachments {
		if a.EntityType != entityType || a.EntityID != entityID {
			continue
		}
		if !isActive(a) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Summarize tallies the active attachments of one owning entity.
func Summarize(attachments []models.Attachment, entityType models.EntityType, entityID string) Summary {
	var s Summary
	for _, a := range ActiveFor(attachments, entityType, entityID) {
		s.Total++
		switch a.Status {
		case models.AttachmentOpen:
			s.Open++
		case models.AttachmentApproved:
			s.Approved++
		case models.AttachmentReturned:
			s.Returned++
		}
	}
	return s
}

// ApprovalWarning returns a non-empty warning when not every active
// attachment has been approved. Attachment review and action review are
// decoupled, so this never blocks a second-tier approval; the reviewer just
// gets told.
func ApprovalWarning(s Summary) string {
	if s.Total == 0 || s.Approved >= s.Total {
		return ""
	}
	return fmt.Sprintf("%d of %d attachments are not yet approved", s.Total-s.Approved, s.Total)
}
