// workflow/fsm.go
package workflow

import (
	"fmt"

	"github.com/Danhnam1/Audit-System-sub002/models"
)

// Every state change in the system goes through these tables; nothing
// mutates a status field directly.

type RootCauseEvent string

const (
	RootCauseSubmit  RootCauseEvent = "submit"  // Draft -> Pending, owner, batch-capable
	RootCauseApprove RootCauseEvent = "approve" // Pending -> Approved, reviewer
	RootCauseReject  RootCauseEvent = "reject"  // Pending -> Rejected, reviewer, reason required
	RootCauseReopen  RootCauseEvent = "reopen"  // Rejected -> Draft, owner restarts the cycle
)

type ActionEvent string

const (
	ActionStart        ActionEvent = "start"         // Open -> InProgress, assignee via progress gate
	ActionSubmitReview ActionEvent = "submit_review" // InProgress -> Reviewed, assignee at progress 100
	ActionResume       ActionEvent = "resume"        // Rejected -> InProgress, assignee retries after a return
	ActionVerify       ActionEvent = "verify"        // Reviewed -> Verified, first-tier reviewer
	ActionReturn       ActionEvent = "return"        // Reviewed -> Rejected, first-tier reviewer, feedback required
	ActionFinalApprove ActionEvent = "final_approve" // Verified -> Approved, second-tier reviewer, terminal
	ActionFinalReject  ActionEvent = "final_reject"  // Verified -> Rejected, second-tier reviewer
	ActionClose        ActionEvent = "close"         // parent finding administratively closed
	ActionArchive      ActionEvent = "archive"       // terminal
)

type rcKey struct {
	from  models.RootCauseStatus
	event RootCauseEvent
}

type actKey struct {
	from  models.ActionStatus
	event ActionEvent
}

type rule[S ~string] struct {
	to           S
	roles        []models.Role
	reasonNeeded bool
}

var rootCauseRules = map[rcKey]rule[models.RootCauseStatus]{
	{models.RootCauseDraft, RootCauseSubmit}:    {to: models.RootCausePending, roles: []models.Role{models.RoleDepartmentOwner}},
	{models.RootCausePending, RootCauseApprove}: {to: models.RootCauseApproved, roles: []models.Role{models.RoleAuditor, models.RoleLeadAuditor}},
	{models.RootCausePending, RootCauseReject}:  {to: models.RootCauseRejected, roles: []models.Role{models.RoleAuditor, models.RoleLeadAuditor}, reasonNeeded: true},
	{models.RootCauseRejected, RootCauseReopen}: {to: models.RootCauseDraft, roles: []models.Role{models.RoleDepartmentOwner}},
}

var actionRules = map[actKey]rule[models.ActionStatus]{
	{models.ActionOpen, ActionStart}:               {to: models.ActionInProgress, roles: []models.Role{models.RoleActionOwner}},
	{models.ActionInProgress, ActionSubmitReview}:  {to: models.ActionReviewed, roles: []models.Role{models.RoleActionOwner}},
	{models.ActionRejected, ActionResume}:          {to: models.ActionInProgress, roles: []models.Role{models.RoleActionOwner}},
	{models.ActionReviewed, ActionVerify}:          {to: models.ActionVerified, roles: []models.Role{models.RoleAuditor}},
	{models.ActionReviewed, ActionReturn}:          {to: models.ActionRejected, roles: []models.Role{models.RoleAuditor}, reasonNeeded: true},
	{models.ActionVerified, ActionFinalApprove}:    {to: models.ActionApproved, roles: []models.Role{models.RoleLeadAuditor}},
	{models.ActionVerified, ActionFinalReject}:     {to: models.ActionRejected, roles: []models.Role{models.RoleLeadAuditor}, reasonNeeded: true},
	{models.ActionOpen, ActionClose}:               {to: models.ActionClosed, roles: []models.Role{models.RoleAuditor, models.RoleLeadAuditor}},
	{models.ActionInProgress, ActionClose}:         {to: models.ActionClosed, roles: []models.Role{models.RoleAuditor, models.RoleLeadAuditor}},
	{models.ActionReviewed, ActionClose}:           {to: models.ActionClosed, roles: []models.Role{models.RoleAuditor, models.RoleLeadAuditor}},
	{models.ActionVerified, ActionClose}:           {to: models.ActionClosed, roles: []models.Role{models.RoleAuditor, models.RoleLeadAuditor}},
	{models.ActionRejected, ActionClose}:           {to: models.ActionClosed, roles: []models.Role{models.RoleAuditor, models.RoleLeadAuditor}},
	{models.ActionApproved, ActionArchive}:         {to: models.ActionArchived, roles: []models.Role{models.RoleAuditor, models.RoleLeadAuditor}},
	{models.ActionClosed, ActionArchive}:           {to: models.ActionArchived, roles: []models.Role{models.RoleAuditor, models.RoleLeadAuditor}},
}

func roleAllowed(roles []models.Role, r models.Role) bool {
	for _, allowed := range roles {
		if r == allowed {
			return true
		}
	}
	return false
}

// NextRootCauseStatus validates a root-cause transition and returns the
// target status. Draft can only reach Approved or Rejected by passing
// through Pending; there is no rule that skips it.
func NextRootCauseStatus(from models.RootCauseStatus, event RootCauseEvent, role models.Role, reason string) (models.RootCauseStatus, error) {
	r, ok := rootCauseRules[rcKey{from, event}]
	if !ok {
		return "", fmt.Errorf("%w: root cause %s cannot %s", ErrInvalidTransition, from, event)
	}
	if !roleAllowed(r.roles, role) {
		return "", fmt.Errorf("%w: role %s may not %s a root cause", ErrInvalidTransition, role, event)
	}
	if r.reasonNeeded && reason == "" {
		return "", fmt.Errorf("%w: %s requires a reason", ErrInvalidTransition, event)
	}
	return r.to, nil
}

// CanDeleteRootCause reports whether the owner may delete a root cause.
// Only a Draft is deletable, and only by the department owner.
func CanDeleteRootCause(rc models.RootCause, role models.Role) error {
	if role != models.RoleDepartmentOwner {
		return fmt.Errorf("%w: role %s may not delete a root cause", ErrInvalidTransition, role)
	}
	if rc.Status != models.RootCauseDraft {
		return fmt.Errorf("%w: only a Draft root cause is deletable, status is %s", ErrInvalidTransition, rc.Status)
	}
	return nil
}

// NextActionStatus validates an action transition and returns the target
// status. The two review tiers are independent authorities: a final
// approval on anything but Verified fails here, unconditionally.
func NextActionStatus(from models.ActionStatus, event ActionEvent, role models.Role, feedback string) (models.ActionStatus, error) {
	r, ok := actionRules[actKey{from, event}]
	if !ok {
		return "", fmt.Errorf("%w: action %s cannot %s", ErrInvalidTransition, from, event)
	}
	if !roleAllowed(r.roles, role) {
		return "", fmt.Errorf("%w: role %s may not %s an action", ErrInvalidTransition, role, event)
	}
	if r.reasonNeeded && feedback == "" {
		return "", fmt.Errorf("%w: %s requires feedback", ErrInvalidTransition, event)
	}
	return r.to, nil
}
