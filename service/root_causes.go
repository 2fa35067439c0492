// service/root_causes.go
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Danhnam1/Audit-System-sub002/events"
	"github.com/Danhnam1/Audit-System-sub002/models"
	"github.com/Danhnam1/Audit-System-sub002/workflow"
)

// checkDuplicateName enforces the case-insensitive name uniqueness of root
// causes under one finding. excludeID skips the entity being renamed.
func (t *Tracker) checkDuplicateName(ctx context.Context, findingID, name, excludeID string) error {
	siblings, err := t.store.FetchRootCausesByFinding(ctx, findingID)
	if err != nil {
		return err
	}
	for _, sib := range siblings {
		if sib.ID == excludeID {
			continue
		}
		if strings.EqualFold(sib.Name, name) {
			return fmt.Errorf("%w: root cause %q already exists under this finding", workflow.ErrDuplicateName, sib.Name)
		}
	}
	return nil
}

// CreateRootCause drafts a new root cause under a finding. Only the
// department owner drafts; the name must be unique under the finding,
// case-insensitively.
func (t *Tracker) CreateRootCause(ctx context.Context, rc models.RootCause) (models.RootCause, error) {
	if t.actor.Role != models.RoleDepartmentOwner {
		return models.RootCause{}, fmt.Errorf("%w: role %s may not draft a root cause", workflow.ErrInvalidTransition, t.actor.Role)
	}
	if err := t.checkDuplicateName(ctx, rc.FindingID, rc.Name, ""); err != nil {
		return models.RootCause{}, err
	}

	rc.Status = models.RootCauseDraft
	created, err := t.store.CreateRootCause(ctx, rc)
	if err != nil {
		return models.RootCause{}, err
	}
	t.invalidate(events.TopicRootCauses, created.ID, "drafted")
	return created, nil
}

// UpdateDraftRootCause edits a draft. Once Pending, a root cause is
// immutable until reviewed.
func (t *Tracker) UpdateDraftRootCause(ctx context.Context, rc models.RootCause) (models.RootCause, error) {
	if rc.Status != models.RootCauseDraft {
		return models.RootCause{}, fmt.Errorf("%w: only a Draft root cause is editable, status is %s", workflow.ErrInvalidTransition, rc.Status)
	}
	if t.actor.Role != models.RoleDepartmentOwner {
		return models.RootCause{}, fmt.Errorf("%w: role %s may not edit a root cause", workflow.ErrInvalidTransition, t.actor.Role)
	}
	if err := t.checkDuplicateName(ctx, rc.FindingID, rc.Name, rc.ID); err != nil {
		return models.RootCause{}, err
	}

	updated, err := t.store.UpdateRootCause(ctx, rc)
	if err != nil {
		return models.RootCause{}, err
	}
	t.invalidate(events.TopicRootCauses, updated.ID, "edited")
	return updated, nil
}

// SubmitRootCauses moves every Draft under the finding to Pending in one
// logical operation. Non-draft siblings are left alone.
func (t *Tracker) SubmitRootCauses(ctx context.Context, findingID string) ([]models.RootCause, error) {
	all, err := t.store.FetchRootCausesByFinding(ctx, findingID)
	if err != nil {
		return nil, err
	}

	for _, rc := range all {
		if rc.Status != models.RootCauseDraft {
			continue
		}
		next, err := workflow.NextRootCauseStatus(rc.Status, workflow.RootCauseSubmit, t.actor.Role, "")
		if err != nil {
			return nil, err
		}
		rc.Status = next
		if _, err := t.store.UpdateRootCause(ctx, rc); err != nil {
			return nil, err
		}
		t.invalidate(events.TopicRootCauses, rc.ID, "submitted")
	}

	return t.store.FetchRootCausesByFinding(ctx, findingID)
}

// ApproveRootCause accepts a pending root cause.
func (t *Tracker) ApproveRootCause(ctx context.Context, rc models.RootCause) (models.RootCause, error) {
	if _, err := workflow.NextRootCauseStatus(rc.Status, workflow.RootCauseApprove, t.actor.Role, ""); err != nil {
		return models.RootCause{}, err
	}
	if err := t.store.ApproveRootCause(ctx, rc.ID); err != nil {
		return models.RootCause{}, err
	}
	refreshed, err := t.refetchRootCause(ctx, rc)
	if err != nil {
		return models.RootCause{}, err
	}
	t.invalidate(events.TopicRootCauses, rc.ID, "approved")
	return refreshed, nil
}

// RejectRootCause sends a pending root cause back with a mandatory reason.
func (t *Tracker) RejectRootCause(ctx context.Context, rc models.RootCause, reason string) (models.RootCause, error) {
	if _, err := workflow.NextRootCauseStatus(rc.Status, workflow.RootCauseReject, t.actor.Role, reason); err != nil {
		return models.RootCause{}, err
	}
	if err := t.store.RejectRootCause(ctx, rc.ID, reason); err != nil {
		return models.RootCause{}, err
	}
	refreshed, err := t.refetchRootCause(ctx, rc)
	if err != nil {
		return models.RootCause{}, err
	}
	t.invalidate(events.TopicRootCauses, rc.ID, "rejected")
	return refreshed, nil
}

// ReopenRootCause returns a rejected root cause to Draft so the owner can
// rework it. The prior rejection reason is retained for display.
func (t *Tracker) ReopenRootCause(ctx context.Context, rc models.RootCause) (models.RootCause, error) {
	next, err := workflow.NextRootCauseStatus(rc.Status, workflow.RootCauseReopen, t.actor.Role, "")
	if err != nil {
		return models.RootCause{}, err
	}
	rc.Status = next
	updated, err := t.store.UpdateRootCause(ctx, rc)
	if err != nil {
		return models.RootCause{}, err
	}
	t.invalidate(events.TopicRootCauses, updated.ID, "reopened")
	return updated, nil
}

// DeleteRootCause removes a draft. Pending and decided root causes stay.
func (t *Tracker) DeleteRootCause(ctx context.Context, rc models.RootCause) error {
	if err := workflow.CanDeleteRootCause(rc, t.actor.Role); err != nil {
		return err
	}
	if err := t.store.DeleteRootCause(ctx, rc.ID); err != nil {
		return err
	}
	t.invalidate(events.TopicRootCauses, rc.ID, "deleted")
	return nil
}

func (t *Tracker) refetchRootCause(ctx context.Context, rc models.RootCause) (models.RootCause, error) {
	all, err := t.store.FetchRootCausesByFinding(ctx, rc.FindingID)
	if err != nil {
		return models.RootCause{}, err
	}
	for _, cur := range all {
		if cur.ID == rc.ID {
			return cur, nil
		}
	}
	return models.RootCause{}, fmt.Errorf("%w: root cause %s vanished after update", workflow.ErrRemoteFailure, rc.ID)
}
