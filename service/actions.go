// service/actions.go
package service

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/Danhnam1/Audit-System-sub002/events"
	"github.com/Danhnam1/Audit-System-sub002/evidence"
	"github.com/Danhnam1/Audit-System-sub002/models"
	"github.com/Danhnam1/Audit-System-sub002/workflow"
)

// ActionResult carries the re-fetched action plus any non-blocking warning
// an operation produced (a best-effort status call that kept failing, or
// unapproved evidence at final approval).
type ActionResult struct {
	Action  models.Action
	Warning string
}

// progressEvents maps a (current, target) status pair to the FSM legs a
// progress save has to clear. A save that jumps Open straight to Reviewed
// still passes through both the start and the submit-review rules.
func progressEvents(current, target models.ActionStatus) ([]workflow.ActionEvent, error) {
	switch {
	case current == target:
		return nil, nil
	case current == models.ActionOpen && target == models.ActionInProgress:
		return []workflow.ActionEvent{workflow.ActionStart}, nil
	case current == models.ActionOpen && target == models.ActionReviewed:
		return []workflow.ActionEvent{workflow.ActionStart, workflow.ActionSubmitReview}, nil
	case current == models.ActionRejected && target == models.ActionInProgress:
		return []workflow.ActionEvent{workflow.ActionResume}, nil
	case current == models.ActionRejected && target == models.ActionReviewed:
		return []workflow.ActionEvent{workflow.ActionResume, workflow.ActionSubmitReview}, nil
	case current == models.ActionInProgress && target == models.ActionReviewed:
		return []workflow.ActionEvent{workflow.ActionSubmitReview}, nil
	}
	return nil, fmt.Errorf("%w: action %s cannot advance to %s via a progress save", workflow.ErrInvalidTransition, current, target)
}

// SaveProgress advances an action's progress. The gate validates locally
// (tier, strict increase, new evidence) before anything reaches the remote
// store. Persistence is two sequential calls: the progress update is the
// durable fact; the status transition is best-effort and retried — if it
// still fails, the progress stays advanced and the caller gets a warning,
// not an error.
func (t *Tracker) SaveProgress(ctx context.Context, action models.Action, requestedPercent, newEvidenceCount int) (ActionResult, error) {
	if t.actor.Role != models.RoleActionOwner || action.AssigneeID != t.actor.UserID {
		return ActionResult{}, fmt.Errorf("%w: only the assignee saves progress", workflow.ErrInvalidTransition)
	}

	trans, err := workflow.ApplyProgress(action, requestedPercent, newEvidenceCount)
	if err != nil {
		return ActionResult{}, err
	}

	evs, err := progressEvents(action.Status, trans.TargetStatus)
	if err != nil {
		return ActionResult{}, err
	}
	from := action.Status
	for _, ev := range evs {
		from, err = workflow.NextActionStatus(from, ev, t.actor.Role, "")
		if err != nil {
			return ActionResult{}, err
		}
	}

	// Durable fact first.
	if err := t.store.UpdateActionProgress(ctx, action.ID, trans.Progress); err != nil {
		return ActionResult{}, err
	}

	var warning string
	if trans.TargetStatus != action.Status {
		if err := t.updateStatusWithRetry(ctx, action.ID, trans.TargetStatus); err != nil {
			warning = fmt.Sprintf("progress saved at %d%%, but the status change to %s did not go through: %v", trans.Progress, trans.TargetStatus, err)
			t.log.Warn().Str("actionId", action.ID).Str("target", string(trans.TargetStatus)).Err(err).Msg("status transition failed after durable progress write")
		}
	}

	refreshed, err := t.store.FetchAction(ctx, action.ID)
	if err != nil {
		return ActionResult{}, err
	}
	t.invalidate(events.TopicActions, action.ID, "progress saved")
	return ActionResult{Action: refreshed, Warning: warning}, nil
}

func (t *Tracker) updateStatusWithRetry(ctx context.Context, actionID string, status models.ActionStatus) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(func() error {
		return t.store.UpdateActionStatus(ctx, actionID, status)
	}, bo)
}

// VerifyAction is the first review tier accepting remediation work.
func (t *Tracker) VerifyAction(ctx context.Context, action models.Action, feedback string) (ActionResult, error) {
	if _, err := workflow.NextActionStatus(action.Status, workflow.ActionVerify, t.actor.Role, feedback); err != nil {
		return ActionResult{}, err
	}
	if err := t.store.VerifyAction(ctx, action.ID, feedback); err != nil {
		return ActionResult{}, err
	}
	return t.refetchAndInvalidate(ctx, action.ID, "verified")
}

// ReturnAction is the first review tier sending work back. Feedback is
// mandatory; the assignee retries from the returned state.
func (t *Tracker) ReturnAction(ctx context.Context, action models.Action, feedback string) (ActionResult, error) {
	if _, err := workflow.NextActionStatus(action.Status, workflow.ActionReturn, t.actor.Role, feedback); err != nil {
		return ActionResult{}, err
	}
	if err := t.store.ReturnAction(ctx, action.ID, feedback); err != nil {
		return ActionResult{}, err
	}
	return t.refetchAndInvalidate(ctx, action.ID, "returned")
}

// ApproveAction is the second, higher-level review tier. It can only
// succeed on a Verified action — the two tiers are independent authorities.
// When not every active attachment is approved yet, the result carries a
// warning; attachment review is decoupled from action review, so the
// approval itself proceeds.
func (t *Tracker) ApproveAction(ctx context.Context, action models.Action, feedback string) (ActionResult, error) {
	if _, err := workflow.NextActionStatus(action.Status, workflow.ActionFinalApprove, t.actor.Role, feedback); err != nil {
		return ActionResult{}, err
	}

	var warning string
	attachments, err := t.store.FetchAttachments(ctx, models.EntityAction, action.ID)
	if err != nil {
		t.log.Warn().Err(err).Str("actionId", action.ID).Msg("could not check evidence before final approval")
	} else {
		warning = evidence.ApprovalWarning(evidence.Summarize(attachments, models.EntityAction, action.ID))
	}

	if err := t.store.ApproveAction(ctx, action.ID, feedback); err != nil {
		return ActionResult{}, err
	}
	res, err := t.refetchAndInvalidate(ctx, action.ID, "approved")
	res.Warning = warning
	return res, err
}

// RejectAction is the second tier sending work back to the assignee.
func (t *Tracker) RejectAction(ctx context.Context, action models.Action, feedback string) (ActionResult, error) {
	if _, err := workflow.NextActionStatus(action.Status, workflow.ActionFinalReject, t.actor.Role, feedback); err != nil {
		return ActionResult{}, err
	}
	if err := t.store.RejectAction(ctx, action.ID, feedback); err != nil {
		return ActionResult{}, err
	}
	return t.refetchAndInvalidate(ctx, action.ID, "rejected")
}

func (t *Tracker) refetchAndInvalidate(ctx context.Context, actionID, reason string) (ActionResult, error) {
	refreshed, err := t.store.FetchAction(ctx, actionID)
	if err != nil {
		return ActionResult{}, err
	}
	t.invalidate(events.TopicActions, actionID, reason)
	return ActionResult{Action: refreshed}, nil
}
