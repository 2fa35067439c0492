package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danhnam1/Audit-System-sub002/events"
	"github.com/Danhnam1/Audit-System-sub002/models"
	"github.com/Danhnam1/Audit-System-sub002/workflow"
)

// fakeStore is an in-memory RemoteStore with per-call failure switches, so
// tests can observe exactly which remote calls an operation makes and in
// what order.
type fakeStore struct {
	findings    map[string]models.Finding
	rootCauses  map[string]models.RootCause
	actions     map[string]models.Action
	attachments []models.Attachment

	calls        []string
	failStatus   bool
	failProgress bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		findings:   map[string]models.Finding{},
		rootCauses: map[string]models.RootCause{},
		actions:    map[string]models.Action{},
	}
}

func (f *fakeStore) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeStore) FetchFinding(_ context.Context, id string) (models.Finding, error) {
	f.record("FetchFinding %s", id)
	return f.findings[id], nil
}

func (f *fakeStore) CloseFinding(_ context.Context, id string) error {
	f.record("CloseFinding %s", id)
	fd := f.findings[id]
	fd.Status = models.FindingClosed
	f.findings[id] = fd
	return nil
}

func (f *fakeStore) FetchRootCausesByFinding(_ context.Context, findingID string) ([]models.RootCause, error) {
	f.record("FetchRootCausesByFinding %s", findingID)
	out := []models.RootCause{}
	for _, rc := range f.rootCauses {
		if rc.FindingID == findingID {
			out = append(out, rc)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateRootCause(_ context.Context, rc models.RootCause) (models.RootCause, error) {
	f.record("CreateRootCause %s", rc.Name)
	rc.ID = fmt.Sprintf("rc-%d", len(f.rootCauses)+1)
	f.rootCauses[rc.ID] = rc
	return rc, nil
}

func (f *fakeStore) UpdateRootCause(_ context.Context, rc models.RootCause) (models.RootCause, error) {
	f.record("UpdateRootCause %s", rc.ID)
	f.rootCauses[rc.ID] = rc
	return rc, nil
}

func (f *fakeStore) DeleteRootCause(_ context.Context, id string) error {
	f.record("DeleteRootCause %s", id)
	delete(f.rootCauses, id)
	return nil
}

func (f *fakeStore) ApproveRootCause(_ context.Context, id string) error {
	f.record("ApproveRootCause %s", id)
	rc := f.rootCauses[id]
	rc.Status = models.RootCauseApproved
	f.rootCauses[id] = rc
	return nil
}

func (f *fakeStore) RejectRootCause(_ context.Context, id, reason string) error {
	f.record("RejectRootCause %s", id)
	rc := f.rootCauses[id]
	rc.Status = models.RootCauseRejected
	rc.RejectionReason = reason
	f.rootCauses[id] = rc
	return nil
}

func (f *fakeStore) FetchAction(_ context.Context, id string) (models.Action, error) {
	f.record("FetchAction %s", id)
	return f.actions[id], nil
}

func (f *fakeStore) UpdateActionProgress(_ context.Context, id string, progress int) error {
	f.record("UpdateActionProgress %s %d", id, progress)
	if f.failProgress {
		return fmt.Errorf("%w: progress write refused", workflow.ErrRemoteFailure)
	}
	a := f.actions[id]
	a.Progress = progress
	f.actions[id] = a
	return nil
}

func (f *fakeStore) UpdateActionStatus(_ context.Context, id string, status models.ActionStatus) error {
	f.record("UpdateActionStatus %s %s", id, status)
	if f.failStatus {
		return fmt.Errorf("%w: status write refused", workflow.ErrRemoteFailure)
	}
	a := f.actions[id]
	a.Status = status
	f.actions[id] = a
	return nil
}

func (f *fakeStore) setReviewStatus(id string, status models.ActionStatus, feedback string) {
	a := f.actions[id]
	a.Status = status
	if feedback != "" {
		a.ReviewerFeedback = feedback
	}
	f.actions[id] = a
}

func (f *fakeStore) VerifyAction(_ context.Context, id, feedback string) error {
	f.record("VerifyAction %s", id)
	f.setReviewStatus(id, models.ActionVerified, feedback)
	return nil
}

func (f *fakeStore) ReturnAction(_ context.Context, id, feedback string) error {
	f.record("ReturnAction %s", id)
	f.setReviewStatus(id, models.ActionRejected, feedback)
	return nil
}

func (f *fakeStore) ApproveAction(_ context.Context, id, feedback string) error {
	f.record("ApproveAction %s", id)
	f.setReviewStatus(id, models.ActionApproved, feedback)
	return nil
}

func (f *fakeStore) RejectAction(_ context.Context, id, feedback string) error {
	f.record("RejectAction %s", id)
	f.setReviewStatus(id, models.ActionRejected, feedback)
	return nil
}

func (f *fakeStore) FetchAttachments(_ context.Context, entityType models.EntityType, entityID string) ([]models.Attachment, error) {
	f.record("FetchAttachments %s %s", entityType, entityID)
	out := []models.Attachment{}
	for _, a := range f.attachments {
		if a.EntityType == entityType && a.EntityID == entityID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) UploadAttachment(_ context.Context, meta models.Attachment, _ io.Reader) (models.Attachment, error) {
	f.record("UploadAttachment %s", meta.FileName)
	meta.ID = fmt.Sprintf("att-%d", len(f.attachments)+1)
	f.attachments = append(f.attachments, meta)
	return meta, nil
}

func newTracker(store *fakeStore, role models.Role) (*Tracker, *events.Bus) {
	bus := events.NewBus()
	actor := Actor{UserID: "user-1", Name: "Test User", Role: role}
	return NewTracker(store, bus, actor, zerolog.Nop()), bus
}

func drain(ch <-chan events.Invalidation) []events.Invalidation {
	var out []events.Invalidation
	for {
		select {
		case inv := <-ch:
			out = append(out, inv)
		default:
			return out
		}
	}
}

// ---- progress ----

func TestSaveProgressPersistsProgressThenStatus(t *testing.T) {
	store := newFakeStore()
	store.actions["a1"] = models.Action{ID: "a1", Status: models.ActionOpen, AssigneeID: "user-1"}
	tr, bus := newTracker(store, models.RoleActionOwner)
	ch, cancel := bus.Subscribe(events.TopicActions)
	defer cancel()

	res, err := tr.SaveProgress(context.Background(), store.actions["a1"], 25, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	assert.Equal(t, 25, res.Action.Progress)
	assert.Equal(t, models.ActionInProgress, res.Action.Status)

	// Progress write comes strictly before the status write.
	assert.Equal(t, []string{
		"UpdateActionProgress a1 25",
		"UpdateActionStatus a1 InProgress",
		"FetchAction a1",
	}, store.calls)

	invs := drain(ch)
	require.Len(t, invs, 1)
	assert.Equal(t, "a1", invs[0].EntityID)
}

func TestSaveProgressAtHundredTargetsReviewed(t *testing.T) {
	store := newFakeStore()
	store.actions["a1"] = models.Action{ID: "a1", Status: models.ActionInProgress, Progress: 75, AssigneeID: "user-1"}
	tr, _ := newTracker(store, models.RoleActionOwner)

	res, err := tr.SaveProgress(context.Background(), store.actions["a1"], 100, 2)
	require.NoError(t, err)
	assert.Equal(t, models.ActionReviewed, res.Action.Status)
	assert.Equal(t, 100, res.Action.Progress)
}

func TestSaveProgressLocalRejectionsSkipRemote(t *testing.T) {
	store := newFakeStore()
	action := models.Action{ID: "a1", Status: models.ActionInProgress, Progress: 50, AssigneeID: "user-1"}
	store.actions["a1"] = action
	tr, _ := newTracker(store, models.RoleActionOwner)

	_, err := tr.SaveProgress(context.Background(), action, 50, 1)
	assert.ErrorIs(t, err, workflow.ErrProgressNotIncreasing)

	_, err = tr.SaveProgress(context.Background(), action, 75, 0)
	assert.ErrorIs(t, err, workflow.ErrEvidenceRequired)

	_, err = tr.SaveProgress(context.Background(), action, 60, 1)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	assert.Empty(t, store.calls, "local validation failures must not reach the remote store")
}

func TestSaveProgressOnlyAssignee(t *testing.T) {
	store := newFakeStore()
	action := models.Action{ID: "a1", Status: models.ActionOpen, AssigneeID: "someone-else"}
	store.actions["a1"] = action
	tr, _ := newTracker(store, models.RoleActionOwner)

	_, err := tr.SaveProgress(context.Background(), action, 25, 1)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	assert.Empty(t, store.calls)
}

func TestSaveProgressStatusFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	store.actions["a1"] = models.Action{ID: "a1", Status: models.ActionOpen, AssigneeID: "user-1"}
	store.failStatus = true
	tr, _ := newTracker(store, models.RoleActionOwner)

	res, err := tr.SaveProgress(context.Background(), store.actions["a1"], 25, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warning)
	// The durable fact survived the failed status call.
	assert.Equal(t, 25, res.Action.Progress)
	assert.Equal(t, models.ActionOpen, res.Action.Status)
}

func TestSaveProgressFailedProgressWriteIsFatal(t *testing.T) {
	store := newFakeStore()
	store.actions["a1"] = models.Action{ID: "a1", Status: models.ActionOpen, AssigneeID: "user-1"}
	store.failProgress = true
	tr, _ := newTracker(store, models.RoleActionOwner)

	_, err := tr.SaveProgress(context.Background(), store.actions["a1"], 25, 1)
	assert.ErrorIs(t, err, workflow.ErrRemoteFailure)
}

// ---- root causes ----

func TestCreateRootCauseRejectsDuplicateNameCaseInsensitive(t *testing.T) {
	store := newFakeStore()
	store.rootCauses["rc-1"] = models.RootCause{
		ID: "rc-1", FindingID: "f1", Name: "Process Gap", Status: models.RootCauseDraft,
	}
	tr, _ := newTracker(store, models.RoleDepartmentOwner)

	_, err := tr.CreateRootCause(context.Background(), models.RootCause{FindingID: "f1", Name: "process gap"})
	assert.ErrorIs(t, err, workflow.ErrDuplicateName)
}

func TestCreateRootCauseAllowsSameNameUnderOtherFinding(t *testing.T) {
	store := newFakeStore()
	store.rootCauses["rc-1"] = models.RootCause{
		ID: "rc-1", FindingID: "f1", Name: "Process Gap", Status: models.RootCauseDraft,
	}
	tr, bus := newTracker(store, models.RoleDepartmentOwner)
	ch, cancel := bus.Subscribe(events.TopicRootCauses)
	defer cancel()

	created, err := tr.CreateRootCause(context.Background(), models.RootCause{FindingID: "f2", Name: "Process Gap"})
	require.NoError(t, err)
	assert.Equal(t, models.RootCauseDraft, created.Status)
	assert.Len(t, drain(ch), 1)
}

func TestSubmitRootCausesIsBatch(t *testing.T) {
	store := newFakeStore()
	store.rootCauses["rc-1"] = models.RootCause{ID: "rc-1", FindingID: "f1", Name: "A", Status: models.RootCauseDraft}
	store.rootCauses["rc-2"] = models.RootCause{ID: "rc-2", FindingID: "f1", Name: "B", Status: models.RootCauseDraft}
	store.rootCauses["rc-3"] = models.RootCause{ID: "rc-3", FindingID: "f1", Name: "C", Status: models.RootCauseApproved}
	tr, _ := newTracker(store, models.RoleDepartmentOwner)

	all, err := tr.SubmitRootCauses(context.Background(), "f1")
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, models.RootCausePending, store.rootCauses["rc-1"].Status)
	assert.Equal(t, models.RootCausePending, store.rootCauses["rc-2"].Status)
	assert.Equal(t, models.RootCauseApproved, store.rootCauses["rc-3"].Status)
}

func TestApproveRootCauseRequiresPending(t *testing.T) {
	store := newFakeStore()
	draft := models.RootCause{ID: "rc-1", FindingID: "f1", Status: models.RootCauseDraft}
	store.rootCauses["rc-1"] = draft
	tr, _ := newTracker(store, models.RoleAuditor)

	_, err := tr.ApproveRootCause(context.Background(), draft)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	assert.Empty(t, store.calls)
}

func TestRejectRootCauseNeedsReason(t *testing.T) {
	store := newFakeStore()
	pending := models.RootCause{ID: "rc-1", FindingID: "f1", Status: models.RootCausePending}
	store.rootCauses["rc-1"] = pending
	tr, _ := newTracker(store, models.RoleAuditor)

	_, err := tr.RejectRootCause(context.Background(), pending, "")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	rc, err := tr.RejectRootCause(context.Background(), pending, "evidence does not support the cause")
	require.NoError(t, err)
	assert.Equal(t, models.RootCauseRejected, rc.Status)
	assert.Equal(t, "evidence does not support the cause", rc.RejectionReason)
}

func TestReopenRetainsRejectionReason(t *testing.T) {
	store := newFakeStore()
	rejected := models.RootCause{
		ID: "rc-1", FindingID: "f1", Status: models.RootCauseRejected,
		RejectionReason: "too shallow",
	}
	store.rootCauses["rc-1"] = rejected
	tr, _ := newTracker(store, models.RoleDepartmentOwner)

	rc, err := tr.ReopenRootCause(context.Background(), rejected)
	require.NoError(t, err)
	assert.Equal(t, models.RootCauseDraft, rc.Status)
	assert.Equal(t, "too shallow", rc.RejectionReason)
}

func TestDeleteRootCauseDraftOnly(t *testing.T) {
	store := newFakeStore()
	pending := models.RootCause{ID: "rc-1", Status: models.RootCausePending}
	store.rootCauses["rc-1"] = pending
	tr, _ := newTracker(store, models.RoleDepartmentOwner)

	err := tr.DeleteRootCause(context.Background(), pending)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	draft := models.RootCause{ID: "rc-2", Status: models.RootCauseDraft}
	store.rootCauses["rc-2"] = draft
	require.NoError(t, tr.DeleteRootCause(context.Background(), draft))
	_, exists := store.rootCauses["rc-2"]
	assert.False(t, exists)
}

// ---- action review ----

func TestApproveActionRequiresVerified(t *testing.T) {
	store := newFakeStore()
	tr, _ := newTracker(store, models.RoleLeadAuditor)

	for _, status := range []models.ActionStatus{models.ActionOpen, models.ActionReviewed} {
		_, err := tr.ApproveAction(context.Background(), models.Action{ID: "a1", Status: status}, "")
		assert.ErrorIs(t, err, workflow.ErrInvalidTransition, "approve from %s", status)
	}
	assert.Empty(t, store.calls)

	store.actions["a1"] = models.Action{ID: "a1", Status: models.ActionVerified}
	res, err := tr.ApproveAction(context.Background(), store.actions["a1"], "good work")
	require.NoError(t, err)
	assert.Equal(t, models.ActionApproved, res.Action.Status)
}

func TestApproveActionWarnsOnUnapprovedEvidence(t *testing.T) {
	store := newFakeStore()
	store.actions["a1"] = models.Action{ID: "a1", Status: models.ActionVerified}
	store.attachments = []models.Attachment{
		{ID: "att-1", EntityType: models.EntityAction, EntityID: "a1", Status: models.AttachmentApproved},
		{ID: "att-2", EntityType: models.EntityAction, EntityID: "a1", Status: models.AttachmentOpen},
	}
	tr, _ := newTracker(store, models.RoleLeadAuditor)

	res, err := tr.ApproveAction(context.Background(), store.actions["a1"], "")
	require.NoError(t, err)
	assert.Contains(t, res.Warning, "1 of 2 attachments")
	assert.Equal(t, models.ActionApproved, res.Action.Status)
}

func TestVerifyAndReturnAreFirstTierOnly(t *testing.T) {
	store := newFakeStore()
	reviewed := models.Action{ID: "a1", Status: models.ActionReviewed}
	store.actions["a1"] = reviewed

	lead, _ := newTracker(store, models.RoleLeadAuditor)
	_, err := lead.VerifyAction(context.Background(), reviewed, "ok")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	auditor, _ := newTracker(store, models.RoleAuditor)
	res, err := auditor.VerifyAction(context.Background(), reviewed, "ok")
	require.NoError(t, err)
	assert.Equal(t, models.ActionVerified, res.Action.Status)
}

func TestReturnActionNeedsFeedback(t *testing.T) {
	store := newFakeStore()
	reviewed := models.Action{ID: "a1", Status: models.ActionReviewed}
	store.actions["a1"] = reviewed
	tr, _ := newTracker(store, models.RoleAuditor)

	_, err := tr.ReturnAction(context.Background(), reviewed, "")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	res, err := tr.ReturnAction(context.Background(), reviewed, "evidence is incomplete")
	require.NoError(t, err)
	assert.Equal(t, models.ActionRejected, res.Action.Status)
}

func TestCloseFindingInvalidatesBothCollections(t *testing.T) {
	store := newFakeStore()
	store.findings["f1"] = models.Finding{ID: "f1", Status: models.FindingOpen}
	tr, bus := newTracker(store, models.RoleAuditor)
	fch, cancelF := bus.Subscribe(events.TopicFindings)
	defer cancelF()
	ach, cancelA := bus.Subscribe(events.TopicActions)
	defer cancelA()

	f, err := tr.CloseFinding(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, models.FindingClosed, f.Status)
	assert.Len(t, drain(fch), 1)
	assert.Len(t, drain(ach), 1)
}

func TestUploadEvidenceStampsUploader(t *testing.T) {
	store := newFakeStore()
	tr, bus := newTracker(store, models.RoleActionOwner)
	ch, cancel := bus.Subscribe(events.TopicAttachments)
	defer cancel()

	retention := time.Now().AddDate(3, 0, 0)
	created, err := tr.UploadEvidence(context.Background(), models.Attachment{
		EntityType:     models.EntityAction,
		EntityID:       "a1",
		FileName:       "torque-report.pdf",
		RetentionUntil: &retention,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "user-1", created.UploadedBy)
	assert.Equal(t, models.AttachmentOpen, created.Status)
	assert.Len(t, drain(ch), 1)
}
