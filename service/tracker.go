// service/tracker.go
package service

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/Danhnam1/Audit-System-sub002/events"
	"github.com/Danhnam1/Audit-System-sub002/models"
)

// RemoteStore is the slice of the remote-store client the tracker needs.
// The engine never patches a local copy of authoritative state: every
// mutation below is followed by a re-fetch through this interface.
type RemoteStore interface {
	FetchFinding(ctx context.Context, id string) (models.Finding, error)
	CloseFinding(ctx context.Context, id string) error

	FetchRootCausesByFinding(ctx context.Context, findingID string) ([]models.RootCause, error)
	CreateRootCause(ctx context.Context, rc models.RootCause) (models.RootCause, error)
	UpdateRootCause(ctx context.Context, rc models.RootCause) (models.RootCause, error)
	DeleteRootCause(ctx context.Context, id string) error
	ApproveRootCause(ctx context.Context, id string) error
	RejectRootCause(ctx context.Context, id, reason string) error

	FetchAction(ctx context.Context, id string) (models.Action, error)
	UpdateActionProgress(ctx context.Context, id string, progress int) error
	UpdateActionStatus(ctx context.Context, id string, status models.ActionStatus) error
	VerifyAction(ctx context.Context, id, feedback string) error
	ReturnAction(ctx context.Context, id, feedback string) error
	ApproveAction(ctx context.Context, id, feedback string) error
	RejectAction(ctx context.Context, id, feedback string) error

	FetchAttachments(ctx context.Context, entityType models.EntityType, entityID string) ([]models.Attachment, error)
	UploadAttachment(ctx context.Context, meta models.Attachment, file io.Reader) (models.Attachment, error)
}

// Actor is the identity every tracker operation is validated against.
type Actor struct {
	UserID       string
	Name         string
	Role         models.Role
	DepartmentID string
}

// Tracker orchestrates the remediation workflow on behalf of one actor:
// local validation first (no remote call on a validation failure), then the
// mutation, then a re-fetch of the affected entity, then an invalidation
// broadcast so every subscribed view re-runs its own fetch-and-derive cycle.
type Tracker struct {
	store RemoteStore
	bus   *events.Bus
	actor Actor
	log   zerolog.Logger
}

func NewTracker(store RemoteStore, bus *events.Bus, actor Actor, log zerolog.Logger) *Tracker {
	return &Tracker{
		store: store,
		bus:   bus,
		actor: actor,
		log:   log.With().Str("component", "tracker").Str("role", string(actor.Role)).Logger(),
	}
}

func (t *Tracker) invalidate(topic, entityID, reason string) {
	t.bus.Publish(events.Invalidation{
		Topic:     topic,
		EntityID:  entityID,
		Reason:    reason,
		Timestamp: time.Now(),
	})
}

// CloseFinding administratively closes a finding. The store cascades the
// closure to the finding's open actions, so both collections are
// invalidated.
func (t *Tracker) CloseFinding(ctx context.Context, findingID string) (models.Finding, error) {
	if err := t.store.CloseFinding(ctx, findingID); err != nil {
		return models.Finding{}, err
	}
	f, err := t.store.FetchFinding(ctx, findingID)
	if err != nil {
		return models.Finding{}, err
	}
	t.invalidate(events.TopicFindings, findingID, "closed")
	t.invalidate(events.TopicActions, "", "finding closed")
	return f, nil
}

// UploadEvidence stores a new attachment against a finding or an action and
// invalidates the attachment views.
func (t *Tracker) UploadEvidence(ctx context.Context, meta models.Attachment, file io.Reader) (models.Attachment, error) {
	meta.UploadedBy = t.actor.UserID
	if meta.Status == "" {
		meta.Status = models.AttachmentOpen
	}
	created, err := t.store.UploadAttachment(ctx, meta, file)
	if err != nil {
		return models.Attachment{}, err
	}
	t.invalidate(events.TopicAttachments, created.ID, "uploaded")
	return created, nil
}
