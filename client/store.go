// client/store.go
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Danhnam1/Audit-System-sub002/models"
	"github.com/Danhnam1/Audit-System-sub002/normalize"
	"github.com/Danhnam1/Audit-System-sub002/workflow"
)

// Store talks to the remote authoritative store over HTTP. It owns no state
// of its own: every read goes to the wire (with a cache-busting token to
// defeat intermediate caches), every list response passes through the
// normalizer, and failures are always surfaced — a read error is never
// silently converted into "no data".
type Store struct {
	baseURL string
	token   string
	claims  *Claims
	http    *http.Client
	log     zerolog.Logger
}

func New(baseURL, token string, timeout time.Duration, log zerolog.Logger) (*Store, error) {
	claims, err := ParseClaims(token)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return &Store{
		baseURL: baseURL,
		token:   token,
		claims:  claims,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "store").Logger(),
	}, nil
}

// Claims returns the identity the store acts as.
func (s *Store) Claims() *Claims { return s.claims }

func (s *Store) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		wire, err := normalize.ToWire(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(wire)
	}

	u := s.baseURL + path
	if method == http.MethodGet {
		if query == nil {
			query = url.Values{}
		}
		query.Set("_cb", uuid.NewString())
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s %s: %v", workflow.ErrRemoteFailure, method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", workflow.ErrRemoteFailure, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %v", workflow.ErrRemoteFailure, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("remote call failed")
		return nil, fmt.Errorf("%w: %s %s: status %d: %s", workflow.ErrRemoteFailure, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}

func fetchOne[T any](s *Store, ctx context.Context, path string) (T, error) {
	var v T
	data, err := s.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return v, err
	}
	if err := normalize.FromWire(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

func fetchList[T any](s *Store, ctx context.Context, path string, query url.Values) ([]T, error) {
	data, err := s.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return normalize.UnwrapInto[T](data)
}

// ---- findings ----

func (s *Store) FetchFinding(ctx context.Context, id string) (models.Finding, error) {
	return fetchOne[models.Finding](s, ctx, "/api/findings/"+id)
}

func (s *Store) FetchFindingsByDepartment(ctx context.Context, departmentID string) ([]models.Finding, error) {
	return fetchList[models.Finding](s, ctx, "/api/findings", url.Values{"departmentId": {departmentID}})
}

func (s *Store) FetchFindingsByDateRange(ctx context.Context, from, to time.Time) ([]models.Finding, error) {
	q := url.Values{
		"from": {from.Format("2006-01-02")},
		"to":   {to.Format("2006-01-02")},
	}
	return fetchList[models.Finding](s, ctx, "/api/findings", q)
}

func (s *Store) CreateFinding(ctx context.Context, f models.Finding) (models.Finding, error) {
	data, err := s.do(ctx, http.MethodPost, "/api/findings", nil, f)
	if err != nil {
		return models.Finding{}, err
	}
	var created models.Finding
	if err := normalize.FromWire(data, &created); err != nil {
		return models.Finding{}, err
	}
	return created, nil
}

func (s *Store) CloseFinding(ctx context.Context, id string) error {
	_, err := s.do(ctx, http.MethodPost, "/api/findings/"+id+"/close", nil, nil)
	return err
}

func (s *Store) ArchiveFinding(ctx context.Context, id string) error {
	_, err := s.do(ctx, http.MethodPost, "/api/findings/"+id+"/archive", nil, nil)
	return err
}

// ---- root causes ----

func (s *Store) FetchRootCausesByFinding(ctx context.Context, findingID string) ([]models.RootCause, error) {
	return fetchList[models.RootCause](s, ctx, "/api/findings/"+findingID+"/rootcauses", nil)
}

func (s *Store) CreateRootCause(ctx context.Context, rc models.RootCause) (models.RootCause, error) {
	data, err := s.do(ctx, http.MethodPost, "/api/rootcauses", nil, rc)
	if err != nil {
		return models.RootCause{}, err
	}
	var created models.RootCause
	if err := normalize.FromWire(data, &created); err != nil {
		return models.RootCause{}, err
	}
	return created, nil
}

func (s *Store) UpdateRootCause(ctx context.Context, rc models.RootCause) (models.RootCause, error) {
	data, err := s.do(ctx, http.MethodPut, "/api/rootcauses/"+rc.ID, nil, rc)
	if err != nil {
		return models.RootCause{}, err
	}
	var updated models.RootCause
	if err := normalize.FromWire(data, &updated); err != nil {
		return models.RootCause{}, err
	}
	return updated, nil
}

func (s *Store) DeleteRootCause(ctx context.Context, id string) error {
	_, err := s.do(ctx, http.MethodDelete, "/api/rootcauses/"+id, nil, nil)
	return err
}

func (s *Store) ApproveRootCause(ctx context.Context, id string) error {
	_, err := s.do(ctx, http.MethodPost, "/api/rootcauses/"+id+"/approve", nil, nil)
	return err
}

func (s *Store) RejectRootCause(ctx context.Context, id, reason string) error {
	_, err := s.do(ctx, http.MethodPost, "/api/rootcauses/"+id+"/reject", nil, map[string]string{"reason": reason})
	return err
}

// ---- actions ----

func (s *Store) FetchAction(ctx context.Context, id string) (models.Action, error) {
	return fetchOne[models.Action](s, ctx, "/api/actions/"+id)
}

// FetchMyActions lists the actions assigned to the identity behind the
// bearer token.
func (s *Store) FetchMyActions(ctx context.Context) ([]models.Action, error) {
	return fetchList[models.Action](s, ctx, "/api/actions", url.Values{"assigneeId": {s.claims.UserID}})
}

func (s *Store) FetchActionsByRootCause(ctx context.Context, rootCauseID string) ([]models.Action, error) {
	return fetchList[models.Action](s, ctx, "/api/actions", url.Values{"rootCauseId": {rootCauseID}})
}

func (s *Store) FetchActionsByDepartment(ctx context.Context, departmentID string) ([]models.Action, error) {
	return fetchList[models.Action](s, ctx, "/api/actions", url.Values{"departmentId": {departmentID}})
}

func (s *Store) CreateAction(ctx context.Context, a models.Action) (models.Action, error) {
	data, err := s.do(ctx, http.MethodPost, "/api/actions", nil, a)
	if err != nil {
		return models.Action{}, err
	}
	var created models.Action
	if err := normalize.FromWire(data, &created); err != nil {
		return models.Action{}, err
	}
	return created, nil
}

func (s *Store) UpdateActionProgress(ctx context.Context, id string, progress int) error {
	_, err := s.do(ctx, http.MethodPut, "/api/actions/"+id+"/progress", nil, map[string]int{"progress": progress})
	return err
}

func (s *Store) UpdateActionStatus(ctx context.Context, id string, status models.ActionStatus) error {
	_, err := s.do(ctx, http.MethodPut, "/api/actions/"+id+"/status", nil, map[string]string{"status": string(status)})
	return err
}

func (s *Store) VerifyAction(ctx context.Context, id, feedback string) error {
	_, err := s.do(ctx, http.MethodPost, "/api/actions/"+id+"/verify", nil, map[string]string{"feedback": feedback})
	return err
}

func (s *Store) ReturnAction(ctx context.Context, id, feedback string) error {
	_, err := s.do(ctx, http.MethodPost, "/api/actions/"+id+"/return", nil, map[string]string{"feedback": feedback})
	return err
}

func (s *Store) ApproveAction(ctx context.Context, id, feedback string) error {
	_, err := s.do(ctx, http.MethodPost, "/api/actions/"+id+"/approve", nil, map[string]string{"feedback": feedback})
	return err
}

func (s *Store) RejectAction(ctx context.Context, id, feedback string) error {
	_, err := s.do(ctx, http.MethodPost, "/api/actions/"+id+"/reject", nil, map[string]string{"feedback": feedback})
	return err
}

// ---- attachments ----

func (s *Store) FetchAttachments(ctx context.Context, entityType models.EntityType, entityID string) ([]models.Attachment, error) {
	q := url.Values{"entityType": {string(entityType)}, "entityId": {entityID}}
	return fetchList[models.Attachment](s, ctx, "/api/attachments", q)
}

// UploadAttachment sends evidence as multipart form data: the metadata
// fields plus the file payload.
func (s *Store) UploadAttachment(ctx context.Context, meta models.Attachment, file io.Reader) (models.Attachment, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"EntityType": string(meta.EntityType),
		"EntityId":   meta.EntityID,
		"Status":     string(meta.Status),
	}
	if meta.RetentionUntil != nil {
		fields["RetentionUntil"] = meta.RetentionUntil.Format(time.RFC3339)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return models.Attachment{}, fmt.Errorf("%w: upload form: %v", workflow.ErrRemoteFailure, err)
		}
	}

	part, err := mw.CreateFormFile("File", meta.FileName)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: upload form: %v", workflow.ErrRemoteFailure, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return models.Attachment{}, fmt.Errorf("%w: upload payload: %v", workflow.ErrRemoteFailure, err)
	}
	if err := mw.Close(); err != nil {
		return models.Attachment{}, fmt.Errorf("%w: upload form: %v", workflow.ErrRemoteFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/attachments", &buf)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: build upload: %v", workflow.ErrRemoteFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.http.Do(req)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: upload: %v", workflow.ErrRemoteFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: read upload response: %v", workflow.ErrRemoteFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Attachment{}, fmt.Errorf("%w: upload: status %d: %s", workflow.ErrRemoteFailure, resp.StatusCode, bytes.TrimSpace(data))
	}

	var created models.Attachment
	if err := normalize.FromWire(data, &created); err != nil {
		return models.Attachment{}, err
	}
	return created, nil
}
