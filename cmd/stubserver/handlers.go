// cmd/stubserver/handlers.go
package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Danhnam1/Audit-System-sub002/client"
	"github.com/Danhnam1/Audit-System-sub002/config"
	"github.com/Danhnam1/Audit-System-sub002/events"
	"github.com/Danhnam1/Audit-System-sub002/models"
	"github.com/Danhnam1/Audit-System-sub002/normalize"
	"github.com/Danhnam1/Audit-System-sub002/reports"
)

type server struct {
	store *memStore
	hub   *hub
	log   zerolog.Logger
}

// ---- response helpers ----

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWire writes a single entity in the remote naming convention.
func respondWire(w http.ResponseWriter, code int, v any) {
	data, err := normalize.ToWire(v)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "encode failure")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

// respondList wraps a collection in the reference-graph envelope before
// writing it, exactly as the real backend does.
func respondList(w http.ResponseWriter, items any) {
	respondWire(w, http.StatusOK, normalize.Wrap(uuid.NewString(), items))
}

func decodeWire(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return normalize.FromWire(data, v)
}

// ---- auth ----

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	creds.Email = strings.TrimSpace(creds.Email)

	user, ok := s.store.users[creds.Email]
	if !ok {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !checkPassword(creds.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := client.GenerateToken(config.JWTKey, config.JWTExpiration, user.ID, user.Name, user.Role, user.DepartmentID)
	if err != nil {
		s.log.Error().Err(err).Msg("token generation failed")
		respondError(w, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"role":  string(user.Role),
		"name":  user.Name,
	})
}

// ---- findings ----

func (s *server) getFinding(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.store.mu.Lock()
	f, ok := s.store.findings[id]
	s.store.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "Finding not found")
		return
	}
	respondWire(w, http.StatusOK, f)
}

func (s *server) listFindings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var from, to *time.Time
	if raw := q.Get("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			from = &t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			to = &t
		}
	}
	respondList(w, s.store.findingsByFilter(q.Get("departmentId"), from, to))
}

func (s *server) createFinding(w http.ResponseWriter, r *http.Request) {
	var f models.Finding
	if err := decodeWire(r, &f); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if f.Title == "" {
		respondError(w, http.StatusBadRequest, "Finding title is required")
		return
	}
	if f.Status == "" {
		f.Status = models.FindingOpen
	}
	if claims := claimsFrom(r); claims != nil && f.CreatedBy == "" {
		f.CreatedBy = claims.UserID
	}

	now := time.Now()
	f.ID = uuid.NewString()
	f.CreatedAt = now
	f.UpdatedAt = now

	s.store.mu.Lock()
	s.store.findings[f.ID] = f
	s.store.mu.Unlock()

	s.hub.broadcast(events.TopicFindings, f.ID, "created")
	respondWire(w, http.StatusCreated, f)
}

func (s *server) closeFinding(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	f, ok := s.store.closeFinding(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Finding not found")
		return
	}
	s.hub.broadcast(events.TopicFindings, id, "closed")
	s.hub.broadcast(events.TopicActions, "", "finding closed")
	respondWire(w, http.StatusOK, f)
}

func (s *server) archiveFinding(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.store.mu.Lock()
	f, ok := s.store.findings[id]
	if ok {
		f.Status = models.FindingArchived
		f.UpdatedAt = time.Now()
		s.store.findings[id] = f
	}
	s.store.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "Finding not found")
		return
	}
	s.hub.broadcast(events.TopicFindings, id, "archived")
	respondWire(w, http.StatusOK, f)
}

// ---- root causes ----

func (s *server) listRootCauses(w http.ResponseWriter, r *http.Request) {
	respondList(w, s.store.rootCausesByFinding(mux.Vars(r)["id"]))
}

func (s *server) createRootCause(w http.ResponseWriter, r *http.Request) {
	var rc models.RootCause
	if err := decodeWire(r, &rc); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if rc.Name == "" || rc.FindingID == "" {
		respondError(w, http.StatusBadRequest, "Root cause name and finding id are required")
		return
	}
	now := time.Now()
	rc.ID = uuid.NewString()
	rc.Status = models.RootCauseDraft
	rc.CreatedAt = now
	rc.UpdatedAt = now

	s.store.mu.Lock()
	s.store.rootCauses[rc.ID] = rc
	s.store.mu.Unlock()

	s.hub.broadcast(events.TopicRootCauses, rc.ID, "drafted")
	respondWire(w, http.StatusCreated, rc)
}

func (s *server) updateRootCause(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var in models.RootCause
	if err := decodeWire(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.store.mu.Lock()
	rc, ok := s.store.rootCauses[id]
	if ok {
		if in.Name != "" {
			rc.Name = in.Name
		}
		rc.Description = in.Description
		rc.Category = in.Category
		if in.Status != "" {
			rc.Status = in.Status
		}
		rc.RejectionReason = in.RejectionReason
		rc.UpdatedAt = time.Now()
		s.store.rootCauses[id] = rc
	}
	s.store.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "Root cause not found")
		return
	}
	s.hub.broadcast(events.TopicRootCauses, id, "updated")
	respondWire(w, http.StatusOK, rc)
}

func (s *server) deleteRootCause(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.store.mu.Lock()
	rc, ok := s.store.rootCauses[id]
	if ok && rc.Status != models.RootCauseDraft {
		s.store.mu.Unlock()
		respondError(w, http.StatusConflict, "Only a Draft root cause is deletable")
		return
	}
	delete(s.store.rootCauses, id)
	s.store.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "Root cause not found")
		return
	}
	s.hub.broadcast(events.TopicRootCauses, id, "deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) reviewRootCause(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var req struct {
			Reason string `json:"reason"`
		}
		if r.Body != nil {
			_ = decodeWire(r, &req)
		}
		if !approve && req.Reason == "" {
			respondError(w, http.StatusBadRequest, "Rejection requires a reason")
			return
		}

		s.store.mu.Lock()
		rc, ok := s.store.rootCauses[id]
		if ok {
			if rc.Status != models.RootCausePending {
				s.store.mu.Unlock()
				respondError(w, http.StatusConflict, "Root cause is not pending review")
				return
			}
			if approve {
				rc.Status = models.RootCauseApproved
			} else {
				rc.Status = models.RootCauseRejected
				rc.RejectionReason = req.Reason
			}
			if claims := claimsFrom(r); claims != nil {
				rc.ReviewerID = claims.UserID
			}
			rc.UpdatedAt = time.Now()
			s.store.rootCauses[id] = rc
		}
		s.store.mu.Unlock()

		if !ok {
			respondError(w, http.StatusNotFound, "Root cause not found")
			return
		}
		s.hub.broadcast(events.TopicRootCauses, id, "reviewed")
		respondWire(w, http.StatusOK, rc)
	}
}

// ---- actions ----

func (s *server) getAction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.store.mu.Lock()
	a, ok := s.store.actions[id]
	s.store.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "Action not found")
		return
	}
	respondWire(w, http.StatusOK, a)
}

func (s *server) listActions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	respondList(w, s.store.actionsByFilter(q.Get("assigneeId"), q.Get("rootCauseId"), q.Get("departmentId")))
}

func (s *server) createAction(w http.ResponseWriter, r *http.Request) {
	var a models.Action
	if err := decodeWire(r, &a); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if a.Title == "" || a.FindingID == "" {
		respondError(w, http.StatusBadRequest, "Action title and finding id are required")
		return
	}
	now := time.Now()
	a.ID = uuid.NewString()
	a.Status = models.ActionOpen
	a.Progress = 0
	a.CreatedAt = now
	a.UpdatedAt = now

	s.store.mu.Lock()
	s.store.actions[a.ID] = a
	s.store.mu.Unlock()

	s.hub.broadcast(events.TopicActions, a.ID, "created")
	respondWire(w, http.StatusCreated, a)
}

func (s *server) updateActionProgress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		Progress int `json:"progress"`
	}
	if err := decodeWire(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.store.mu.Lock()
	a, ok := s.store.actions[id]
	if ok {
		a.Progress = req.Progress
		a.UpdatedAt = time.Now()
		s.store.actions[id] = a
	}
	s.store.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "Action not found")
		return
	}
	s.hub.broadcast(events.TopicActions, id, "progress")
	respondWire(w, http.StatusOK, a)
}

func (s *server) updateActionStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		Status models.ActionStatus `json:"status"`
	}
	if err := decodeWire(r, &req); err != nil || !req.Status.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	s.setActionStatus(w, r, id, req.Status, "")
}

// reviewAction handles all four review-tier endpoints; they differ only in
// target status and whether feedback is mandatory.
func (s *server) reviewAction(target models.ActionStatus, feedbackRequired bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var req struct {
			Feedback string `json:"feedback"`
		}
		if r.Body != nil {
			_ = decodeWire(r, &req)
		}
		if feedbackRequired && req.Feedback == "" {
			respondError(w, http.StatusBadRequest, "Feedback is required")
			return
		}
		s.setActionStatus(w, r, id, target, req.Feedback)
	}
}

func (s *server) setActionStatus(w http.ResponseWriter, r *http.Request, id string, status models.ActionStatus, feedback string) {
	s.store.mu.Lock()
	a, ok := s.store.actions[id]
	if ok {
		a.Status = status
		if feedback != "" {
			a.ReviewerFeedback = feedback
		}
		if status == models.ActionApproved || status == models.ActionClosed {
			now := time.Now()
			a.ClosedAt = &now
		}
		a.UpdatedAt = time.Now()
		s.store.actions[id] = a
	}
	s.store.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "Action not found")
		return
	}
	s.hub.broadcast(events.TopicActions, id, "status")
	respondWire(w, http.StatusOK, a)
}

// ---- attachments ----

func (s *server) listAttachments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	respondList(w, s.store.attachmentsByEntity(models.EntityType(q.Get("entityType")), q.Get("entityId")))
}

func (s *server) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("File")
	if err != nil {
		respondError(w, http.StatusBadRequest, "File payload is required")
		return
	}
	defer file.Close()
	size, _ := io.Copy(io.Discard, file)

	a := models.Attachment{
		ID:          uuid.NewString(),
		EntityType:  models.EntityType(r.FormValue("EntityType")),
		EntityID:    r.FormValue("EntityId"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		SizeBytes:   size,
		Status:      models.AttachmentStatus(r.FormValue("Status")),
		CreatedAt:   time.Now(),
	}
	if a.Status == "" {
		a.Status = models.AttachmentOpen
	}
	if raw := r.FormValue("RetentionUntil"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			a.RetentionUntil = &t
		}
	}
	if claims := claimsFrom(r); claims != nil {
		a.UploadedBy = claims.UserID
	}
	if a.EntityID == "" || !a.EntityType.Valid() {
		respondError(w, http.StatusBadRequest, "Owning entity is required")
		return
	}

	s.store.mu.Lock()
	s.store.attachments[a.ID] = a
	s.store.mu.Unlock()

	s.hub.broadcast(events.TopicAttachments, a.ID, "uploaded")
	respondWire(w, http.StatusCreated, a)
}

// ---- dashboard ----

// dashboard serves the chart rollups over everything in the store.
func (s *server) dashboard(w http.ResponseWriter, r *http.Request) {
	s.store.mu.Lock()
	findings := make([]models.Finding, 0, len(s.store.findings))
	for _, f := range s.store.findings {
		findings = append(findings, f)
	}
	actions := make([]models.Action, 0, len(s.store.actions))
	for _, a := range s.store.actions {
		actions = append(actions, a)
	}
	departments := append([]models.Department(nil), s.store.departments...)
	s.store.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"findingsBySeverity":   reports.FindingsBySeverity(findings),
		"findingsByDepartment": reports.FindingsByDepartment(findings, departments),
		"findingsByWeekday":    reports.FindingsByWeekday(findings),
		"actionsByStatus":      reports.ActionsByDerivedStatus(actions, time.Now()),
	})
}

// ---- master data ----

func (s *server) listSeverities(w http.ResponseWriter, r *http.Request) {
	respondList(w, []models.Severity{
		models.SeverityMinor, models.SeverityMedium, models.SeverityMajor, models.SeverityCritical,
	})
}

func (s *server) listDepartments(w http.ResponseWriter, r *http.Request) {
	respondList(w, s.store.departments)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
