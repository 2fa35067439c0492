// cmd/stubserver/store.go
package main

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Danhnam1/Audit-System-sub002/models"
)

// memStore is the in-memory state behind the stub. Durability is a
// non-goal: it exists so the client library has a live wire contract to
// talk to during development.
type memStore struct {
	mu          sync.Mutex
	findings    map[string]models.Finding
	rootCauses  map[string]models.RootCause
	actions     map[string]models.Action
	attachments map[string]models.Attachment
	users       map[string]stubUser // keyed by email
	departments []models.Department
}

type stubUser struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         models.Role
	DepartmentID string
}

func newMemStore() *memStore {
	s := &memStore{
		findings:    make(map[string]models.Finding),
		rootCauses:  make(map[string]models.RootCause),
		actions:     make(map[string]models.Action),
		attachments: make(map[string]models.Attachment),
		users:       make(map[string]stubUser),
	}
	s.seed()
	return s
}

// seed provisions master data and one user per role, all with the password
// "changeme1".
func (s *memStore) seed() {
	s.departments = []models.Department{
		{ID: "dep-production", Name: "Production"},
		{ID: "dep-quality", Name: "Quality"},
		{ID: "dep-logistics", Name: "Logistics"},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme1"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	seedUsers := []stubUser{
		{ID: uuid.NewString(), Name: "Ava Auditor", Email: "auditor@example.com", Role: models.RoleAuditor},
		{ID: uuid.NewString(), Name: "Omar Owner", Email: "owner@example.com", Role: models.RoleDepartmentOwner, DepartmentID: "dep-production"},
		{ID: uuid.NewString(), Name: "Alex Assignee", Email: "assignee@example.com", Role: models.RoleActionOwner, DepartmentID: "dep-production"},
		{ID: uuid.NewString(), Name: "Lea Lead", Email: "lead@example.com", Role: models.RoleLeadAuditor},
	}
	for _, u := range seedUsers {
		u.PasswordHash = string(hash)
		s.users[u.Email] = u
	}
}

func (s *memStore) findingsByFilter(departmentID string, from, to *time.Time) []models.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Finding{}
	for _, f := range s.findings {
		if departmentID != "" && f.DepartmentID != departmentID {
			continue
		}
		if from != nil && f.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && f.CreatedAt.After(to.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, f)
	}
	sortByID(out, func(f models.Finding) string { return f.ID })
	return out
}

func (s *memStore) rootCausesByFinding(findingID string) []models.RootCause {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.RootCause{}
	for _, rc := range s.rootCauses {
		if rc.FindingID == findingID {
			out = append(out, rc)
		}
	}
	sortByID(out, func(rc models.RootCause) string { return rc.ID })
	return out
}

func (s *memStore) actionsByFilter(assigneeID, rootCauseID, departmentID string) []models.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Action{}
	for _, a := range s.actions {
		if assigneeID != "" && a.AssigneeID != assigneeID {
			continue
		}
		if rootCauseID != "" && a.RootCauseID != rootCauseID {
			continue
		}
		if departmentID != "" {
			f, ok := s.findings[a.FindingID]
			if !ok || f.DepartmentID != departmentID {
				continue
			}
		}
		out = append(out, a)
	}
	sortByID(out, func(a models.Action) string { return a.ID })
	return out
}

func (s *memStore) attachmentsByEntity(entityType models.EntityType, entityID string) []models.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Attachment{}
	for _, a := range s.attachments {
		if a.EntityType == entityType && a.EntityID == entityID {
			out = append(out, a)
		}
	}
	sortByID(out, func(a models.Attachment) string { return a.ID })
	return out
}

// closeFinding marks the finding Closed and cascades to its non-terminal
// actions.
func (s *memStore) closeFinding(id string) (models.Finding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.findings[id]
	if !ok {
		return models.Finding{}, false
	}
	now := time.Now()
	f.Status = models.FindingClosed
	f.UpdatedAt = now
	s.findings[id] = f

	for aid, a := range s.actions {
		if a.FindingID != id {
			continue
		}
		switch a.Status {
		case models.ActionApproved, models.ActionClosed, models.ActionArchived:
			continue
		}
		a.Status = models.ActionClosed
		a.ClosedAt = &now
		a.UpdatedAt = now
		s.actions[aid] = a
	}
	return f, true
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func sortByID[T any](items []T, id func(T) string) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}
