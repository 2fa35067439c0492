package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danhnam1/Audit-System-sub002/models"
	"github.com/Danhnam1/Audit-System-sub002/workflow"
)

func testToken(t *testing.T, role models.Role) string {
	t.Helper()
	token, err := GenerateToken([]byte("test-key"), time.Hour, "user-1", "Test User", role, "dep-1")
	require.NoError(t, err)
	return token
}

func newTestStore(t *testing.T, handler http.Handler) (*Store, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store, err := New(srv.URL, testToken(t, models.RoleAuditor), 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	return store, srv
}

func TestNewParsesIdentityFromToken(t *testing.T) {
	store, _ := newTestStore(t, http.NotFoundHandler())
	require.NotNil(t, store.Claims())
	assert.Equal(t, "user-1", store.Claims().UserID)
	assert.Equal(t, models.RoleAuditor, store.Claims().Role)
}

func TestFetchListUnwrapsEnvelopeAndBustsCaches(t *testing.T) {
	var gotAuth, gotCB string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCB = r.URL.Query().Get("_cb")
		io.WriteString(w, `{"$id":"1","$values":[
			{"$id":"2","Id":"f1","Title":"Missing torque record","Severity":"Major","Status":"Open"},
			{"$ref":"2","Id":"f1"},
			{"$id":"3","Id":"f2","Title":"Uncalibrated gauge","Severity":"Minor","Status":"Open"}
		]}`)
	})
	store, _ := newTestStore(t, handler)

	findings, err := store.FetchFindingsByDepartment(context.Background(), "dep-1")
	require.NoError(t, err)

	// Duplicate reference to f1 is dropped; wire PascalCase is translated.
	require.Len(t, findings, 2)
	assert.Equal(t, "Missing torque record", findings[0].Title)
	assert.Equal(t, models.SeverityMajor, findings[0].Severity)
	assert.Equal(t, "f2", findings[1].ID)

	assert.Contains(t, gotAuth, "Bearer ")
	assert.NotEmpty(t, gotCB, "every read carries a cache-busting token")
}

func TestCacheBusterDiffersPerRequest(t *testing.T) {
	var tokens []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.URL.Query().Get("_cb"))
		io.WriteString(w, `{"referenceId":"1","values":[]}`)
	})
	store, _ := newTestStore(t, handler)

	for i := 0; i < 2; i++ {
		_, err := store.FetchFindingsByDepartment(context.Background(), "dep-1")
		require.NoError(t, err)
	}
	require.Len(t, tokens, 2)
	assert.NotEqual(t, tokens[0], tokens[1])
}

func TestFetchOneTranslatesWireCasing(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"$id":"1","Id":"a1","Title":"Retrain operators","Status":"InProgress","Progress":50,"AssigneeId":"user-9"}`)
	})
	store, _ := newTestStore(t, handler)

	a, err := store.FetchAction(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, models.ActionInProgress, a.Status)
	assert.Equal(t, 50, a.Progress)
	assert.Equal(t, "user-9", a.AssigneeID)
}

func TestWriteBodiesGoOutInWireCasing(t *testing.T) {
	var body map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &body))
		io.WriteString(w, `{"Id":"f9","Title":"Missing torque record","Status":"Open"}`)
	})
	store, _ := newTestStore(t, handler)

	created, err := store.CreateFinding(context.Background(), models.Finding{
		Title:        "Missing torque record",
		Severity:     models.SeverityMajor,
		DepartmentID: "dep-1",
		Status:       models.FindingOpen,
	})
	require.NoError(t, err)
	assert.Equal(t, "f9", created.ID)

	assert.Contains(t, body, "Title")
	assert.Contains(t, body, "DepartmentId")
	assert.NotContains(t, body, "title")
}

func TestNonSuccessStatusWrapsRemoteFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	store, _ := newTestStore(t, handler)

	_, err := store.FetchAction(context.Background(), "a1")
	assert.ErrorIs(t, err, workflow.ErrRemoteFailure)

	err = store.CloseFinding(context.Background(), "f1")
	assert.ErrorIs(t, err, workflow.ErrRemoteFailure)
}

func TestFetchListErrorIsNeverEmptyData(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"unexpected":"shape"}`)
	})
	store, _ := newTestStore(t, handler)

	findings, err := store.FetchFindingsByDepartment(context.Background(), "dep-1")
	require.Error(t, err)
	assert.Nil(t, findings, "a parse failure must not masquerade as an empty list")
}

func TestFetchMyActionsFiltersByTokenIdentity(t *testing.T) {
	var gotAssignee string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAssignee = r.URL.Query().Get("assigneeId")
		io.WriteString(w, `{"referenceId":"1","values":[]}`)
	})
	store, _ := newTestStore(t, handler)

	_, err := store.FetchMyActions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", gotAssignee)
}

func TestFetchSeveritiesFallsBackWhenRemoteFails(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	store, _ := newTestStore(t, handler)

	list, err := store.FetchSeverities(context.Background())
	assert.ErrorIs(t, err, workflow.ErrMasterDataUnavailable)
	assert.Equal(t, models.FallbackSeverities, list, "fallback list is returned alongside the error")
}

func TestFetchSeveritiesFallsBackOnEmptyList(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"referenceId":"1","values":[]}`)
	})
	store, _ := newTestStore(t, handler)

	list, err := store.FetchSeverities(context.Background())
	assert.ErrorIs(t, err, workflow.ErrMasterDataUnavailable)
	assert.Equal(t, models.FallbackSeverities, list)
}

func TestFetchSeveritiesUsesRemoteListWhenAvailable(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"referenceId":"1","values":["Minor","Medium","Major","Critical"]}`)
	})
	store, _ := newTestStore(t, handler)

	list, err := store.FetchSeverities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Severity{
		models.SeverityMinor, models.SeverityMedium, models.SeverityMajor, models.SeverityCritical,
	}, list)
}

func TestFetchDepartmentsReturnsErrorWithoutFallback(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	store, _ := newTestStore(t, handler)

	list, err := store.FetchDepartments(context.Background())
	assert.ErrorIs(t, err, workflow.ErrMasterDataUnavailable)
	assert.Empty(t, list)
}

func TestUploadAttachmentSendsMultipart(t *testing.T) {
	var (
		gotEntityType, gotEntityID, gotFile string
		gotPayload                          []byte
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotEntityType = r.FormValue("EntityType")
		gotEntityID = r.FormValue("EntityId")
		file, header, err := r.FormFile("File")
		require.NoError(t, err)
		defer file.Close()
		gotFile = header.Filename
		gotPayload, _ = io.ReadAll(file)
		io.WriteString(w, `{"Id":"att-1","EntityType":"action","EntityId":"a1","FileName":"torque-report.pdf","Status":"Open"}`)
	})
	store, _ := newTestStore(t, handler)

	created, err := store.UploadAttachment(context.Background(), models.Attachment{
		EntityType: models.EntityAction,
		EntityID:   "a1",
		FileName:   "torque-report.pdf",
		Status:     models.AttachmentOpen,
	}, bytes.NewReader([]byte("pdf bytes")))
	require.NoError(t, err)

	assert.Equal(t, "att-1", created.ID)
	assert.Equal(t, "action", gotEntityType)
	assert.Equal(t, "a1", gotEntityID)
	assert.Equal(t, "torque-report.pdf", gotFile)
	assert.Equal(t, "pdf bytes", string(gotPayload))
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	token := testToken(t, models.RoleLeadAuditor)

	claims, err := ValidateToken([]byte("test-key"), token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleLeadAuditor, claims.Role)

	_, err = ValidateToken([]byte("other-key"), token)
	assert.Error(t, err)
}
