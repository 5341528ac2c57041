package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/favalepink/traincrm/internal/audit"
	"github.com/favalepink/traincrm/internal/importer"
	"github.com/favalepink/traincrm/internal/lead"
)

// stubStore is a minimal in-memory lead.Store for handler tests.
type stubStore struct {
	refs     []lead.Ref
	fetchErr error
	nextID   int64
}

func (s *stubStore) FetchRefs(context.Context) ([]lead.Ref, error) {
	return s.refs, s.fetchErr
}

func (s *stubStore) InsertMany(_ context.Context, leads []lead.Lead) ([]lead.Inserted, error) {
	inserted := make([]lead.Inserted, 0, len(leads))
	for _, l := range leads {
		s.nextID++
		inserted = append(inserted, lead.Inserted{ID: s.nextID, Email: l.Email})
	}
	return inserted, nil
}

func (s *stubStore) UpdateOne(context.Context, int64, lead.Lead) error { return nil }
func (s *stubStore) Migrate(context.Context) error                    { return nil }
func (s *stubStore) Close() error                                     { return nil }

// stubRecorder serves canned audit events.
type stubRecorder struct {
	audit.Nop
	events []audit.Event
	err    error
}

func (r *stubRecorder) ListRecent(context.Context, string, int) ([]audit.Event, error) {
	return r.events, r.err
}

func newTestRouter(store *stubStore, recorder audit.Recorder, opts Options) http.Handler {
	imp := importer.New(store, recorder, importer.Options{})
	return NewRouter(imp, recorder, opts)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubStore{}, &stubRecorder{}, Options{})

	rec := doJSON(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestImportLeads_Success(t *testing.T) {
	router := newTestRouter(&stubStore{}, &stubRecorder{}, Options{})

	rec := doJSON(t, router, http.MethodPost, "/api/leads/import", map[string]any{
		"actor_id": "user-7",
		"leads": []map[string]any{
			{"name": "Ana", "email": "ana@example.com", "phone": "(11) 91234-5678",
				"state": "SP", "source": "Favale", "status": "Lead"},
			{"name": "Broken"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var result importer.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Success, 1)
	assert.Empty(t, result.Updated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "email is required")
}

func TestImportLeads_InvalidBody(t *testing.T) {
	router := newTestRouter(&stubStore{}, &stubRecorder{}, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/leads/import", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestImportLeads_EmptyLeads(t *testing.T) {
	router := newTestRouter(&stubStore{}, &stubRecorder{}, Options{})

	rec := doJSON(t, router, http.MethodPost, "/api/leads/import", map[string]any{
		"actor_id": "user-7",
		"leads":    []map[string]any{},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "leads list is required")
}

func TestImportLeads_FetchFailure(t *testing.T) {
	store := &stubStore{fetchErr: errors.New("connection refused")}
	router := newTestRouter(store, &stubRecorder{}, Options{})

	rec := doJSON(t, router, http.MethodPost, "/api/leads/import", map[string]any{
		"leads": []map[string]any{
			{"name": "Ana", "email": "ana@example.com", "phone": "11912345678",
				"state": "SP", "source": "Favale", "status": "Lead"},
		},
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "import aborted")
}

func TestListImports(t *testing.T) {
	recorder := &stubRecorder{events: []audit.Event{
		{ID: 2, EventType: audit.EventLeadBatchImport, ActorID: "user-7"},
		{ID: 1, EventType: audit.EventLeadBatchImport, ActorID: "user-7"},
	}}
	router := newTestRouter(&stubStore{}, recorder, Options{})

	rec := doJSON(t, router, http.MethodGet, "/api/imports?limit=5", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Imports []audit.Event `json:"imports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Imports, 2)
	assert.Equal(t, int64(2), body.Imports[0].ID)
}

func TestListImports_EmptyIsArray(t *testing.T) {
	router := newTestRouter(&stubStore{}, &stubRecorder{}, Options{})

	rec := doJSON(t, router, http.MethodGet, "/api/imports", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"imports":[]}`, rec.Body.String())
}

func TestListImports_BadLimit(t *testing.T) {
	router := newTestRouter(&stubStore{}, &stubRecorder{}, Options{})

	for _, limit := range []string{"abc", "0", "-1", "201"} {
		rec := doJSON(t, router, http.MethodGet, "/api/imports?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestListImports_RecorderFailure(t *testing.T) {
	recorder := &stubRecorder{err: errors.New("audit db down")}
	router := newTestRouter(&stubStore{}, recorder, Options{})

	rec := doJSON(t, router, http.MethodGet, "/api/imports", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(&stubStore{}, &stubRecorder{}, Options{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	})

	first := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
