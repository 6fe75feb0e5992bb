package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fishdisease-service/api/controllers"
	apimiddleware "fishdisease-service/api/middleware"
	"fishdisease-service/service/config"
	"fishdisease-service/service/diagnosis"
	"fishdisease-service/service/distributed_lock"
	"fishdisease-service/service/knowledge"
	"fishdisease-service/service/models"
	"fishdisease-service/service/session"
	"fishdisease-service/testutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const adminPassword = "s3cret"

type testEnv struct {
	router   *chi.Mux
	kb       *knowledge.KnowledgeBase
	sessions *session.Service
	http     *testutil.HTTPTestHelper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	cfg := config.NewConfigService(tdb.DB)
	require.NoError(t, cfg.Manager().Load(ctx))

	kb := knowledge.NewKnowledgeBase(tdb.DB)
	_, err := kb.Seed(ctx)
	require.NoError(t, err)
	require.NoError(t, kb.Load(ctx))

	diag := diagnosis.NewService(kb, cfg, nil)
	sessions := session.NewService(session.NewMemoryStore(), diag,
		session.StaticSettings{Debounce: 10 * time.Millisecond, TTL: time.Hour},
		distributed_lock.NewLocalLock())
	t.Cleanup(sessions.Close)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	r := chi.NewRouter()
	RegisterRoutes(r, Dependencies{
		DB:        tdb.DB,
		Config:    cfg,
		Knowledge: kb,
		Diagnosis: diag,
		Sessions:  sessions,
		AdminAuth: apimiddleware.NewAdminAuth("admin", string(hash)),
	})
	return &testEnv{router: r, kb: kb, sessions: sessions, http: testutil.NewHTTPTestHelper()}
}

func (e *testEnv) admin(t *testing.T, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req, err := e.http.CreateJSONRequest(method, url, body)
	require.NoError(t, err)
	req.SetBasicAuth("admin", adminPassword)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	w := env.http.Do(t, env.router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.http.Do(t, env.router, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ready controllers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Greater(t, ready.Diseases, 0)
	assert.Equal(t, env.kb.Snapshot().Version(), ready.KnowledgeVersion)
}

func TestReady_EmptyKnowledgeBase(t *testing.T) {
	kb := knowledge.NewKnowledgeBase(nil)
	r := chi.NewRouter()
	RegisterRoutes(r, Dependencies{Knowledge: kb})

	w := testutil.NewHTTPTestHelper().Do(t, r, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSymptomsAndDiseases(t *testing.T) {
	env := newTestEnv(t)

	w := env.http.Do(t, env.router, http.MethodGet, "/symptoms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var symptoms []knowledge.Symptom
	status, _ := env.http.DecodeResponse(t, w, &symptoms)
	assert.Equal(t, 0, status)
	assert.Len(t, symptoms, len(env.kb.Snapshot().Symptoms()))

	w = env.http.Do(t, env.router, http.MethodGet, "/symptoms?q=g01", nil)
	symptoms = nil
	env.http.DecodeResponse(t, w, &symptoms)
	require.NotEmpty(t, symptoms)
	assert.Equal(t, "G01", symptoms[0].Code)

	w = env.http.Do(t, env.router, http.MethodGet, "/symptoms?q=zzzz-no-such-symptom", nil)
	assert.Contains(t, w.Body.String(), `"data":[]`)

	w = env.http.Do(t, env.router, http.MethodGet, "/diseases/p01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var detail controllers.DiseaseDetail
	env.http.DecodeResponse(t, w, &detail)
	assert.Equal(t, "P01", detail.Code)
	assert.Len(t, detail.Symptoms, len(detail.Rules))

	w = env.http.Do(t, env.router, http.MethodGet, "/diseases/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	status, _ = env.http.DecodeResponse(t, w, nil)
	assert.Equal(t, http.StatusNotFound, status)

	w = env.http.Do(t, env.router, http.MethodGet, "/diseases?page=1&size=2", nil)
	var page controllers.PaginatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(len(env.kb.Snapshot().Diseases())), page.Total)
	assert.Len(t, page.Data, 2)
}

func TestDiagnosis(t *testing.T) {
	env := newTestEnv(t)

	w := env.http.Do(t, env.router, http.MethodPost, "/diagnosis", map[string]interface{}{
		"symptoms": []string{"g02", "G03", "G04", "G13", "G01", "X99"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report diagnosis.Report
	status, _ := env.http.DecodeResponse(t, w, &report)
	assert.Equal(t, 0, status)
	require.NotEmpty(t, report.Results)
	assert.Equal(t, "P01", report.Results[0].Code)
	assert.Equal(t, 100.0, report.Results[0].Percentage)
	assert.Equal(t, []string{"X99"}, report.Ignored)

	w = env.http.Do(t, env.router, http.MethodPost, "/diagnosis", map[string]interface{}{"symptoms": []string{}})
	report = diagnosis.Report{}
	_, msg := env.http.DecodeResponse(t, w, &report)
	assert.Equal(t, diagnosis.MessageSelectSymptoms, msg)
	assert.Empty(t, report.Results)

	w = env.http.Do(t, env.router, http.MethodGet, "/diagnosis?symptoms=G02,G03&symptom=G04&tie_break=MATCHED", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report = diagnosis.Report{}
	env.http.DecodeResponse(t, w, &report)
	assert.Equal(t, []string{"G02", "G03", "G04"}, report.Symptoms)
	assert.Equal(t, diagnosis.TieBreakMatched, report.Options.TieBreak)
}

func TestDiagnosis_RejectsInvalidOverrides(t *testing.T) {
	env := newTestEnv(t)

	w := env.http.Do(t, env.router, http.MethodPost, "/diagnosis", map[string]interface{}{
		"symptoms": []string{"G01"},
		"engine":   "prolog",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.http.Do(t, env.router, http.MethodGet, "/diagnosis?symptoms=G01&min_percentage=100", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.http.Do(t, env.router, http.MethodGet, "/diagnosis?symptoms=G01&min_percentage=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfig_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{"value": "matched"}

	w := env.http.Do(t, env.router, http.MethodPut, "/config/"+config.KeyMatcherTieBreak, body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))

	req, err := env.http.CreateJSONRequest(http.MethodPut, "/config/"+config.KeyMatcherTieBreak, body)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "wrong")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.admin(t, http.MethodPut, "/config/"+config.KeyMatcherTieBreak, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var item models.SystemConfigItem
	env.http.DecodeResponse(t, w, &item)
	assert.Equal(t, "matched", item.Value)
	assert.Equal(t, config.SourceDatabase, item.Source)

	w = env.http.Do(t, env.router, http.MethodGet, "/config/"+config.KeyMatcherTieBreak, nil)
	item = models.SystemConfigItem{}
	env.http.DecodeResponse(t, w, &item)
	assert.Equal(t, "matched", item.Value)

	w = env.admin(t, http.MethodPut, "/config/"+config.KeyMatcherTieBreak, map[string]string{"value": "random"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.admin(t, http.MethodPut, "/config/no.such.key", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.admin(t, http.MethodDelete, "/config/"+config.KeyMatcherTieBreak, nil)
	require.Equal(t, http.StatusOK, w.Code)
	item = models.SystemConfigItem{}
	env.http.DecodeResponse(t, w, &item)
	assert.Equal(t, config.SourceDefault, item.Source)
}

func TestChecklistFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.http.Do(t, env.router, http.MethodPost, "/checklists", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var checklist session.Checklist
	env.http.DecodeResponse(t, w, &checklist)
	require.NotEmpty(t, checklist.ID)
	assert.Equal(t, diagnosis.MessageSelectSymptoms, checklist.Message)

	base := "/checklists/" + checklist.ID
	w = env.http.Do(t, env.router, http.MethodPost, base+"/toggle/g01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	checklist = session.Checklist{}
	env.http.DecodeResponse(t, w, &checklist)
	assert.True(t, checklist.Loading)
	assert.Equal(t, []string{"G01"}, checklist.Selected)

	w = env.http.Do(t, env.router, http.MethodPost, base+"/flush", nil)
	checklist = session.Checklist{}
	env.http.DecodeResponse(t, w, &checklist)
	assert.False(t, checklist.Loading)
	assert.NotEmpty(t, checklist.Results)

	w = env.http.Do(t, env.router, http.MethodPost, base+"/toggle/X99", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.http.Do(t, env.router, http.MethodPut, base+"/symptoms", map[string][]string{"symptoms": {"G02", "G03"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.http.Do(t, env.router, http.MethodPost, base+"/reset", nil)
	checklist = session.Checklist{}
	env.http.DecodeResponse(t, w, &checklist)
	assert.Empty(t, checklist.Selected)
	assert.Empty(t, checklist.Results)

	w = env.http.Do(t, env.router, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.http.Do(t, env.router, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChecklistEvents(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	checklist, err := env.sessions.Create(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/checklists/"+checklist.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "event: ") {
				events <- strings.TrimPrefix(line, "event: ")
			}
		}
	}()

	next := func() string {
		select {
		case ev := <-events:
			return ev
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for event")
			return ""
		}
	}

	assert.Equal(t, "snapshot", next())
	_, err = env.sessions.Toggle(context.Background(), checklist.ID, "G01")
	require.NoError(t, err)
	assert.Equal(t, "loading", next())
	assert.Equal(t, "result", next())

	require.NoError(t, env.sessions.Delete(context.Background(), checklist.ID))
	assert.Equal(t, "deleted", next())
}

func TestChecklistEvents_UnknownChecklist(t *testing.T) {
	env := newTestEnv(t)
	w := env.http.Do(t, env.router, http.MethodGet, "/checklists/missing/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestKnowledgeExportImport(t *testing.T) {
	env := newTestEnv(t)

	w := env.http.Do(t, env.router, http.MethodGet, "/knowledge/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "yaml")
	doc, err := knowledge.ParseDocument(w.Body.Bytes())
	require.NoError(t, err)
	require.NotEmpty(t, doc.Diseases)

	// 只保留第一种鱼病
	doc.Diseases = doc.Diseases[:1]
	data, err := doc.Encode()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/knowledge/import", strings.NewReader(string(data)))
	req.Header.Set("Content-Type", "application/x-yaml")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/knowledge/import", strings.NewReader(string(data)))
	req.Header.Set("Content-Type", "application/x-yaml")
	req.SetBasicAuth("admin", adminPassword)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, env.kb.Snapshot().Diseases(), 1)

	req = httptest.NewRequest(http.MethodPost, "/knowledge/import", strings.NewReader("diseases: [{code: P1, name: x, rules: [NOPE]}]"))
	req.SetBasicAuth("admin", adminPassword)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, env.kb.Snapshot().Diseases(), 1)

	w = env.admin(t, http.MethodPost, "/knowledge/reload", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
