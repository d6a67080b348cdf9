package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gmr0780/bahamas-town-hall/internal/chat"
	"github.com/gmr0780/bahamas-town-hall/internal/db"
	"github.com/gmr0780/bahamas-town-hall/internal/llm"
	"github.com/gmr0780/bahamas-town-hall/internal/models"
	"github.com/gmr0780/bahamas-town-hall/internal/store"
)

const testAdminToken = "test-admin-token"

// scriptedModel replays canned turn results to the orchestrator.
type scriptedModel struct {
	mu      sync.Mutex
	results []*chat.ModelResult
	calls   int
}

func (m *scriptedModel) Converse(context.Context, string, []llm.Message) (*chat.ModelResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls >= len(m.results) {
		return &chat.ModelResult{Reply: "Tell me more!"}, nil
	}
	r := m.results[m.calls]
	m.calls++
	return r, nil
}

func (m *scriptedModel) Complete(context.Context, string, string) (string, error) {
	return `{"personality_title":"Digital Trailblazer","personality_emoji":"🚀","personality_description":"d","summary":"s"}`, nil
}

func testRouter(t *testing.T, model chat.ModelClient) (*gin.Engine, *store.Store) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.SeedSettings(gdb); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	st := store.New(gdb)

	orch := chat.NewOrchestrator(chat.OrchestratorOpts{
		Sessions: chat.NewMemoryStore(time.Hour),
		Model:    model,
		Catalog:  st,
		Sink:     st,
		Status:   st,
	})
	router := NewRouter(Opts{
		Store:      st,
		Chat:       orch,
		Summarizer: chat.NewSummarizer(st, model),
		AdminToken: testAdminToken,
	})
	return router, st
}

func doJSON(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testAdminToken}
}

func seedQuestion(t *testing.T, st *store.Store, qtype, label string, required bool) uint {
	t.Helper()
	q := models.Question{Type: qtype, Label: label, Required: required}
	if err := st.CreateQuestion(context.Background(), &q); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return q.ID
}

func TestChatMessageFullFlow(t *testing.T) {
	model := &scriptedModel{results: []*chat.ModelResult{
		{Reply: "Welcome! What's your first name?"},
		{Reply: "Thanks, submitting!", Demographics: &chat.DemographicPatch{
			FirstName: "Keisha", LastName: "Rolle", Email: "keisha@example.com",
			LivesInBahamas: boolPtr(true), Island: "Exuma",
			AgeGroup: "25-34", Sector: "Education",
		}},
	}}
	router, st := testRouter(t, model)
	// No questions seeded: demographics completion alone finishes the survey.

	w := doJSON(router, http.MethodPost, "/api/chat/message", gin.H{"message": ""}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var start chat.TurnResult
	json.Unmarshal(w.Body.Bytes(), &start)
	if start.SessionID == "" || !strings.Contains(start.Reply, "Welcome") {
		t.Fatalf("start = %+v", start)
	}

	w = doJSON(router, http.MethodPost, "/api/chat/message", gin.H{
		"session_id": start.SessionID,
		"message":    "I'm Keisha Rolle, keisha@example.com, Exuma, 25-34, Education",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("turn status = %d: %s", w.Code, w.Body.String())
	}
	var turn chat.TurnResult
	json.Unmarshal(w.Body.Bytes(), &turn)
	if !turn.Complete || turn.CitizenID == 0 || turn.Progress != 100 {
		t.Fatalf("turn = %+v", turn)
	}

	count, err := st.ResponseCount(context.Background())
	if err != nil || count != 1 {
		t.Fatalf("response count = %d, %v", count, err)
	}

	// The committed citizen feeds the summary endpoint.
	w = doJSON(router, http.MethodPost, "/api/chat/summary", gin.H{"citizen_id": turn.CitizenID}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d: %s", w.Code, w.Body.String())
	}
	var summary chat.Summary
	json.Unmarshal(w.Body.Bytes(), &summary)
	if summary.PersonalityTitle != "Digital Trailblazer" {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestChatMessageErrorTaxonomy(t *testing.T) {
	router, st := testRouter(t, &scriptedModel{})

	// Blank message on an existing-session turn: 400.
	w := doJSON(router, http.MethodPost, "/api/chat/message", gin.H{"session_id": "some-id", "message": "  "}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank message status = %d", w.Code)
	}

	// Unknown session: 404.
	w = doJSON(router, http.MethodPost, "/api/chat/message", gin.H{"session_id": "ghost", "message": "hi"}, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d", w.Code)
	}

	// Closed survey: 403 on new sessions.
	if err := st.SetSurveyOpen(context.Background(), false); err != nil {
		t.Fatalf("close survey: %v", err)
	}
	w = doJSON(router, http.MethodPost, "/api/chat/message", gin.H{"message": ""}, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("closed survey status = %d", w.Code)
	}
}

func TestChatSummaryNotFound(t *testing.T) {
	router, _ := testRouter(t, &scriptedModel{})
	w := doJSON(router, http.MethodPost, "/api/chat/summary", gin.H{"citizen_id": 999}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestPublicEndpoints(t *testing.T) {
	router, st := testRouter(t, &scriptedModel{})
	seedQuestion(t, st, "scale", "How comfortable are you with technology?", true)

	w := doJSON(router, http.MethodGet, "/api/questions", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "How comfortable") {
		t.Errorf("questions: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(router, http.MethodGet, "/api/survey-status", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"open":true`) {
		t.Errorf("survey-status: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(router, http.MethodGet, "/api/response-count", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":0`) {
		t.Errorf("response-count: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(router, http.MethodPost, "/api/track", gin.H{"path": "/survey"}, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("track: %d %s", w.Code, w.Body.String())
	}
}

func TestCreateCitizenValidation(t *testing.T) {
	router, st := testRouter(t, &scriptedModel{})
	qid := seedQuestion(t, st, "textarea", "What should we prioritize?", true)

	valid := gin.H{
		"name": "Keisha Rolle", "email": "keisha@example.com",
		"lives_in_bahamas": true, "island": "Exuma",
		"age_group": "25-34", "sector": "Education",
		"answers": map[string]string{fmt.Sprint(qid): "Better internet"},
	}

	tests := []struct {
		name   string
		mutate func(gin.H)
		status int
	}{
		{"valid", func(gin.H) {}, http.StatusCreated},
		{"duplicate email", func(gin.H) {}, http.StatusConflict},
		{"missing name", func(b gin.H) { b["name"] = ""; b["email"] = "a@b.co" }, http.StatusBadRequest},
		{"bad email", func(b gin.H) { b["email"] = "not-an-email" }, http.StatusBadRequest},
		{"abroad without country", func(b gin.H) {
			b["email"] = "b@c.co"
			b["lives_in_bahamas"] = false
		}, http.StatusBadRequest},
		{"missing required answer", func(b gin.H) {
			b["email"] = "c@d.co"
			b["answers"] = map[string]string{}
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := gin.H{}
			for k, v := range valid {
				body[k] = v
			}
			tt.mutate(body)
			w := doJSON(router, http.MethodPost, "/api/citizens", body, nil)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestAdminAuth(t *testing.T) {
	router, _ := testRouter(t, &scriptedModel{})

	w := doJSON(router, http.MethodGet, "/api/admin/stats", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d", w.Code)
	}
	w = doJSON(router, http.MethodGet, "/api/admin/stats", nil, map[string]string{"Authorization": "Bearer wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", w.Code)
	}
	w = doJSON(router, http.MethodGet, "/api/admin/stats", nil, adminHeaders())
	if w.Code != http.StatusOK {
		t.Errorf("good token status = %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminQuestionLifecycle(t *testing.T) {
	router, _ := testRouter(t, &scriptedModel{})

	// Create.
	w := doJSON(router, http.MethodPost, "/api/admin/questions", gin.H{
		"type": "dropdown", "label": "Favorite topic?",
		"options": `["AI","Security"]`,
	}, adminHeaders())
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID uint `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)

	// Invalid type rejected.
	w = doJSON(router, http.MethodPost, "/api/admin/questions", gin.H{"type": "slider", "label": "x"}, adminHeaders())
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad type status = %d", w.Code)
	}

	// Update.
	w = doJSON(router, http.MethodPut, fmt.Sprintf("/api/admin/questions/%d", created.ID),
		gin.H{"label": "Preferred topic?"}, adminHeaders())
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Preferred topic?") {
		t.Errorf("update: %d %s", w.Code, w.Body.String())
	}

	// Reorder.
	w = doJSON(router, http.MethodPatch, "/api/admin/questions/reorder",
		gin.H{"order": []gin.H{{"id": created.ID, "sort_order": 5}}}, adminHeaders())
	if w.Code != http.StatusNoContent {
		t.Errorf("reorder status = %d: %s", w.Code, w.Body.String())
	}

	// Delete deactivates; the question stays in the admin list.
	w = doJSON(router, http.MethodDelete, fmt.Sprintf("/api/admin/questions/%d", created.ID), nil, adminHeaders())
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	w = doJSON(router, http.MethodGet, "/api/questions", nil, nil)
	if strings.Contains(w.Body.String(), "Preferred topic?") {
		t.Error("deactivated question still served publicly")
	}
	w = doJSON(router, http.MethodGet, "/api/admin/questions", nil, adminHeaders())
	if !strings.Contains(w.Body.String(), "Preferred topic?") {
		t.Error("deactivated question missing from admin list")
	}

	// Unknown id: 404.
	w = doJSON(router, http.MethodDelete, "/api/admin/questions/999", nil, adminHeaders())
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown delete status = %d", w.Code)
	}
}

func TestAdminSurveyToggleAndResponses(t *testing.T) {
	router, st := testRouter(t, &scriptedModel{})
	qid := seedQuestion(t, st, "text", "Anything else?", false)

	// Submit one citizen through the classic endpoint.
	w := doJSON(router, http.MethodPost, "/api/citizens", gin.H{
		"name": "Tavon Smith", "email": "tavon@example.com",
		"lives_in_bahamas": true, "island": "Andros",
		"age_group": "35-44", "sector": "Healthcare",
		"answers": map[string]string{fmt.Sprint(qid): "More fiber"},
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create citizen: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(router, http.MethodGet, "/api/admin/responses?search=tavon", nil, adminHeaders())
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Tavon Smith") {
		t.Errorf("responses list: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(router, http.MethodGet, "/api/admin/responses/1", nil, adminHeaders())
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "More fiber") {
		t.Errorf("response detail: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(router, http.MethodGet, "/api/admin/responses/999", nil, adminHeaders())
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown detail status = %d", w.Code)
	}

	// Close the survey; further classic submissions are rejected.
	w = doJSON(router, http.MethodPut, "/api/admin/survey-status", gin.H{"open": false}, adminHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", w.Code)
	}
	w = doJSON(router, http.MethodPost, "/api/citizens", gin.H{
		"name": "Late Person", "email": "late@example.com",
		"lives_in_bahamas": true, "island": "Bimini",
		"age_group": "25-34", "sector": "Student",
	}, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("closed submission status = %d", w.Code)
	}
}

func TestExportEndpoints(t *testing.T) {
	router, st := testRouter(t, &scriptedModel{})
	qid := seedQuestion(t, st, "checkbox", "What barriers do you face?", false)

	w := doJSON(router, http.MethodPost, "/api/citizens", gin.H{
		"name": "Keisha Rolle", "email": "keisha@example.com",
		"lives_in_bahamas": true, "island": "Exuma",
		"age_group": "25-34", "sector": "Education",
		"answers": map[string]string{fmt.Sprint(qid): `["Cost","Skills"]`},
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create citizen: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(router, http.MethodGet, "/api/admin/export/csv", nil, adminHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("csv status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("csv content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "What barriers do you face?") || !strings.Contains(body, "Cost, Skills") {
		t.Errorf("csv body = %q", body)
	}

	w = doJSON(router, http.MethodGet, "/api/admin/export/json", nil, adminHeaders())
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Cost, Skills") {
		t.Errorf("json export: %d %s", w.Code, w.Body.String())
	}
}

func TestPageViewsEndpoint(t *testing.T) {
	router, _ := testRouter(t, &scriptedModel{})

	doJSON(router, http.MethodPost, "/api/track", gin.H{"path": "/survey"}, nil)
	doJSON(router, http.MethodPost, "/api/track", gin.H{"path": "/survey"}, nil)
	doJSON(router, http.MethodPost, "/api/track", gin.H{"path": "/"}, nil)

	w := doJSON(router, http.MethodGet, "/api/admin/page-views", nil, adminHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var stats struct {
		TotalViews int64 `json:"total_views"`
	}
	json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.TotalViews != 3 {
		t.Errorf("total views = %d, want 3", stats.TotalViews)
	}

	w = doJSON(router, http.MethodGet, "/api/admin/page-views?from=bogus", nil, adminHeaders())
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d", w.Code)
	}
}

func boolPtr(b bool) *bool { return &b }
