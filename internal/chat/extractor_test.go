package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gmr0780/bahamas-town-hall/internal/llm"
)

// toolServer replies to every Messages call with a single tool_use block
// carrying the given input JSON.
func toolServer(t *testing.T, input string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if _, ok := payload["tool_choice"]; !ok {
			t.Error("tool_choice missing: extraction calls must force a tool")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"tool_use","name":"survey_update","input":` + input + `}],"stop_reason":"tool_use"}`))
	}))
}

func extractorFor(url string) *Extractor {
	return NewExtractor(llm.New(llm.Config{APIKey: "test-key", Model: "test-model", BaseURL: url}))
}

func TestConverseDecodesToolInput(t *testing.T) {
	srv := toolServer(t, `{
		"reply": "Nice to meet you, Keisha!",
		"quick_replies": ["Yes", "No"],
		"extracted_demographics": {"first_name": "Keisha", "lives_in_bahamas": true},
		"extracted_answer": {"question_id": 2, "value": "[\"Cost\"]"},
		"is_asking_followup": true
	}`)
	defer srv.Close()

	result, err := extractorFor(srv.URL).Converse(context.Background(), "system", []llm.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if result.Reply != "Nice to meet you, Keisha!" {
		t.Errorf("Reply = %q", result.Reply)
	}
	if len(result.QuickReplies) != 2 {
		t.Errorf("QuickReplies = %v", result.QuickReplies)
	}
	if result.Demographics == nil || result.Demographics.FirstName != "Keisha" {
		t.Errorf("Demographics = %+v", result.Demographics)
	}
	if result.Demographics.LivesInBahamas == nil || !*result.Demographics.LivesInBahamas {
		t.Error("LivesInBahamas not decoded")
	}
	if result.Answer == nil || result.Answer.QuestionID != 2 || result.Answer.Value != `["Cost"]` {
		t.Errorf("Answer = %+v", result.Answer)
	}
	if !result.AskingFollowup {
		t.Error("AskingFollowup not decoded")
	}
}

func TestConverseEmptyAnswerDropped(t *testing.T) {
	srv := toolServer(t, `{"reply": "Okay!", "extracted_answer": {"question_id": 1, "value": ""}}`)
	defer srv.Close()

	result, err := extractorFor(srv.URL).Converse(context.Background(), "system", nil)
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if result.Answer != nil {
		t.Errorf("empty answer should be dropped, got %+v", result.Answer)
	}
}

func TestConverseMalformedToolInputDegrades(t *testing.T) {
	// The input is valid JSON but not the expected object, so decoding and
	// repair both fail; the turn must still degrade to a usable reply.
	srv := toolServer(t, `"not an object"`)
	defer srv.Close()

	result, err := extractorFor(srv.URL).Converse(context.Background(), "system", []llm.Message{
		{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hey"}, {Role: "user", Content: "tell me"},
	})
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if result.Reply != fallbackReply {
		t.Fatalf("Reply = %q, want fallback", result.Reply)
	}
}

func TestConverseTextOnlyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"Just chatting."}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	result, err := extractorFor(srv.URL).Converse(context.Background(), "system", nil)
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if result.Reply != "Just chatting." {
		t.Errorf("Reply = %q", result.Reply)
	}
	if result.Answer != nil || result.Demographics != nil {
		t.Error("text-only turn should extract nothing")
	}
}

func TestConverseNotConfigured(t *testing.T) {
	e := NewExtractor(llm.New(llm.Config{}))
	if _, err := e.Converse(context.Background(), "system", nil); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestCompletePlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		if _, ok := payload["tools"]; ok {
			t.Error("summary completion must not send tools")
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"personality_title\":\"Digital Trailblazer\"}"}]}`))
	}))
	defer srv.Close()

	text, err := extractorFor(srv.URL).Complete(context.Background(), "system", "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"personality_title":"Digital Trailblazer"}` {
		t.Errorf("text = %q", text)
	}
}

func TestDecodeToolInputRepair(t *testing.T) {
	// Trailing garbage cut off: repair should close the object.
	input, err := decodeToolInput(json.RawMessage(`{"reply": "Almost done!", "is_asking_followup": false`))
	if err != nil {
		t.Fatalf("decodeToolInput: %v", err)
	}
	if input.Reply != "Almost done!" {
		t.Errorf("Reply = %q", input.Reply)
	}
}
