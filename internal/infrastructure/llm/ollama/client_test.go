package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

func TestGeneratorBuildsEvidencePrompt(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", "intent", nil)
	gen := NewGenerator(client)
	_, err := gen.GenerateAnswer(context.Background(), "How do refunds work?", []domain.EvidenceItem{
		{Title: "Refund guide", Category: "billing", Content: "Refunds take 5-10 days.", Score: 0.91},
	})
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if !strings.Contains(capturedPrompt, "How do refunds work?") || !strings.Contains(capturedPrompt, "Refunds take 5-10 days.") {
		t.Fatalf("unexpected prompt: %s", capturedPrompt)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", "intent", nil)
	embedder := NewEmbedder(client)
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to map to a temporary error, got %v", err)
	}
}

func TestIntentClassifierParsesStrictJSON(t *testing.T) {
	var capturedModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedModel, _ = payload["model"].(string)
		_, _ = w.Write([]byte(`{"response":"{\"intent\":\"billing\",\"confidence\":0.82}"}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", "intent-model", nil)
	classifier := NewIntentClassifier(client)
	result, err := classifier.ClassifyIntent(context.Background(), "I was double charged", nil)
	if err != nil {
		t.Fatalf("ClassifyIntent() error = %v", err)
	}
	if capturedModel != "intent-model" {
		t.Fatalf("expected intent model, got %q", capturedModel)
	}
	if result.Intent != "billing" || result.Confidence != 0.82 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Method != domain.IntentMethodModel {
		t.Fatalf("expected model method, got %q", result.Method)
	}
}

func TestIntentClassifierRejectsNonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"no structured output"}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", "intent", nil)
	classifier := NewIntentClassifier(client)
	if _, err := classifier.ClassifyIntent(context.Background(), "hello", nil); err == nil {
		t.Fatal("expected parse error")
	}
}
