package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

func TestSearchSemanticMapsPayload(t *testing.T) {
	var capturedBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/support_docs/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&capturedBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.91,"payload":{"doc_id":"d1","title":"Refund guide","url":"https://docs.example/refunds","category":"billing","content":"Refunds take 5-10 days."}},
			{"score":0.64,"payload":{"doc_id":"d2","title":"Chargebacks","category":"billing","content":"Dispute flow."}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "support_docs", nil)
	items, err := client.SearchSemantic(context.Background(), []float32{0.1, 0.2}, 5, domain.SearchFilter{Category: "billing"})
	if err != nil {
		t.Fatalf("SearchSemantic() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0]
	if first.ID != "d1" || first.Title != "Refund guide" || first.Score != 0.91 {
		t.Fatalf("unexpected first item %+v", first)
	}
	if first.SearchType != domain.SearchTypeSemantic {
		t.Fatalf("expected semantic search type, got %q", first.SearchType)
	}
	if _, hasFilter := capturedBody["filter"]; !hasFilter {
		t.Fatal("expected category filter in request body")
	}
	if capturedBody["limit"] != float64(5) {
		t.Fatalf("expected limit 5, got %v", capturedBody["limit"])
	}
}

func TestSearchSemanticOmitsEmptyFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if _, hasFilter := body["filter"]; hasFilter {
			t.Fatal("empty filter must not be sent")
		}
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "support_docs", nil)
	items, err := client.SearchSemantic(context.Background(), []float32{0.1}, 3, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("SearchSemantic() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestSearchSemanticSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection missing", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "support_docs", nil)
	if _, err := client.SearchSemantic(context.Background(), []float32{0.1}, 3, domain.SearchFilter{}); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}
