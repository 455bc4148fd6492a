package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadIncludesTurnPipelineDefaults(t *testing.T) {
	t.Setenv("SEARCH_TIMEOUT_SECONDS", "")
	t.Setenv("INTENT_MODEL_THRESHOLD", "")
	t.Setenv("HISTORY_MESSAGES", "")
	t.Setenv("API_RATE_LIMIT_RPS", "")
	t.Setenv("API_MAX_IN_FLIGHT", "")

	cfg := Load()
	if cfg.SearchTimeoutSeconds != 10 {
		t.Fatalf("expected default search timeout 10, got %d", cfg.SearchTimeoutSeconds)
	}
	if cfg.IntentModelThreshold != 0.6 {
		t.Fatalf("expected default intent threshold 0.6, got %v", cfg.IntentModelThreshold)
	}
	if cfg.HistoryMessages != 12 {
		t.Fatalf("expected default history window 12, got %d", cfg.HistoryMessages)
	}
	if cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected default rate limit 20 rps, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIMaxInFlight != 64 {
		t.Fatalf("expected default in-flight cap 64, got %d", cfg.APIMaxInFlight)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("NATS_SUBJECT", "turns.analytics")
	t.Setenv("INTENT_MODEL_THRESHOLD", "0.75")
	t.Setenv("API_RATE_LIMIT_BURST", "10")
	t.Setenv("TURN_TIMEOUT_SECONDS", "30")

	cfg := Load()
	if cfg.NATSSubject != "turns.analytics" {
		t.Fatalf("expected subject override, got %q", cfg.NATSSubject)
	}
	if cfg.IntentModelThreshold != 0.75 {
		t.Fatalf("expected intent threshold 0.75, got %v", cfg.IntentModelThreshold)
	}
	if cfg.APIRateLimitBurst != 10 {
		t.Fatalf("expected burst 10, got %d", cfg.APIRateLimitBurst)
	}
	if cfg.TurnTimeoutSeconds != 30 {
		t.Fatalf("expected turn timeout 30, got %d", cfg.TurnTimeoutSeconds)
	}
}

func TestLoadPoliciesEmptyPathUsesDefaults(t *testing.T) {
	policies, err := LoadPolicies("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policies.Confidence.RelevanceWeight != 30 {
		t.Fatalf("expected default relevance weight 30, got %v", policies.Confidence.RelevanceWeight)
	}
	if policies.RoutingConfigs != nil {
		t.Fatalf("expected no routing overrides, got %v", policies.RoutingConfigs)
	}
}

func TestLoadPoliciesParsesYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	content := `
confidence:
  relevance_weight: 40
  entity_weight: 20
routing_configs:
  billing:
    semantic_weight: 0.6
    keyword_weight: 0.4
    max_results: 15
    final_k: 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	policies, err := LoadPolicies(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policies.Confidence.RelevanceWeight != 40 {
		t.Fatalf("expected relevance weight 40, got %v", policies.Confidence.RelevanceWeight)
	}
	billing, ok := policies.RoutingConfigs["billing"]
	if !ok {
		t.Fatal("expected billing routing config")
	}
	if billing.SemanticWeight != 0.6 || billing.FinalK != 5 {
		t.Fatalf("unexpected billing config %+v", billing)
	}
}

func TestLoadPoliciesRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("confidence: ["), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	if _, err := LoadPolicies(path); err == nil {
		t.Fatal("expected parse error for malformed policy file")
	}
}

func TestLoadPoliciesMissingFileFails(t *testing.T) {
	if _, err := LoadPolicies(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing policy file")
	}
}
