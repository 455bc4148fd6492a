package mcp

import (
	"context"
	"testing"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

func TestToolRequestMapping(t *testing.T) {
	cases := []struct {
		kind     string
		wantName string
		wantArg  string
	}{
		{domain.ToolKindMath, "calculate", "expression"},
		{domain.ToolKindDate, "date_info", "query"},
		{domain.ToolKindCurrency, "convert_currency", "query"},
		{domain.ToolKindCode, "validate_code", "snippet"},
	}
	for _, tc := range cases {
		name, args, err := toolRequestFor(tc.kind, "input text")
		if err != nil {
			t.Fatalf("toolRequestFor(%q) error = %v", tc.kind, err)
		}
		if name != tc.wantName {
			t.Fatalf("kind %q mapped to tool %q, want %q", tc.kind, name, tc.wantName)
		}
		if args[tc.wantArg] != "input text" {
			t.Fatalf("kind %q missing argument %q: %v", tc.kind, tc.wantArg, args)
		}
	}
}

func TestToolRequestRejectsUnknownKind(t *testing.T) {
	if _, _, err := toolRequestFor("weather", "forecast"); err == nil {
		t.Fatal("expected error for unknown tool kind")
	}
}

func TestRunFailsWithoutServerURL(t *testing.T) {
	runner := NewRunner("")
	if _, err := runner.Run(context.Background(), domain.ToolKindMath, "2 + 2"); err == nil {
		t.Fatal("expected error when no server is configured")
	}
}
