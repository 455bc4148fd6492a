package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

// Runner executes tool-branch requests against an external MCP server over
// streamable HTTP. The client is initialized lazily on the first call and
// reused afterwards.
type Runner struct {
	serverURL string

	mu     sync.Mutex
	client *mcpclient.Client
}

func NewRunner(serverURL string) *Runner {
	return &Runner{serverURL: strings.TrimSpace(serverURL)}
}

func (r *Runner) Run(ctx context.Context, toolKind, utterance string) (string, error) {
	if r.serverURL == "" {
		return "", fmt.Errorf("mcp server is not configured")
	}

	name, args, err := toolRequestFor(toolKind, utterance)
	if err != nil {
		return "", err
	}

	client, err := r.connectedClient(ctx)
	if err != nil {
		return "", err
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := client.CallTool(ctx, request)
	if err != nil {
		return "", domain.WrapError(domain.ErrTemporary, "mcp call tool", err)
	}
	if result.IsError {
		return "", fmt.Errorf("tool %s reported an error: %s", name, textContent(result))
	}

	text := textContent(result)
	if text == "" {
		return "", fmt.Errorf("tool %s returned no text content", name)
	}
	return text, nil
}

func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

func (r *Runner) connectedClient(ctx context.Context) (*mcpclient.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	client, err := mcpclient.NewStreamableHttpClient(r.serverURL)
	if err != nil {
		return nil, fmt.Errorf("create mcp client: %w", err)
	}
	if err := client.Start(ctx); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "start mcp client", err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "support-agent-core",
		Version: "1.0.0",
	}
	if _, err := client.Initialize(ctx, initRequest); err != nil {
		_ = client.Close()
		return nil, domain.WrapError(domain.ErrTemporary, "initialize mcp client", err)
	}

	r.client = client
	return client, nil
}

// toolRequestFor maps a routing tool kind to the MCP tool name and argument
// shape the calculator server exposes.
func toolRequestFor(toolKind, utterance string) (string, map[string]any, error) {
	switch toolKind {
	case domain.ToolKindMath:
		return "calculate", map[string]any{"expression": utterance}, nil
	case domain.ToolKindDate:
		return "date_info", map[string]any{"query": utterance}, nil
	case domain.ToolKindCurrency:
		return "convert_currency", map[string]any{"query": utterance}, nil
	case domain.ToolKindCode:
		return "validate_code", map[string]any{"snippet": utterance}, nil
	default:
		return "", nil, fmt.Errorf("unsupported tool kind %q", toolKind)
	}
}

func textContent(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
