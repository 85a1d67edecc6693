package todoist

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/security"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

const addTaskTool = "add-task"

// toolCaller is the slice of the MCP session the client needs.
type toolCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// RetryConfig defines the retry behavior for MCP connections.
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	ConnectTimeout time.Duration
}

// DefaultRetryConfig returns a sensible default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		BackoffFactor:  2.0,
		ConnectTimeout: 30 * time.Second,
	}
}

// Client writes grocery tasks to the hosted Todoist MCP server. All writes
// pass through the security gate first; there is no unguarded path to the
// remote service.
type Client struct {
	gate        *security.Gate
	session     toolCaller
	mcpClient   *client.Client
	retryConfig RetryConfig
}

// NewClient connects to the Todoist MCP server over streamable HTTP and
// performs the protocol handshake, retrying with exponential backoff.
func NewClient(ctx context.Context, cfg *config.Config, gate *security.Gate) (*Client, error) {
	var opts []transport.StreamableHTTPCOption
	if cfg.TodoistMCPAuthToken != "" {
		opts = append(opts, transport.WithHTTPHeaders(map[string]string{
			"Authorization": "Bearer " + cfg.TodoistMCPAuthToken,
		}))
	}

	mcpClient, err := client.NewStreamableHttpClient(cfg.TodoistMCPServerURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	c := &Client{
		gate:        gate,
		session:     mcpClient,
		mcpClient:   mcpClient,
		retryConfig: DefaultRetryConfig(),
	}

	if err := c.connectWithRetry(ctx); err != nil {
		mcpClient.Close()
		return nil, err
	}

	return c, nil
}

func (c *Client) connectWithRetry(ctx context.Context) error {
	var lastErr error

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.retryConfig.InitialDelay) * math.Pow(c.retryConfig.BackoffFactor, float64(attempt-1)))
			if delay > c.retryConfig.MaxDelay {
				delay = c.retryConfig.MaxDelay
			}
			log.Printf("Retrying MCP connection (attempt %d/%d) after %v...", attempt+1, c.retryConfig.MaxRetries+1, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
			}
		}

		connectCtx, cancel := context.WithTimeout(ctx, c.retryConfig.ConnectTimeout)
		err := c.connectOnce(connectCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err
		log.Printf("MCP connection attempt %d failed: %v", attempt+1, err)
	}

	return fmt.Errorf("failed to connect to Todoist MCP server after %d attempts: %w",
		c.retryConfig.MaxRetries+1, lastErr)
}

func (c *Client) connectOnce(ctx context.Context) error {
	if err := c.mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP transport: %w", err)
	}

	_, err := c.mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: "2024-11-05",
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "meal-planner-agent",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize MCP connection: %w", err)
	}

	return nil
}

// CreateTask validates the task's project id against the security gate and
// then creates it via the MCP add-task tool. A gate failure is returned
// as-is: fatal to this task, never retried with a different identifier.
func (c *Client) CreateTask(ctx context.Context, task GroceryTask) (*TaskResult, error) {
	// CRITICAL: validate the project id before any remote call.
	if err := c.gate.ValidateProjectID(task.ProjectID); err != nil {
		return nil, err
	}

	arguments := map[string]interface{}{
		"content":    task.Content,
		"project_id": task.ProjectID,
		"labels":     task.Labels,
	}
	if task.DueString != "" {
		arguments["due_string"] = task.DueString
	}

	result, err := c.session.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      addTaskTool,
			Arguments: arguments,
		},
	})
	if err != nil {
		return nil, &RemoteTaskError{TaskContent: task.Content, Err: err}
	}

	if result.IsError {
		return nil, &RemoteTaskError{
			TaskContent: task.Content,
			Err:         fmt.Errorf("tool %s returned an error: %s", addTaskTool, firstText(result)),
		}
	}

	log.Printf("Created Todoist task: %s", task.Content)
	return &TaskResult{ID: firstText(result), Content: task.Content}, nil
}

// Close closes the MCP session.
func (c *Client) Close() error {
	if c.mcpClient != nil {
		return c.mcpClient.Close()
	}
	return nil
}

func firstText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}
