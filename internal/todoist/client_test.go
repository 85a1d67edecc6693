package todoist

import (
	"context"
	"errors"
	"testing"

	"meal-planner-agent/internal/security"

	"github.com/mark3labs/mcp-go/mcp"
)

type fakeSession struct {
	calls  []mcp.CallToolRequest
	result *mcp.CallToolResult
	err    error
}

func (f *fakeSession) CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.calls = append(f.calls, request)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func okResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func newTestClient(session toolCaller, auditor security.Auditor) *Client {
	return &Client{
		gate:        security.NewGate(groceryProjectID, auditor),
		session:     session,
		retryConfig: DefaultRetryConfig(),
	}
}

func TestClientCreateTask(t *testing.T) {
	session := &fakeSession{result: okResult("task-42")}
	c := newTestClient(session, nil)

	result, err := c.CreateTask(context.Background(), GroceryTask{
		Content:   "[Garlic Noodles] Garlic - 3 cloves",
		ProjectID: groceryProjectID,
		Labels:    []string{"grocery"},
		DueString: "tomorrow",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if result.ID != "task-42" {
		t.Errorf("Expected task id 'task-42', got %q", result.ID)
	}

	if len(session.calls) != 1 {
		t.Fatalf("Expected exactly one tool call, got %d", len(session.calls))
	}
	call := session.calls[0]
	if call.Params.Name != "add-task" {
		t.Errorf("Expected add-task tool, got %q", call.Params.Name)
	}
	args, ok := call.Params.Arguments.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected map arguments, got %T", call.Params.Arguments)
	}
	if args["project_id"] != groceryProjectID {
		t.Errorf("Expected project_id %q in arguments, got %v", groceryProjectID, args["project_id"])
	}
	if args["due_string"] != "tomorrow" {
		t.Errorf("Expected due_string in arguments, got %v", args["due_string"])
	}
}

func TestClientCreateTaskWrongProject(t *testing.T) {
	session := &fakeSession{result: okResult("task-42")}
	auditor := &countingAuditor{}
	c := newTestClient(session, auditor)

	_, err := c.CreateTask(context.Background(), GroceryTask{
		Content:   "[Garlic Noodles] Garlic - 3 cloves",
		ProjectID: "999",
	})

	var denied *security.AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("Expected AccessDeniedError, got %v", err)
	}
	// The remote service must never see the denied request.
	if len(session.calls) != 0 {
		t.Errorf("Expected zero tool calls after gate denial, got %d", len(session.calls))
	}
	if auditor.incidents != 1 {
		t.Errorf("Expected exactly one security incident, got %d", auditor.incidents)
	}
}

func TestClientCreateTaskRemoteError(t *testing.T) {
	t.Run("TransportError", func(t *testing.T) {
		session := &fakeSession{err: errors.New("connection reset")}
		c := newTestClient(session, nil)

		_, err := c.CreateTask(context.Background(), GroceryTask{
			Content:   "[Shared] Olive Oil - 4 tbsp",
			ProjectID: groceryProjectID,
		})
		var remoteErr *RemoteTaskError
		if !errors.As(err, &remoteErr) {
			t.Fatalf("Expected RemoteTaskError, got %v", err)
		}
	})

	t.Run("ToolError", func(t *testing.T) {
		session := &fakeSession{result: &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "invalid label"}},
		}}
		c := newTestClient(session, nil)

		_, err := c.CreateTask(context.Background(), GroceryTask{
			Content:   "[Shared] Olive Oil - 4 tbsp",
			ProjectID: groceryProjectID,
		})
		var remoteErr *RemoteTaskError
		if !errors.As(err, &remoteErr) {
			t.Fatalf("Expected RemoteTaskError, got %v", err)
		}
	})
}
