package agenttools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/noctivagous/todotracker/internal/engine"
)

// edgePayload is a dependency edge resolved with the counterpart task.
type edgePayload struct {
	EdgeID    int64  `json:"edge_id"`
	TaskID    int64  `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func fromEdges(infos []engine.DependencyInfo) []edgePayload {
	out := make([]edgePayload, len(infos))
	for i, info := range infos {
		out[i] = edgePayload{
			EdgeID:    info.Edge.ID,
			TaskID:    info.Task.ID,
			Title:     info.Task.Title,
			Status:    string(info.Task.Status),
			CreatedAt: info.Edge.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
}

// addDependencyInput is the input schema for the add_dependency tool.
type addDependencyInput struct {
	ID        int64 `json:"id" jsonschema:"The dependent task id"`
	DependsOn int64 `json:"depends_on" jsonschema:"The prerequisite task id that must complete first"`
}

// addDependencyOutput is the output schema for the add_dependency tool.
type addDependencyOutput struct {
	EdgeID    int64 `json:"edge_id"`
	ID        int64 `json:"id"`
	DependsOn int64 `json:"depends_on"`
}

// removeDependencyInput is the input schema for the remove_dependency tool.
type removeDependencyInput struct {
	EdgeID int64 `json:"edge_id" jsonschema:"The dependency edge id to remove"`
}

// listDependenciesInput is the input schema for the list_dependencies tool.
type listDependenciesInput struct {
	ID int64 `json:"id" jsonschema:"Task id"`
}

// listDependenciesOutput carries both directions of the task's edges.
type listDependenciesOutput struct {
	Prerequisites []edgePayload `json:"prerequisites,omitempty"`
	Dependents    []edgePayload `json:"dependents,omitempty"`
}

// checkReadyInput is the input schema for the check_ready tool.
type checkReadyInput struct {
	ID int64 `json:"id" jsonschema:"Task id"`
}

// checkReadyOutput is the output schema for the check_ready tool.
type checkReadyOutput struct {
	Ready bool `json:"ready"`
}

// registerDependencyTools registers the dependency graph MCP tools.
func (s *Server) registerDependencyTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "add_dependency",
		Description: "Record that a task depends on another task completing first; edges that would form a cycle are rejected",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input addDependencyInput) (*mcp.CallToolResult, addDependencyOutput, error) {
		edge, err := s.eng.AddDependency(ctx, input.ID, input.DependsOn)
		if err != nil {
			return nil, addDependencyOutput{}, fmt.Errorf("adding dependency: %w", err)
		}
		return nil, addDependencyOutput{
			EdgeID:    edge.ID,
			ID:        edge.TaskID,
			DependsOn: edge.DependsOnID,
		}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "remove_dependency",
		Description: "Remove a dependency edge by id",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input removeDependencyInput) (*mcp.CallToolResult, okOutput, error) {
		if err := s.eng.RemoveDependency(ctx, input.EdgeID); err != nil {
			return nil, okOutput{}, fmt.Errorf("removing dependency %d: %w", input.EdgeID, err)
		}
		return nil, okOutput{OK: true}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_dependencies",
		Description: "List a task's prerequisites and dependents",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input listDependenciesInput) (*mcp.CallToolResult, listDependenciesOutput, error) {
		prereqs, err := s.eng.Prerequisites(ctx, input.ID)
		if err != nil {
			return nil, listDependenciesOutput{}, fmt.Errorf("resolving prerequisites: %w", err)
		}
		dependents, err := s.eng.Dependents(ctx, input.ID)
		if err != nil {
			return nil, listDependenciesOutput{}, fmt.Errorf("resolving dependents: %w", err)
		}
		return nil, listDependenciesOutput{
			Prerequisites: fromEdges(prereqs),
			Dependents:    fromEdges(dependents),
		}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "check_ready",
		Description: "Report whether all of a task's prerequisites have completed",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input checkReadyInput) (*mcp.CallToolResult, checkReadyOutput, error) {
		ready, err := s.eng.IsReady(ctx, input.ID)
		if err != nil {
			return nil, checkReadyOutput{}, fmt.Errorf("checking readiness: %w", err)
		}
		return nil, checkReadyOutput{Ready: ready}, nil
	})
}
