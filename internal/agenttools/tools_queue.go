package agenttools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/noctivagous/todotracker/internal/store"
)

// queueTaskInput identifies a task for the queue mutation tools.
type queueTaskInput struct {
	ID int64 `json:"id" jsonschema:"Task id"`
}

// listQueueInput is the input schema for the list_queue tool.
type listQueueInput struct {
	MinSize *int `json:"min_size,omitempty" jsonschema:"Only tasks with task_size >= this value (excludes unsized tasks)"`
	MaxSize *int `json:"max_size,omitempty" jsonschema:"Only tasks with task_size <= this value (excludes unsized tasks)"`
	Limit   int  `json:"limit,omitempty" jsonschema:"Maximum number of tasks to return"`
}

type queueOutput struct {
	Queue []taskPayload `json:"queue"`
}

// topInput is the input schema for the get_queue_top tool.
type topInput struct {
	MinSize *int `json:"min_size,omitempty" jsonschema:"Only consider tasks with task_size >= this value"`
	MaxSize *int `json:"max_size,omitempty" jsonschema:"Only consider tasks with task_size <= this value"`
}

// topOutput carries the next task to work on, if any.
type topOutput struct {
	Task  *taskPayload `json:"task,omitempty"`
	Empty bool         `json:"empty"`
}

type normalizeOutput struct {
	Queue []taskPayload `json:"queue"`
}

type maxQueueOutput struct {
	MaxQueue int `json:"max_queue"`
}

// registerQueueTools registers the execution queue MCP tools.
func (s *Server) registerQueueTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "add_to_queue",
		Description: "Append a task to the end of the execution queue",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input queueTaskInput) (*mcp.CallToolResult, taskOutput, error) {
		task, err := s.eng.AddToQueue(ctx, input.ID)
		if err != nil {
			return nil, taskOutput{}, fmt.Errorf("enqueueing task %d: %w", input.ID, err)
		}
		return nil, taskOutput{Task: fromTask(task)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "remove_from_queue",
		Description: "Remove a task from the execution queue and renumber the rest",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input queueTaskInput) (*mcp.CallToolResult, taskOutput, error) {
		task, err := s.eng.RemoveFromQueue(ctx, input.ID)
		if err != nil {
			return nil, taskOutput{}, fmt.Errorf("dequeueing task %d: %w", input.ID, err)
		}
		return nil, taskOutput{Task: fromTask(task)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "move_up",
		Description: "Swap a queued task with the one immediately ahead of it",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input queueTaskInput) (*mcp.CallToolResult, taskOutput, error) {
		task, err := s.eng.MoveUp(ctx, input.ID)
		if err != nil {
			return nil, taskOutput{}, fmt.Errorf("moving task %d up: %w", input.ID, err)
		}
		return nil, taskOutput{Task: fromTask(task)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "move_down",
		Description: "Swap a queued task with the one immediately behind it",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input queueTaskInput) (*mcp.CallToolResult, taskOutput, error) {
		task, err := s.eng.MoveDown(ctx, input.ID)
		if err != nil {
			return nil, taskOutput{}, fmt.Errorf("moving task %d down: %w", input.ID, err)
		}
		return nil, taskOutput{Task: fromTask(task)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_queue",
		Description: "List the execution queue in order, optionally filtered by task size",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input listQueueInput) (*mcp.CallToolResult, queueOutput, error) {
		tasks, err := s.eng.Queued(ctx, store.QueuedFilter{
			MinSize: input.MinSize,
			MaxSize: input.MaxSize,
			Limit:   input.Limit,
		})
		if err != nil {
			return nil, queueOutput{}, fmt.Errorf("listing queue: %w", err)
		}
		return nil, queueOutput{Queue: fromTaskList(tasks)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_queue_top",
		Description: "Get the next task in the execution queue, optionally bounded by task size",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input topInput) (*mcp.CallToolResult, topOutput, error) {
		tasks, err := s.eng.Queued(ctx, store.QueuedFilter{
			MinSize: input.MinSize,
			MaxSize: input.MaxSize,
			Limit:   1,
		})
		if err != nil {
			return nil, topOutput{}, fmt.Errorf("reading queue head: %w", err)
		}
		if len(tasks) == 0 {
			return nil, topOutput{Empty: true}, nil
		}
		payload := fromTask(&tasks[0])
		return nil, topOutput{Task: &payload}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_max_queue",
		Description: "Get the highest occupied queue position, or 0 when the queue is empty",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, maxQueueOutput, error) {
		max, err := s.eng.MaxQueue(ctx)
		if err != nil {
			return nil, maxQueueOutput{}, fmt.Errorf("reading max queue: %w", err)
		}
		return nil, maxQueueOutput{MaxQueue: max}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "normalize_queue",
		Description: "Renumber the execution queue to contiguous positions 1..N",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, normalizeOutput, error) {
		if err := s.eng.Normalize(ctx); err != nil {
			return nil, normalizeOutput{}, fmt.Errorf("normalizing queue: %w", err)
		}
		tasks, err := s.eng.Queued(ctx, store.QueuedFilter{})
		if err != nil {
			return nil, normalizeOutput{}, fmt.Errorf("listing queue: %w", err)
		}
		return nil, normalizeOutput{Queue: fromTaskList(tasks)}, nil
	})
}
