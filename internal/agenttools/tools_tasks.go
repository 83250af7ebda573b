package agenttools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/noctivagous/todotracker/internal/engine"
	"github.com/noctivagous/todotracker/internal/store"
)

// createTaskInput is the input schema for the create_task tool.
type createTaskInput struct {
	Title         string  `json:"title,omitempty" jsonschema:"Task title"`
	Description   string  `json:"description,omitempty" jsonschema:"Longer task description"`
	Status        string  `json:"status,omitempty" jsonschema:"Initial status (pending in_progress completed cancelled); defaults to pending"`
	TaskSize      *int    `json:"task_size,omitempty" jsonschema:"Effort estimate from 1 (trivial) to 5 (large)"`
	PriorityClass *string `json:"priority_class,omitempty" jsonschema:"Priority class A (highest) through E (lowest)"`
	ParentID      *int64  `json:"parent_id,omitempty" jsonschema:"Parent task id for subtasks"`
	Topic         string  `json:"topic,omitempty" jsonschema:"Free-form topic label"`
	Enqueue       bool    `json:"enqueue,omitempty" jsonschema:"Append the new task to the execution queue"`
}

type taskOutput struct {
	Task taskPayload `json:"task"`
}

// getTaskInput is the input schema for the get_task tool.
type getTaskInput struct {
	ID int64 `json:"id" jsonschema:"Task id"`
}

// getTaskOutput carries the task and its resolved dependency context.
type getTaskOutput struct {
	Task          taskPayload   `json:"task"`
	Prerequisites []edgePayload `json:"prerequisites,omitempty"`
	Dependents    []edgePayload `json:"dependents,omitempty"`
	Ready         bool          `json:"ready"`
}

// listTasksInput is the input schema for the list_tasks tool.
type listTasksInput struct {
	Status   string `json:"status,omitempty" jsonschema:"Filter by status"`
	ParentID *int64 `json:"parent_id,omitempty" jsonschema:"List subtasks of this task"`
	Roots    bool   `json:"roots,omitempty" jsonschema:"List only tasks without a parent"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of tasks to return"`
	Offset   int    `json:"offset,omitempty" jsonschema:"Number of tasks to skip"`
}

type taskListOutput struct {
	Tasks []taskPayload `json:"tasks"`
}

// updateTaskInput is the input schema for the update_task tool. Omitted
// fields are left unchanged.
type updateTaskInput struct {
	ID            int64   `json:"id" jsonschema:"Task id"`
	Title         *string `json:"title,omitempty" jsonschema:"New title"`
	Description   *string `json:"description,omitempty" jsonschema:"New description"`
	Status        *string `json:"status,omitempty" jsonschema:"New status; leaving the queue-relevant statuses clears any queue position"`
	TaskSize      *int    `json:"task_size,omitempty" jsonschema:"New effort estimate 1-5"`
	PriorityClass *string `json:"priority_class,omitempty" jsonschema:"New priority class A-E"`
	ParentID      *int64  `json:"parent_id,omitempty" jsonschema:"New parent task id"`
	Topic         *string `json:"topic,omitempty" jsonschema:"New topic label"`
	WorkCompleted *string `json:"work_completed,omitempty" jsonschema:"Summary of work already done"`
	WorkRemaining *string `json:"work_remaining,omitempty" jsonschema:"Summary of work still to do"`
}

// deleteTaskInput is the input schema for the delete_task tool.
type deleteTaskInput struct {
	ID int64 `json:"id" jsonschema:"Task id"`
}

type okOutput struct {
	OK bool `json:"ok"`
}

// registerTaskTools registers the task CRUD MCP tools.
func (s *Server) registerTaskTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_task",
		Description: "Create a task, optionally appending it to the execution queue",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input createTaskInput) (*mcp.CallToolResult, taskOutput, error) {
		if input.Title == "" {
			return nil, taskOutput{}, fmt.Errorf("title is required")
		}

		task, err := s.eng.CreateTask(ctx, engine.CreateTaskParams{
			Title:         input.Title,
			Description:   input.Description,
			Status:        store.Status(input.Status),
			TaskSize:      input.TaskSize,
			PriorityClass: input.PriorityClass,
			ParentID:      input.ParentID,
			Topic:         input.Topic,
		})
		if err != nil {
			return nil, taskOutput{}, fmt.Errorf("creating task: %w", err)
		}
		if input.Enqueue {
			task, err = s.eng.AddToQueue(ctx, task.ID)
			if err != nil {
				return nil, taskOutput{}, fmt.Errorf("enqueueing task %d: %w", task.ID, err)
			}
		}

		return nil, taskOutput{Task: fromTask(task)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_task",
		Description: "Get a task with its prerequisites, dependents, and readiness",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input getTaskInput) (*mcp.CallToolResult, getTaskOutput, error) {
		task, err := s.eng.GetTask(ctx, input.ID)
		if err != nil {
			return nil, getTaskOutput{}, fmt.Errorf("getting task: %w", err)
		}
		prereqs, err := s.eng.Prerequisites(ctx, input.ID)
		if err != nil {
			return nil, getTaskOutput{}, fmt.Errorf("resolving prerequisites: %w", err)
		}
		dependents, err := s.eng.Dependents(ctx, input.ID)
		if err != nil {
			return nil, getTaskOutput{}, fmt.Errorf("resolving dependents: %w", err)
		}
		ready, err := s.eng.IsReady(ctx, input.ID)
		if err != nil {
			return nil, getTaskOutput{}, fmt.Errorf("checking readiness: %w", err)
		}

		return nil, getTaskOutput{
			Task:          fromTask(task),
			Prerequisites: fromEdges(prereqs),
			Dependents:    fromEdges(dependents),
			Ready:         ready,
		}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks, optionally filtered by status or parent",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input listTasksInput) (*mcp.CallToolResult, taskListOutput, error) {
		tasks, err := s.eng.ListTasks(ctx, store.TaskFilter{
			Status:   store.Status(input.Status),
			ParentID: input.ParentID,
			Roots:    input.Roots,
			Limit:    input.Limit,
			Offset:   input.Offset,
		})
		if err != nil {
			return nil, taskListOutput{}, fmt.Errorf("listing tasks: %w", err)
		}
		return nil, taskListOutput{Tasks: fromTaskList(tasks)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "update_task",
		Description: "Update task fields; marking a queued task completed or cancelled removes it from the queue",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input updateTaskInput) (*mcp.CallToolResult, taskOutput, error) {
		p := engine.UpdateTaskParams{
			Title:         input.Title,
			Description:   input.Description,
			Topic:         input.Topic,
			WorkCompleted: input.WorkCompleted,
			WorkRemaining: input.WorkRemaining,
		}
		if input.Status != nil {
			st := store.Status(*input.Status)
			p.Status = &st
		}
		if input.TaskSize != nil {
			p.TaskSize = &input.TaskSize
		}
		if input.PriorityClass != nil {
			p.PriorityClass = &input.PriorityClass
		}
		if input.ParentID != nil {
			p.ParentID = &input.ParentID
		}

		task, err := s.eng.UpdateTask(ctx, input.ID, p)
		if err != nil {
			return nil, taskOutput{}, fmt.Errorf("updating task %d: %w", input.ID, err)
		}
		return nil, taskOutput{Task: fromTask(task)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task along with its dependency edges and notes",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input deleteTaskInput) (*mcp.CallToolResult, okOutput, error) {
		if err := s.eng.DeleteTask(ctx, input.ID); err != nil {
			return nil, okOutput{}, fmt.Errorf("deleting task %d: %w", input.ID, err)
		}
		return nil, okOutput{OK: true}, nil
	})
}
