// Package agenttools exposes the tracker engine as an MCP tool server so
// coding agents can manage their own task list over SSE. Tools map one to
// one onto engine operations.
package agenttools

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/noctivagous/todotracker/internal/engine"
	"github.com/noctivagous/todotracker/internal/store"
)

// Version is the tool server version, matching the todotracker module.
const Version = "1.3.0"

// Server is the in-process MCP tool server. It registers task, queue,
// dependency, and note tools and serves them over SSE/HTTP.
type Server struct {
	eng  *engine.Engine
	mcp  *mcp.Server
	port int
	srv  *http.Server
	ln   net.Listener
}

// NewServer creates a new MCP tool server over the given engine.
func NewServer(eng *engine.Engine, port int) *Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "todotracker",
			Version: Version,
		},
		nil,
	)

	s := &Server{
		eng:  eng,
		mcp:  mcpServer,
		port: port,
	}

	s.registerTools()

	return s
}

// registerTools registers all tracker tools with the MCP server.
func (s *Server) registerTools() {
	s.registerTaskTools()
	s.registerQueueTools()
	s.registerDependencyTools()
	s.registerNoteTools()
}

// Start begins serving the MCP server over SSE/HTTP on the configured port.
// It blocks until the server is ready to accept connections.
func (s *Server) Start(ctx context.Context) error {
	handler := mcp.NewSSEHandler(func(_ *http.Request) *mcp.Server {
		return s.mcp
	})

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("agenttools: listen on port %d: %w", s.port, err)
	}
	s.ln = ln

	s.srv = &http.Server{Handler: handler}

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "agenttools: serve error: %v\n", err)
		}
	}()

	return nil
}

// Addr returns the listener address, useful for tests with port 0.
func (s *Server) Addr() net.Addr {
	if s.ln != nil {
		return s.ln.Addr()
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// taskPayload is the task shape returned by every task-bearing tool.
type taskPayload struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Status        string  `json:"status"`
	Queue         int     `json:"queue"`
	TaskSize      *int    `json:"task_size,omitempty"`
	PriorityClass *string `json:"priority_class,omitempty"`
	ParentID      *int64  `json:"parent_id,omitempty"`
	Topic         string  `json:"topic,omitempty"`
	WorkCompleted string  `json:"work_completed,omitempty"`
	WorkRemaining string  `json:"work_remaining,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func fromTask(t *store.Task) taskPayload {
	return taskPayload{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		Queue:         t.Queue,
		TaskSize:      t.TaskSize,
		PriorityClass: t.PriorityClass,
		ParentID:      t.ParentID,
		Topic:         t.Topic,
		WorkCompleted: t.WorkCompleted,
		WorkRemaining: t.WorkRemaining,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.Format(time.RFC3339),
	}
}

func fromTaskList(tasks []store.Task) []taskPayload {
	out := make([]taskPayload, len(tasks))
	for i := range tasks {
		out[i] = fromTask(&tasks[i])
	}
	return out
}
