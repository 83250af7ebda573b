// Package dashboard serves a single overview page across every registered
// tracker instance. It watches the shared registry file and refreshes its
// view when servers come and go.
package dashboard

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"

	"github.com/noctivagous/todotracker/internal/registry"
)

//go:embed dashboard.html
var dashboardHTML string

// Server is the multi-project dashboard HTTP server.
type Server struct {
	reg    *registry.Registry
	logger *slog.Logger
	tmpl   *template.Template

	mu      sync.RWMutex
	servers []registry.Server

	watcher *fsnotify.Watcher
	done    chan struct{}
	srv     *http.Server
	ln      net.Listener
}

// New creates a dashboard server over the given registry.
func New(reg *registry.Registry, logger *slog.Logger) (*Server, error) {
	tmpl, err := template.New("dashboard").Parse(dashboardHTML)
	if err != nil {
		return nil, fmt.Errorf("dashboard: parse template: %w", err)
	}
	return &Server{
		reg:    reg,
		logger: logger,
		tmpl:   tmpl,
	}, nil
}

// Start begins serving on the given port and starts watching the registry
// file for changes. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context, port int) error {
	if err := s.refresh(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("dashboard: watcher: %w", err)
	}
	// Watch the directory: the registry replaces its file by rename, which
	// would invalidate a watch on the file itself.
	if err := watcher.Add(filepath.Dir(s.reg.Path())); err != nil {
		watcher.Close()
		return fmt.Errorf("dashboard: watch %s: %w", s.reg.Path(), err)
	}
	s.watcher = watcher
	s.done = make(chan struct{})
	go s.watch(ctx)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		watcher.Close()
		return fmt.Errorf("dashboard: listen on port %d: %w", port, err)
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.routes()}

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("dashboard serve", "error", err)
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

// Stop shuts down the HTTP server and the registry watcher.
func (s *Server) Stop(ctx context.Context) error {
	if s.watcher != nil {
		s.watcher.Close()
		<-s.done
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Get("/api/servers", s.handleServers)
	return r
}

// watch reacts to registry file changes until the watcher closes.
func (s *Server) watch(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.reg.Path()) {
				continue
			}
			if err := s.refresh(); err != nil {
				s.logger.Error("dashboard refresh", "error", err)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("dashboard watcher", "error", err)
		}
	}
}

// refresh reloads the registry snapshot served by the handlers.
func (s *Server) refresh() error {
	servers, err := s.reg.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.servers = servers
	s.mu.Unlock()
	return nil
}

// serverView is the template/JSON shape for one registered server.
type serverView struct {
	ProjectName string `json:"project_name"`
	DBPath      string `json:"db_path"`
	Port        int    `json:"port"`
	PID         int    `json:"pid"`
	Uptime      string `json:"uptime"`
	Running     bool   `json:"running"`
}

func (s *Server) snapshot() []serverView {
	s.mu.RLock()
	servers := s.servers
	s.mu.RUnlock()

	views := make([]serverView, len(servers))
	for i, srv := range servers {
		views[i] = serverView{
			ProjectName: srv.ProjectName,
			DBPath:      srv.DBPath,
			Port:        srv.Port,
			PID:         srv.PID,
			Uptime:      formatUptime(time.Since(srv.StartedAt)),
			Running:     srv.Running(),
		}
	}
	return views
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, map[string]any{"Servers": s.snapshot()}); err != nil {
		s.logger.Error("dashboard render", "error", err)
	}
}

func (s *Server) handleServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"servers": s.snapshot()})
}

func formatUptime(d time.Duration) string {
	switch {
	case d < 0:
		return "unknown"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
