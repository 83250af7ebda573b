// Package registry tracks running tracker servers across projects in a
// shared file under the user's home directory, so the dashboard and CLI can
// find every live instance and its port.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

const (
	// DashboardPort is reserved for the multi-project dashboard and is
	// never handed out to project servers.
	DashboardPort = 8069
	// DefaultStartPort is where the port search begins.
	DefaultStartPort = 8070

	registryFileName = "servers.json"
)

// Server is one registered tracker instance.
type Server struct {
	ProjectName   string    `json:"project_name"`
	DBPath        string    `json:"db_path"`
	Port          int       `json:"port"`
	PID           int       `json:"pid"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Running reports whether the server's process is still alive.
func (s Server) Running() bool {
	return processRunning(s.PID)
}

// registryFile is the on-disk JSON shape.
type registryFile struct {
	Servers []Server `json:"servers"`
}

// Registry reads and writes the shared server registry file. It is safe for
// concurrent use within one process; cross-process races are handled by
// atomic whole-file replacement.
type Registry struct {
	dir string
	mu  sync.Mutex
}

// DefaultDir returns ~/.todotracker.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("registry: home directory: %w", err)
	}
	return filepath.Join(home, ".todotracker"), nil
}

// New creates a Registry over the given directory, creating it if needed.
func New(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("registry: create %s: %w", dir, err)
	}
	return &Registry{dir: dir}, nil
}

// Path returns the registry file location.
func (r *Registry) Path() string {
	return filepath.Join(r.dir, registryFileName)
}

// Load returns all registered servers. A missing or corrupt file reads as
// empty rather than failing, matching the registry's advisory nature.
func (r *Registry) Load() ([]Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *Registry) load() ([]Server, error) {
	data, err := os.ReadFile(r.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", r.Path(), err)
	}
	var f registryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil
	}
	return f.Servers, nil
}

// save writes the registry atomically: temp file in the same directory,
// then rename over the target.
func (r *Registry) save(servers []Server) error {
	data, err := json.MarshalIndent(registryFile{Servers: servers}, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encode: %w", err)
	}
	tmp, err := os.CreateTemp(r.dir, registryFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("registry: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("registry: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("registry: close temp: %w", err)
	}
	if err := os.Rename(tmpName, r.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("registry: replace %s: %w", r.Path(), err)
	}
	return nil
}

// Register records a running server, replacing any existing entry holding
// the same port or the same database.
func (r *Registry) Register(s Server) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	servers, err := r.load()
	if err != nil {
		return err
	}
	kept := servers[:0]
	for _, existing := range servers {
		if existing.Port == s.Port || samePath(existing.DBPath, s.DBPath) {
			continue
		}
		kept = append(kept, existing)
	}
	now := time.Now().UTC()
	if s.StartedAt.IsZero() {
		s.StartedAt = now
	}
	s.LastHeartbeat = now
	kept = append(kept, s)
	return r.save(kept)
}

// Unregister removes the entry for the given port. Removing an unknown port
// is a no-op.
func (r *Registry) Unregister(port int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	servers, err := r.load()
	if err != nil {
		return err
	}
	kept := servers[:0]
	for _, s := range servers {
		if s.Port != port {
			kept = append(kept, s)
		}
	}
	return r.save(kept)
}

// CleanupStale drops entries whose process is gone and refreshes the
// heartbeat on the live ones. It returns the surviving servers.
func (r *Registry) CleanupStale() ([]Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	servers, err := r.load()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	alive := servers[:0]
	for _, s := range servers {
		if !s.Running() {
			continue
		}
		s.LastHeartbeat = now
		alive = append(alive, s)
	}
	if err := r.save(alive); err != nil {
		return nil, err
	}
	return alive, nil
}

// FindByDatabase returns the live server entry for the given database, or
// nil when none is running.
func (r *Registry) FindByDatabase(dbPath string) (*Server, error) {
	servers, err := r.CleanupStale()
	if err != nil {
		return nil, err
	}
	for _, s := range servers {
		if samePath(s.DBPath, dbPath) {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

// FindAvailablePort probes ports starting at start and returns the first
// one that can be bound. The dashboard port is skipped.
func (r *Registry) FindAvailablePort(start, maxAttempts int) (int, error) {
	if start <= 0 {
		start = DefaultStartPort
	}
	if maxAttempts <= 0 {
		maxAttempts = 100
	}
	for i := 0; i < maxAttempts; i++ {
		port := start + i
		if port == DashboardPort {
			continue
		}
		if PortAvailable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("registry: no available ports in range %d-%d", start, start+maxAttempts)
}

// PortAvailable reports whether the port can currently be bound.
func PortAvailable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// processRunning probes a pid with signal 0.
func processRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, syscall.EPERM)
}

func samePath(a, b string) bool {
	ra, err := filepath.Abs(a)
	if err != nil {
		return a == b
	}
	rb, err := filepath.Abs(b)
	if err != nil {
		return a == b
	}
	return ra == rb
}
