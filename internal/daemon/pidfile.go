// Package daemon tracks a background board server through a small state file
// kept next to the board database.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Record is what a running server leaves behind.
type Record struct {
	PID       int       `yaml:"pid"`
	Port      int       `yaml:"port,omitempty"`
	StartedAt time.Time `yaml:"started_at,omitempty"`
}

// Uptime returns how long the server has been running as of now.
func (r Record) Uptime(now time.Time) time.Duration {
	if r.StartedAt.IsZero() || now.Before(r.StartedAt) {
		return 0
	}
	return now.Sub(r.StartedAt).Truncate(time.Second)
}

// PIDFile manages the state file of a background server.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records the current process as a server listening on port.
func (p *PIDFile) Write(port int) error {
	return p.WriteRecord(Record{PID: os.Getpid(), Port: port, StartedAt: time.Now().UTC()})
}

// WriteRecord stores rec, creating the parent directory when needed.
func (p *PIDFile) WriteRecord(rec Record) error {
	if rec.PID <= 0 {
		return fmt.Errorf("invalid pid %d", rec.PID)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode PID file: %w", err)
	}
	return os.WriteFile(p.Path, data, 0o644)
}

// Read loads the record from the file.
func (p *PIDFile) Read() (Record, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("invalid PID file content: %w", err)
	}
	if rec.PID <= 0 {
		return Record{}, fmt.Errorf("invalid PID file content: missing pid")
	}
	return rec, nil
}

// Remove deletes the file. A missing file is not an error.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Stop sends Terminate to the recorded process and polls for up to grace for
// it to exit, then sends Kill. The file is removed once the process is gone.
// killed reports whether the process had to be killed.
func (p *PIDFile) Stop(grace time.Duration) (killed bool, err error) {
	if _, running := p.IsRunning(); !running {
		_ = p.Remove()
		return false, ErrNotRunning
	}
	if err := p.Signal(Terminate); err != nil {
		return false, fmt.Errorf("signal server: %w", err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if _, running := p.IsRunning(); !running {
			return false, p.Remove()
		}
		time.Sleep(pollInterval)
	}

	if err := p.Signal(Kill); err != nil {
		return true, fmt.Errorf("kill server: %w", err)
	}
	return true, p.Remove()
}

// ErrNotRunning is returned when no live server is recorded.
var ErrNotRunning = errors.New("server is not running")

const pollInterval = 200 * time.Millisecond
