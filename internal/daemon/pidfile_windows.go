//go:build windows

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Signals used to stop a background server. Windows only honours Kill.
const (
	Terminate = syscall.SIGTERM
	Kill      = syscall.SIGKILL
)

// IsRunning reads the file and reports whether the recorded process is alive.
// FindProcess always succeeds on Windows, so a zero signal does the probing.
func (p *PIDFile) IsRunning() (Record, bool) {
	rec, err := p.Read()
	if err != nil {
		return Record{}, false
	}
	proc, err := os.FindProcess(rec.PID)
	if err != nil {
		return rec, false
	}
	err = proc.Signal(syscall.Signal(0))
	return rec, err == nil
}

// Signal sends sig to the recorded process.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	rec, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	proc, err := os.FindProcess(rec.PID)
	if err != nil {
		return fmt.Errorf("find process %d: %w", rec.PID, err)
	}
	return proc.Signal(sig)
}

// Detach is a no-op on Windows.
func Detach(_ *exec.Cmd) {}

// ShutdownSignals are the signals a foreground server exits on.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
