//go:build !windows

package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Signals used to stop a background server.
const (
	Terminate = syscall.SIGTERM
	Kill      = syscall.SIGKILL
)

// IsRunning reads the file and reports whether the recorded process is alive.
func (p *PIDFile) IsRunning() (Record, bool) {
	rec, err := p.Read()
	if err != nil {
		return Record{}, false
	}
	// Signal 0 probes for the process without delivering anything. EPERM
	// means it exists under another user.
	err = syscall.Kill(rec.PID, 0)
	return rec, err == nil || errors.Is(err, syscall.EPERM)
}

// Signal sends sig to the recorded process.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	rec, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	return syscall.Kill(rec.PID, sig)
}

// Detach starts cmd in its own session so it outlives the terminal.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// ShutdownSignals are the signals a foreground server exits on.
func ShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}
