package daemon

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deadPID is above the largest pid Linux hands out.
const deadPID = 1<<22 + 1

func TestPIDFile_WriteAndRead(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "cf-serve.pid"))
	started := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, pf.WriteRecord(Record{PID: 12345, Port: 9090, StartedAt: started}))

	rec, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, 12345, rec.PID)
	assert.Equal(t, 9090, rec.Port)
	assert.True(t, started.Equal(rec.StartedAt))
}

func TestPIDFile_Write_CurrentProcess(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "nested", "cf-serve.pid"))

	require.NoError(t, pf.Write(8080))

	rec, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), rec.PID)
	assert.Equal(t, 8080, rec.Port)
	assert.False(t, rec.StartedAt.IsZero())
}

func TestPIDFile_WriteRecord_RejectsBadPID(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "cf-serve.pid"))
	err := pf.WriteRecord(Record{PID: 0})
	assert.Error(t, err)
}

func TestPIDFile_Read_MissingFile(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "nonexistent.pid"))
	_, err := pf.Read()
	assert.True(t, os.IsNotExist(err))
}

func TestPIDFile_Read_InvalidContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "not-a-number\n"},
		{"no pid", "port: 8080\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.pid")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := NewPIDFile(path).Read()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid PID file content")
		})
	}
}

func TestPIDFile_Remove(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "cf-serve.pid"))
	require.NoError(t, pf.WriteRecord(Record{PID: 1}))

	require.NoError(t, pf.Remove())
	_, err := os.Stat(pf.Path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, pf.Remove(), "removing twice is fine")
}

func TestPIDFile_IsRunning(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "cf-serve.pid"))

	rec, running := pf.IsRunning()
	assert.False(t, running, "no file")
	assert.Zero(t, rec.PID)

	require.NoError(t, pf.Write(8080))
	rec, running = pf.IsRunning()
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), rec.PID)

	require.NoError(t, pf.WriteRecord(Record{PID: deadPID}))
	rec, running = pf.IsRunning()
	assert.False(t, running)
	assert.Equal(t, deadPID, rec.PID, "pid is read regardless")
}

func TestPIDFile_Signal(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "cf-serve.pid"))

	err := pf.Signal(syscall.Signal(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read PID file")

	require.NoError(t, pf.Write(8080))
	assert.NoError(t, pf.Signal(syscall.Signal(0)))
}

func TestPIDFile_Stop_NotRunning(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "cf-serve.pid"))
	require.NoError(t, pf.WriteRecord(Record{PID: deadPID}))

	killed, err := pf.Stop(time.Second)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.False(t, killed)
	_, statErr := os.Stat(pf.Path)
	assert.True(t, os.IsNotExist(statErr), "stale file is cleaned up")
}

func TestRecord_Uptime(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := Record{PID: 1, StartedAt: start}

	assert.Equal(t, 90*time.Second, rec.Uptime(start.Add(90*time.Second+300*time.Millisecond)))
	assert.Zero(t, rec.Uptime(start.Add(-time.Minute)))
	assert.Zero(t, Record{PID: 1}.Uptime(start))
}
