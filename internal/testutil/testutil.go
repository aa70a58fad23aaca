// Package testutil provides shared helpers for integration-style tests:
// a thread-safe log buffer, temp-dir manifest fixtures, and a module
// type that registers plain functions as handlers and validators.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/pipegrid/internal/registry"
	"github.com/vk/pipegrid/internal/validate"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteManifests writes each named manifest into a fresh temp directory
// and returns the directory path. Cleanup is registered on t.
func WriteManifests(t *testing.T, files map[string]string) string {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", ".tmp-pipegrid-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}
	return tmpDir
}

// FuncModule registers plain function maps as handlers and validators.
type FuncModule struct {
	Handlers   map[string]registry.StageFunc
	Validators map[string]validate.Func
}

// Register implements registry.Module.
func (m *FuncModule) Register(r *registry.Registry) {
	for name, fn := range m.Handlers {
		r.RegisterHandler(name, fn)
	}
	for name, fn := range m.Validators {
		r.RegisterValidator(name, fn)
	}
}
