package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// capture redirects log output into a buffer and restores the default
// quiet stderr logger when the test finishes.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	SetOutput(buf)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return buf
}

func TestVerboseToggle(t *testing.T) {
	capture(t)

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestQuietByDefault(t *testing.T) {
	// Without --verbose the search pipeline must stay silent on stderr.
	buf := capture(t)
	SetVerbose(false)

	Section("Index Build")
	Debug("agent %s contributed %d documents", "claude", 3)
	Info("indexed %d documents", 3)
	Warn("agent %s unavailable, skipping", "cursor")

	assert.Zero(t, buf.Len())
}

func TestVerbosePipelineOutput(t *testing.T) {
	buf := capture(t)
	SetVerbose(true)

	Section("Search Execution")
	Debug("query: %q, limit: %d", "jwt auth", 20)
	Info("final results: %d", 2)
	Warn("agent %s: document enumeration failed", "codex")

	out := buf.String()
	assert.Contains(t, out, "\n=== Search Execution ===\n")
	assert.Contains(t, out, "[DEBUG] query: \"jwt auth\", limit: 20\n")
	assert.Contains(t, out, "[INFO] final results: 2\n")
	assert.Contains(t, out, "[WARN] agent codex: document enumeration failed\n")
}

func TestConcurrentUse(t *testing.T) {
	// Sources log from the index build while searches flip verbosity in
	// tests; the logger must tolerate that without racing.
	capture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			SetVerbose(true)
			Debug("agent %d contributed documents", i)
			IsVerbose()
			SetVerbose(false)
		}(i)
	}
	wg.Wait()
}
