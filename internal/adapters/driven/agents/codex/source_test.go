package codex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/internal/core/domain"
)

const rollout = `{"timestamp":"2025-04-02T09:00:00Z","type":"session_meta","payload":{"id":"sess-123","cwd":"/home/dev/shop","cli_version":"0.42.0"}}
{"timestamp":"2025-04-02T09:00:01Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"Migrate the orders table"}]}}
{"timestamp":"2025-04-02T09:00:09Z","type":"response_item","payload":{"type":"reasoning","summary":[]}}
{"timestamp":"2025-04-02T09:00:10Z","type":"response_item","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"Writing the migration now."}]}}
`

func writeFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "sessions", "2025", "04", "02")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "rollout-2025-04-02T09-00-00-sess-123.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(rollout), 0o644))
	return root
}

func TestDocuments(t *testing.T) {
	src := NewSource(writeFixture(t))

	docs, err := src.Documents(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 1)
	doc := docs[0]
	assert.Equal(t, "codex:sess-123", doc.ID)
	assert.Equal(t, "codex", doc.Agent)
	assert.Equal(t, "/home/dev/shop", doc.Project)
	require.NotNil(t, doc.MessageCount)
	assert.Equal(t, 2, *doc.MessageCount)
	assert.Equal(t, "Migrate the orders table", doc.Display)
	assert.Contains(t, doc.Text, "assistant: Writing the migration now.")
	assert.NotZero(t, doc.Timestamp)
}

func TestMemoryFiles(t *testing.T) {
	root := writeFixture(t)
	src := NewSource(root)

	memories, err := src.MemoryFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, memories)

	require.NoError(t, os.WriteFile(filepath.Join(root, "AGENTS.md"), []byte("prefer table tests"), 0o644))
	memories, err = src.MemoryFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "prefer table tests", memories[0].Content)
}

func TestListSessions(t *testing.T) {
	src := NewSource(writeFixture(t))

	out, err := src.ListSessions(context.Background(), domain.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "sess-123", out[0].ID)
	assert.Equal(t, 2, out[0].MessageCount)

	out, err = src.ListSessions(context.Background(), domain.SessionFilter{Project: "shop"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestGetSession(t *testing.T) {
	src := NewSource(writeFixture(t))

	sess, err := src.GetSession(context.Background(), "sess-123")
	require.NoError(t, err)

	assert.Equal(t, "codex", sess.Agent)
	assert.Equal(t, "0.42.0", sess.Metadata["version"])
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, domain.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, "Migrate the orders table", sess.Messages[0].Text)

	_, err = src.GetSession(context.Background(), "unknown")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
