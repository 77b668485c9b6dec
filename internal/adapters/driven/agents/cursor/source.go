// Package cursor reads Cursor's per-workspace state databases: the AI
// prompt and generation history stored in state.vscdb under the editor's
// workspaceStorage directory.
package cursor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/retracehq/retrace/internal/adapters/driven/agents"
	"github.com/retracehq/retrace/internal/core/domain"
	"github.com/retracehq/retrace/internal/core/ports/driven"
	"github.com/retracehq/retrace/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.AgentSource = (*Source)(nil)

// ItemTable keys holding the AI history.
const (
	keyPrompts     = "aiService.prompts"
	keyGenerations = "aiService.generations"
)

// Source reads Cursor workspace state. Each workspace hash directory
// holds a state.vscdb SQLite database and a workspace.json naming the
// opened folder.
type Source struct {
	root string
}

// NewSource creates a cursor source rooted at the workspaceStorage
// directory. An empty dir resolves to the default Linux location.
func NewSource(dir string) *Source {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config", "Cursor", "User", "workspaceStorage")
		}
	}
	return &Source{root: dir}
}

// Name implements driven.AgentSource.
func (s *Source) Name() string { return "cursor" }

// Available implements driven.AgentSource.
func (s *Source) Available() bool {
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}

// prompt is one entry of aiService.prompts.
type prompt struct {
	Text        string `json:"text"`
	CommandType int    `json:"commandType"`
}

// generation is one entry of aiService.generations.
type generation struct {
	UnixMs          float64 `json:"unixMs"`
	GenerationUUID  string  `json:"generationUUID"`
	Type            string  `json:"type"`
	TextDescription string  `json:"textDescription"`
}

// Documents implements driven.AgentSource. Each workspace with AI
// history becomes one conversation document.
func (s *Source) Documents(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	for _, ws := range s.workspaces() {
		sess, err := s.readWorkspace(ctx, ws)
		if err != nil {
			logger.Warn("Cursor workspace %s: %v", ws, err)
			continue
		}
		if len(sess.Messages) == 0 {
			continue
		}
		count := len(sess.Messages)
		docs = append(docs, domain.Document{
			ID:           "cursor:" + sess.ID,
			Agent:        s.Name(),
			SessionID:    sess.ID,
			Timestamp:    sess.Timestamp,
			Project:      sess.Project,
			FilePath:     filepath.Join(s.root, ws, "state.vscdb"),
			Display:      agents.Display(firstUserText(sess.Messages)),
			Text:         flatten(sess.Messages),
			Type:         domain.TypeConversation,
			MessageCount: &count,
		})
	}
	return docs, nil
}

// MemoryFiles implements driven.AgentSource. Cursor keeps no memory
// files readable here.
func (s *Source) MemoryFiles(_ context.Context) ([]domain.MemoryFile, error) {
	return nil, nil
}

// PlanFiles implements driven.AgentSource.
func (s *Source) PlanFiles(_ context.Context) ([]domain.MemoryFile, error) {
	return nil, nil
}

// ListSessions implements driven.AgentSource.
func (s *Source) ListSessions(ctx context.Context, filter domain.SessionFilter) ([]domain.SessionSummary, error) {
	var out []domain.SessionSummary
	needle := strings.ToLower(filter.Project)
	for _, ws := range s.workspaces() {
		sess, err := s.readWorkspace(ctx, ws)
		if err != nil || len(sess.Messages) == 0 {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(sess.Project), needle) {
			continue
		}
		out = append(out, domain.SessionSummary{
			Agent:        s.Name(),
			ID:           sess.ID,
			Timestamp:    sess.Timestamp,
			Project:      sess.Project,
			Display:      agents.Display(firstUserText(sess.Messages)),
			MessageCount: len(sess.Messages),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// GetSession implements driven.AgentSource. Session ids are workspace
// hashes.
func (s *Source) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	for _, ws := range s.workspaces() {
		if ws != id {
			continue
		}
		return s.readWorkspace(ctx, ws)
	}
	return nil, domain.ErrSessionNotFound
}

// workspaces lists workspace hash directories containing a state
// database.
func (s *Source) workspaces() []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), "state.vscdb")); err == nil {
			out = append(out, e.Name())
		}
	}
	return out
}

// readWorkspace loads one workspace's AI history as a session. Prompts
// carry no timestamps, so they interleave before the generations in
// stored order.
func (s *Source) readWorkspace(ctx context.Context, ws string) (*domain.Session, error) {
	dbPath := filepath.Join(s.root, ws, "state.vscdb")
	db, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	defer db.Close()

	prompts, err := readItem[[]prompt](ctx, db, keyPrompts)
	if err != nil {
		return nil, err
	}
	generations, err := readItem[[]generation](ctx, db, keyGenerations)
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{
		Agent:    s.Name(),
		ID:       ws,
		Project:  s.workspaceFolder(ws),
		Metadata: make(map[string]string),
	}
	for _, p := range prompts {
		if p.Text == "" {
			continue
		}
		sess.Messages = append(sess.Messages, domain.Message{Role: domain.RoleUser, Text: p.Text})
	}
	for _, g := range generations {
		if g.TextDescription == "" {
			continue
		}
		ts := agents.EpochMillis(g.UnixMs)
		if sess.Timestamp == 0 || (ts != 0 && ts < sess.Timestamp) {
			sess.Timestamp = ts
		}
		sess.Messages = append(sess.Messages, domain.Message{
			Role:      domain.RoleAssistant,
			Text:      g.TextDescription,
			Timestamp: ts,
		})
	}
	return sess, nil
}

// readItem fetches and decodes one ItemTable value. A missing key is an
// empty result, not an error.
func readItem[T any](ctx context.Context, db *sql.DB, key string) (T, error) {
	var zero T
	var value string
	err := db.QueryRowContext(ctx, "SELECT value FROM ItemTable WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", key, err)
	}
	var out T
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

// workspaceFolder resolves the opened folder from workspace.json,
// stripping the file:// scheme.
func (s *Source) workspaceFolder(ws string) string {
	content, err := os.ReadFile(filepath.Join(s.root, ws, "workspace.json"))
	if err != nil {
		return ""
	}
	var meta struct {
		Folder string `json:"folder"`
	}
	if err := json.Unmarshal(content, &meta); err != nil {
		return ""
	}
	if u, err := url.Parse(meta.Folder); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return meta.Folder
}

func flatten(msgs []domain.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Text)
	}
	return b.String()
}

func firstUserText(msgs []domain.Message) string {
	for _, m := range msgs {
		if m.Role == domain.RoleUser {
			return m.Text
		}
	}
	if len(msgs) > 0 {
		return msgs[0].Text
	}
	return ""
}
