// Package claude reads Claude Code's local data directory: project
// transcripts, the prompt history, memory files, and plan files.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/retracehq/retrace/internal/adapters/driven/agents"
	"github.com/retracehq/retrace/internal/core/domain"
	"github.com/retracehq/retrace/internal/core/ports/driven"
	"github.com/retracehq/retrace/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.AgentSource = (*Source)(nil)

// Source reads ~/.claude. Transcripts live one JSONL file per session
// under projects/<encoded-project>/<session-uuid>.jsonl; prompts without
// a transcript surface through history.jsonl.
type Source struct {
	root string
}

// NewSource creates a claude source rooted at dir. An empty dir resolves
// to ~/.claude.
func NewSource(dir string) *Source {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".claude")
		}
	}
	return &Source{root: dir}
}

// Name implements driven.AgentSource.
func (s *Source) Name() string { return "claude" }

// Available implements driven.AgentSource.
func (s *Source) Available() bool {
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}

// transcriptLine is one entry of a session JSONL file. Content is either
// a plain string or a list of typed blocks.
type transcriptLine struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"sessionId"`
	CWD       string `json:"cwd"`
	Version   string `json:"version"`
	Message   struct {
		Role    string          `json:"role"`
		Model   string          `json:"model"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// historyLine is one entry of history.jsonl.
type historyLine struct {
	Display   string  `json:"display"`
	Timestamp float64 `json:"timestamp"`
	Project   string  `json:"project"`
	SessionID string  `json:"sessionId"`
}

// Documents implements driven.AgentSource. Every transcript becomes a
// full-conversation document; history entries whose session has no
// transcript become single-line fallback documents.
func (s *Source) Documents(_ context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	seen := make(map[string]bool)

	for _, path := range s.transcriptPaths() {
		sess, err := s.parseTranscript(path)
		if err != nil {
			logger.Warn("Claude transcript %s: %v", path, err)
			continue
		}
		if len(sess.Messages) == 0 {
			continue
		}
		count := len(sess.Messages)
		docs = append(docs, domain.Document{
			ID:           "claude:" + sess.ID,
			Agent:        s.Name(),
			SessionID:    sess.ID,
			Timestamp:    sess.Timestamp,
			Project:      sess.Project,
			FilePath:     path,
			Display:      agents.Display(firstUserText(sess.Messages)),
			Text:         flatten(sess.Messages),
			Type:         domain.TypeConversation,
			MessageCount: &count,
		})
		seen[sess.ID] = true
	}

	histPath := filepath.Join(s.root, "history.jsonl")
	f, err := os.Open(histPath)
	if err != nil {
		if os.IsNotExist(err) {
			return docs, nil
		}
		return docs, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	scanner := agents.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		var h historyLine
		if err := json.Unmarshal(scanner.Bytes(), &h); err != nil || h.Display == "" {
			continue
		}
		id := fmt.Sprintf("claude:history:%d", line)
		if h.SessionID != "" {
			if seen[h.SessionID] {
				continue
			}
			id = "claude:" + h.SessionID
		}
		docs = append(docs, domain.Document{
			ID:        id,
			Agent:     s.Name(),
			SessionID: h.SessionID,
			Timestamp: agents.EpochMillis(h.Timestamp),
			Project:   h.Project,
			FilePath:  histPath,
			Display:   agents.Display(h.Display),
			Text:      h.Display,
			Type:      domain.TypeConversation,
		})
	}
	return docs, scanner.Err()
}

// MemoryFiles implements driven.AgentSource: the global CLAUDE.md plus
// any per-project copies under projects/.
func (s *Source) MemoryFiles(_ context.Context) ([]domain.MemoryFile, error) {
	var files []domain.MemoryFile
	paths := []string{filepath.Join(s.root, "CLAUDE.md")}
	if perProject, err := filepath.Glob(filepath.Join(s.root, "projects", "*", "CLAUDE.md")); err == nil {
		paths = append(paths, perProject...)
	}
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		files = append(files, domain.MemoryFile{Path: path, Content: string(content)})
	}
	return files, nil
}

// PlanFiles implements driven.AgentSource.
func (s *Source) PlanFiles(_ context.Context) ([]domain.MemoryFile, error) {
	matches, err := filepath.Glob(filepath.Join(s.root, "plans", "*.md"))
	if err != nil {
		return nil, err
	}
	var files []domain.MemoryFile
	for _, path := range matches {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		files = append(files, domain.MemoryFile{Path: path, Content: string(content)})
	}
	return files, nil
}

// ListSessions implements driven.AgentSource.
func (s *Source) ListSessions(_ context.Context, filter domain.SessionFilter) ([]domain.SessionSummary, error) {
	var out []domain.SessionSummary
	needle := strings.ToLower(filter.Project)
	for _, path := range s.transcriptPaths() {
		sess, err := s.parseTranscript(path)
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

// GetSession implements driven.AgentSource.
func (s *Source) GetSession(_ context.Context, id string) (*domain.Session, error) {
	for _, path := range s.transcriptPaths() {
		if strings.TrimSuffix(filepath.Base(path), ".jsonl") != id {
			continue
		}
		sess, err := s.parseTranscript(path)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
	return nil, domain.ErrSessionNotFound
}

// transcriptPaths lists every session file: projects/*/<uuid>.jsonl.
// Filenames that are not UUIDs are other artifacts, not sessions.
func (s *Source) transcriptPaths() []string {
	matches, err := filepath.Glob(filepath.Join(s.root, "projects", "*", "*.jsonl"))
	if err != nil {
		return nil
	}
	var out []string
	for _, path := range matches {
		stem := strings.TrimSuffix(filepath.Base(path), ".jsonl")
		if _, err := uuid.Parse(stem); err != nil {
			continue
		}
		out = append(out, path)
	}
	return out
}

// parseTranscript reads one session JSONL file into a session. Malformed
// lines are skipped; the session id falls back to the filename stem when
// no line carries one.
func (s *Source) parseTranscript(path string) (*domain.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sess := &domain.Session{
		Agent:    s.Name(),
		ID:       strings.TrimSuffix(filepath.Base(path), ".jsonl"),
		Project:  decodeProject(filepath.Base(filepath.Dir(path))),
		Metadata: make(map[string]string),
	}

	scanner := agents.NewScanner(f)
	for scanner.Scan() {
		var line transcriptLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if line.Type != "user" && line.Type != "assistant" {
			continue
		}
		text := flattenContent(line.Message.Content)
		if text == "" {
			continue
		}

		ts := agents.ParseTimestamp(line.Timestamp)
		if sess.Timestamp == 0 {
			sess.Timestamp = ts
		}
		if line.CWD != "" {
			sess.Project = line.CWD
		}
		if line.Message.Model != "" {
			sess.Metadata["model"] = line.Message.Model
		}
		if line.Version != "" {
			sess.Metadata["version"] = line.Version
		}

		role := domain.Role(line.Message.Role)
		if role == "" {
			role = domain.Role(line.Type)
		}
		sess.Messages = append(sess.Messages, domain.Message{Role: role, Text: text, Timestamp: ts})
	}
	return sess, scanner.Err()
}

// flattenContent extracts text from a message content value, which is
// either a bare string or a list of typed blocks.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// flatten joins messages role-prefixed into one indexable body.
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

// decodeProject maps an encoded project directory name back to a path:
// "-home-dev-api" encodes "/home/dev/api". Lossy for path segments that
// themselves contain dashes, so a transcript's cwd wins when present.
func decodeProject(dir string) string {
	if !strings.HasPrefix(dir, "-") {
		return dir
	}
	return "/" + strings.ReplaceAll(strings.TrimPrefix(dir, "-"), "-", "/")
}
