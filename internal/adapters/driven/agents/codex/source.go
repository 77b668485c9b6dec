// Package codex reads Codex CLI's local data directory: rollout session
// files and the AGENTS.md memory file.
package codex

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/retracehq/retrace/internal/adapters/driven/agents"
	"github.com/retracehq/retrace/internal/core/domain"
	"github.com/retracehq/retrace/internal/core/ports/driven"
	"github.com/retracehq/retrace/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.AgentSource = (*Source)(nil)

// Source reads ~/.codex. Sessions live under
// sessions/<year>/<month>/<day>/rollout-*.jsonl.
type Source struct {
	root string
}

// NewSource creates a codex source rooted at dir. An empty dir resolves
// to ~/.codex.
func NewSource(dir string) *Source {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".codex")
		}
	}
	return &Source{root: dir}
}

// Name implements driven.AgentSource.
func (s *Source) Name() string { return "codex" }

// Available implements driven.AgentSource.
func (s *Source) Available() bool {
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}

// rolloutLine is one entry of a rollout file. The payload shape depends
// on the line type; only session_meta and response_item messages matter
// here.
type rolloutLine struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Payload   struct {
		// session_meta fields.
		ID         string `json:"id"`
		CWD        string `json:"cwd"`
		CLIVersion string `json:"cli_version"`

		// response_item fields.
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"payload"`
}

// Documents implements driven.AgentSource.
func (s *Source) Documents(_ context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	for _, path := range s.rolloutPaths() {
		sess, err := s.parseRollout(path)
		if err != nil {
			logger.Warn("Codex rollout %s: %v", path, err)
			continue
		}
		if len(sess.Messages) == 0 {
			continue
		}
		count := len(sess.Messages)
		docs = append(docs, domain.Document{
			ID:           "codex:" + sess.ID,
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
	}
	return docs, nil
}

// MemoryFiles implements driven.AgentSource: the global AGENTS.md.
func (s *Source) MemoryFiles(_ context.Context) ([]domain.MemoryFile, error) {
	path := filepath.Join(s.root, "AGENTS.md")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return []domain.MemoryFile{{Path: path, Content: string(content)}}, nil
}

// PlanFiles implements driven.AgentSource. Codex keeps no plan files.
func (s *Source) PlanFiles(_ context.Context) ([]domain.MemoryFile, error) {
	return nil, nil
}

// ListSessions implements driven.AgentSource.
func (s *Source) ListSessions(_ context.Context, filter domain.SessionFilter) ([]domain.SessionSummary, error) {
	var out []domain.SessionSummary
	needle := strings.ToLower(filter.Project)
	for _, path := range s.rolloutPaths() {
		sess, err := s.parseRollout(path)
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
	for _, path := range s.rolloutPaths() {
		sess, err := s.parseRollout(path)
		if err != nil {
			continue
		}
		if sess.ID == id {
			return sess, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

// rolloutPaths lists every rollout file under the dated session tree.
func (s *Source) rolloutPaths() []string {
	var out []string
	root := filepath.Join(s.root, "sessions")
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if !d.IsDir() && strings.HasPrefix(name, "rollout-") && strings.HasSuffix(name, ".jsonl") {
			out = append(out, path)
		}
		return nil
	})
	return out
}

// parseRollout reads one rollout file into a session. The session id
// comes from the session_meta line, falling back to the filename stem.
func (s *Source) parseRollout(path string) (*domain.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sess := &domain.Session{
		Agent:    s.Name(),
		ID:       strings.TrimSuffix(filepath.Base(path), ".jsonl"),
		Metadata: make(map[string]string),
	}

	scanner := agents.NewScanner(f)
	for scanner.Scan() {
		var line rolloutLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}

		switch line.Type {
		case "session_meta":
			if line.Payload.ID != "" {
				sess.ID = line.Payload.ID
			}
			if line.Payload.CWD != "" {
				sess.Project = line.Payload.CWD
			}
			if line.Payload.CLIVersion != "" {
				sess.Metadata["version"] = line.Payload.CLIVersion
			}
			if sess.Timestamp == 0 {
				sess.Timestamp = agents.ParseTimestamp(line.Timestamp)
			}
		case "response_item":
			if line.Payload.Type != "message" {
				continue
			}
			var parts []string
			for _, c := range line.Payload.Content {
				if c.Text != "" {
					parts = append(parts, c.Text)
				}
			}
			text := strings.TrimSpace(strings.Join(parts, "\n"))
			if text == "" {
				continue
			}
			ts := agents.ParseTimestamp(line.Timestamp)
			if sess.Timestamp == 0 {
				sess.Timestamp = ts
			}
			sess.Messages = append(sess.Messages, domain.Message{
				Role:      domain.Role(line.Payload.Role),
				Text:      text,
				Timestamp: ts,
			})
		}
	}
	return sess, scanner.Err()
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
