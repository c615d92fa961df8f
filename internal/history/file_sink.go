// Package history provides a file-backed implementation of
// ports.HistorySink. Records are appended as JSONL, one file per
// session under {dir}/history/{session_id}.jsonl.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/teamkit/teamkit/internal/filestore"
	"github.com/teamkit/teamkit/internal/logging"
)

// record is the self-describing JSONL line written for every sink call.
type record struct {
	Kind      string         `json:"kind"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Agent     string         `json:"agent,omitempty"`
	From      string         `json:"from,omitempty"`
	Text      string         `json:"text,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Snapshot  map[string]any `json:"snapshot,omitempty"`
	Summary   map[string]any `json:"summary,omitempty"`
}

// FileSink is a file-backed ports.HistorySink. One goroutine's calls may
// interleave with another's; writes are serialized per session.
type FileSink struct {
	dir string
	log *logging.ComponentLogger

	mu sync.Mutex
}

// NewFileSink roots a history sink at dir/history/<session>.jsonl.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir, log: logging.NewComponentLogger("HistorySink")}
}

func (s *FileSink) sessionPath(sessionID string) string {
	return filepath.Join(s.dir, "history", sessionID+".jsonl")
}

func (s *FileSink) appendLine(rec record) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if err != nil {
			s.log.Warn("history write failed", "session", rec.SessionID, "kind", rec.Kind, "error", err)
		}
	}()

	path := s.sessionPath(rec.SessionID)
	if err := filestore.EnsureParentDir(path); err != nil {
		return fmt.Errorf("history: ensure dir: %w", err)
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("history: open: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("history: write: %w", err)
	}
	return nil
}

// SyncMessage appends a delivered-message record.
func (s *FileSink) SyncMessage(ctx context.Context, sessionID, toAgent, from, text string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.appendLine(record{
		Kind: "message", SessionID: sessionID, Timestamp: time.Now(),
		Agent: toAgent, From: from, Text: text,
	})
}

// SyncTask appends a task-snapshot record.
func (s *FileSink) SyncTask(ctx context.Context, sessionID, taskID string, snapshot map[string]any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.appendLine(record{
		Kind: "task", SessionID: sessionID, Timestamp: time.Now(),
		TaskID: taskID, Snapshot: snapshot,
	})
}

// SyncAgentTurn appends a turn-summary record.
func (s *FileSink) SyncAgentTurn(ctx context.Context, sessionID, agent string, summary map[string]any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.appendLine(record{
		Kind: "turn", SessionID: sessionID, Timestamp: time.Now(),
		Agent: agent, Summary: summary,
	})
}
