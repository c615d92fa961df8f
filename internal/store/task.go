package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/filestore"
	"github.com/teamkit/teamkit/internal/logging"
)

const highWatermarkFile = ".highwatermark"
const lockFile = ".lock"

// TaskStore is the per-session shared task list, rooted at
// <base>/sessions/<sid>/tasks/. Every operation (id allocation, file
// write, high-watermark update) runs under a single session-wide mutex.
type TaskStore struct {
	baseDir   string
	sessionID string
	log       *logging.ComponentLogger
	dmp       *diffmatchpatch.DiffMatchPatch

	mu sync.Mutex
}

// NewTaskStore roots a store at baseDir/sessions/sessionID/tasks.
func NewTaskStore(baseDir, sessionID string) *TaskStore {
	return &TaskStore{
		baseDir:   baseDir,
		sessionID: sessionID,
		log:       logging.NewComponentLogger("TaskStore"),
		dmp:       diffmatchpatch.New(),
	}
}

func (s *TaskStore) dir() string {
	return filepath.Join(s.baseDir, "sessions", s.sessionID, "tasks")
}

func (s *TaskStore) taskPath(id string) string {
	return filepath.Join(s.dir(), id+".json")
}

func (s *TaskStore) watermarkPath() string {
	return filepath.Join(s.dir(), highWatermarkFile)
}

func (s *TaskStore) lockSentinelPath() string {
	return filepath.Join(s.dir(), lockFile)
}

// ensureClaimed creates the task directory and its empty .lock
// sentinel on first use, without disturbing an existing high-watermark.
func (s *TaskStore) ensureClaimed() error {
	if err := filestore.EnsureDir(s.dir()); err != nil {
		return fmt.Errorf("tasks: create dir: %w", err)
	}
	if !filestore.Exists(s.lockSentinelPath()) {
		if err := os.WriteFile(s.lockSentinelPath(), nil, 0o644); err != nil {
			return fmt.Errorf("tasks: claim sentinel: %w", err)
		}
	}
	return nil
}

func (s *TaskStore) nextID() (string, error) {
	data, err := filestore.ReadFileOrEmpty(s.watermarkPath())
	if err != nil {
		return "", fmt.Errorf("tasks: read high-watermark: %w", err)
	}
	current := 0
	if len(data) > 0 {
		current, err = strconv.Atoi(string(trimSpace(data)))
		if err != nil {
			return "", fmt.Errorf("tasks: parse high-watermark: %w", err)
		}
	}
	next := current + 1
	if err := filestore.AtomicWrite(s.watermarkPath(), []byte(strconv.Itoa(next)), 0o644); err != nil {
		return "", fmt.Errorf("tasks: write high-watermark: %w", err)
	}
	return strconv.Itoa(next), nil
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\n' || b == '\t' || b == '\r' }

// CreateTask assigns the next id, writes the task file, and returns it.
func (s *TaskStore) CreateTask(subject, description, owner, activeForm string, metadata map[string]any) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureClaimed(); err != nil {
		return domain.Task{}, err
	}
	id, err := s.nextID()
	if err != nil {
		return domain.Task{}, err
	}
	t := domain.Task{
		ID:          id,
		Subject:     subject,
		Description: description,
		Status:      domain.StatusPending,
		Owner:       owner,
		BlockedBy:   []string{},
		Blocks:      []string{},
		ActiveForm:  activeForm,
		Metadata:    metadata,
	}
	if err := s.writeTask(t); err != nil {
		return domain.Task{}, err
	}
	s.log.Info("task created", "session", s.sessionID, "id", id, "subject", subject)
	return t, nil
}

func (s *TaskStore) writeTask(t domain.Task) error {
	if err := filestore.WriteJSON(s.taskPath(t.ID), t); err != nil {
		return fmt.Errorf("tasks: write %s/%s: %w", s.sessionID, t.ID, err)
	}
	return nil
}

func (s *TaskStore) readTask(id string) (domain.Task, bool, error) {
	data, err := filestore.ReadFileOrEmpty(s.taskPath(id))
	if err != nil {
		return domain.Task{}, false, fmt.Errorf("tasks: read %s/%s: %w", s.sessionID, id, err)
	}
	if data == nil {
		return domain.Task{}, false, nil
	}
	var t domain.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return domain.Task{}, false, fmt.Errorf("tasks: corrupt task %s/%s: %w", s.sessionID, id, err)
	}
	return t, true, nil
}

// GetTask returns the task with id, or ok=false if it does not exist.
func (s *TaskStore) GetTask(id string) (domain.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readTask(id)
}

// ListTasks returns every task sorted numerically by id. Unlike a
// lexicographic filename sort, this orders id "10" after id "9".
func (s *TaskStore) ListTasks() ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Task{}, nil
		}
		return nil, fmt.Errorf("tasks: list dir: %w", err)
	}
	var tasks []domain.Task
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		id := name[:len(name)-len(".json")]
		t, ok, err := s.readTask(id)
		if err != nil {
			return nil, err
		}
		if ok {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		ni, erri := strconv.Atoi(tasks[i].ID)
		nj, errj := strconv.Atoi(tasks[j].ID)
		if erri != nil || errj != nil {
			return tasks[i].ID < tasks[j].ID
		}
		return ni < nj
	})
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// CleanupDir removes the entire task directory for the session,
// including the high-watermark and lock sentinel.
func (s *TaskStore) CleanupDir() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeAllIfExists(s.dir())
}

// DeleteTask removes the task file for id, if present.
func (s *TaskStore) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := removeIfExists(s.taskPath(id)); err != nil {
		return fmt.Errorf("tasks: delete %s/%s: %w", s.sessionID, id, err)
	}
	return nil
}

// UpdateTask applies upd's merge rules to task id and returns the
// resulting record, or ok=false if id does not exist. When the update
// sets Status=deleted, the file is purged and the returned task carries
// Deleted=true alongside its last in-memory state.
func (s *TaskStore) UpdateTask(id string, upd domain.TaskUpdate) (domain.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok, err := s.readTask(id)
	if err != nil {
		return domain.Task{}, false, err
	}
	if !ok {
		return domain.Task{}, false, nil
	}

	prevDescription := t.Description

	if upd.Subject != nil {
		t.Subject = *upd.Subject
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Owner != nil {
		t.Owner = *upd.Owner
	}
	if upd.ActiveForm != nil {
		t.ActiveForm = *upd.ActiveForm
	}
	if len(upd.AddBlockedBy) > 0 {
		t.BlockedBy = domain.UnionStrings(t.BlockedBy, upd.AddBlockedBy)
	}
	if len(upd.AddBlocks) > 0 {
		t.Blocks = domain.UnionStrings(t.Blocks, upd.AddBlocks)
	}
	if upd.Metadata != nil {
		t.Metadata = mergeMetadata(t.Metadata, upd.Metadata)
	}

	if upd.Description != nil && prevDescription != "" && prevDescription != t.Description {
		s.logDescriptionDiff(id, prevDescription, t.Description)
	}

	if t.Status == domain.StatusDeleted {
		if err := removeIfExists(s.taskPath(id)); err != nil {
			return domain.Task{}, false, fmt.Errorf("tasks: purge deleted %s/%s: %w", s.sessionID, id, err)
		}
		t.Deleted = true
		s.log.Info("task deleted", "session", s.sessionID, "id", id)
		return t, true, nil
	}

	if err := s.writeTask(t); err != nil {
		return domain.Task{}, false, err
	}
	return t, true, nil
}

// logDescriptionDiff emits a readable one-line diff of a task's
// description change, for operators tailing logs rather than diffing
// the raw on-disk JSON by hand.
func (s *TaskStore) logDescriptionDiff(id, before, after string) {
	diffs := s.dmp.DiffMain(before, after, false)
	s.log.Debug("task description changed", "session", s.sessionID, "id", id, "diff", s.dmp.DiffPrettyText(diffs))
}

func mergeMetadata(existing map[string]any, updates map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(updates))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range updates {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
