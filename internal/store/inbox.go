// Package store implements the two on-disk stores the orchestration
// kernel is built on: per-agent inboxes and the per-session task list.
// Both stores persist via internal/filestore's atomic write helpers and
// serialize concurrent access with their own locks.
package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/filestore"
	"github.com/teamkit/teamkit/internal/logging"
)

// InboxStore is a per-agent append-only message list rooted at
// <base>/sessions/<sid>/inboxes/<agent>.json. Directories are created
// lazily on first write; a read against a never-written agent returns
// an empty slice without touching disk.
type InboxStore struct {
	baseDir   string
	sessionID string
	log       *logging.ComponentLogger

	mu    sync.Mutex            // guards the locks map itself
	locks map[string]*sync.Mutex // per-agent, created lazily, never reclaimed
}

// NewInboxStore roots a store at baseDir/sessions/sessionID/inboxes.
func NewInboxStore(baseDir, sessionID string) *InboxStore {
	return &InboxStore{
		baseDir:   baseDir,
		sessionID: sessionID,
		log:       logging.NewComponentLogger("InboxStore"),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *InboxStore) dir() string {
	return filepath.Join(s.baseDir, "sessions", s.sessionID, "inboxes")
}

func (s *InboxStore) path(agent string) string {
	return filepath.Join(s.dir(), agent+".json")
}

// lockFor returns the mutex for agent, creating it on first reference.
// Locks are never reclaimed for the lifetime of the store.
func (s *InboxStore) lockFor(agent string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[agent]
	if !ok {
		l = &sync.Mutex{}
		s.locks[agent] = l
	}
	return l
}

// load reads the inbox file for agent. A missing file is not an error:
// it is treated as an empty inbox. A file that exists but fails to
// deserialize is fatal for the call; message store corruption is
// unrecoverable.
func (s *InboxStore) load(agent string) ([]domain.Message, error) {
	data, err := filestore.ReadFileOrEmpty(s.path(agent))
	if err != nil {
		return nil, fmt.Errorf("inbox: read %s/%s: %w", s.sessionID, agent, err)
	}
	if data == nil {
		return nil, nil
	}
	var msgs []domain.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("inbox: corrupt inbox for %s/%s: %w", s.sessionID, agent, err)
	}
	return msgs, nil
}

func (s *InboxStore) save(agent string, msgs []domain.Message) error {
	if msgs == nil {
		msgs = []domain.Message{}
	}
	if err := filestore.WriteJSON(s.path(agent), msgs); err != nil {
		return fmt.Errorf("inbox: write %s/%s: %w", s.sessionID, agent, err)
	}
	return nil
}

// Append adds msg to agent's inbox, creating the inbox directory on
// this first write if it does not already exist.
func (s *InboxStore) Append(agent string, msg domain.Message) error {
	lock := s.lockFor(agent)
	lock.Lock()
	defer lock.Unlock()

	msgs, err := s.load(agent)
	if err != nil {
		return err
	}
	msgs = append(msgs, msg)
	if err := s.save(agent, msgs); err != nil {
		return err
	}
	s.log.Debug("appended message", "session", s.sessionID, "agent", agent, "from", msg.From)
	return nil
}

// ReadAll returns every message in agent's inbox, read or unread, in
// append order. A never-written agent yields an empty slice and no
// file or directory is created.
func (s *InboxStore) ReadAll(agent string) ([]domain.Message, error) {
	lock := s.lockFor(agent)
	lock.Lock()
	defer lock.Unlock()
	msgs, err := s.load(agent)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		return []domain.Message{}, nil
	}
	return msgs, nil
}

// ReadUnread returns agent's unread messages in append order and flips
// their Read flag, persisting the change before returning. Calling it
// again with no intervening Append returns an empty slice.
func (s *InboxStore) ReadUnread(agent string) ([]domain.Message, error) {
	lock := s.lockFor(agent)
	lock.Lock()
	defer lock.Unlock()

	msgs, err := s.load(agent)
	if err != nil {
		return nil, err
	}
	var unread []domain.Message
	changed := false
	for i := range msgs {
		if !msgs[i].Read {
			unread = append(unread, msgs[i])
			msgs[i].Read = true
			changed = true
		}
	}
	if changed {
		if err := s.save(agent, msgs); err != nil {
			return nil, err
		}
	}
	if unread == nil {
		unread = []domain.Message{}
	}
	return unread, nil
}

// MarkRead sets Read=true on the given zero-based indices, or on every
// message in the inbox when indices is empty.
func (s *InboxStore) MarkRead(agent string, indices ...int) error {
	lock := s.lockFor(agent)
	lock.Lock()
	defer lock.Unlock()

	msgs, err := s.load(agent)
	if err != nil {
		return err
	}
	if len(indices) == 0 {
		for i := range msgs {
			msgs[i].Read = true
		}
	} else {
		for _, idx := range indices {
			if idx >= 0 && idx < len(msgs) {
				msgs[idx].Read = true
			}
		}
	}
	return s.save(agent, msgs)
}

// Clear removes agent's inbox file entirely.
func (s *InboxStore) Clear(agent string) error {
	lock := s.lockFor(agent)
	lock.Lock()
	defer lock.Unlock()
	return removeIfExists(s.path(agent))
}

// Cleanup removes the entire inbox directory for the session.
func (s *InboxStore) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeAllIfExists(s.dir())
}

// HasUnread reports whether agent has at least one unread message,
// without consuming it. Used by the scheduler's readiness scan so
// detecting work never itself marks messages read.
func (s *InboxStore) HasUnread(agent string) (bool, error) {
	lock := s.lockFor(agent)
	lock.Lock()
	defer lock.Unlock()
	msgs, err := s.load(agent)
	if err != nil {
		return false, err
	}
	for _, m := range msgs {
		if !m.Read {
			return true, nil
		}
	}
	return false, nil
}
