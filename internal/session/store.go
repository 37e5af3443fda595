package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
)

// Defaults for the live-session cache. Overridable via options.
const (
	// DefaultCapacity bounds the number of concurrently live sessions.
	DefaultCapacity = 10_000

	// DefaultTTL is how long an idle session survives before expiring.
	DefaultTTL = 2 * time.Hour
)

// conversation is the per-session state. Each conversation carries its own
// mutex so concurrent exchanges on different sessions do not contend.
type conversation struct {
	mu    sync.Mutex
	turns []Turn
}

// append adds one turn and trims the window to 2*maxHistory turns.
// Callers must hold mu.
func (c *conversation) append(t Turn, maxHistory int) {
	c.turns = append(c.turns, t)
	if excess := len(c.turns) - 2*maxHistory; excess > 0 {
		c.turns = append(c.turns[:0:0], c.turns[excess:]...)
	}
}

// Store manages conversation sessions in memory.
//
// The history window of each session is bounded to 2*maxHistory turns
// (maxHistory user/assistant exchange pairs); the oldest turns are evicted
// first. With maxHistory 0 the store accepts exchanges but retains nothing.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	mu         sync.Mutex
	sessions   *expirable.LRU[string, *conversation]
	maxHistory int
	logger     log.Logger
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	capacity int
	ttl      time.Duration
}

// WithCapacity sets the maximum number of live sessions.
func WithCapacity(n int) Option {
	return func(o *storeOptions) { o.capacity = n }
}

// WithTTL sets the idle expiry for sessions.
func WithTTL(d time.Duration) Option {
	return func(o *storeOptions) { o.ttl = d }
}

// New creates a session store retaining maxHistory exchange pairs per
// session. A nil logger falls back to a no-op logger.
func New(maxHistory int, logger log.Logger, opts ...Option) *Store {
	if maxHistory < 0 {
		maxHistory = 0
	}
	if logger == nil {
		logger = log.NewNop()
	}

	o := storeOptions{capacity: DefaultCapacity, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		sessions:   expirable.NewLRU[string, *conversation](o.capacity, nil, o.ttl),
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// Create registers a new empty session and returns its ID.
func (s *Store) Create() string {
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions.Add(id, &conversation{})
	s.mu.Unlock()

	s.logger.Debug("created session", "session_id", id)
	return id
}

// AddMessage appends a single role-tagged turn to the session, creating the
// session if it does not exist. The window is trimmed to the configured
// bound after the append, oldest turns first, so a history may end on an
// unanswered user turn.
func (s *Store) AddMessage(sessionID, role, content string) {
	conv := s.upsert(sessionID)

	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.append(Turn{Role: role, Content: content}, s.maxHistory)
}

// AddExchange appends a user/assistant exchange to the session, creating the
// session if it does not exist. Both turns land under one lock so a reader
// never observes the question without its answer.
func (s *Store) AddExchange(sessionID, userMessage, assistantMessage string) {
	conv := s.upsert(sessionID)

	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.append(Turn{Role: RoleUser, Content: userMessage}, s.maxHistory)
	conv.append(Turn{Role: RoleAssistant, Content: assistantMessage}, s.maxHistory)
}

// History returns a copy of the session's retained turns, oldest first.
// Unknown or expired sessions yield an empty history.
func (s *Store) History(sessionID string) []Turn {
	s.mu.Lock()
	conv, ok := s.sessions.Get(sessionID)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	out := make([]Turn, len(conv.turns))
	copy(out, conv.turns)
	return out
}

// Delete removes a session. Deleting an unknown session is a no-op.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	removed := s.sessions.Remove(sessionID)
	s.mu.Unlock()

	if removed {
		s.logger.Debug("deleted session", "session_id", sessionID)
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Len()
}

// upsert returns the session's conversation, creating it on first use.
func (s *Store) upsert(sessionID string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.sessions.Get(sessionID); ok {
		return conv
	}
	conv := &conversation{}
	s.sessions.Add(sessionID, conv)
	s.logger.Debug("created session on first exchange", "session_id", sessionID)
	return conv
}
