package telegram

import (
	"strconv"
	"sync"
	"time"

	"ai-day-planner/internal/wizard"

	"github.com/patrickmn/go-cache"
)

// SessionFactory builds a fresh wizard session for a chat.
type SessionFactory func() *wizard.Session

// chatSession is the bot-side state of one chat.
type chatSession struct {
	wizard *wizard.Session

	mu sync.Mutex
	// viewID is the message carrying the current keyboard.
	viewID int
}

func (c *chatSession) view() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewID
}

func (c *chatSession) setView(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewID = id
}

// SessionStore keeps one wizard per chat and drops it after ttl of
// inactivity. Dropped sessions are closed, which cancels their requests.
type SessionStore struct {
	cache   *cache.Cache
	factory SessionFactory
	mu      sync.Mutex
}

func NewSessionStore(ttl time.Duration, factory SessionFactory) *SessionStore {
	cleanup := time.Minute
	if ttl > 0 && ttl < cleanup {
		cleanup = ttl
	}
	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(_ string, v interface{}) {
		if cs, ok := v.(*chatSession); ok {
			cs.wizard.Close()
		}
	})
	return &SessionStore{cache: c, factory: factory}
}

func sessionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// Get returns the chat's session and restarts its idle timer.
func (s *SessionStore) Get(chatID int64) (*chatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := sessionKey(chatID)
	v, ok := s.cache.Get(k)
	if !ok {
		return nil, false
	}
	s.cache.Set(k, v, cache.DefaultExpiration)
	return v.(*chatSession), true
}

// Start replaces the chat's session with a new one.
func (s *SessionStore) Start(chatID int64) *chatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := sessionKey(chatID)
	s.cache.Delete(k)
	cs := &chatSession{wizard: s.factory()}
	s.cache.Set(k, cs, cache.DefaultExpiration)
	return cs
}

// Close ends every session.
func (s *SessionStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.cache.Items() {
		s.cache.Delete(k)
	}
}
