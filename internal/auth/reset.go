package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tolga/reserva/internal/clock"
)

// resetEntry tracks one outstanding password-reset token.
type resetEntry struct {
	userID    uint
	expiresAt time.Time
}

// ResetTokenStore holds opaque, single-use password-reset tokens with a TTL.
// It is an explicit process-wide component with init and teardown; expired
// entries are pruned on issue and by the janitor.
type ResetTokenStore struct {
	mu     sync.Mutex
	tokens map[string]resetEntry
	ttl    time.Duration
	clock  clock.Clock
	done   chan struct{}
	once   sync.Once
}

// NewResetTokenStore creates a store whose tokens expire after ttl
// (one hour when ttl is zero).
func NewResetTokenStore(ttl time.Duration, clk clock.Clock) *ResetTokenStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResetTokenStore{
		tokens: make(map[string]resetEntry),
		ttl:    ttl,
		clock:  clk,
		done:   make(chan struct{}),
	}
}

// Issue creates a new single-use token for the user.
func (s *ResetTokenStore) Issue(userID uint) string {
	token := uuid.NewString()
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	s.tokens[token] = resetEntry{userID: userID, expiresAt: now.Add(s.ttl)}
	return token
}

// Consume validates and invalidates a token, returning the user it was
// issued for. A token can be consumed at most once.
func (s *ResetTokenStore) Consume(token string) (uint, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok {
		return 0, false
	}
	delete(s.tokens, token)
	if now.After(entry.expiresAt) {
		return 0, false
	}
	return entry.userID, true
}

// StartJanitor prunes expired tokens every interval until Close is called.
func (s *ResetTokenStore) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				s.pruneLocked(s.clock.Now())
				s.mu.Unlock()
			case <-s.done:
				return
			}
		}
	}()
}

// Close stops the janitor. Safe to call more than once.
func (s *ResetTokenStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *ResetTokenStore) pruneLocked(now time.Time) {
	for token, entry := range s.tokens {
		if now.After(entry.expiresAt) {
			delete(s.tokens, token)
		}
	}
}
