package tokens

import "sync"

// PushStore tracks push-registration handles with set semantics: membership
// is the capability, there is no consumption step and no expiry.
type PushStore struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

func NewPushStore() *PushStore {
	return &PushStore{tokens: make(map[string]struct{})}
}

// Add registers a device token. Adding an existing token is a no-op.
func (s *PushStore) Add(token string) {
	if token == "" {
		return
	}
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()
}

// Remove deregisters a token and reports whether it was present. Removing an
// absent token is not an error.
func (s *PushStore) Remove(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return false
	}
	delete(s.tokens, token)
	return true
}

// Contains reports membership.
func (s *PushStore) Contains(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[token]
	return ok
}

// ListAll returns every registered token.
func (s *PushStore) ListAll() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.tokens))
	for token := range s.tokens {
		result = append(result, token)
	}
	return result
}
