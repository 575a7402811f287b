package memory

import (
	"encoding/json"
	"sync"
)

// LocalStore is a process-local key/value store used as the last-resort score
// sink in tests and in the memory backend.
type LocalStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewLocalStore() *LocalStore {
	return &LocalStore{values: make(map[string][]byte)}
}

// Load decodes the value under key into v. A missing key leaves v untouched.
func (s *LocalStore) Load(key string, v any) error {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (s *LocalStore) Save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values[key] = raw
	s.mu.Unlock()
	return nil
}
