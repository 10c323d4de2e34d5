package store

import (
	"context"
	"sync"

	"github.com/tuskan/zarrengine/zarrtypes"
)

// MemoryStore is an in-memory reference Store, useful for tests and small
// arrays. It supports both partial reads and partial writes.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemoryStore) GetPartial(_ context.Context, key string, r ByteRange) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, zarrtypes.Newf(zarrtypes.StorageError, "get_partial", "key %q not found", key)
	}
	start := int(r.Offset)
	end := len(v)
	if r.Length >= 0 {
		end = start + int(r.Length)
	}
	if start < 0 || start > len(v) || end > len(v) || end < start {
		return nil, zarrtypes.Newf(zarrtypes.CodecError, "get_partial", "invalid byte range [%d,%d) for value of length %d", start, end, len(v))
	}
	out := make([]byte, end-start)
	copy(out, v[start:end])
	return out, nil
}

func (s *MemoryStore) GetPartialMany(ctx context.Context, key string, ranges []ByteRange) ([][]byte, error) {
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		b, err := s.GetPartial(ctx, key, r)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data[key] = cp
	return nil
}

func (s *MemoryStore) SetPartialMany(_ context.Context, key string, writes []PartialWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.data[key]
	need := 0
	for _, w := range writes {
		if end := int(w.Offset) + len(w.Data); end > need {
			need = end
		}
	}
	if need > len(v) {
		grown := make([]byte, need)
		copy(grown, v)
		v = grown
	}
	for _, w := range writes {
		copy(v[w.Offset:], w.Data)
	}
	s.data[key] = v
	return nil
}

func (s *MemoryStore) Erase(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Capabilities() Capabilities {
	return Capabilities{SupportsGetPartial: true, SupportsSetPartial: true}
}
