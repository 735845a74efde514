package todos

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	ErrTitleRequired = errors.New("title required")
	ErrNotFound      = errors.New("todo not found")
	ErrStoreClosed   = errors.New("store closed")
)

// Store is the persistence boundary for todos. Mutations are applied
// atomically: either the change is committed or the store is left as it was.
type Store interface {
	List(ctx context.Context) ([]Todo, error)
	Get(ctx context.Context, id int64) (Todo, error)
	Create(ctx context.Context, title string) (Todo, error)
	Toggle(ctx context.Context, id int64) (Todo, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}

type MemoryStore struct {
	mu     sync.Mutex
	seq    int64
	store  map[int64]Todo
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		store: make(map[int64]Todo),
	}
}

func (s *MemoryStore) List(ctx context.Context) ([]Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]Todo, 0, len(s.store))
	for _, t := range s.store {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Todo{}, ErrStoreClosed
	}
	t, ok := s.store[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) Create(ctx context.Context, title string) (Todo, error) {
	if strings.TrimSpace(title) == "" {
		return Todo{}, ErrTitleRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Todo{}, ErrStoreClosed
	}
	s.seq++
	t := Todo{
		ID:       s.seq,
		Title:    title,
		Complete: false,
	}
	s.store[t.ID] = t
	return t, nil
}

func (s *MemoryStore) Toggle(ctx context.Context, id int64) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Todo{}, ErrStoreClosed
	}
	t, ok := s.store[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	t.Complete = !t.Complete
	s.store[id] = t
	return t, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.store[id]; !ok {
		return ErrNotFound
	}
	delete(s.store, id)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
