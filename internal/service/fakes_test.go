package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/physqgen-backend/internal/model"
	"github.com/stemsi/physqgen-backend/internal/repository"
)

// memoryStore keeps serialized copies so every GetByID is a real reconstruction.
type memoryStore struct {
	mu         sync.Mutex
	sessions   map[uuid.UUID][]byte
	beforeSave func()
	saves      int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[uuid.UUID][]byte)}
}

func (m *memoryStore) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return repository.ErrConflict
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.sessions[s.ID] = data
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *memoryStore) SaveProgress(ctx context.Context, s *model.Session, expectedVersion int) error {
	if m.beforeSave != nil {
		m.beforeSave()
	}

	stored, err := m.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if stored.Version != expectedVersion {
		return repository.ErrConflict
	}
	s.Version = expectedVersion + 1
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.sessions[s.ID] = data
	m.saves++
	return nil
}

// bump simulates a concurrent writer.
func (m *memoryStore) bump(id uuid.UUID) {
	s, _ := m.GetByID(context.Background(), id)
	s.Version++
	data, _ := json.Marshal(s)
	m.mu.Lock()
	m.sessions[id] = data
	m.mu.Unlock()
}

type memoryCache struct {
	mu          sync.Mutex
	locks       map[uuid.UUID]string
	snapshots   map[uuid.UUID]model.Snapshot
	attempts    []model.Attempt
	completions []uuid.UUID
	events      []model.ProgressEvent
	lockErr     error
	setErr      error
	deletes     int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		locks:     make(map[uuid.UUID]string),
		snapshots: make(map[uuid.UUID]model.Snapshot),
	}
}

func (c *memoryCache) AcquireSubmitLock(_ context.Context, id uuid.UUID, _ time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lockErr != nil {
		return "", c.lockErr
	}
	if _, held := c.locks[id]; held {
		return "", nil
	}
	token := uuid.NewString()
	c.locks[id] = token
	return token, nil
}

func (c *memoryCache) ReleaseSubmitLock(_ context.Context, id uuid.UUID, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[id] == token {
		delete(c.locks, id)
	}
	return nil
}

func (c *memoryCache) GetSnapshot(_ context.Context, id uuid.UUID) (*model.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snapshots[id]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return &snap, nil
}

// SetSnapshot keeps the newer of the cached and given snapshot, like the Redis script.
func (c *memoryCache) SetSnapshot(_ context.Context, snap model.Snapshot, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	if cached, ok := c.snapshots[snap.SessionID]; ok && cached.Version > snap.Version {
		return nil
	}
	c.snapshots[snap.SessionID] = snap
	return nil
}

func (c *memoryCache) DeleteSnapshot(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, id)
	c.deletes++
	return nil
}

func (c *memoryCache) EnqueueAttempt(_ context.Context, a model.Attempt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, a)
	return nil
}

func (c *memoryCache) EnqueueCompletion(_ context.Context, id uuid.UUID, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completions = append(c.completions, id)
	return nil
}

func (c *memoryCache) PublishProgress(_ context.Context, e model.ProgressEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

var errRedisDown = errors.New("dial tcp: connection refused")
