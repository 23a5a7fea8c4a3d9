package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/physqgen-backend/internal/config"
	"github.com/stemsi/physqgen-backend/internal/model"
)

// ErrCacheMiss is returned when a cached snapshot does not exist.
var ErrCacheMiss = errors.New("cache miss")

// CompletionPayload is queued when a session answers its last question.
type CompletionPayload struct {
	SessionID   uuid.UUID `json:"session_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// releaseLock deletes the lock only if it still holds our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// setSnapshot writes the snapshot unless the cached one is newer.
var setSnapshot = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	local ok, cached = pcall(cjson.decode, current)
	if ok and type(cached) == "table" and tonumber(cached["version"]) and tonumber(cached["version"]) > tonumber(ARGV[2]) then
		return 0
	end
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// ProgressStore keeps the Redis side of session progress: the per-session
// submission lock, the snapshot cache, persistence queues and live events.
type ProgressStore struct {
	rdb *redis.Client
}

// NewProgressStore creates a new ProgressStore.
func NewProgressStore(rdb *redis.Client) *ProgressStore {
	return &ProgressStore{rdb: rdb}
}

// AcquireSubmitLock takes the session's submission lock. It returns an empty
// token when another submission already holds it.
func (s *ProgressStore) AcquireSubmitLock(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, config.CacheKey.SessionSubmitLockKey(sessionID), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (s *ProgressStore) ReleaseSubmitLock(ctx context.Context, sessionID uuid.UUID, token string) error {
	return releaseLock.Run(ctx, s.rdb, []string{config.CacheKey.SessionSubmitLockKey(sessionID)}, token).Err()
}

func (s *ProgressStore) GetSnapshot(ctx context.Context, sessionID uuid.UUID) (*model.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.SessionSnapshotKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetSnapshot caches snap unless a snapshot of a later session version is
// already cached, so a slow reader never overwrites a newer submission.
func (s *ProgressStore) SetSnapshot(ctx context.Context, snap model.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	key := config.CacheKey.SessionSnapshotKey(snap.SessionID)
	return setSnapshot.Run(ctx, s.rdb, []string{key}, data, snap.Version, ttl.Milliseconds()).Err()
}

// DeleteSnapshot drops the cached snapshot of one session.
func (s *ProgressStore) DeleteSnapshot(ctx context.Context, sessionID uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.SessionSnapshotKey(sessionID)).Err()
}

// ClearSnapshots drops every cached snapshot.
func (s *ProgressStore) ClearSnapshots(ctx context.Context) (int, error) {
	iter := s.rdb.Scan(ctx, 0, "session:*:snapshot", 200).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, iter.Err()
}

// EnqueueAttempt queues an attempt for AttemptWorker.
func (s *ProgressStore) EnqueueAttempt(ctx context.Context, a model.Attempt) error {
	return s.push(ctx, config.WorkerKey.PersistAttemptsQueue, a)
}

// EnqueueCompletion queues a finished session for CompletionWorker.
func (s *ProgressStore) EnqueueCompletion(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	return s.push(ctx, config.WorkerKey.PersistCompletionsQueue, CompletionPayload{SessionID: sessionID, CompletedAt: at})
}

func (s *ProgressStore) push(ctx context.Context, queue string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, queue, data).Err()
}

// PublishProgress broadcasts a progress event to admin monitors.
func (s *ProgressStore) PublishProgress(ctx context.Context, event model.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, config.CacheKey.ProgressChannel(), data).Err()
}

// SubscribeProgress subscribes to progress events. The caller closes the PubSub.
func (s *ProgressStore) SubscribeProgress(ctx context.Context) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ProgressChannel())
}

// QueueLengths reports the backlog of each persistence queue.
func (s *ProgressStore) QueueLengths(ctx context.Context) (map[string]int64, error) {
	queues := []string{config.WorkerKey.PersistAttemptsQueue, config.WorkerKey.PersistCompletionsQueue}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(queues))
	for i, q := range queues {
		cmds[i] = pipe.LLen(ctx, q)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	lengths := make(map[string]int64, len(queues))
	for i, q := range queues {
		lengths[q] = cmds[i].Val()
	}
	return lengths, nil
}
