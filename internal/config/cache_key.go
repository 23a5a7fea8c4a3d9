package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionSnapshotKey returns the cache key for a session's student-facing snapshot
func (r *CacheKeyStruct) SessionSnapshotKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session:%s:snapshot", sessionID)
}

// SessionSubmitLockKey returns the key held while a submission for the session is processed
func (r *CacheKeyStruct) SessionSubmitLockKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session:%s:submit_lock", sessionID)
}

// ProgressChannel returns the Redis PubSub channel carrying submission progress events
func (r *CacheKeyStruct) ProgressChannel() string {
	return "sessions:progress"
}

var CacheKey = NewCacheKeyStruct()
