package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// CollectionKey returns the read-through cache key for a remote collection.
func (r *CacheKeyStruct) CollectionKey(collection string) string {
	return fmt.Sprintf("collection:%s:cache", collection)
}

// ExamKey returns the cache key for a fully resolved exam aggregate.
func (r *CacheKeyStruct) ExamKey(examID string) string {
	return fmt.Sprintf("exam:%s:cache", examID)
}

// AuthoredExamsKey returns the cache key for the flat list of exams written
// by the admin authoring flow, used as the last-resort read fallback.
func (r *CacheKeyStruct) AuthoredExamsKey() string {
	return "exams:authored"
}

// ExamResultKey returns the cache key under which a completed attempt's
// result is stored when the remote write fails.
func (r *CacheKeyStruct) ExamResultKey(examID, userID string) string {
	return fmt.Sprintf("result:exam:%s:user:%s", examID, userID)
}

var CacheKey = NewCacheKeyStruct()
