package session

import "errors"

var (
	// ErrNilRedisClient indicates a RedisStore was built without a client
	ErrNilRedisClient = errors.New("session: nil redis client")

	// ErrEmptyStorageKey indicates a RedisStore was built without a key
	ErrEmptyStorageKey = errors.New("session: empty storage key")
)
