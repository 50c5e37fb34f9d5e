package keyValue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type value struct {
	value   string
	expires time.Time
}

// Store keeps short-lived strings in a local map, or in redis when a client
// is given. A missing or expired key reads as the empty string.
type Store struct {
	mutex   sync.RWMutex
	hashmap map[string]value

	sugar       *zap.SugaredLogger
	redisClient *redis.Client
	prefix      string

	now func() time.Time
}

func New(sugar *zap.SugaredLogger, redisClient *redis.Client, prefix string) *Store {
	return &Store{
		hashmap:     make(map[string]value),
		sugar:       sugar,
		redisClient: redisClient,
		prefix:      prefix,
		now:         time.Now,
	}
}

func (s *Store) selfContained() bool {
	return s.redisClient == nil
}

func (s *Store) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// ExpireLoop drops expired local keys every interval until ctx is done.
func (s *Store) ExpireLoop(ctx context.Context, interval time.Duration) {
	if !s.selfContained() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expire()
		}
	}
}

func (s *Store) expire() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for key, v := range s.hashmap {
		if v.expires.Before(now) {
			delete(s.hashmap, key)
		}
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	debugText := fmt.Sprintf("Getting value of key [%s]", key)
	if s.selfContained() {
		s.sugar.Debugf("%s from hashmap", debugText)

		s.mutex.RLock()
		defer s.mutex.RUnlock()

		v, exists := s.hashmap[key]
		if !exists || v.expires.Before(s.now()) {
			return "", nil
		}
		return v.value, nil
	}

	s.sugar.Debugf("%s from redis", debugText)

	v, err := s.redisClient.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return v, nil
}

func (s *Store) GetDel(ctx context.Context, key string) (string, error) {
	debugText := fmt.Sprintf("Getting and deleting value of key [%s]", key)
	if s.selfContained() {
		s.sugar.Debugf("%s from hashmap", debugText)

		s.mutex.Lock()
		defer s.mutex.Unlock()

		v, exists := s.hashmap[key]
		delete(s.hashmap, key)
		if !exists || v.expires.Before(s.now()) {
			return "", nil
		}
		return v.value, nil
	}

	s.sugar.Debugf("%s from redis", debugText)

	v, err := s.redisClient.GetDel(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, v string, expires time.Duration) error {
	debugText := fmt.Sprintf("Setting value of key [%s]", key)
	if s.selfContained() {
		s.sugar.Debugf("%s in hashmap", debugText)

		s.mutex.Lock()
		defer s.mutex.Unlock()

		s.hashmap[key] = value{v, s.now().Add(expires)}

		return nil
	}

	s.sugar.Debugf("%s in redis", debugText)
	return s.redisClient.Set(ctx, s.key(key), v, expires).Err()
}
