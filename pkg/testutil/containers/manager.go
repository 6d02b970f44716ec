//go:build integration

// Package containers starts throwaway backends for integration tests. Each
// backend is started once per test binary and shared by every suite in it;
// Ryuk removes the containers when the binary exits.
package containers

import (
	"sync"
	"testing"
)

// Manager hands out the shared containers, starting each on first use.
type Manager struct {
	postgres shared[*PostgresContainer]
	redis    shared[*RedisContainer]
	redpanda shared[*RedpandaContainer]
}

var (
	managerOnce sync.Once
	manager     *Manager
)

func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return m.postgres.get(t, startPostgres)
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	return m.redis.get(t, startRedis)
}

func (m *Manager) GetRedpanda(t *testing.T) *RedpandaContainer {
	t.Helper()
	return m.redpanda.get(t, startRedpanda)
}

type shared[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (s *shared[T]) get(t *testing.T, start func() (T, error)) T {
	t.Helper()
	s.once.Do(func() {
		s.val, s.err = start()
	})
	if s.err != nil {
		t.Fatalf("start container: %v", s.err)
	}
	return s.val
}
