//go:build integration

package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rostersync/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestSharedAcrossInstances() {
	ctx := context.Background()
	provider := &countingProvider{}
	first := NewCached(provider, s.redis.Client, WithCacheTTL(time.Minute))
	second := NewCached(provider, s.redis.Client, WithCacheTTL(time.Minute))

	want, err := first.Embed(ctx, "Alice Smith")
	s.Require().NoError(err)

	got, err := second.Embed(ctx, "  alice   SMITH ")
	s.Require().NoError(err)
	s.Equal(want, got)
	s.Equal(int32(1), provider.calls.Load(), "normalized names share one cache entry")

	ttl, err := s.redis.Client.TTL(ctx, first.key("Alice Smith")).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)
}
