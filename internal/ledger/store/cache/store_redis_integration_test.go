//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"nameledger/internal/ledger/models"
	"nameledger/internal/ledger/ports"
	ledgerservice "nameledger/internal/ledger/service"
	"nameledger/internal/ledger/store/cache"
	"nameledger/internal/storage"
	treasurymodels "nameledger/internal/treasury/models"
	"nameledger/pkg/domain"
	"nameledger/pkg/platform/sentinel"
	"nameledger/pkg/requestcontext"
	"nameledger/pkg/testutil/containers"
)

var (
	alice = domain.MustParseAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	admin = domain.MustParseAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.cache = cache.NewRedisCache(s.redis.Client.Client, cache.WithTTL(time.Minute))
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestSetGetInvalidate() {
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	lease := models.NewLease("thomas", alice, 2, now)

	_, err := s.cache.Get(ctx, "thomas")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.cache.Set(ctx, lease))
	got, err := s.cache.Get(ctx, "thomas")
	s.Require().NoError(err)
	s.Equal(lease.Holder, got.Holder)
	s.True(lease.ExpiresAt.Equal(got.ExpiresAt))

	ttl, err := s.redis.Client.TTL(ctx, "nameledger:lease:h:thomas").Result()
	s.Require().NoError(err)
	s.InDelta(time.Minute.Seconds(), ttl.Seconds(), 2)

	s.Require().NoError(s.cache.Invalidate(ctx, "thomas"))
	_, err = s.cache.Get(ctx, "thomas")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestCorruptEntryIsAMiss() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.HSet(ctx, "nameledger:lease:h:broken", "v", 1, "data", "{not json").Err())

	_, err := s.cache.Get(ctx, "broken")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestOlderRecordNeverReplacesNewer() {
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	older := models.NewLease("thomas", alice, 2, now)
	newer := models.NewLease("thomas", alice, 2, now)
	newer.Extend(2, now)

	s.Require().NoError(s.cache.Set(ctx, newer))
	s.Require().NoError(s.cache.Set(ctx, older))

	got, err := s.cache.Get(ctx, "thomas")
	s.Require().NoError(err)
	s.True(newer.ExpiresAt.Equal(got.ExpiresAt))

	s.Run("a later record replaces the cached one", func() {
		latest := newer.Clone()
		latest.Extend(1, now)
		s.Require().NoError(s.cache.Set(ctx, latest))
		got, err := s.cache.Get(ctx, "thomas")
		s.Require().NoError(err)
		s.True(latest.ExpiresAt.Equal(got.ExpiresAt))
	})
}

// renewDuringFill renews the name from inside the first fill, so the lookup
// that read the old record writes it after the renewal has written through.
type renewDuringFill struct {
	ports.LeaseCache
	renew func()
	done  bool
}

func (c *renewDuringFill) Set(ctx context.Context, lease *models.LeaseRecord) error {
	if !c.done {
		c.done = true
		c.renew()
	}
	return c.LeaseCache.Set(ctx, lease)
}

func (s *RedisCacheSuite) TestLookupRacingRenewalServesTheRenewal() {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	store := storage.NewMemory()
	policy, err := treasurymodels.NewPolicyState(admin, domain.MustParseAmount("50000000000000000"), 12, now)
	s.Require().NoError(err)
	_, _, err = store.Bootstrap(ctx, policy)
	s.Require().NoError(err)

	writer := ledgerservice.New(store, ledgerservice.WithLeaseCache(s.cache))
	_, err = writer.Register(ctx, alice, "thomas", 2, domain.MustParseAmount("100000000000000000"))
	s.Require().NoError(err)
	s.Require().NoError(s.cache.Invalidate(ctx, "thomas"))

	hook := &renewDuringFill{LeaseCache: s.cache}
	hook.renew = func() {
		_, err := writer.Renew(ctx, alice, "thomas", 2, domain.MustParseAmount("120000000000000000"))
		s.Require().NoError(err)
	}
	reader := ledgerservice.New(store, ledgerservice.WithLeaseCache(hook))

	stale, err := reader.Domain(ctx, "thomas")
	s.Require().NoError(err)
	s.True(stale.ExpiresAt.Equal(now.Add(models.LeaseTerm(2))))

	fresh, err := reader.Domain(ctx, "thomas")
	s.Require().NoError(err)
	s.True(fresh.ExpiresAt.Equal(now.Add(models.LeaseTerm(4))), "cached %s", fresh.ExpiresAt)
}
