package cache

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newClockedLRU(size int) (*LRUCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache(size)
	c.now = clock.now
	return c, clock
}

func TestLRUCache(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("SetGetDelete", func(t *testing.T) {
		c, _ := newClockedLRU(100)
		require.NoError(t, c.Set(ctx, tenantID, "key1", []byte("value1"), time.Minute))

		val, err := c.Get(ctx, tenantID, "key1")
		require.NoError(t, err)
		assert.Equal(t, "value1", string(val))

		require.NoError(t, c.Delete(ctx, tenantID, "key1"))
		val, err = c.Get(ctx, tenantID, "key1")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		c, clock := newClockedLRU(100)
		_ = c.Set(ctx, tenantID, "expiring", []byte("temp"), time.Minute)

		val, _ := c.Get(ctx, tenantID, "expiring")
		assert.NotNil(t, val)

		clock.advance(2 * time.Minute)
		val, _ = c.Get(ctx, tenantID, "expiring")
		assert.Nil(t, val)

		size, _ := c.Stats()
		assert.Equal(t, 0, size, "expired entries are dropped on read")
	})

	t.Run("LRUEviction", func(t *testing.T) {
		c, _ := newClockedLRU(3)
		_ = c.Set(ctx, tenantID, "a", []byte("1"), time.Minute)
		_ = c.Set(ctx, tenantID, "b", []byte("2"), time.Minute)
		_ = c.Set(ctx, tenantID, "c", []byte("3"), time.Minute)

		_, _ = c.Get(ctx, tenantID, "a")
		_ = c.Set(ctx, tenantID, "d", []byte("4"), time.Minute)

		val, _ := c.Get(ctx, tenantID, "b")
		assert.Nil(t, val, "least recently used entry is evicted")
		val, _ = c.Get(ctx, tenantID, "a")
		assert.NotNil(t, val)
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		c, _ := newClockedLRU(10)
		_ = c.Set(ctx, "tenant-001", "shared", []byte("one"), time.Minute)
		_ = c.Set(ctx, "tenant-002", "shared", []byte("two"), time.Minute)

		v1, _ := c.Get(ctx, "tenant-001", "shared")
		v2, _ := c.Get(ctx, "tenant-002", "shared")
		assert.Equal(t, "one", string(v1))
		assert.Equal(t, "two", string(v2))
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		c, _ := newClockedLRU(10)
		assert.Error(t, c.Set(ctx, "", "key", []byte("v"), time.Minute))
		_, err := c.Get(ctx, "", "key")
		assert.Error(t, err)
		_, err = c.IncrementCounter(ctx, "", "k", time.Minute)
		assert.Error(t, err)
	})

	t.Run("IncrementCounter", func(t *testing.T) {
		c, clock := newClockedLRU(10)
		window := time.Minute

		n, err := c.IncrementCounter(ctx, tenantID, "sweep", window)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, _ = c.IncrementCounter(ctx, tenantID, "sweep", window)
		assert.Equal(t, int64(2), n)

		clock.advance(window + time.Second)
		n, _ = c.IncrementCounter(ctx, tenantID, "sweep", window)
		assert.Equal(t, int64(1), n, "counter restarts after the window")
	})

	t.Run("Statistics", func(t *testing.T) {
		c, _ := newClockedLRU(10)
		avg := 8.5
		st := &domain.Statistics{
			Total:          4,
			Completed:      2,
			CompletionRate: 50,
			AverageScore:   &avg,
			Grades:         map[domain.LetterGrade]int{domain.GradeB: 2},
			SkillAverages:  map[domain.Criterion]float64{domain.CriterionTechnical: 8},
		}

		miss, err := c.GetStatistics(ctx, tenantID, "batch:b1")
		require.NoError(t, err)
		assert.Nil(t, miss)

		require.NoError(t, c.SetStatistics(ctx, tenantID, "batch:b1", st, time.Minute))
		got, err := c.GetStatistics(ctx, tenantID, "batch:b1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 4, got.Total)
		assert.Equal(t, 2, got.Grades[domain.GradeB])
		assert.Equal(t, 8.0, got.SkillAverages[domain.CriterionTechnical])
		require.NotNil(t, got.AverageScore)
		assert.Equal(t, 8.5, *got.AverageScore)

		require.NoError(t, c.Delete(ctx, tenantID, StatisticsKey("batch:b1")))
		miss, _ = c.GetStatistics(ctx, tenantID, "batch:b1")
		assert.Nil(t, miss)
	})

	t.Run("CorruptStatistics", func(t *testing.T) {
		c, _ := newClockedLRU(10)
		_ = c.Set(ctx, tenantID, StatisticsKey("x"), []byte("{not json"), time.Minute)
		_, err := c.GetStatistics(ctx, tenantID, "x")
		assert.Error(t, err)
	})

	t.Run("StatsAndClose", func(t *testing.T) {
		c := NewLRUCache(50)
		_ = c.Set(ctx, tenantID, "k1", []byte("v1"), time.Minute)
		_ = c.Set(ctx, tenantID, "k2", []byte("v2"), time.Minute)

		size, capacity := c.Stats()
		assert.Equal(t, 2, size)
		assert.Equal(t, 50, capacity)

		require.NoError(t, c.Ping(ctx))
		require.NoError(t, c.Close())
		val, _ := c.Get(ctx, tenantID, "k1")
		assert.Nil(t, val)
	})
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
		require.NoError(t, err)
		defer c.Close()

		_, ok := c.(*LRUCache)
		assert.True(t, ok)
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		_, err := New(domain.CacheConfig{Type: "memcached"})
		assert.Error(t, err)
	})
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "praxis:t1:stats:batch:b1", redisKey("t1", StatisticsKey("batch:b1")))
}
