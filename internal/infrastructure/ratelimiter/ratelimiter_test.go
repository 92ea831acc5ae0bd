package ratelimiter

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, rate, burst int) (Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := New(Options{
		MaxRatePerSecond: rate,
		MaxBurst:         burst,
		CacheTTL:         time.Hour,
		Now:              clock.Now,
	})
	t.Cleanup(func() { _ = l.Close() })
	return l, clock
}

func TestAllowConsumesBurst(t *testing.T) {
	l, _ := newLimiter(t, 1, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("conn"), "request %d", i)
	}
	assert.False(t, l.Allow("conn"))
	assert.True(t, l.Allow("other"), "keys are independent")
}

func TestRefillIsProportionalToElapsedTime(t *testing.T) {
	l, clock := newLimiter(t, 10, 10)

	for i := 0; i < 10; i++ {
		require.True(t, l.Allow("conn"))
	}
	require.False(t, l.Allow("conn"))

	// 10 tokens/s means one token every 100ms, not one per millisecond.
	clock.Advance(250 * time.Millisecond)
	assert.Equal(t, 2, l.Remaining("conn"))

	clock.Advance(time.Hour)
	assert.Equal(t, 10, l.Remaining("conn"))
}

func TestPartialTokensAccumulate(t *testing.T) {
	l, clock := newLimiter(t, 5, 1)

	require.True(t, l.Allow("conn"))
	require.False(t, l.Allow("conn"))

	// 5/s is a token every 200ms; two 100ms steps add up to one.
	clock.Advance(100 * time.Millisecond)
	assert.False(t, l.Allow("conn"))
	clock.Advance(100 * time.Millisecond)
	assert.True(t, l.Allow("conn"))
}

func TestGetSourceKey(t *testing.T) {
	l, _ := newLimiter(t, 1, 1)

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", l.GetSourceKey(r))

	r.Header.Set(defaultSourceKey, "custom")
	assert.Equal(t, "custom", l.GetSourceKey(r))
}

func TestInMemoryExpiry(t *testing.T) {
	c := NewInMemory()
	defer c.Close()

	require.NoError(t, c.SetWithExpiration("k", 7, time.Hour))
	v, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	require.NoError(t, c.SetWithExpiration("gone", 1, time.Nanosecond))
	time.Sleep(time.Millisecond)
	_, err = c.Get("gone")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestPropertyNeverExceedsBurst(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rate := rapid.IntRange(1, 50).Draw(t, "rate")
		burst := rapid.IntRange(1, 20).Draw(t, "burst")

		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		l := New(Options{MaxRatePerSecond: rate, MaxBurst: burst, CacheTTL: time.Hour, Now: clock.Now})
		defer l.Close()

		steps := rapid.SliceOfN(rapid.IntRange(0, 500), 1, 50).Draw(t, "stepsMs")
		for _, ms := range steps {
			clock.Advance(time.Duration(ms) * time.Millisecond)

			remaining := l.Remaining("k")
			if remaining < 0 || remaining > burst {
				t.Fatalf("remaining %d outside [0, %d]", remaining, burst)
			}

			allowed := l.Allow("k")
			if allowed != (remaining > 0) {
				t.Fatalf("allow=%v with %d tokens", allowed, remaining)
			}
		}
	})
}
