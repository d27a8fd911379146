package health_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/depprobe/internal/health"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
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

// countingProbe reports the outcome and counts invocations.
type countingProbe struct {
	calls    atomic.Int32
	resource string
	outcome  health.Outcome
}

func (p *countingProbe) Check(_ context.Context) health.Result {
	p.calls.Add(1)
	return p.outcome.Verdict(p.resource, discardLogger())
}

func TestRegister_EmptyName(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	err := reg.Register("", &countingProbe{})
	assert.ErrorIs(t, err, health.ErrEmptyName)
}

func TestRegister_NilProbe(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	err := reg.Register("a", nil)
	assert.ErrorIs(t, err, health.ErrNilProbe)
}

func TestRegister_DuplicateName(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	require.NoError(t, reg.Register("queue-a", &countingProbe{}))

	err := reg.RegisterCached("queue-a", &countingProbe{}, time.Minute)
	var dup health.DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "queue-a", dup.Name)
	assert.Equal(t, 1, reg.Len())
}

func TestRunOne_UnknownCheck(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	_, err := reg.RunOne(context.Background(), "missing")
	var unknown health.UnknownCheckError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "missing", unknown.Name)
}

func TestRunOne_Healthy(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	require.NoError(t, reg.Register("queue-a", &countingProbe{resource: "queue-a", outcome: health.Available()}))

	res, err := reg.RunOne(context.Background(), "queue-a")
	require.NoError(t, err)
	assert.Equal(t, "queue-a", res.Name)
	assert.Equal(t, health.StatusHealthy, res.Status)
	assert.Equal(t, "OK. 'queue-a' is available.", res.Message)
	assert.NoError(t, res.Err)
}

func TestRunOne_NotFound(t *testing.T) {
	notFound := errors.New("resource db-1 does not exist")
	reg := health.NewRegistry(discardLogger())
	require.NoError(t, reg.Register("db-1", &countingProbe{resource: "db-1", outcome: health.NotFound(notFound)}))

	res, err := reg.RunOne(context.Background(), "db-1")
	require.NoError(t, err)
	assert.Equal(t, health.StatusUnhealthy, res.Status)
	assert.Equal(t, "Failed. 'db-1' is unavailable.", res.Message)
	assert.ErrorIs(t, res.Err, notFound)
}

func TestRunOne_GenericFailureKeepsError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	reg := health.NewRegistry(discardLogger())
	require.NoError(t, reg.Register("bus", &countingProbe{resource: "ns/orders", outcome: health.Failed(cause)}))

	res, err := reg.RunOne(context.Background(), "bus")
	require.NoError(t, err)
	assert.Equal(t, health.StatusUnhealthy, res.Status)
	assert.Equal(t, "Failed. 'ns/orders' is unavailable.", res.Message)
	assert.ErrorIs(t, res.Err, cause)
	assert.Equal(t, cause.Error(), res.Error())
}

func TestRunOne_PanicBecomesUnhealthy(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	require.NoError(t, reg.Register("boom", health.ProbeFunc(func(context.Context) health.Result {
		panic("client exploded")
	})))

	var res health.Result
	require.NotPanics(t, func() {
		res, _ = reg.RunOne(context.Background(), "boom")
	})
	assert.Equal(t, "boom", res.Name)
	assert.Equal(t, health.StatusUnhealthy, res.Status)
	assert.ErrorContains(t, res.Err, "client exploded")
}

func TestRunOne_Timeout(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	probe := health.ProbeFunc(func(ctx context.Context) health.Result {
		<-ctx.Done()
		return health.Failed(ctx.Err()).Verdict("slow", discardLogger())
	})
	require.NoError(t, reg.Register("slow", probe, health.WithTimeout(20*time.Millisecond)))

	res, err := reg.RunOne(context.Background(), "slow")
	require.NoError(t, err)
	assert.Equal(t, health.StatusUnhealthy, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestCachedCheck_WithinWindow(t *testing.T) {
	clock := newFakeClock()
	reg := health.NewRegistry(discardLogger(), health.WithClock(clock.Now))
	probe := &countingProbe{resource: "queue-a", outcome: health.Available()}
	require.NoError(t, reg.RegisterCached("queue-a", probe, time.Minute))

	first, err := reg.RunOne(context.Background(), "queue-a")
	require.NoError(t, err)
	clock.Advance(59 * time.Second)
	second, err := reg.RunOne(context.Background(), "queue-a")
	require.NoError(t, err)

	assert.Equal(t, int32(1), probe.calls.Load())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached result differs (-first +second):\n%s", diff)
	}
}

func TestCachedCheck_AfterWindow(t *testing.T) {
	clock := newFakeClock()
	reg := health.NewRegistry(discardLogger(), health.WithClock(clock.Now))
	probe := &countingProbe{resource: "queue-a", outcome: health.Available()}
	require.NoError(t, reg.RegisterCached("queue-a", probe, time.Minute))

	first, _ := reg.RunOne(context.Background(), "queue-a")
	clock.Advance(time.Minute)
	second, _ := reg.RunOne(context.Background(), "queue-a")

	assert.Equal(t, int32(2), probe.calls.Load())
	assert.True(t, second.CheckedAt.After(first.CheckedAt))
}

func TestCachedCheck_ZeroDurationDisablesCache(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	probe := &countingProbe{resource: "q", outcome: health.Available()}
	require.NoError(t, reg.RegisterCached("q", probe, 0))

	for i := 0; i < 3; i++ {
		_, _ = reg.RunOne(context.Background(), "q")
	}
	assert.Equal(t, int32(3), probe.calls.Load())
}

func TestCachedCheck_ConcurrentMissesShareOneCall(t *testing.T) {
	clock := newFakeClock()
	reg := health.NewRegistry(discardLogger(), health.WithClock(clock.Now))

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	probe := health.ProbeFunc(func(context.Context) health.Result {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return health.Healthy("ok")
	})
	require.NoError(t, reg.RegisterCached("shared", probe, time.Minute))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]health.Result, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = reg.RunOne(context.Background(), "shared")
		}()
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, health.StatusHealthy, r.Status)
	}
}

func TestObserver_ReportsFreshness(t *testing.T) {
	clock := newFakeClock()
	var mu sync.Mutex
	var fresh []bool
	reg := health.NewRegistry(discardLogger(),
		health.WithClock(clock.Now),
		health.WithObserver(func(_ health.Result, f bool) {
			mu.Lock()
			fresh = append(fresh, f)
			mu.Unlock()
		}),
	)
	require.NoError(t, reg.RegisterCached("q", &countingProbe{resource: "q", outcome: health.Available()}, time.Minute))

	_, _ = reg.RunOne(context.Background(), "q")
	_, _ = reg.RunOne(context.Background(), "q")

	assert.Equal(t, []bool{true, false}, fresh)
}

func TestRunAll_PreservesRegistrationOrder(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	delays := map[string]time.Duration{"c": 0, "a": 30 * time.Millisecond, "b": 10 * time.Millisecond}
	for _, name := range []string{"c", "a", "b"} {
		d := delays[name]
		require.NoError(t, reg.Register(name, health.ProbeFunc(func(context.Context) health.Result {
			time.Sleep(d)
			return health.Healthy("ok")
		})))
	}

	report := reg.RunAll(context.Background())
	names := make([]string, 0, len(report.Results))
	for _, r := range report.Results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
	assert.Equal(t, []string{"c", "a", "b"}, reg.Names())
	assert.Equal(t, health.StatusHealthy, report.Status())
}

func TestRunAll_FailureDoesNotAffectOthers(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	require.NoError(t, reg.Register("ok", &countingProbe{resource: "ok", outcome: health.Available()}))
	require.NoError(t, reg.Register("bad", &countingProbe{resource: "bad", outcome: health.Failed(errors.New("down"))}))

	report := reg.RunAll(context.Background())
	require.Len(t, report.Results, 2)
	assert.Equal(t, health.StatusHealthy, report.Results[0].Status)
	assert.Equal(t, health.StatusUnhealthy, report.Results[1].Status)
	assert.Equal(t, health.StatusUnhealthy, report.Status())
	assert.False(t, report.Healthy())
}

type closingProbe struct {
	countingProbe
	closed bool
	err    error
}

func (p *closingProbe) Close() error {
	p.closed = true
	return p.err
}

func TestClose_ClosesProbesHoldingResources(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	good := &closingProbe{}
	bad := &closingProbe{err: errors.New("already closed")}
	require.NoError(t, reg.Register("good", good))
	require.NoError(t, reg.Register("plain", &countingProbe{}))
	require.NoError(t, reg.Register("bad", bad))

	err := reg.Close()
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
	assert.ErrorContains(t, err, `closing "bad"`)
}

func TestRunOne_CachedIgnoresCallerCancellation(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	var calls atomic.Int32
	slow := health.ProbeFunc(func(ctx context.Context) health.Result {
		calls.Add(1)
		select {
		case <-time.After(50 * time.Millisecond):
			return health.Healthy("OK. 'slow' is available.")
		case <-ctx.Done():
			return health.Unhealthy("Failed. 'slow' is unavailable.", ctx.Err())
		}
	})
	require.NoError(t, reg.RegisterCached("slow", slow, time.Minute, health.WithTimeout(time.Second)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	first, err := reg.RunOne(ctx, "slow")
	require.NoError(t, err)
	assert.Equal(t, health.StatusHealthy, first.Status)

	second, err := reg.RunOne(context.Background(), "slow")
	require.NoError(t, err)
	assert.Equal(t, health.StatusHealthy, second.Status)
	assert.NoError(t, second.Err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunOne_CachedStillBoundedByTimeout(t *testing.T) {
	reg := health.NewRegistry(discardLogger())
	hang := health.ProbeFunc(func(ctx context.Context) health.Result {
		<-ctx.Done()
		return health.Unhealthy("Failed. 'hang' is unavailable.", ctx.Err())
	})
	require.NoError(t, reg.RegisterCached("hang", hang, time.Minute, health.WithTimeout(20*time.Millisecond)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := reg.RunOne(ctx, "hang")
	require.NoError(t, err)
	assert.Equal(t, health.StatusUnhealthy, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}
