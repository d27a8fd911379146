package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Observer is called after every RunOne with the result and whether it came
// from a fresh probe invocation rather than the cache.
type Observer func(r Result, fresh bool)

// Registry owns named probes and runs them.
type Registry struct {
	mu       sync.RWMutex
	entries  []*entry
	byName   map[string]*entry
	flights  singleflight.Group
	logger   *slog.Logger
	now      func() time.Time
	observer Observer
}

type entry struct {
	name    string
	probe   Probe
	timeout time.Duration
	cache   *resultCache
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock replaces time.Now, mainly for tests of the cache window.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithObserver sets the callback invoked after every probe run.
func WithObserver(fn Observer) RegistryOption {
	return func(r *Registry) { r.observer = fn }
}

// Option configures a single registered probe.
type Option func(*entry)

// WithCache memoizes the probe's result for d. Non-positive durations disable caching.
func WithCache(d time.Duration) Option {
	return func(e *entry) {
		if d > 0 {
			e.cache = newResultCache(d)
		}
	}
}

// WithTimeout bounds every invocation of the probe with a context deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *entry) { e.timeout = d }
}

// NewRegistry creates an empty Registry. Pass nil logger to use the default logger.
func NewRegistry(logger *slog.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		byName: make(map[string]*entry),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a probe under name.
func (r *Registry) Register(name string, p Probe, opts ...Option) error {
	if name == "" {
		return ErrEmptyName
	}
	if p == nil {
		return ErrNilProbe
	}
	e := &entry{name: name, probe: p}
	for _, opt := range opts {
		opt(e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return DuplicateNameError{Name: name}
	}
	r.byName[name] = e
	r.entries = append(r.entries, e)
	return nil
}

// RegisterCached adds a probe whose result is memoized for d.
func (r *Registry) RegisterCached(name string, p Probe, d time.Duration, opts ...Option) error {
	return r.Register(name, p, append(opts, WithCache(d))...)
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Len returns the number of registered probes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// RunOne runs the probe registered under name. The only error is
// UnknownCheckError; probe failures are reported in the Result.
func (r *Registry) RunOne(ctx context.Context, name string) (Result, error) {
	r.mu.RLock()
	e, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, UnknownCheckError{Name: name}
	}
	return r.run(ctx, e), nil
}

// RunAll runs every registered probe concurrently and returns the report in
// registration order.
func (r *Registry) RunAll(ctx context.Context) Report {
	r.mu.RLock()
	entries := make([]*entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	results := make([]Result, len(entries))
	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func(i int, e *entry) {
			defer wg.Done()
			results[i] = r.run(ctx, e)
		}(i, e)
	}
	wg.Wait()

	return Report{Results: results, GeneratedAt: r.now()}
}

// Close closes every registered probe that holds resources.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, e := range r.entries {
		c, ok := e.probe.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) run(ctx context.Context, e *entry) Result {
	if e.cache == nil {
		res := r.invoke(ctx, e)
		r.notify(res, true)
		return res
	}

	if res, ok := e.cache.get(r.now()); ok {
		r.notify(res, false)
		return res
	}

	fresh := false
	v, _, _ := r.flights.Do(e.name, func() (any, error) {
		// Another flight may have filled the cache while we waited for the lock.
		if res, ok := e.cache.get(r.now()); ok {
			return res, nil
		}
		fresh = true
		// The memoized verdict is shared by later callers, so it must not
		// depend on this caller going away.
		res := r.invoke(context.WithoutCancel(ctx), e)
		e.cache.put(res, r.now())
		return res, nil
	})
	res := v.(Result)
	r.notify(res, fresh)
	return res
}

// invoke calls the probe, converting panics into an unhealthy result.
func (r *Registry) invoke(ctx context.Context, e *entry) (res Result) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := r.now()
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("probe panicked: %v", p)
			r.logger.Error("probe panicked", "check", e.name, "error", err)
			res = Unhealthy(unavailableMessage(e.name), err)
		}
		res.Name = e.name
		res.CheckedAt = start
		res.Duration = r.now().Sub(start)
	}()

	return e.probe.Check(ctx)
}

func (r *Registry) notify(res Result, fresh bool) {
	if r.observer != nil {
		r.observer(res, fresh)
	}
}
