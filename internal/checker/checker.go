// Package checker holds the dependency probe families. Each family talks to
// its dependency through a narrow client interface, classifies the single
// remote call into a health.Outcome and turns it into a verdict.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

// ErrNotFound marks client errors meaning the checked resource does not exist.
var ErrNotFound = errors.New("resource not found")

// notFoundError wraps a client error so that errors.Is(err, ErrNotFound) holds
// while the wrapped client error stays reachable through errors.As.
type notFoundError struct {
	err error
}

func (e notFoundError) Error() string        { return "not found: " + e.err.Error() }
func (e notFoundError) Unwrap() error        { return e.err }
func (e notFoundError) Is(target error) bool { return target == ErrNotFound }

// classify maps a client error to an outcome.
func classify(err error) health.Outcome {
	switch {
	case err == nil:
		return health.Available()
	case errors.Is(err, ErrNotFound):
		return health.NotFound(err)
	default:
		return health.Failed(err)
	}
}

// attemptFunc is a remote-call wrapper producing an outcome.
type attemptFunc func(ctx context.Context) health.Outcome

// probe is the common shape of every family: one attempt, one resource name.
type probe struct {
	resource string
	attempt  attemptFunc
	logger   *slog.Logger
	close    func() error
}

func newProbe(resource string, logger *slog.Logger, attempt attemptFunc) *probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &probe{resource: resource, attempt: attempt, logger: logger}
}

// Check runs the attempt and converts its outcome into a verdict.
func (p *probe) Check(ctx context.Context) health.Result {
	return p.attempt(ctx).Verdict(p.resource, p.logger)
}

// Close releases the client owned by the probe, if any.
func (p *probe) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// New returns the probe for the given check configuration, creating the
// real client it needs. Pass nil logger to use the default logger.
func New(c config.Check, logger *slog.Logger) (health.Probe, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("check", c.Name)

	switch c.Type {
	case config.TypeHTTP:
		return newHTTPChecker(c, logger), nil
	case config.TypeTCP:
		return newTCPChecker(c, logger), nil
	case config.TypePing:
		return newPingChecker(c, logger), nil
	case config.TypeDocker:
		return newDockerChecker(c, logger), nil
	case config.TypeRedis:
		return newRedisChecker(c, logger), nil
	case config.TypePostgres, config.TypeSQLite:
		return newSQLChecker(c, logger)
	case config.TypeDocumentDBDatabase, config.TypeDocumentDBCollection:
		return newDocumentDBChecker(c, logger)
	case config.TypeServiceBusQueue, config.TypeServiceBusTopic:
		return newServiceBusChecker(c, logger)
	case config.TypeQueueStorage, config.TypeQueueStorageAccount:
		return newQueueStorageChecker(c, logger)
	default:
		return nil, fmt.Errorf("unknown checker type %q", c.Type)
	}
}

// Register builds the probe for c and registers it on reg, applying the
// configured timeout and cache window.
func Register(reg *health.Registry, c config.Check, logger *slog.Logger) error {
	p, err := New(c, logger)
	if err != nil {
		return fmt.Errorf("creating checker %q: %w", c.Name, err)
	}
	opts := []health.Option{health.WithTimeout(c.Timeout.Duration)}
	if c.Cache.Duration > 0 {
		opts = append(opts, health.WithCache(c.Cache.Duration))
	}
	if err := reg.Register(c.Name, p, opts...); err != nil {
		if closer, ok := p.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		return err
	}
	return nil
}
