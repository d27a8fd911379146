package checker

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

func newTCPChecker(c config.Check, logger *slog.Logger) health.Probe {
	return NewTCP(c.Target, c.Timeout.Duration, logger)
}

// NewTCP returns a probe that succeeds when a TCP connection to addr can be opened.
func NewTCP(addr string, timeout time.Duration, logger *slog.Logger) health.Probe {
	return newProbe(addr, logger, func(ctx context.Context) health.Outcome {
		dialer := &net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return health.Failed(fmt.Errorf("dial tcp %s: %w", addr, err))
		}
		conn.Close()
		return health.Available()
	})
}
