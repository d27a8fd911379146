package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

// CommandExecutor abstracts os/exec for testability.
type CommandExecutor interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type pingChecker struct {
	host     string
	timeout  time.Duration
	executor CommandExecutor
	logger   *slog.Logger
}

func newPingChecker(c config.Check, logger *slog.Logger) health.Probe {
	return NewPing(c.Target, c.Timeout.Duration, osExecutor{}, logger)
}

// NewPing returns a probe sending one ICMP echo to host through the system ping binary.
func NewPing(host string, timeout time.Duration, executor CommandExecutor, logger *slog.Logger) health.Probe {
	pc := &pingChecker{host: host, timeout: timeout, executor: executor, logger: logger}
	if pc.logger == nil {
		pc.logger = slog.Default()
	}
	return newProbe(host, logger, pc.attempt)
}

var rttRegex = regexp.MustCompile(`time=(\d+\.?\d*)\s*ms`)

func (c *pingChecker) attempt(ctx context.Context) health.Outcome {
	timeoutSec := int(math.Ceil(c.timeout.Seconds()))
	if timeoutSec < 1 {
		timeoutSec = 1
	}

	var args []string
	if runtime.GOOS == "darwin" {
		args = []string{"-c", "1", "-t", strconv.Itoa(timeoutSec), c.host}
	} else {
		args = []string{"-c", "1", "-W", strconv.Itoa(timeoutSec), c.host}
	}

	stdout, _, err := c.executor.Run(ctx, "ping", args...)
	if err != nil {
		return health.Failed(fmt.Errorf("ping %s: %w", c.host, err))
	}

	matches := rttRegex.FindSubmatch(stdout)
	if matches == nil {
		return health.Failed(fmt.Errorf("could not parse RTT from ping output"))
	}

	ms, _ := strconv.ParseFloat(string(matches[1]), 64)
	c.logger.Debug("ping reply", "host", c.host, "rtt", time.Duration(ms*float64(time.Millisecond)))
	return health.Available()
}

// osExecutor runs commands through os/exec, keeping stderr of failed runs.
type osExecutor struct{}

func (osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	stdout, err := exec.CommandContext(ctx, name, args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout, exitErr.Stderr, err
	}
	return stdout, nil, err
}
