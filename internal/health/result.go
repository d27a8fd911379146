package health

import (
	"fmt"
	"time"
)

// Status represents the verdict of a single probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses from best to worst for aggregation.
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Result is the outcome of a single probe invocation.
type Result struct {
	Name      string
	Status    Status
	Message   string
	Err       error
	Duration  time.Duration
	CheckedAt time.Time
}

// Healthy returns a healthy result carrying msg.
func Healthy(msg string) Result {
	return Result{Status: StatusHealthy, Message: msg}
}

// Degraded returns a degraded result carrying msg.
func Degraded(msg string) Result {
	return Result{Status: StatusDegraded, Message: msg}
}

// Unhealthy returns an unhealthy result carrying msg and the triggering error, if any.
func Unhealthy(msg string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: msg, Err: err}
}

// Error returns the attached error text, or "" when there is none.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func availableMessage(resource string) string {
	return fmt.Sprintf("OK. '%s' is available.", resource)
}

func unavailableMessage(resource string) string {
	return fmt.Sprintf("Failed. '%s' is unavailable.", resource)
}
