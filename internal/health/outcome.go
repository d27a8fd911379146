package health

import (
	"log/slog"
)

// OutcomeKind classifies the result of one remote call.
type OutcomeKind int

const (
	OutcomeAvailable OutcomeKind = iota
	OutcomeNotFound
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAvailable:
		return "available"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Outcome is what a probe's remote-call wrapper returns. Probes classify
// their client errors into an Outcome and turn it into a Result with Verdict.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Available reports a successful remote call.
func Available() Outcome {
	return Outcome{Kind: OutcomeAvailable}
}

// NotFound reports that the checked resource does not exist.
func NotFound(err error) Outcome {
	return Outcome{Kind: OutcomeNotFound, Err: err}
}

// Failed reports any other failure: timeouts, auth, network, unexpected status.
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// Verdict maps the outcome to a Result naming resource, logging failures on logger.
// Not-found and generic failures both become Unhealthy; only the log line differs.
func (o Outcome) Verdict(resource string, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}
	switch o.Kind {
	case OutcomeAvailable:
		return Healthy(availableMessage(resource))
	case OutcomeNotFound:
		logger.Error(resource+" was not found.", "resource", resource, "error", o.Err)
	default:
		logger.Error(resource+" failed.", "resource", resource, "error", o.Err)
	}
	return Unhealthy(unavailableMessage(resource), o.Err)
}
