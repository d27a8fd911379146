package health

import "time"

// Report is the aggregate of every registered probe's result at one point in time.
type Report struct {
	Results     []Result
	GeneratedAt time.Time
}

// Status returns the worst status in the report. An empty report is healthy.
func (r Report) Status() Status {
	worst := StatusHealthy
	for _, res := range r.Results {
		if res.Status.severity() > worst.severity() {
			worst = res.Status
		}
	}
	return worst
}

// Healthy reports whether no result in the report is unhealthy.
func (r Report) Healthy() bool {
	return r.Status() != StatusUnhealthy
}

// Lookup returns the result for name, if present.
func (r Report) Lookup(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}
