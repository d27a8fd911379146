package health

import (
	"context"
	"errors"
	"fmt"
)

// Probe performs a single health check. Implementations must not return
// failures any other way than through the Result.
type Probe interface {
	Check(ctx context.Context) Result
}

// ProbeFunc adapts an ordinary function to the Probe interface.
type ProbeFunc func(ctx context.Context) Result

// Check calls f(ctx).
func (f ProbeFunc) Check(ctx context.Context) Result {
	return f(ctx)
}

// ErrEmptyName is returned when registering a probe without a name.
var ErrEmptyName = errors.New("check name must not be empty")

// ErrNilProbe is returned when registering a nil probe.
var ErrNilProbe = errors.New("probe must not be nil")

// DuplicateNameError is returned when a name is registered twice.
type DuplicateNameError struct {
	Name string
}

func (e DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate check name %q", e.Name)
}

// UnknownCheckError is returned by RunOne for names that were never registered.
type UnknownCheckError struct {
	Name string
}

func (e UnknownCheckError) Error() string {
	return fmt.Sprintf("unknown check %q", e.Name)
}
