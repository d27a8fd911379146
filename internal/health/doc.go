// Package health is the probe abstraction: named probes returning a verdict,
// a registry that owns them by unique name, an optional per-probe result
// cache and an aggregate report.
//
// Probes never fail through error returns or panics. Every remote failure is
// represented as an Unhealthy Result carrying the error.
package health
