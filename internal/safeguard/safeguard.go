// Package safeguard provides the single panic-recovery boundary shared by
// every long-running worker's per-iteration step, grounded on the original
// source's @safely decorator (patron_arby/common/decorators.py): wrap one
// unit of work, log and return on panic, never the caller's own for/select
// loop, so a repeated invariant break is logged on every iteration instead
// of silently killing the worker after the first.
package safeguard

import "log/slog"

// Run calls fn, recovering and logging any panic instead of letting it
// escape to the worker's goroutine.
func Run(logger *slog.Logger, step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered panic", "step", step, "panic", r)
		}
	}()
	fn()
}
