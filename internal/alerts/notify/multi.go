// Package notify composes downstream alert event sinks: the in-process
// SSE broker, an optional outbound webhook and an optional Redis bridge
// for multi-instance fanout.
package notify

import (
	"context"

	alertapp "github.com/dangdich07/fire-alert/internal/alerts/application"
)

// MultiNotifier fans one event out to several notifiers in order.
type MultiNotifier struct {
	sinks []alertapp.Notifier
}

// NewMulti builds a notifier over the non-nil sinks.
func NewMulti(sinks ...alertapp.Notifier) *MultiNotifier {
	multi := &MultiNotifier{}
	for _, sink := range sinks {
		if sink != nil {
			multi.sinks = append(multi.sinks, sink)
		}
	}
	return multi
}

// Notify delivers the event to every sink.
func (m *MultiNotifier) Notify(ctx context.Context, event alertapp.Event) {
	if m == nil {
		return
	}
	for _, sink := range m.sinks {
		sink.Notify(ctx, event)
	}
}
