package watching

import (
	"context"
	"log/slog"

	"schemawatch/src/features/metrics"
)

// Trigger receives one request per completed debounce group. Request must
// never block: the consumer coalesces requests that arrive while it is busy.
type Trigger interface {
	Request(reason string) bool
}

// Service wires the filesystem observer to the debouncer and forwards flush
// signals to the migration trigger.
type Service struct {
	observer  Observer
	debouncer *Debouncer
	events    <-chan Event
	trigger   Trigger
	stopChan  chan struct{}
	running   bool
}

// NewService creates a new watching service. The events channel must be the
// same one the observer was constructed with.
func NewService(observer Observer, debouncer *Debouncer, events <-chan Event, trigger Trigger) *Service {
	return &Service{
		observer:  observer,
		debouncer: debouncer,
		events:    events,
		trigger:   trigger,
		stopChan:  make(chan struct{}),
	}
}

// Start begins watching. It fails when a watch target is missing or
// unreadable; callers treat that as a fatal configuration error.
func (s *Service) Start(ctx context.Context) error {
	if err := s.observer.Start(ctx); err != nil {
		return err
	}
	s.running = true
	go s.loop(ctx)
	slog.Info("Watch service started")
	return nil
}

// Stop stops the observer and the debouncer.
func (s *Service) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
	s.observer.Stop()
	s.debouncer.Stop()
	slog.Info("Watch service stopped")
}

func (s *Service) loop(ctx context.Context) {
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return
			}
			metrics.EventsObserved.Inc()
			s.debouncer.Observe(ev)

		case f := <-s.debouncer.Flushes():
			metrics.FlushesTotal.Inc()
			slog.Info("Change burst settled, requesting migration", "events", f.Events)
			if queued := s.trigger.Request("filesystem change"); !queued {
				slog.Info("Migration already pending, flush coalesced")
			}

		case <-s.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}
