// Package transcript keeps the authoritative transcript text.
package transcript

import (
	"context"
	"log/slog"
	"sync"

	"brainwave/internal/domain"
)

// Persister stores the current transcript after every update.
type Persister interface {
	SaveTranscription(ctx context.Context, text string) error
}

// Observer receives each applied delta, not the full transcript.
type Observer func(ctx context.Context, delta domain.TranscriptDelta)

// Aggregator applies deltas in arrival order. Appending is deliberately not
// idempotent: the same append applied twice appears twice.
type Aggregator struct {
	store  Persister
	logger *slog.Logger

	mu        sync.Mutex
	current   string
	observers []Observer
}

func NewAggregator(initial string, store Persister, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:   store,
		logger:  logger.With("component", "transcript"),
		current: initial,
	}
}

// Subscribe registers an observer for subsequent deltas.
func (a *Aggregator) Subscribe(observer Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, observer)
}

// Apply replaces or extends the transcript, persists it and then notifies
// observers. Persistence happens under the lock so stored values follow
// apply order.
func (a *Aggregator) Apply(ctx context.Context, delta domain.TranscriptDelta) string {
	a.mu.Lock()
	if delta.IsReplace {
		a.current = delta.Content
	} else {
		a.current += delta.Content
	}
	value := a.current
	if a.store != nil {
		if err := a.store.SaveTranscription(ctx, value); err != nil {
			a.logger.Error("failed to persist transcript", "error", err)
		}
	}
	observers := append([]Observer(nil), a.observers...)
	a.mu.Unlock()

	for _, observer := range observers {
		observer(ctx, delta)
	}
	return value
}

// Current returns the transcript text.
func (a *Aggregator) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}
