// Package events carries notifications about committed forge operations to
// subscribers. Publication happens after commit; a failed publish never undoes
// the operation it describes.
package events

import (
	"context"
	"errors"
	"sync"

	"tokenforge/internal/pda"
)

// Kind names the operation an event reports.
type Kind string

const (
	KindTokenLaunched      Kind = "token_launched"
	KindTradingEnabled     Kind = "trading_enabled"
	KindRevenueDistributed Kind = "revenue_distributed"
)

// Event describes one committed operation against a metadata record.
type Event struct {
	Kind      Kind       `json:"kind"`
	TokenData pda.Pubkey `json:"token_data"`
	Creator   pda.Pubkey `json:"creator"`
	Mint      pda.Pubkey `json:"mint"`
	// Amount is the minted supply for launches and the recorded amount for revenue.
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// Sink receives events.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Discard drops every event.
type Discard struct{}

// Publish implements Sink.
func (Discard) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish implements Sink.
func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything recorded so far, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Sink

// Publish implements Sink. Every sink is attempted even if an earlier one fails.
func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
