package clickhouse

import (
	"context"
	"fmt"
	"time"

	"tokenforge/internal/events"
	"tokenforge/internal/observability"
	"tokenforge/internal/pda"
)

// EventStore appends forge events to the forge_events table.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ events.Sink = (*EventStore)(nil)

// Publish implements events.Sink.
func (s *EventStore) Publish(ctx context.Context, ev events.Event) error {
	return s.InsertBulk(ctx, []events.Event{ev})
}

// InsertBulk appends evs in one batch.
func (s *EventStore) InsertBulk(ctx context.Context, evs []events.Event) (err error) {
	if len(evs) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_events", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO forge_events (kind, token_data, creator, mint, amount, timestamp)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, ev := range evs {
		err = batch.Append(
			string(ev.Kind), ev.TokenData.String(), ev.Creator.String(),
			ev.Mint.String(), ev.Amount, ev.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTokenData retrieves every event of one metadata record, oldest first.
func (s *EventStore) GetByTokenData(ctx context.Context, tokenData pda.Pubkey) ([]events.Event, error) {
	query := `
		SELECT kind, token_data, creator, mint, amount, timestamp
		FROM forge_events
		WHERE token_data = ?
		ORDER BY timestamp ASC, recorded_at ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenData.String())
	if err != nil {
		return nil, fmt.Errorf("query by token data: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// RevenueTotal sums revenue_distributed amounts of one metadata record.
func (s *EventStore) RevenueTotal(ctx context.Context, tokenData pda.Pubkey) (uint64, error) {
	query := `
		SELECT sum(amount) FROM forge_events
		WHERE token_data = ? AND kind = ?
	`

	var total uint64
	err := s.conn.QueryRow(ctx, query, tokenData.String(), string(events.KindRevenueDistributed)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum revenue: %w", err)
	}
	return total, nil
}

// chRows abstracts clickhouse rows for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows chRows) ([]events.Event, error) {
	var out []events.Event

	for rows.Next() {
		var ev events.Event
		var kind, tokenData, creator, mint string

		err := rows.Scan(&kind, &tokenData, &creator, &mint, &ev.Amount, &ev.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		ev.Kind = events.Kind(kind)
		if ev.TokenData, err = pda.ParsePubkey(tokenData); err != nil {
			return nil, fmt.Errorf("scan event row: token_data: %w", err)
		}
		if ev.Creator, err = pda.ParsePubkey(creator); err != nil {
			return nil, fmt.Errorf("scan event row: creator: %w", err)
		}
		if ev.Mint, err = pda.ParsePubkey(mint); err != nil {
			return nil, fmt.Errorf("scan event row: mint: %w", err)
		}
		out = append(out, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return out, nil
}
