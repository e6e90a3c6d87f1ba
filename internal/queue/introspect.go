package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/checkernet/probed/internal/data/pgxutil"
	"github.com/checkernet/probed/internal/domain"
)

// CountStates returns queue occupancy for the given states, bucketed by
// queue name. Queues with no jobs in a state are simply absent.
func (s *Store) CountStates(ctx context.Context, states []string) ([]domain.QueueStateCount, error) {
	if len(states) == 0 {
		return nil, nil
	}

	query := `
		SELECT queue_name, state, COUNT(*) AS count
		FROM queue_jobs
		WHERE state = ANY($1::text[])
		GROUP BY queue_name, state
		ORDER BY queue_name ASC, state ASC
	`

	var counts []domain.QueueStateCount
	err := pgxutil.WithPgxConn(ctx, s.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, states)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c domain.QueueStateCount
			if err := rows.Scan(&c.Queue, &c.State, &c.Count); err != nil {
				return err
			}
			counts = append(counts, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("count queue states: %w", err)
	}
	return counts, nil
}

// MinAgeByState returns, per queue, the age in seconds of the oldest job in
// the given state as of now.
func (s *Store) MinAgeByState(ctx context.Context, state string, now time.Time) ([]domain.QueueAge, error) {
	query := `
		SELECT queue_name, EXTRACT(EPOCH FROM ($2::timestamptz - MIN(created_at)))::float8 AS age_seconds
		FROM queue_jobs
		WHERE state = $1
		GROUP BY queue_name
		ORDER BY queue_name ASC
	`

	rows, err := s.DB.QueryContext(ctx, query, state, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("min queue job age: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ages []domain.QueueAge
	for rows.Next() {
		var a domain.QueueAge
		if err := rows.Scan(&a.Queue, &a.AgeSeconds); err != nil {
			return nil, fmt.Errorf("scan queue age: %w", err)
		}
		ages = append(ages, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue ages: %w", err)
	}
	return ages, nil
}
