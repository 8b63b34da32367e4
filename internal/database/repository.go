package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ldevries/kamervote/internal/types"
)

// Repository handles vote cache operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveVotes upserts fetched vote records inside one transaction. Records
// missing a party or motion id are skipped; the preprocessor would drop
// them anyway and the primary key cannot hold them.
func (r *Repository) SaveVotes(ctx context.Context, records []types.VoteRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO votes (party_id, motion_id, direction, recorded_at, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(party_id, motion_id) DO UPDATE SET
			direction = excluded.direction,
			recorded_at = excluded.recorded_at,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare vote upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	saved := 0
	for _, record := range records {
		if record.PartyID == "" || record.MotionID == "" {
			continue
		}

		if _, err := stmt.ExecContext(ctx,
			record.PartyID, record.MotionID, string(record.Direction),
			record.Timestamp.UTC(), now,
		); err != nil {
			return saved, fmt.Errorf("failed to upsert vote: %w", err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return saved, fmt.Errorf("failed to commit votes: %w", err)
	}

	return saved, nil
}

// VotesBetween returns cached votes recorded inside [from, to]
func (r *Repository) VotesBetween(ctx context.Context, from, to time.Time) ([]types.VoteRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT party_id, motion_id, direction, recorded_at
		FROM votes
		WHERE recorded_at >= ? AND recorded_at <= ?
		ORDER BY recorded_at, party_id, motion_id
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	var records []types.VoteRecord
	for rows.Next() {
		var record types.VoteRecord
		var direction string
		if err := rows.Scan(&record.PartyID, &record.MotionID, &direction, &record.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan vote row: %w", err)
		}
		record.Direction = types.Direction(direction)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vote rows: %w", err)
	}

	return records, nil
}

// DeleteVotesBetween removes cached votes recorded inside [from, to] and
// returns the number of deleted rows
func (r *Repository) DeleteVotesBetween(ctx context.Context, from, to time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM votes WHERE recorded_at >= ? AND recorded_at <= ?
	`, from.UTC(), to.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete votes: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted votes: %w", err)
	}

	return int(deleted), nil
}

// CountVotesBetween returns the number of cached votes in [from, to]
func (r *Repository) CountVotesBetween(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM votes WHERE recorded_at >= ? AND recorded_at <= ?
	`, from.UTC(), to.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}

	return count, nil
}

// MarkWindowFetched records that a fetch window completed
func (r *Repository) MarkWindowFetched(ctx context.Context, from, to time.Time, rowCount int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fetch_windows (id, window_start, window_end, row_count, fetched_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), from.UTC(), to.UTC(), rowCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record fetch window: %w", err)
	}

	return nil
}

// WindowFetched reports whether a fetch window covering [from, to] completed
func (r *Repository) WindowFetched(ctx context.Context, from, to time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fetch_windows
		WHERE window_start <= ? AND window_end >= ?
	`, from.UTC(), to.UTC()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query fetch windows: %w", err)
	}

	return count > 0, nil
}
