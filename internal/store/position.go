package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/checklist/internal/model"
)

// ResolvePosition maps a requested rank onto a partition whose highest
// position is maxPos. A nil request appends. Requests below 1 are clamped
// to 1; anything past maxPos appends at maxPos+1.
func ResolvePosition(requested *int, maxPos int) int {
	if requested == nil {
		return maxPos + 1
	}
	p := *requested
	if p < 1 {
		p = 1
	}
	if p <= maxPos {
		return p
	}
	return maxPos + 1
}

// maxPosition returns the highest position in the partition, or 0.
func maxPosition(ctx context.Context, q sqlx.QueryerContext, part model.Partition) (int, error) {
	var maxPos int
	err := sqlx.GetContext(ctx, q, &maxPos,
		`SELECT COALESCE(MAX(position), 0) FROM entries WHERE list_id = ? AND status_id = ?`,
		part.ListID, part.StatusID,
	)
	if err != nil {
		return 0, fmt.Errorf("reading max position of list %d status %d: %w", part.ListID, part.StatusID, err)
	}
	return maxPos, nil
}

// resolvePosition resolves requested against the partition's current
// max and returns both.
func resolvePosition(ctx context.Context, q sqlx.QueryerContext, part model.Partition, requested *int) (int, int, error) {
	maxPos, err := maxPosition(ctx, q, part)
	if err != nil {
		return 0, 0, err
	}
	return ResolvePosition(requested, maxPos), maxPos, nil
}

// shiftUpFrom opens a slot at p: every position >= p moves up by one.
func shiftUpFrom(ctx context.Context, ex sqlx.ExecerContext, part model.Partition, p int) error {
	return shift(ctx, ex, part, "+ 1", "position >= ?", p)
}

// shiftDownAfter closes the gap left at p: every position > p moves down.
func shiftDownAfter(ctx context.Context, ex sqlx.ExecerContext, part model.Partition, p int) error {
	return shift(ctx, ex, part, "- 1", "position > ?", p)
}

// shiftUpRange moves lo <= position < hi up by one, for an entry moving
// from hi to lo.
func shiftUpRange(ctx context.Context, ex sqlx.ExecerContext, part model.Partition, lo, hi int) error {
	return shift(ctx, ex, part, "+ 1", "position >= ? AND position < ?", lo, hi)
}

// shiftDownRange moves lo < position <= hi down by one, for an entry
// moving from lo to hi.
func shiftDownRange(ctx context.Context, ex sqlx.ExecerContext, part model.Partition, lo, hi int) error {
	return shift(ctx, ex, part, "- 1", "position > ? AND position <= ?", lo, hi)
}

func shift(ctx context.Context, ex sqlx.ExecerContext, part model.Partition, delta, bound string, args ...any) error {
	query := `UPDATE entries SET position = position ` + delta +
		` WHERE list_id = ? AND status_id = ? AND ` + bound
	params := append([]any{part.ListID, part.StatusID}, args...)
	if _, err := ex.ExecContext(ctx, query, params...); err != nil {
		return fmt.Errorf("shifting positions in list %d status %d: %w", part.ListID, part.StatusID, err)
	}
	return nil
}

// partitionPositions returns the positions of a partition in ascending
// order, nulls included as 0.
func partitionPositions(ctx context.Context, q sqlx.QueryerContext, part model.Partition) ([]int, error) {
	var positions []int
	err := sqlx.SelectContext(ctx, q, &positions,
		`SELECT COALESCE(position, 0) FROM entries
		WHERE list_id = ? AND status_id = ?
		ORDER BY position, id`,
		part.ListID, part.StatusID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading positions of list %d status %d: %w", part.ListID, part.StatusID, err)
	}
	return positions, nil
}

// isDense reports whether positions are exactly 1..len(positions) once
// sorted. positions must already be ascending.
func isDense(positions []int) bool {
	for i, p := range positions {
		if p != i+1 {
			return false
		}
	}
	return true
}

// CheckDensity reports every position-ordered partition whose positions
// are not exactly 1..N.
func (s *SQLiteStore) CheckDensity(ctx context.Context) ([]model.DensityViolation, error) {
	var violations []model.DensityViolation
	err := s.withReadTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		violations, err = densityViolations(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return violations, nil
}

func densityViolations(ctx context.Context, q sqlx.QueryerContext) ([]model.DensityViolation, error) {
	var parts []model.Partition
	err := sqlx.SelectContext(ctx, q, &parts,
		`SELECT DISTINCT e.list_id AS list_id, e.status_id AS status_id
		FROM entries e
		JOIN statuses s ON s.id = e.status_id
		WHERE s.order_by_position = 1
		ORDER BY e.list_id, e.status_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing position-ordered partitions: %w", err)
	}

	var violations []model.DensityViolation
	for _, part := range parts {
		positions, err := partitionPositions(ctx, q, part)
		if err != nil {
			return nil, err
		}
		if !isDense(positions) {
			violations = append(violations, model.DensityViolation{Partition: part, Positions: positions})
		}
	}
	return violations, nil
}
