package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/checklist/internal/model"
)

// Export reads all four tables into a snapshot.
func (s *SQLiteStore) Export(ctx context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		Native:     true,
		ID:         uuid.New().String(),
		ExportedAt: s.now().UTC().Format(time.RFC3339),
	}

	err := s.withReadTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &snap.Statuses,
			`SELECT id, name, position, order_by_position FROM statuses ORDER BY id`); err != nil {
			return fmt.Errorf("exporting statuses: %w", err)
		}
		if err := tx.SelectContext(ctx, &snap.Lists,
			`SELECT id, name, position, active FROM lists ORDER BY id`); err != nil {
			return fmt.Errorf("exporting lists: %w", err)
		}
		if err := tx.SelectContext(ctx, &snap.ListStatuses,
			`SELECT id, list_id, status_id, position FROM list_statuses ORDER BY id`); err != nil {
			return fmt.Errorf("exporting list statuses: %w", err)
		}
		if err := tx.SelectContext(ctx, &snap.Entries,
			`SELECT id, name, position, date, status_id, list_id FROM entries ORDER BY id`); err != nil {
			return fmt.Errorf("exporting entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("exported snapshot",
		slog.String("id", snap.ID),
		slog.Int("lists", len(snap.Lists)),
		slog.Int("entries", len(snap.Entries)),
	)
	return snap, nil
}

// Import replaces the whole dataset with snap. The schema is dropped and
// recreated and every row is loaded in one transaction; rows conflicting
// with an already loaded one are skipped.
func (s *SQLiteStore) Import(ctx context.Context, snap *model.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("importing snapshot: %w: empty snapshot", ErrMalformedInput)
	}

	skipped := 0
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := dropSchema(ctx, tx); err != nil {
			return err
		}
		if err := applyMigrations(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM statuses`); err != nil {
			return fmt.Errorf("clearing seeded statuses: %w", err)
		}

		for _, r := range snap.Statuses {
			n, err := insertIgnore(ctx, tx,
				`INSERT OR IGNORE INTO statuses (id, name, position, order_by_position) VALUES (?, ?, ?, ?)`,
				r.ID, r.Name, r.Position, r.OrderByPosition)
			if err != nil {
				return fmt.Errorf("importing status %d: %w", r.ID, err)
			}
			skipped += n
		}
		for _, r := range snap.Lists {
			n, err := insertIgnore(ctx, tx,
				`INSERT OR IGNORE INTO lists (id, name, position, active) VALUES (?, ?, ?, ?)`,
				r.ID, r.Name, r.Position, r.Active)
			if err != nil {
				return fmt.Errorf("importing list %d: %w", r.ID, err)
			}
			skipped += n
		}
		for _, r := range snap.ListStatuses {
			n, err := insertIgnore(ctx, tx,
				`INSERT OR IGNORE INTO list_statuses (id, list_id, status_id, position) VALUES (?, ?, ?, ?)`,
				r.ID, r.List, r.Status, r.Position)
			if err != nil {
				return fmt.Errorf("importing list status %d: %w", r.ID, err)
			}
			skipped += n
		}
		for _, r := range snap.Entries {
			n, err := insertIgnore(ctx, tx,
				`INSERT OR IGNORE INTO entries (id, name, position, date, status_id, list_id) VALUES (?, ?, ?, ?, ?, ?)`,
				r.ID, r.Name, r.Position, r.Date, r.Status, r.List)
			if err != nil {
				return fmt.Errorf("importing entry %d: %w", r.ID, err)
			}
			skipped += n
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("importing snapshot: %w", err)
	}

	s.logger.Info("imported snapshot",
		slog.Int("lists", len(snap.Lists)),
		slog.Int("entries", len(snap.Entries)),
		slog.Int("skipped", skipped),
	)

	violations, err := s.CheckDensity(ctx)
	if err != nil {
		s.logger.Warn("could not check imported rankings", slog.String("error", err.Error()))
		return nil
	}
	for _, v := range violations {
		s.logger.Warn("imported partition is not densely ranked",
			slog.Int64("list", v.Partition.ListID),
			slog.Int64("status", v.Partition.StatusID),
			slog.Any("positions", v.Positions),
		)
	}
	return nil
}

// insertIgnore runs an INSERT OR IGNORE and returns 1 when the row was
// skipped.
func insertIgnore(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int, error) {
	r, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 1, nil
	}
	return 0, nil
}
