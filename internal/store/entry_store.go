package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/checklist/internal/model"
)

// Insert adds an entry to the named list. Position-ordered statuses get
// a resolved rank (shifting later entries up when it lands inside the
// current range); date-ordered statuses get the supplied date or today.
// Submitting an entry identical to an existing one is silently ignored.
func (s *SQLiteStore) Insert(ctx context.Context, cmd model.InsertCommand, listName string) error {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return fmt.Errorf("inserting entry: %w: name must not be empty", ErrMalformedInput)
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		list, err := listByName(ctx, tx, listName)
		if err != nil {
			return err
		}
		col, err := visibleStatus(ctx, tx, list.ID, cmd.StatusID)
		if err != nil {
			return err
		}
		part := model.Partition{ListID: list.ID, StatusID: col.ID}
		return s.insertEntry(ctx, tx, part, col.OrderByPosition, name, cmd.Position, cmd.Date)
	})
	if errors.Is(err, ErrDuplicate) {
		s.logger.Debug("ignored duplicate entry",
			slog.String("list", listName),
			slog.Int64("status", cmd.StatusID),
			slog.String("name", name),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("inserting entry into %s: %w", listName, err)
	}
	return nil
}

// UpdateOrMove applies an edit described by cmd and returns the name of
// the list the entry now lives in. Identical old and new fields write
// nothing. A change of list or status moves the entry: it is inserted
// into the destination partition and removed from the source in one
// transaction. Requests whose old fields no longer match the stored
// entry are ignored.
func (s *SQLiteStore) UpdateOrMove(ctx context.Context, cmd model.UpdateCommand) (string, error) {
	oldFields := cmd.Old.Normalized()
	newFields := cmd.New.Normalized()
	if newFields.Name == "" {
		return "", fmt.Errorf("updating entry %d: %w: name must not be empty", cmd.ID, ErrMalformedInput)
	}

	var destination string
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		dest, err := listByID(ctx, tx, newFields.ListID)
		if err != nil {
			return err
		}
		destination = dest.Name

		if oldFields.Equal(newFields) {
			return nil
		}

		stored, err := entryByID(ctx, tx, cmd.ID)
		if err != nil {
			return err
		}
		if !matchesStored(stored, oldFields) {
			return ErrMismatch
		}

		if !oldFields.SamePartition(newFields) {
			return s.moveEntry(ctx, tx, stored, newFields)
		}
		return s.editEntry(ctx, tx, stored, newFields)
	})

	switch {
	case errors.Is(err, ErrMismatch):
		s.logger.Info("ignored stale entry update", slog.Int64("id", cmd.ID))
		return destination, nil
	case errors.Is(err, ErrDuplicate):
		s.logger.Debug("ignored update duplicating an existing entry", slog.Int64("id", cmd.ID))
		return destination, nil
	case err != nil:
		return "", fmt.Errorf("updating entry %d: %w", cmd.ID, err)
	}
	return destination, nil
}

// Delete removes an entry and closes the gap it leaves. The supplied name
// must match the stored one; otherwise nothing is written.
func (s *SQLiteStore) Delete(ctx context.Context, cmd model.DeleteCommand) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		stored, err := entryByID(ctx, tx, cmd.ID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(cmd.Name) != stored.Name {
			return ErrMismatch
		}
		return removeEntry(ctx, tx, stored)
	})
	if errors.Is(err, ErrMismatch) {
		s.logger.Info("ignored delete with mismatched name",
			slog.Int64("id", cmd.ID),
			slog.String("name", cmd.Name),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting entry %d: %w", cmd.ID, err)
	}
	return nil
}

// insertEntry writes a new row into part.
func (s *SQLiteStore) insertEntry(ctx context.Context, tx *sqlx.Tx, part model.Partition, orderByPosition bool, name string, position *int, date *string) error {
	if !orderByPosition {
		day, err := s.dateOrToday(date)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO entries (name, position, date, status_id, list_id) VALUES (?, NULL, ?, ?, ?)`,
			name, day, part.StatusID, part.ListID,
		)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("writing entry: %w", err)
		}
		return nil
	}

	resolved, maxPos, err := resolvePosition(ctx, tx, part, position)
	if err != nil {
		return err
	}

	var existing int
	err = tx.GetContext(ctx, &existing,
		`SELECT COUNT(*) FROM entries WHERE list_id = ? AND status_id = ? AND name = ? AND position = ?`,
		part.ListID, part.StatusID, name, resolved,
	)
	if err != nil {
		return fmt.Errorf("checking for duplicate entry: %w", err)
	}
	if existing > 0 {
		return ErrDuplicate
	}

	if resolved <= maxPos {
		if err := shiftUpFrom(ctx, tx, part, resolved); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (name, position, date, status_id, list_id) VALUES (?, ?, NULL, ?, ?)`,
		name, resolved, part.StatusID, part.ListID,
	)
	if err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	return nil
}

// moveEntry relocates stored into the partition named by to. The
// destination position is always resolved against the destination.
func (s *SQLiteStore) moveEntry(ctx context.Context, tx *sqlx.Tx, stored *model.Entry, to model.EntryFields) error {
	col, err := visibleStatus(ctx, tx, to.ListID, to.StatusID)
	if err != nil {
		return err
	}
	part := model.Partition{ListID: to.ListID, StatusID: col.ID}
	if err := s.insertEntry(ctx, tx, part, col.OrderByPosition, to.Name, to.Position, to.Date); err != nil {
		return err
	}
	return removeEntry(ctx, tx, stored)
}

// editEntry renames, re-dates or reorders stored inside its own
// partition.
func (s *SQLiteStore) editEntry(ctx context.Context, tx *sqlx.Tx, stored *model.Entry, to model.EntryFields) error {
	orderByPosition, err := statusOrdersByPosition(ctx, tx, stored.StatusID)
	if err != nil {
		return err
	}

	if !orderByPosition {
		day, err := s.dateOrToday(to.Date)
		if err != nil {
			return err
		}
		if stored.Name == to.Name && stored.Date != nil && *stored.Date == day {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE entries SET name = ?, date = ? WHERE id = ?`,
			to.Name, day, stored.ID,
		)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("writing entry %d: %w", stored.ID, err)
		}
		return nil
	}

	part := stored.Partition()
	maxPos, err := maxPosition(ctx, tx, part)
	if err != nil {
		return err
	}
	oldPos := ResolvePosition(stored.Position, maxPos)
	newPos := ResolvePosition(to.Position, maxPos)
	if newPos > maxPos {
		newPos = maxPos
	}

	switch {
	case oldPos > newPos:
		if err := shiftUpRange(ctx, tx, part, newPos, oldPos); err != nil {
			return err
		}
	case oldPos < newPos:
		if err := shiftDownRange(ctx, tx, part, oldPos, newPos); err != nil {
			return err
		}
	}

	if stored.Name == to.Name && stored.Position != nil && *stored.Position == newPos && stored.Date == nil {
		return nil
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE entries SET position = ?, name = ?, date = NULL WHERE id = ?`,
		newPos, to.Name, stored.ID,
	)
	if err != nil {
		return fmt.Errorf("writing entry %d: %w", stored.ID, err)
	}
	return nil
}

// removeEntry closes the gap stored leaves and deletes it.
func removeEntry(ctx context.Context, tx *sqlx.Tx, stored *model.Entry) error {
	if stored.Position != nil {
		if err := shiftDownAfter(ctx, tx, stored.Partition(), *stored.Position); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, stored.ID); err != nil {
		return fmt.Errorf("removing entry %d: %w", stored.ID, err)
	}
	return nil
}

// matchesStored reports whether the caller's view of an entry still holds.
// A supplied position or date must match as well.
func matchesStored(stored *model.Entry, seen model.EntryFields) bool {
	if stored.Name != seen.Name || stored.ListID != seen.ListID || stored.StatusID != seen.StatusID {
		return false
	}
	if seen.Position != nil && (stored.Position == nil || *stored.Position != *seen.Position) {
		return false
	}
	if seen.Date != nil && (stored.Date == nil || *stored.Date != *seen.Date) {
		return false
	}
	return true
}

// dateOrToday returns the supplied date, which must be in
// model.DateLayout, or today when none is supplied.
func (s *SQLiteStore) dateOrToday(date *string) (string, error) {
	if date == nil || strings.TrimSpace(*date) == "" {
		return s.today(), nil
	}
	day := strings.TrimSpace(*date)
	if _, err := time.Parse(model.DateLayout, day); err != nil {
		return "", fmt.Errorf("%w: date %q is not a YYYY-MM-DD date", ErrMalformedInput, day)
	}
	return day, nil
}

func entryByID(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Entry, error) {
	var e model.Entry
	err := sqlx.GetContext(ctx, q, &e,
		`SELECT id, name, position, date, status_id, list_id FROM entries WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "entry %d", id)
	}
	return &e, nil
}

func statusOrdersByPosition(ctx context.Context, q sqlx.QueryerContext, statusID int64) (bool, error) {
	var obp bool
	err := sqlx.GetContext(ctx, q, &obp, `SELECT order_by_position FROM statuses WHERE id = ?`, statusID)
	if err != nil {
		return false, notFound(err, "status %d", statusID)
	}
	return obp, nil
}
