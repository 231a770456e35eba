package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/checklist/internal/model"
)

// GetSettings returns all lists and statuses in position order together
// with each list's visible columns.
func (s *SQLiteStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	settings := &model.Settings{Columns: make(map[int64][]model.StatusColumn)}
	err := s.withReadTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if settings.Lists, err = allLists(ctx, tx); err != nil {
			return err
		}
		if settings.Statuses, err = allStatuses(ctx, tx); err != nil {
			return err
		}
		for _, l := range settings.Lists {
			cols, err := listColumnsOf(ctx, tx, l.ID)
			if err != nil {
				return err
			}
			settings.Columns[l.ID] = cols
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return settings, nil
}

// ApplySettings writes the submitted lists and statuses. Their order in
// the command becomes their position; rows that did not change are left
// untouched and rows with ID 0 are created. A new status becomes the last
// column of every list; a new list shows every status.
func (s *SQLiteStore) ApplySettings(ctx context.Context, cmd model.SettingsCommand) (*model.SettingsResult, error) {
	var res model.SettingsResult
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := applyStatuses(ctx, tx, cmd.Statuses, &res); err != nil {
			return err
		}
		return applyLists(ctx, tx, cmd.Lists, &res)
	})
	if err != nil {
		return nil, fmt.Errorf("applying settings: %w", err)
	}

	if res.Changed() {
		s.logger.Info("settings applied",
			slog.Int("lists_updated", res.ListsUpdated),
			slog.Int("lists_inserted", res.ListsInserted),
			slog.Int("statuses_updated", res.StatusesUpdated),
			slog.Int("statuses_inserted", res.StatusesInserted),
		)
	}
	return &res, nil
}

func applyStatuses(ctx context.Context, tx *sqlx.Tx, submitted []model.StatusSetting, res *model.SettingsResult) error {
	stored, err := allStatuses(ctx, tx)
	if err != nil {
		return err
	}
	byID := make(map[int64]model.Status, len(stored))
	for _, st := range stored {
		byID[st.ID] = st
	}

	seen := make(map[int64]bool, len(submitted))
	pos := 0
	for _, st := range submitted {
		name := strings.TrimSpace(st.Name)
		if name == "" {
			continue
		}
		pos++
		seen[st.ID] = true

		if st.ID == 0 {
			r, err := tx.ExecContext(ctx,
				`INSERT INTO statuses (name, position, order_by_position) VALUES (?, ?, ?)`,
				name, pos, boolToInt(st.OrderByPosition),
			)
			if err != nil {
				return settingsWriteError(err, "status", name)
			}
			id, err := r.LastInsertId()
			if err != nil {
				return fmt.Errorf("reading id of status %q: %w", name, err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO list_statuses (list_id, status_id, position)
				SELECT l.id, ?, COALESCE((SELECT MAX(ls.position) FROM list_statuses ls WHERE ls.list_id = l.id), 0) + 1
				FROM lists l`,
				id,
			)
			if err != nil {
				return fmt.Errorf("adding status %q to lists: %w", name, err)
			}
			res.StatusesInserted++
			continue
		}

		cur, ok := byID[st.ID]
		if !ok {
			return fmt.Errorf("status %d: %w", st.ID, ErrNotFound)
		}
		if cur.Name == name && cur.Position == pos {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE statuses SET name = ?, position = ? WHERE id = ?`,
			name, pos, st.ID,
		)
		if err != nil {
			return settingsWriteError(err, "status", name)
		}
		res.StatusesUpdated++
	}

	// Statuses left out keep their relative order after the submitted ones.
	for _, cur := range stored {
		if seen[cur.ID] {
			continue
		}
		pos++
		if cur.Position == pos {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE statuses SET position = ? WHERE id = ?`, pos, cur.ID); err != nil {
			return fmt.Errorf("renumbering status %d: %w", cur.ID, err)
		}
		res.StatusesUpdated++
	}
	return nil
}

func applyLists(ctx context.Context, tx *sqlx.Tx, submitted []model.ListSetting, res *model.SettingsResult) error {
	stored, err := allLists(ctx, tx)
	if err != nil {
		return err
	}
	byID := make(map[int64]model.List, len(stored))
	for _, l := range stored {
		byID[l.ID] = l
	}

	seen := make(map[int64]bool, len(submitted))
	pos := 0
	for _, l := range submitted {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			continue
		}
		pos++
		seen[l.ID] = true

		if l.ID == 0 {
			r, err := tx.ExecContext(ctx,
				`INSERT INTO lists (name, position, active) VALUES (?, ?, ?)`,
				name, pos, boolToInt(l.Active),
			)
			if err != nil {
				return settingsWriteError(err, "list", name)
			}
			id, err := r.LastInsertId()
			if err != nil {
				return fmt.Errorf("reading id of list %q: %w", name, err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO list_statuses (list_id, status_id, position)
				SELECT ?, id, ROW_NUMBER() OVER (ORDER BY position, id) FROM statuses`,
				id,
			)
			if err != nil {
				return fmt.Errorf("adding columns to list %q: %w", name, err)
			}
			res.ListsInserted++
			continue
		}

		cur, ok := byID[l.ID]
		if !ok {
			return fmt.Errorf("list %d: %w", l.ID, ErrNotFound)
		}
		if cur.Name == name && cur.Position == pos && cur.Active == l.Active {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE lists SET name = ?, position = ?, active = ? WHERE id = ?`,
			name, pos, boolToInt(l.Active), l.ID,
		)
		if err != nil {
			return settingsWriteError(err, "list", name)
		}
		res.ListsUpdated++
	}

	// Lists left out keep their relative order after the submitted ones.
	for _, cur := range stored {
		if seen[cur.ID] {
			continue
		}
		pos++
		if cur.Position == pos {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE lists SET position = ? WHERE id = ?`, pos, cur.ID); err != nil {
			return fmt.Errorf("renumbering list %d: %w", cur.ID, err)
		}
		res.ListsUpdated++
	}
	return nil
}

// SetListStatuses replaces the visible columns of a list with statusIDs,
// in that order. A column that still holds entries cannot be removed.
func (s *SQLiteStore) SetListStatuses(ctx context.Context, listName string, statusIDs []int64) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		list, err := listByName(ctx, tx, listName)
		if err != nil {
			return err
		}

		wanted := make(map[int64]bool, len(statusIDs))
		for _, id := range statusIDs {
			if wanted[id] {
				return fmt.Errorf("%w: status %d listed twice", ErrMalformedInput, id)
			}
			wanted[id] = true
			if _, err := statusOrdersByPosition(ctx, tx, id); err != nil {
				return err
			}
		}

		current, err := listColumnsOf(ctx, tx, list.ID)
		if err != nil {
			return err
		}
		for _, col := range current {
			if wanted[col.ID] {
				continue
			}
			var n int
			err := tx.GetContext(ctx, &n,
				`SELECT COUNT(*) FROM entries WHERE list_id = ? AND status_id = ?`, list.ID, col.ID)
			if err != nil {
				return fmt.Errorf("counting entries of status %d: %w", col.ID, err)
			}
			if n > 0 {
				return fmt.Errorf("%w: status %q still holds %d entries", ErrMalformedInput, col.Name, n)
			}
			_, err = tx.ExecContext(ctx,
				`DELETE FROM list_statuses WHERE list_id = ? AND status_id = ?`, list.ID, col.ID)
			if err != nil {
				return fmt.Errorf("removing status %d: %w", col.ID, err)
			}
		}

		for i, id := range statusIDs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO list_statuses (list_id, status_id, position) VALUES (?, ?, ?)
				ON CONFLICT (list_id, status_id) DO UPDATE SET position = excluded.position
				WHERE list_statuses.position != excluded.position`,
				list.ID, id, i+1,
			)
			if err != nil {
				return fmt.Errorf("writing column %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("setting columns of %s: %w", listName, err)
	}
	return nil
}

func allStatuses(ctx context.Context, q sqlx.QueryerContext) ([]model.Status, error) {
	var statuses []model.Status
	err := sqlx.SelectContext(ctx, q, &statuses,
		`SELECT id, name, position, order_by_position FROM statuses ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("listing statuses: %w", err)
	}
	return statuses, nil
}

func settingsWriteError(err error, kind, name string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s name %q is already used", ErrMalformedInput, kind, name)
	}
	return fmt.Errorf("writing %s %q: %w", kind, name, err)
}
