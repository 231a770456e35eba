package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/checklist/internal/model"
)

const listColumns = `id, name, position, active`

// Tables returns the active lists ordered by display position.
func (s *SQLiteStore) Tables(ctx context.Context) ([]model.List, error) {
	var lists []model.List
	err := s.db.SelectContext(ctx, &lists,
		`SELECT `+listColumns+` FROM lists WHERE active = 1 ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("listing active lists: %w", err)
	}
	return lists, nil
}

// AllLists returns every list, inactive ones included.
func (s *SQLiteStore) AllLists(ctx context.Context) ([]model.List, error) {
	return allLists(ctx, s.db)
}

// List returns the list with the given name.
func (s *SQLiteStore) List(ctx context.Context, name string) (*model.List, error) {
	return listByName(ctx, s.db, name)
}

// ListByID returns the list with the given identity.
func (s *SQLiteStore) ListByID(ctx context.Context, id int64) (*model.List, error) {
	return listByID(ctx, s.db, id)
}

// Statuses returns the statuses visible as columns of the named list, in
// display order.
func (s *SQLiteStore) Statuses(ctx context.Context, listName string) ([]model.StatusColumn, error) {
	var cols []model.StatusColumn
	err := s.withReadTx(ctx, func(tx *sqlx.Tx) error {
		list, err := listByName(ctx, tx, listName)
		if err != nil {
			return err
		}
		cols, err = listColumnsOf(ctx, tx, list.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing statuses of %s: %w", listName, err)
	}
	return cols, nil
}

// Info returns one group per visible column of the named list. Groups of
// position-ordered statuses are sorted by position, the others by date.
// A positive limit keeps only the last limit rows of date-ordered groups.
func (s *SQLiteStore) Info(ctx context.Context, listName string, limit int) ([]model.StatusGroup, error) {
	var groups []model.StatusGroup
	err := s.withReadTx(ctx, func(tx *sqlx.Tx) error {
		list, err := listByName(ctx, tx, listName)
		if err != nil {
			return err
		}
		groups, err = listGroups(ctx, tx, list.ID, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", listName, err)
	}
	return groups, nil
}

// Overview returns every active list with its columns and groups.
func (s *SQLiteStore) Overview(ctx context.Context, limit int) ([]model.ListOverview, error) {
	var overview []model.ListOverview
	err := s.withReadTx(ctx, func(tx *sqlx.Tx) error {
		var lists []model.List
		err := tx.SelectContext(ctx, &lists,
			`SELECT `+listColumns+` FROM lists WHERE active = 1 ORDER BY position, id`)
		if err != nil {
			return fmt.Errorf("listing active lists: %w", err)
		}

		for _, list := range lists {
			cols, err := listColumnsOf(ctx, tx, list.ID)
			if err != nil {
				return err
			}
			groups, err := listGroups(ctx, tx, list.ID, limit)
			if err != nil {
				return err
			}
			overview = append(overview, model.ListOverview{List: list, Columns: cols, Groups: groups})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading overview: %w", err)
	}
	return overview, nil
}

func listColumnsOf(ctx context.Context, q sqlx.QueryerContext, listID int64) ([]model.StatusColumn, error) {
	var cols []model.StatusColumn
	err := sqlx.SelectContext(ctx, q, &cols,
		`SELECT s.id, s.name, ls.position, s.order_by_position
		FROM list_statuses ls
		JOIN statuses s ON s.id = ls.status_id
		WHERE ls.list_id = ?
		ORDER BY ls.position, s.id`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading columns of list %d: %w", listID, err)
	}
	return cols, nil
}

const entryRowQuery = `SELECT e.id, e.name, e.position, e.date,
	e.list_id, l.name AS list_name, e.status_id, s.name AS status_name
FROM entries e
JOIN lists l ON l.id = e.list_id
JOIN statuses s ON s.id = e.status_id
WHERE e.list_id = ? AND e.status_id = ?`

func listGroups(ctx context.Context, q sqlx.QueryerContext, listID int64, limit int) ([]model.StatusGroup, error) {
	cols, err := listColumnsOf(ctx, q, listID)
	if err != nil {
		return nil, err
	}

	groups := make([]model.StatusGroup, 0, len(cols))
	for _, col := range cols {
		order := ` ORDER BY e.date, e.id`
		if col.OrderByPosition {
			order = ` ORDER BY e.position, e.id`
		}

		var rows []model.EntryRow
		if err := sqlx.SelectContext(ctx, q, &rows, entryRowQuery+order, listID, col.ID); err != nil {
			return nil, fmt.Errorf("reading entries of list %d status %d: %w", listID, col.ID, err)
		}
		if !col.OrderByPosition && limit > 0 && len(rows) > limit {
			rows = rows[len(rows)-limit:]
		}
		if rows == nil {
			rows = []model.EntryRow{}
		}

		groups = append(groups, model.StatusGroup{
			Status:          col.Name,
			StatusID:        col.ID,
			OrderByPosition: col.OrderByPosition,
			Rows:            rows,
		})
	}
	return groups, nil
}

func allLists(ctx context.Context, q sqlx.QueryerContext) ([]model.List, error) {
	var lists []model.List
	err := sqlx.SelectContext(ctx, q, &lists,
		`SELECT `+listColumns+` FROM lists ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("listing lists: %w", err)
	}
	return lists, nil
}

func listByName(ctx context.Context, q sqlx.QueryerContext, name string) (*model.List, error) {
	name = strings.TrimSpace(name)
	var l model.List
	err := sqlx.GetContext(ctx, q, &l, `SELECT `+listColumns+` FROM lists WHERE name = ?`, name)
	if err != nil {
		return nil, notFound(err, "list %q", name)
	}
	return &l, nil
}

func listByID(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.List, error) {
	var l model.List
	err := sqlx.GetContext(ctx, q, &l, `SELECT `+listColumns+` FROM lists WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "list %d", id)
	}
	return &l, nil
}

// visibleStatus returns statusID as a column of the list, or ErrNotFound
// when the list does not show that status.
func visibleStatus(ctx context.Context, q sqlx.QueryerContext, listID, statusID int64) (*model.StatusColumn, error) {
	var col model.StatusColumn
	err := sqlx.GetContext(ctx, q, &col,
		`SELECT s.id, s.name, ls.position, s.order_by_position
		FROM list_statuses ls
		JOIN statuses s ON s.id = ls.status_id
		WHERE ls.list_id = ? AND ls.status_id = ?`,
		listID, statusID,
	)
	if err != nil {
		return nil, notFound(err, "status %d in list %d", statusID, listID)
	}
	return &col, nil
}
