package store

import "context"

// TotalChanges returns the number of rows written through the store's
// connection since it was opened.
func TotalChanges(s *SQLiteStore) (int, error) {
	var n int
	err := s.db.GetContext(context.Background(), &n, `SELECT total_changes()`)
	return n, err
}

// HoldWriteLock starts a write transaction on its own connection and
// returns a func that rolls it back.
func HoldWriteLock(s *SQLiteStore) (func(), error) {
	tx, err := s.db.BeginTxx(context.Background(), nil)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`UPDATE statuses SET position = position WHERE id = 1`); err != nil {
		tx.Rollback()
		return nil, err
	}
	return func() { tx.Rollback() }, nil
}
