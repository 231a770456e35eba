package model

import "time"

// DateLayout is the storage format of entry dates.
const DateLayout = "2006-01-02"

// Partition identifies the set of entries sharing one (list, status) pair.
type Partition struct {
	ListID   int64 `json:"list_id" db:"list_id"`
	StatusID int64 `json:"status_id" db:"status_id"`
}

// Entry is a single named item. Position is set only in position-ordered
// partitions; Date only in date-ordered ones.
type Entry struct {
	ID       int64   `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Position *int    `json:"position" db:"position"`
	Date     *string `json:"date" db:"date"`
	StatusID int64   `json:"status" db:"status_id"`
	ListID   int64   `json:"list" db:"list_id"`
}

// Partition returns the partition the entry currently belongs to.
func (e Entry) Partition() Partition {
	return Partition{ListID: e.ListID, StatusID: e.StatusID}
}

// EntryRow is an entry joined with its list and status names.
type EntryRow struct {
	ID         int64   `json:"id" db:"id"`
	Name       string  `json:"name" db:"name"`
	Position   *int    `json:"position" db:"position"`
	Date       *string `json:"date" db:"date"`
	ListID     int64   `json:"list_id" db:"list_id"`
	ListName   string  `json:"list_name" db:"list_name"`
	StatusID   int64   `json:"status_id" db:"status_id"`
	StatusName string  `json:"status_name" db:"status_name"`
}

// DensityViolation reports a position-ordered partition whose positions
// are not exactly 1..N.
type DensityViolation struct {
	Partition Partition `json:"partition"`
	Positions []int     `json:"positions"`
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
