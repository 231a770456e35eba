package model

// Seeded status names. Legacy imports map onto these.
const (
	StatusPlanned = "Planned"
	StatusDone    = "Done"
	StatusDropped = "Dropped"
)

// Status defines how the entries of a column are ordered. When
// OrderByPosition is set, entries carry a dense manual rank; otherwise
// they are ordered by date.
type Status struct {
	ID              int64  `json:"id" yaml:"id" db:"id"`
	Name            string `json:"name" yaml:"name" db:"name"`
	Position        int    `json:"position" yaml:"position" db:"position"`
	OrderByPosition bool   `json:"orderByPosition" yaml:"orderByPosition" db:"order_by_position"`
}

// StatusColumn is a status as seen from one list.
type StatusColumn struct {
	ID              int64  `json:"id" db:"id"`
	Name            string `json:"name" db:"name"`
	Position        int    `json:"display_position" db:"position"`
	OrderByPosition bool   `json:"orderByPosition" db:"order_by_position"`
}

// StatusGroup is one column of the info view: the entries of a single
// partition in display order.
type StatusGroup struct {
	Status          string     `json:"status"`
	StatusID        int64      `json:"status_id"`
	OrderByPosition bool       `json:"orderByPosition"`
	Rows            []EntryRow `json:"rows"`
}
