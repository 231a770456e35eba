package model

// Settings is the full configuration of lists and statuses, each ordered
// by position. Columns maps a list ID to its visible statuses.
type Settings struct {
	Lists    []List                   `json:"tables"`
	Statuses []Status                 `json:"statuses"`
	Columns  map[int64][]StatusColumn `json:"columns"`
}

// ListSetting is one submitted list row. ID 0 creates a new list.
type ListSetting struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// StatusSetting is one submitted status row. ID 0 creates a new status.
// OrderByPosition is only honoured when the status is created.
type StatusSetting struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	OrderByPosition bool   `json:"orderByPosition"`
}

// SettingsCommand submits lists and statuses in their desired display
// order. Rows with a blank name are skipped.
type SettingsCommand struct {
	Lists    []ListSetting   `json:"tables"`
	Statuses []StatusSetting `json:"statuses"`
}

// SettingsResult counts the rows written by a settings change.
type SettingsResult struct {
	ListsUpdated     int `json:"tables_updated"`
	ListsInserted    int `json:"tables_inserted"`
	StatusesUpdated  int `json:"statuses_updated"`
	StatusesInserted int `json:"statuses_inserted"`
}

// Changed reports whether any row was written.
func (r SettingsResult) Changed() bool {
	return r.ListsUpdated+r.ListsInserted+r.StatusesUpdated+r.StatusesInserted > 0
}
