package model

// List is a named collection of entries, displayed in position order.
type List struct {
	ID       int64  `json:"id" yaml:"id" db:"id"`
	Name     string `json:"name" yaml:"name" db:"name"`
	Position int    `json:"position" yaml:"position" db:"position"`
	Active   bool   `json:"active" yaml:"active" db:"active"`
}

// ListOverview bundles a list with its visible columns and their entries.
type ListOverview struct {
	List    List           `json:"list"`
	Columns []StatusColumn `json:"columns"`
	Groups  []StatusGroup  `json:"groups"`
}
