package model

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedInput marks a structurally invalid field in a request.
var ErrMalformedInput = errors.New("malformed input")

// InsertCommand adds an entry to a list. Position is only consulted for
// position-ordered statuses and Date only for date-ordered ones; nil
// means "append at end" and "today" respectively.
type InsertCommand struct {
	Name     string  `json:"name"`
	StatusID int64   `json:"status"`
	Position *int    `json:"position,omitempty"`
	Date     *string `json:"date,omitempty"`
}

// EntryFields is the editable state of an entry as a caller saw it.
type EntryFields struct {
	ListID   int64   `json:"list"`
	StatusID int64   `json:"status"`
	Position *int    `json:"position,omitempty"`
	Date     *string `json:"date,omitempty"`
	Name     string  `json:"name"`
}

// Equal reports whether every field matches.
func (f EntryFields) Equal(o EntryFields) bool {
	return f.ListID == o.ListID &&
		f.StatusID == o.StatusID &&
		intPtrEqual(f.Position, o.Position) &&
		stringPtrEqual(f.Date, o.Date) &&
		f.Name == o.Name
}

// SamePartition reports whether both field sets address one partition.
func (f EntryFields) SamePartition(o EntryFields) bool {
	return f.ListID == o.ListID && f.StatusID == o.StatusID
}

// Normalized trims the name.
func (f EntryFields) Normalized() EntryFields {
	f.Name = strings.TrimSpace(f.Name)
	return f
}

// UpdateCommand edits, reorders or moves an entry. Old carries the state
// the caller last saw and is used to detect stale requests.
type UpdateCommand struct {
	ID  int64       `json:"id"`
	Old EntryFields `json:"old"`
	New EntryFields `json:"new"`
}

// DeleteCommand removes an entry. Name must match the stored name.
type DeleteCommand struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ParseInsertForm builds an InsertCommand from submitted form values
// (name, status, position, date).
func ParseInsertForm(values url.Values) (InsertCommand, error) {
	statusID, err := parseID(values.Get("status"), "status")
	if err != nil {
		return InsertCommand{}, err
	}
	position, err := parseOptionalInt(values.Get("position"), "position")
	if err != nil {
		return InsertCommand{}, err
	}
	date, err := parseOptionalDate(values.Get("date"), "date")
	if err != nil {
		return InsertCommand{}, err
	}

	cmd := InsertCommand{
		Name:     strings.TrimSpace(values.Get("name")),
		StatusID: statusID,
		Position: position,
		Date:     date,
	}
	if cmd.Name == "" {
		return InsertCommand{}, fmt.Errorf("%w: name must not be empty", ErrMalformedInput)
	}
	return cmd, nil
}

// ParseUpdateForm builds an UpdateCommand from submitted form values.
// oldListID is the list the form was rendered for; the "table" field
// selects the destination list and defaults to it.
func ParseUpdateForm(values url.Values, id, oldListID int64) (UpdateCommand, error) {
	newListID := oldListID
	if raw := strings.TrimSpace(values.Get("table")); raw != "" {
		v, err := parseID(raw, "table")
		if err != nil {
			return UpdateCommand{}, err
		}
		newListID = v
	}

	oldStatus, err := parseID(values.Get("old_status"), "old_status")
	if err != nil {
		return UpdateCommand{}, err
	}
	newStatus, err := parseID(values.Get("status"), "status")
	if err != nil {
		return UpdateCommand{}, err
	}
	oldPos, err := parseOptionalInt(values.Get("old_pos"), "old_pos")
	if err != nil {
		return UpdateCommand{}, err
	}
	newPos, err := parseOptionalInt(values.Get("pos"), "pos")
	if err != nil {
		return UpdateCommand{}, err
	}
	oldDate, err := parseOptionalDate(values.Get("old_date"), "old_date")
	if err != nil {
		return UpdateCommand{}, err
	}
	newDate, err := parseOptionalDate(values.Get("date"), "date")
	if err != nil {
		return UpdateCommand{}, err
	}

	cmd := UpdateCommand{
		ID: id,
		Old: EntryFields{
			ListID:   oldListID,
			StatusID: oldStatus,
			Position: oldPos,
			Date:     oldDate,
			Name:     strings.TrimSpace(values.Get("old_name")),
		},
		New: EntryFields{
			ListID:   newListID,
			StatusID: newStatus,
			Position: newPos,
			Date:     newDate,
			Name:     strings.TrimSpace(values.Get("name")),
		},
	}
	if cmd.New.Name == "" {
		return UpdateCommand{}, fmt.Errorf("%w: name must not be empty", ErrMalformedInput)
	}
	return cmd, nil
}

// ParseDeleteForm builds a DeleteCommand from submitted form values.
func ParseDeleteForm(values url.Values, id int64) DeleteCommand {
	return DeleteCommand{ID: id, Name: strings.TrimSpace(values.Get("name"))}
}

// ParseID parses a row identity.
func ParseID(raw string) (int64, error) {
	return parseID(raw, "id")
}

// ParseOptionalInt parses a position-like value where "", "None" and
// "null" mean absent.
func ParseOptionalInt(raw string) (*int, error) {
	return parseOptionalInt(raw, "position")
}

// ParseOptionalDate parses a YYYY-MM-DD date where "", "None" and "null"
// mean absent.
func ParseOptionalDate(raw string) (*string, error) {
	return parseOptionalDate(raw, "date")
}

func parseID(raw, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s %q is not a valid id", ErrMalformedInput, field, raw)
	}
	return v, nil
}

func parseOptionalInt(raw, field string) (*int, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not a number", ErrMalformedInput, field, raw)
	}
	return &v, nil
}

func parseOptionalDate(raw, field string) (*string, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	raw = strings.TrimSpace(raw)
	if _, err := time.Parse(DateLayout, raw); err != nil {
		return nil, fmt.Errorf("%w: %s %q is not a YYYY-MM-DD date", ErrMalformedInput, field, raw)
	}
	return &raw, nil
}

func isAbsent(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "None", "null":
		return true
	}
	return false
}
