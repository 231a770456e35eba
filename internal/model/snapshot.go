package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a snapshot serialisation format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a user supplied format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", ErrMalformedInput, s)
	}
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Flag is a boolean that also accepts the 0/1 integers older exports
// wrote for SQLite booleans.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	v, err := parseFlag(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseFlag(node.Value)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Scan implements sql.Scanner.
func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = false
	case int64:
		*f = v != 0
	case bool:
		*f = Flag(v)
	default:
		return fmt.Errorf("cannot scan %T into Flag", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (f Flag) Value() (driver.Value, error) {
	if f {
		return int64(1), nil
	}
	return int64(0), nil
}

func parseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), `"`)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off", "null", "":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrMalformedInput, s)
}

// StatusRecord is a Status row of a snapshot.
type StatusRecord struct {
	ID              int64  `json:"rowid" yaml:"rowid" db:"id"`
	Name            string `json:"name" yaml:"name" db:"name"`
	Position        int    `json:"position" yaml:"position" db:"position"`
	OrderByPosition Flag   `json:"orderByPosition" yaml:"orderByPosition" db:"order_by_position"`
}

// ListRecord is a List row of a snapshot.
type ListRecord struct {
	ID       int64  `json:"rowid" yaml:"rowid" db:"id"`
	Name     string `json:"name" yaml:"name" db:"name"`
	Position int    `json:"position" yaml:"position" db:"position"`
	Active   Flag   `json:"active" yaml:"active" db:"active"`
}

// ListStatusRecord is a ListStatus row of a snapshot. Position may be
// absent in older exports.
type ListStatusRecord struct {
	ID       int64 `json:"rowid" yaml:"rowid" db:"id"`
	List     int64 `json:"list" yaml:"list" db:"list_id"`
	Status   int64 `json:"status" yaml:"status" db:"status_id"`
	Position int   `json:"position,omitempty" yaml:"position,omitempty" db:"position"`
}

// EntryRecord is an Entry row of a snapshot.
type EntryRecord struct {
	ID       int64   `json:"rowid" yaml:"rowid" db:"id"`
	Name     string  `json:"name" yaml:"name" db:"name"`
	Position *int    `json:"position" yaml:"position" db:"position"`
	Date     *string `json:"date" yaml:"date" db:"date"`
	Status   int64   `json:"status" yaml:"status" db:"status_id"`
	List     int64   `json:"list" yaml:"list" db:"list_id"`
}

// Snapshot is a full relational export of all four tables. The "sqlite"
// marker distinguishes it from the legacy flat shape.
type Snapshot struct {
	Native       bool               `json:"sqlite" yaml:"sqlite"`
	ID           string             `json:"id,omitempty" yaml:"id,omitempty"`
	ExportedAt   string             `json:"exported_at,omitempty" yaml:"exported_at,omitempty"`
	Statuses     []StatusRecord     `json:"Status" yaml:"Status"`
	Lists        []ListRecord       `json:"List" yaml:"List"`
	ListStatuses []ListStatusRecord `json:"ListStatus" yaml:"ListStatus"`
	Entries      []EntryRecord      `json:"Entry" yaml:"Entry"`
}

// LegacyDocument is one entry of the legacy flat export, where the sign
// of Position encodes the status.
type LegacyDocument struct {
	Name     string `json:"name" yaml:"name"`
	Position *int   `json:"position" yaml:"position"`
	Date     string `json:"date" yaml:"date"`
}

// legacyDefaultTable is the bookkeeping table of the legacy document store.
const legacyDefaultTable = "_default"

// DecodeSnapshot parses either snapshot shape. Legacy data is normalised
// into the native shape; today fills in missing dates.
func DecodeSnapshot(data []byte, format Format, today string) (*Snapshot, error) {
	unmarshal := json.Unmarshal
	if format == FormatYAML {
		unmarshal = yaml.Unmarshal
	}

	var probe struct {
		Native bool `json:"sqlite" yaml:"sqlite"`
	}
	if err := unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: decoding snapshot: %v", ErrMalformedInput, err)
	}

	if probe.Native {
		var snap Snapshot
		if err := unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("%w: decoding snapshot: %v", ErrMalformedInput, err)
		}
		snap.normalize()
		return &snap, nil
	}

	var legacy map[string]map[string]LegacyDocument
	if err := unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("%w: decoding legacy snapshot: %v", ErrMalformedInput, err)
	}
	return FromLegacy(legacy, today), nil
}

// Encode serialises the snapshot.
func (s *Snapshot) Encode(format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(s)
	}
	return json.MarshalIndent(s, "", "  ")
}

// normalize fills positions older exports did not carry: statuses fall
// back to their id, list columns to the status order.
func (s *Snapshot) normalize() {
	for i := range s.Statuses {
		if s.Statuses[i].Position == 0 {
			s.Statuses[i].Position = int(s.Statuses[i].ID)
		}
	}

	statusPos := make(map[int64]int, len(s.Statuses))
	for _, st := range s.Statuses {
		statusPos[st.ID] = st.Position
	}

	byList := make(map[int64][]int)
	for i, ls := range s.ListStatuses {
		byList[ls.List] = append(byList[ls.List], i)
	}
	for _, idxs := range byList {
		positioned := false
		for _, i := range idxs {
			if s.ListStatuses[i].Position != 0 {
				positioned = true
				break
			}
		}
		if positioned {
			continue
		}
		sort.SliceStable(idxs, func(a, b int) bool {
			return statusPos[s.ListStatuses[idxs[a]].Status] < statusPos[s.ListStatuses[idxs[b]].Status]
		})
		for n, i := range idxs {
			s.ListStatuses[i].Position = n + 1
		}
	}
}

// DefaultStatuses are the statuses a fresh schema and every legacy
// import start with.
func DefaultStatuses() []StatusRecord {
	return []StatusRecord{
		{ID: 1, Name: StatusPlanned, Position: 1, OrderByPosition: true},
		{ID: 2, Name: StatusDone, Position: 2, OrderByPosition: false},
		{ID: 3, Name: StatusDropped, Position: 3, OrderByPosition: false},
	}
}

// FromLegacy converts the legacy flat shape. Positive positions become
// Planned entries renumbered 1..N per list in their legacy order, zero
// becomes Done and negative becomes Dropped. Lists are ordered by name.
func FromLegacy(data map[string]map[string]LegacyDocument, today string) *Snapshot {
	snap := &Snapshot{Native: true, Statuses: DefaultStatuses()}
	planned, done, dropped := snap.Statuses[0].ID, snap.Statuses[1].ID, snap.Statuses[2].ID

	names := make([]string, 0, len(data))
	for name := range data {
		if name == legacyDefaultTable || strings.TrimSpace(name) == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var entryID int64
	for i, name := range names {
		listID := int64(i + 1)
		snap.Lists = append(snap.Lists, ListRecord{
			ID:       listID,
			Name:     strings.TrimSpace(name),
			Position: i + 1,
			Active:   true,
		})
		for j, st := range snap.Statuses {
			snap.ListStatuses = append(snap.ListStatuses, ListStatusRecord{
				ID:       int64(len(snap.ListStatuses) + 1),
				List:     listID,
				Status:   st.ID,
				Position: j + 1,
			})
		}

		var ranked []LegacyDocument
		for _, doc := range sortedLegacyDocs(data[name]) {
			doc.Name = strings.TrimSpace(doc.Name)
			if doc.Name == "" {
				continue
			}
			pos := 0
			if doc.Position != nil {
				pos = *doc.Position
			}
			if pos > 0 {
				ranked = append(ranked, doc)
				continue
			}

			status := done
			if pos < 0 {
				status = dropped
			}
			date := doc.Date
			if strings.TrimSpace(date) == "" {
				date = today
			}
			entryID++
			snap.Entries = append(snap.Entries, EntryRecord{
				ID:     entryID,
				Name:   doc.Name,
				Date:   StringPtr(date),
				Status: status,
				List:   listID,
			})
		}

		sort.SliceStable(ranked, func(a, b int) bool {
			return *ranked[a].Position < *ranked[b].Position
		})
		for n, doc := range ranked {
			entryID++
			snap.Entries = append(snap.Entries, EntryRecord{
				ID:       entryID,
				Name:     doc.Name,
				Position: IntPtr(n + 1),
				Status:   planned,
				List:     listID,
			})
		}
	}

	return snap
}

// sortedLegacyDocs orders documents by their numeric document id.
func sortedLegacyDocs(docs map[string]LegacyDocument) []LegacyDocument {
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		ka, errA := strconv.Atoi(keys[a])
		kb, errB := strconv.Atoi(keys[b])
		if errA == nil && errB == nil {
			return ka < kb
		}
		return keys[a] < keys[b]
	})

	out := make([]LegacyDocument, 0, len(keys))
	for _, k := range keys {
		out = append(out, docs[k])
	}
	return out
}
