package testutil

import (
	"context"
	"testing"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/store"
)

// Seeded status identities of a fresh schema.
const (
	PlannedID int64 = 1
	DoneID    int64 = 2
	DroppedID int64 = 3
)

// NewList creates an active list showing every status and returns it.
func NewList(t *testing.T, s *store.SQLiteStore, name string) *model.List {
	t.Helper()
	ctx := context.Background()

	existing, err := s.AllLists(ctx)
	if err != nil {
		t.Fatalf("listing lists: %v", err)
	}
	var cmd model.SettingsCommand
	for _, l := range existing {
		cmd.Lists = append(cmd.Lists, model.ListSetting{ID: l.ID, Name: l.Name, Active: l.Active})
	}
	cmd.Lists = append(cmd.Lists, model.ListSetting{Name: name, Active: true})

	if _, err := s.ApplySettings(ctx, cmd); err != nil {
		t.Fatalf("creating list %s: %v", name, err)
	}
	l, err := s.List(ctx, name)
	if err != nil {
		t.Fatalf("reading list %s: %v", name, err)
	}
	return l
}

// Append adds names, in order, to the end of a position-ordered column.
func Append(t *testing.T, s *store.SQLiteStore, list string, statusID int64, names ...string) {
	t.Helper()
	for _, name := range names {
		cmd := model.InsertCommand{Name: name, StatusID: statusID}
		if err := s.Insert(context.Background(), cmd, list); err != nil {
			t.Fatalf("inserting %s into %s: %v", name, list, err)
		}
	}
}

// Group returns the rows of one column of a list.
func Group(t *testing.T, s *store.SQLiteStore, list string, statusID int64) []model.EntryRow {
	t.Helper()
	groups, err := s.Info(context.Background(), list, 0)
	if err != nil {
		t.Fatalf("reading %s: %v", list, err)
	}
	for _, g := range groups {
		if g.StatusID == statusID {
			return g.Rows
		}
	}
	t.Fatalf("list %s has no status %d", list, statusID)
	return nil
}

// Names returns the names of rows in order.
func Names(rows []model.EntryRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

// Positions returns the positions of rows in order, 0 for null.
func Positions(rows []model.EntryRow) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		p := 0
		if r.Position != nil {
			p = *r.Position
		}
		out = append(out, p)
	}
	return out
}

// Find returns the row named name, failing the test when absent.
func Find(t *testing.T, rows []model.EntryRow, name string) model.EntryRow {
	t.Helper()
	for _, r := range rows {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no entry named %s", name)
	return model.EntryRow{}
}
