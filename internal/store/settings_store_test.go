package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/store"
	"github.com/nhle/checklist/tests/testutil"
)

func TestApplySettings_CreatesListsWithAllColumns(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	res, err := s.ApplySettings(ctx, model.SettingsCommand{Lists: []model.ListSetting{
		{Name: "Books", Active: true},
		{Name: "   "},
		{Name: "Films", Active: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ListsInserted)
	assert.True(t, res.Changed())

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	require.Len(t, settings.Lists, 2)
	assert.Equal(t, 2, settings.Lists[1].Position)
	require.Len(t, settings.Statuses, 3)
	for _, l := range settings.Lists {
		assert.Len(t, settings.Columns[l.ID], 3, l.Name)
	}
}

func TestApplySettings_WritesOnlyChangedRows(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	books := testutil.NewList(t, s, "Books")
	films := testutil.NewList(t, s, "Films")

	unchanged := model.SettingsCommand{
		Lists: []model.ListSetting{
			{ID: books.ID, Name: "Books", Active: true},
			{ID: films.ID, Name: "Films", Active: true},
		},
		Statuses: []model.StatusSetting{
			{ID: testutil.PlannedID, Name: model.StatusPlanned},
			{ID: testutil.DoneID, Name: model.StatusDone},
			{ID: testutil.DroppedID, Name: model.StatusDropped},
		},
	}
	before := totalChanges(t, s)
	res, err := s.ApplySettings(ctx, unchanged)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, before, totalChanges(t, s))

	reordered := unchanged
	reordered.Lists = []model.ListSetting{
		{ID: films.ID, Name: "Films", Active: true},
		{ID: books.ID, Name: "Books", Active: false},
	}
	res, err = s.ApplySettings(ctx, reordered)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ListsUpdated)
	assert.Zero(t, res.StatusesUpdated)

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "Films", tables[0].Name)
}

func TestApplySettings_NewStatusBecomesLastColumn(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.NewList(t, s, "Books")

	res, err := s.ApplySettings(ctx, model.SettingsCommand{Statuses: []model.StatusSetting{
		{ID: testutil.PlannedID, Name: model.StatusPlanned},
		{ID: testutil.DoneID, Name: model.StatusDone},
		{ID: testutil.DroppedID, Name: model.StatusDropped},
		{Name: "Reading", OrderByPosition: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.StatusesInserted)

	cols, err := s.Statuses(ctx, "Books")
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.Equal(t, "Reading", cols[3].Name)
	assert.Equal(t, 4, cols[3].Position)
	assert.True(t, cols[3].OrderByPosition)

	testutil.Append(t, s, "Books", cols[3].ID, "Dune", "Emma")
	assert.Equal(t, []int{1, 2}, testutil.Positions(testutil.Group(t, s, "Books", cols[3].ID)))
}

func TestApplySettings_Errors(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.NewList(t, s, "Books")

	_, err := s.ApplySettings(ctx, model.SettingsCommand{Lists: []model.ListSetting{{Name: "Books"}}})
	assert.ErrorIs(t, err, store.ErrMalformedInput)

	_, err = s.ApplySettings(ctx, model.SettingsCommand{Lists: []model.ListSetting{{ID: 77, Name: "Ghost"}}})
	assert.ErrorIs(t, err, store.ErrNotFound)

	lists, err := s.AllLists(ctx)
	require.NoError(t, err)
	assert.Len(t, lists, 1)
}

func TestSetListStatuses(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.NewList(t, s, "Books")
	testutil.Append(t, s, "Books", testutil.PlannedID, "Dune")

	err := s.SetListStatuses(ctx, "Books", []int64{testutil.DoneID})
	assert.ErrorIs(t, err, store.ErrMalformedInput, "Planned still holds Dune")

	err = s.SetListStatuses(ctx, "Books", []int64{testutil.PlannedID, testutil.PlannedID})
	assert.ErrorIs(t, err, store.ErrMalformedInput)

	err = s.SetListStatuses(ctx, "Books", []int64{testutil.PlannedID, 42})
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.SetListStatuses(ctx, "Nope", []int64{testutil.PlannedID})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetListStatuses(ctx, "Books", []int64{testutil.DroppedID, testutil.PlannedID}))
	cols, err := s.Statuses(ctx, "Books")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, testutil.DroppedID, cols[0].ID)
	assert.Equal(t, testutil.PlannedID, cols[1].ID)

	err = s.Insert(ctx, model.InsertCommand{Name: "x", StatusID: testutil.DoneID}, "Books")
	assert.ErrorIs(t, err, store.ErrNotFound, "Done is no longer visible")
}

func TestApplySettings_RenumbersOmittedRows(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	a := testutil.NewList(t, s, "A")
	b := testutil.NewList(t, s, "B")
	c := testutil.NewList(t, s, "C")

	res, err := s.ApplySettings(ctx, model.SettingsCommand{
		Lists:    []model.ListSetting{{ID: c.ID, Name: "C", Active: true}},
		Statuses: []model.StatusSetting{{ID: testutil.DroppedID, Name: model.StatusDropped}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ListsUpdated)
	assert.Equal(t, 3, res.StatusesUpdated)

	lists, err := s.AllLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 3)
	got := map[int64]int{}
	for _, l := range lists {
		got[l.ID] = l.Position
	}
	assert.Equal(t, map[int64]int{c.ID: 1, a.ID: 2, b.ID: 3}, got)

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	var order []string
	for i, st := range settings.Statuses {
		assert.Equal(t, i+1, st.Position)
		order = append(order, st.Name)
	}
	assert.Equal(t, []string{model.StatusDropped, model.StatusPlanned, model.StatusDone}, order)

	res, err = s.ApplySettings(ctx, model.SettingsCommand{})
	require.NoError(t, err)
	assert.False(t, res.Changed(), "omitted rows already in place are not rewritten")
}
