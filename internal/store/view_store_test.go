package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/store"
	"github.com/nhle/checklist/tests/testutil"
)

func TestTables_ActiveListsByPosition(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.ApplySettings(ctx, model.SettingsCommand{Lists: []model.ListSetting{
		{Name: "Books", Active: true},
		{Name: "Hidden", Active: false},
		{Name: "Films", Active: true},
	}})
	require.NoError(t, err)

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "Books", tables[0].Name)
	assert.Equal(t, "Films", tables[1].Name)
	assert.Equal(t, 3, tables[1].Position)

	all, err := s.AllLists(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestList_Lookup(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	created := testutil.NewList(t, s, "Books")

	byID, err := s.ListByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Books", byID.Name)

	_, err = s.List(ctx, "Nope")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.ListByID(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStatuses_DisplayOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.NewList(t, s, "Books")

	cols, err := s.Statuses(ctx, "Books")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, model.StatusPlanned, cols[0].Name)
	assert.True(t, cols[0].OrderByPosition)
	assert.Equal(t, 1, cols[0].Position)
	assert.Equal(t, model.StatusDone, cols[1].Name)
	assert.False(t, cols[1].OrderByPosition)
	assert.Equal(t, model.StatusDropped, cols[2].Name)

	require.NoError(t, s.SetListStatuses(ctx, "Books", []int64{testutil.DoneID, testutil.PlannedID}))

	cols, err = s.Statuses(ctx, "Books")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, model.StatusDone, cols[0].Name)
	assert.Equal(t, model.StatusPlanned, cols[1].Name)

	_, err = s.Statuses(ctx, "Nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInfo_GroupsAndLimit(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.NewList(t, s, "Books")
	testutil.Append(t, s, "Books", testutil.PlannedID, "p1", "p2", "p3")

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Insert(ctx, model.InsertCommand{
			Name:     fmt.Sprintf("d%d", i),
			StatusID: testutil.DoneID,
			Date:     model.StringPtr(fmt.Sprintf("2024-01-0%d", 6-i)),
		}, "Books"))
	}

	groups, err := s.Info(ctx, "Books", 2)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, model.StatusPlanned, groups[0].Status)
	assert.True(t, groups[0].OrderByPosition)
	assert.Equal(t, []string{"p1", "p2", "p3"}, testutil.Names(groups[0].Rows), "limit ignores position-ordered groups")

	assert.Equal(t, model.StatusDone, groups[1].Status)
	assert.Equal(t, []string{"d2", "d1"}, testutil.Names(groups[1].Rows), "last rows by date")
	assert.Equal(t, "Books", groups[1].Rows[0].ListName)
	assert.Equal(t, model.StatusDone, groups[1].Rows[0].StatusName)

	assert.Equal(t, model.StatusDropped, groups[2].Status)
	assert.NotNil(t, groups[2].Rows)
	assert.Empty(t, groups[2].Rows)

	all, err := s.Info(ctx, "Books", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"d5", "d4", "d3", "d2", "d1"}, testutil.Names(all[1].Rows))
}

func TestOverview(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.NewList(t, s, "Books")
	testutil.NewList(t, s, "Films")
	testutil.Append(t, s, "Films", testutil.PlannedID, "Heat")

	overview, err := s.Overview(ctx, 10)
	require.NoError(t, err)
	require.Len(t, overview, 2)
	assert.Equal(t, "Books", overview[0].List.Name)
	assert.Len(t, overview[0].Columns, 3)
	assert.Equal(t, "Films", overview[1].List.Name)
	assert.Equal(t, []string{"Heat"}, testutil.Names(overview[1].Groups[0].Rows))
}
