package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/checklist/internal/model"
)

func TestRenderInfo(t *testing.T) {
	groups := []model.StatusGroup{
		{
			Status:          model.StatusPlanned,
			OrderByPosition: true,
			Rows: []model.EntryRow{
				{Name: "Dune", Position: model.IntPtr(1)},
				{Name: "Emma", Position: model.IntPtr(2)},
			},
		},
		{
			Status: model.StatusDone,
			Rows:   []model.EntryRow{{Name: "Heat", Date: model.StringPtr("2024-01-02")}},
		},
		{Status: model.StatusDropped, Rows: []model.EntryRow{}},
	}

	out := RenderInfo("Books", groups)
	for _, want := range []string{"Books", "Planned", " 1.", "Dune", " 2.", "Emma", "Done", "2024-01-02", "Heat", "Dropped", "empty"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderLists(t *testing.T) {
	out := RenderLists([]model.List{
		{Name: "Books", Position: 1, Active: true},
		{Name: "Old", Position: 2, Active: false},
	})
	assert.Contains(t, out, "Books")
	assert.Contains(t, out, "Old (inactive)")

	assert.Contains(t, RenderLists(nil), "no lists")
	assert.Contains(t, RenderOverview(nil), "no active lists")
}
