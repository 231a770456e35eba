package theme

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/checklist/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// ColumnWidth is the inner width of one status column.
const ColumnWidth = 28

// HeaderStyle is used for list titles.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// ColumnStyle frames one status column.
var ColumnStyle = lipgloss.NewStyle().
	Width(ColumnWidth).
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// RankStyle renders the position of an entry in a ranked column.
var RankStyle = lipgloss.NewStyle().
	Foreground(ColorYellow).
	Bold(true)

// DateStyle renders the date of an entry in a dated column.
var DateStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// HelpStyle is used for hints and empty placeholders.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// StatusStyle returns a color-coded style for a status column title.
func StatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch status {
	case model.StatusPlanned:
		return base.Foreground(ColorBlue)
	case model.StatusDone:
		return base.Foreground(ColorGreen)
	case model.StatusDropped:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorWhite)
	}
}

// RenderLists renders list names in display order, marking inactive ones.
func RenderLists(lists []model.List) string {
	if len(lists) == 0 {
		return HelpStyle.Render("no lists")
	}
	var b strings.Builder
	for _, l := range lists {
		line := fmt.Sprintf("%3d  %s", l.Position, l.Name)
		if !l.Active {
			line = HelpStyle.Render(line + " (inactive)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderInfo renders one list as side-by-side status columns.
func RenderInfo(listName string, groups []model.StatusGroup) string {
	columns := make([]string, 0, len(groups))
	for _, g := range groups {
		columns = append(columns, renderGroup(g))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, columns...)
	return lipgloss.JoinVertical(lipgloss.Left, HeaderStyle.Render(listName), body)
}

// RenderOverview renders every list of an overview one below the other.
func RenderOverview(overview []model.ListOverview) string {
	if len(overview) == 0 {
		return HelpStyle.Render("no active lists")
	}
	blocks := make([]string, 0, len(overview))
	for _, o := range overview {
		blocks = append(blocks, RenderInfo(o.List.Name, o.Groups))
	}
	return strings.Join(blocks, "\n\n")
}

func renderGroup(g model.StatusGroup) string {
	lines := []string{StatusStyle(g.Status).Render(g.Status)}
	if len(g.Rows) == 0 {
		lines = append(lines, HelpStyle.Render("empty"))
	}
	for _, r := range g.Rows {
		lines = append(lines, renderRow(r, g.OrderByPosition))
	}
	return ColumnStyle.Render(strings.Join(lines, "\n"))
}

func renderRow(r model.EntryRow, orderByPosition bool) string {
	if orderByPosition && r.Position != nil {
		return fmt.Sprintf("%s %s", RankStyle.Render(fmt.Sprintf("%2d.", *r.Position)), r.Name)
	}
	date := ""
	if r.Date != nil {
		date = *r.Date
	}
	return fmt.Sprintf("%s %s", DateStyle.Render(date), r.Name)
}
