package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/store"
	"github.com/nhle/checklist/internal/theme"
)

func newShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <list>",
		Short: "Show the columns and entries of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			groups, err := st.Info(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), groups)
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme.RenderInfo(args[0], groups))
			return nil
		},
	}
	cmd.Flags().Int("limit", 0, "Show only the last N entries of dated columns")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newOverviewCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Show every active list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			overview, err := st.Overview(cmd.Context(), sessionFrom(cmd).cfg.View.Limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), overview)
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme.RenderOverview(overview))
			return nil
		},
	}
	cmd.Flags().Int("limit", 10, "Show only the last N entries of dated columns")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newAddCommand() *cobra.Command {
	var (
		status   string
		position string
		date     string
	)

	cmd := &cobra.Command{
		Use:   "add <list> <name>",
		Short: "Add an entry to a list",
		Long: `Add an entry to a list.

In a ranked column the entry is placed at --position (default: the end) and
later entries move down. In a dated column it gets --date (default: today).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			ctx := cmd.Context()

			statusID, err := resolveStatus(ctx, st, args[0], status)
			if err != nil {
				return err
			}
			pos, err := model.ParseOptionalInt(position)
			if err != nil {
				return err
			}
			day, err := model.ParseOptionalDate(date)
			if err != nil {
				return err
			}

			insert := model.InsertCommand{Name: args[1], StatusID: statusID, Position: pos, Date: day}
			if err := st.Insert(ctx, insert, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q to %s\n", strings.TrimSpace(args[1]), args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", model.StatusPlanned, "Status column, by name or id")
	cmd.Flags().StringVarP(&position, "position", "p", "", "Rank in a ranked column")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD) in a dated column")
	return cmd
}

func newMoveCommand() *cobra.Command {
	var (
		toList   string
		status   string
		position string
		date     string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "move <list> <id>",
		Short: "Rename, reorder or move an entry",
		Long: `Rename, reorder or move an entry.

Without --to-list and --status the entry stays in its column and --position
reorders it. Changing list or status moves it; its rank in the destination
is resolved from --position there.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			ctx := cmd.Context()

			id, err := model.ParseID(args[1])
			if err != nil {
				return err
			}
			row, err := findEntry(ctx, st, args[0], id)
			if err != nil {
				return err
			}

			old := model.EntryFields{
				ListID:   row.ListID,
				StatusID: row.StatusID,
				Position: row.Position,
				Date:     row.Date,
				Name:     row.Name,
			}
			next := old
			destName := args[0]

			if cmd.Flags().Changed("to-list") {
				dest, err := st.List(ctx, toList)
				if err != nil {
					return err
				}
				next.ListID = dest.ID
				destName = dest.Name
			}
			if cmd.Flags().Changed("status") {
				if next.StatusID, err = resolveStatus(ctx, st, destName, status); err != nil {
					return err
				}
			}
			if !old.SamePartition(next) {
				next.Position = nil
				next.Date = nil
			}
			if cmd.Flags().Changed("position") {
				if next.Position, err = model.ParseOptionalInt(position); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("date") {
				if next.Date, err = model.ParseOptionalDate(date); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("name") {
				next.Name = name
			}

			dest, err := st.UpdateOrMove(ctx, model.UpdateCommand{ID: id, Old: old, New: next})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entry %d is in %s\n", id, dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&toList, "to-list", "", "Destination list")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Destination status, by name or id")
	cmd.Flags().StringVarP(&position, "position", "p", "", "New rank")
	cmd.Flags().StringVarP(&date, "date", "d", "", "New date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "New name")
	return cmd
}

func newRemoveCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:     "rm <list> <id>",
		Aliases: []string{"remove"},
		Short:   "Remove an entry",
		Long: `Remove an entry and close the gap it leaves.

With --name the entry is only removed when its stored name matches.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			ctx := cmd.Context()

			id, err := model.ParseID(args[1])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				row, err := findEntry(ctx, st, args[0], id)
				if err != nil {
					return err
				}
				name = row.Name
			}

			if err := st.Delete(ctx, model.DeleteCommand{ID: id, Name: name}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed entry %d from %s\n", id, args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Expected entry name")
	return cmd
}

// findEntry looks an entry up among the rows of a list.
func findEntry(ctx context.Context, st store.Store, listName string, id int64) (*model.EntryRow, error) {
	groups, err := st.Info(ctx, listName, 0)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		for _, r := range g.Rows {
			if r.ID == id {
				return &r, nil
			}
		}
	}
	return nil, fmt.Errorf("entry %d in %s: %w", id, listName, store.ErrNotFound)
}

// resolveStatus maps a status name or id onto a column of the list.
func resolveStatus(ctx context.Context, st store.Store, listName, raw string) (int64, error) {
	cols, err := st.Statuses(ctx, listName)
	if err != nil {
		return 0, err
	}
	raw = strings.TrimSpace(raw)
	id, idErr := strconv.ParseInt(raw, 10, 64)
	for _, c := range cols {
		if (idErr == nil && c.ID == id) || strings.EqualFold(c.Name, raw) {
			return c.ID, nil
		}
	}
	return 0, fmt.Errorf("status %q in %s: %w", raw, listName, store.ErrNotFound)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
