package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/theme"
)

func newListsCommand() *cobra.Command {
	var (
		all    bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Show lists in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			var lists []model.List
			if all {
				lists, err = st.AllLists(cmd.Context())
			} else {
				lists, err = st.Tables(cmd.Context())
			}
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), lists)
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme.RenderLists(lists))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include inactive lists")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	cmd.AddCommand(newListsAddCommand())
	cmd.AddCommand(newListsColumnsCommand())
	return cmd
}

func newListsAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>...",
		Short: "Create lists at the end of the display order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			ctx := cmd.Context()

			existing, err := st.AllLists(ctx)
			if err != nil {
				return err
			}
			var settings model.SettingsCommand
			for _, l := range existing {
				settings.Lists = append(settings.Lists, model.ListSetting{ID: l.ID, Name: l.Name, Active: l.Active})
			}
			for _, name := range args {
				settings.Lists = append(settings.Lists, model.ListSetting{Name: name, Active: true})
			}

			res, err := st.ApplySettings(ctx, settings)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d list(s)\n", res.ListsInserted)
			return nil
		},
	}
}

func newListsColumnsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "columns <list> <status-id>...",
		Short: "Set which statuses a list shows, in order",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args)-1)
			for _, raw := range args[1:] {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					return fmt.Errorf("%w: status id %q", model.ErrMalformedInput, raw)
				}
				ids = append(ids, id)
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SetListStatuses(cmd.Context(), args[0], ids); err != nil {
				return err
			}
			cols, err := st.Statuses(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cols)
		},
	}
}

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print lists, statuses and columns as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			settings, err := st.GetSettings(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), settings)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "apply <file>",
		Short: "Apply a settings file of lists and statuses in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			var settings model.SettingsCommand
			if err := decodeByExtension(args[0], data, &settings); err != nil {
				return err
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := st.ApplySettings(cmd.Context(), settings)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	})
	return cmd
}
