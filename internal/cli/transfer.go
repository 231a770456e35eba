package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nhle/checklist/internal/model"
)

func newExportCommand() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of all lists, statuses and entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := model.FormatJSON
			switch {
			case cmd.Flags().Changed("format"):
				var err error
				if f, err = model.ParseFormat(format); err != nil {
					return err
				}
			case output != "":
				f = model.FormatFromPath(output)
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := st.Export(cmd.Context())
			if err != nil {
				return err
			}
			data, err := snap.Encode(f)
			if err != nil {
				return fmt.Errorf("encoding snapshot: %w", err)
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d entries to %s\n", len(snap.Entries), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Snapshot format (json|yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newImportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all data with a snapshot",
		Long: `Replace all data with a snapshot.

Accepts snapshots written by export as well as the legacy flat format, where
entries are grouped by list name and the sign of the position selects the
status: positive is Planned, zero is Done, negative is Dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			f := model.FormatFromPath(args[0])
			if cmd.Flags().Changed("format") {
				if f, err = model.ParseFormat(format); err != nil {
					return err
				}
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := model.DecodeSnapshot(data, f, model.FormatDate(nowFunc()))
			if err != nil {
				return err
			}
			if err := st.Import(cmd.Context(), snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d lists and %d entries\n", len(snap.Lists), len(snap.Entries))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Snapshot format (json|yaml), default from extension")
	return cmd
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify every ranked column is numbered 1..N",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			violations, err := st.CheckDensity(cmd.Context())
			if err != nil {
				return err
			}
			if len(violations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All ranked columns are consistent")
				return nil
			}
			for _, v := range violations {
				fmt.Fprintf(cmd.OutOrStdout(), "list %d status %d: positions %v\n",
					v.Partition.ListID, v.Partition.StatusID, v.Positions)
			}
			return fmt.Errorf("%d ranked column(s) are not numbered 1..N", len(violations))
		},
	}
}

// decodeByExtension decodes a JSON or YAML file into v using v's JSON
// field names for both.
func decodeByExtension(path string, data []byte, v any) error {
	if model.FormatFromPath(path) == model.FormatYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%w: decoding %s: %v", model.ErrMalformedInput, path, err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("%w: decoding %s: %v", model.ErrMalformedInput, path, err)
		}
		data = converted
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", model.ErrMalformedInput, path, err)
	}
	return nil
}
