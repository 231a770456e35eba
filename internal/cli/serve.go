package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/checklist/internal/audit"
	"github.com/nhle/checklist/internal/server"
)

// nowFunc is the clock used for defaults such as today's date.
var nowFunc = time.Now

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess := sessionFrom(cmd)

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			auditor := audit.New(st, time.Duration(sess.cfg.Audit.IntervalSec)*time.Second, sess.logger)
			auditor.Start(ctx)
			defer auditor.Stop()

			srv := server.New(server.Config{
				Store:     st,
				Addr:      sess.cfg.Server.Addr,
				ViewLimit: sess.cfg.View.Limit,
				Logger:    sess.logger,
				Auditor:   auditor,
			})
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().Int("limit", 10, "Default row limit of dated columns in the overview")
	cmd.Flags().Int("audit", 3600, "Seconds between background ranking checks (0 disables)")
	return cmd
}
