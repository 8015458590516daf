package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadcheck/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for upload-and-classify requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		delimiter, _ := cfg.Export.DelimiterRune()

		fields, err := loadSchema()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
		}

		srv := server.New(server.Options{
			Fields:         fields,
			Thresholds:     cfg.Match.Thresholds,
			Workers:        cfg.Batch.Workers,
			Store:          st,
			OutDir:         cfg.Export.OutputDir,
			Delimiter:      delimiter,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})
		return srv.ListenAndServe(ctx, cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
