package cmd

import (
	"fmt"
	"log/slog"

	"github.com/duocap/duocap/internal/server"
	"github.com/duocap/duocap/internal/service"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control server",
	Long: `Run the DuoCap control server. Recording can then be started and
stopped over a JSON API, which is how a separate UI process drives the
recorder. The stop endpoint returns the full session report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		provider := newProvider()
		if !provider.Available() {
			slog.Warn("ffmpeg not found; start requests will fail until it is installed",
				"ffmpeg_path", cfg.Capture.FFmpegPath)
		}

		svc := service.New(cfg, provider)
		srv := server.New(svc, port)

		slog.Info("DuoCap control server starting", "port", port, "output_dir", cfg.Output.Directory)

		if err := srv.Start(); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "port for the control server")
}
