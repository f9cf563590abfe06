package cmd

import (
	"github.com/curaious/trellis/internal/api"
	"github.com/curaious/trellis/internal/config"
	"github.com/curaious/trellis/internal/telemetry"
	"github.com/spf13/cobra"
)

var apiServerCmd = &cobra.Command{
	Use:   "api-server",
	Short: "Start the trellis API server",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		s := api.New()
		s.Start()
	},
}

// Register the "api-server" command
func init() {
	rootCmd.AddCommand(apiServerCmd)
}
