package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/jobdesk/internal/logger"
)

const (
	metricsServeName   = "serve"
	flagAddr           = "addr"
	defaultMetricsAddr = ":9090"
)

func newMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Expose client metrics",
	}
	cmd.AddCommand(newMetricsServeCmd())
	return cmd
}

func newMetricsServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   metricsServeName,
		Short: "Serve Prometheus metrics on /metrics until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString(flagAddr)
			if !cmd.Flags().Changed(flagAddr) && appConfig.Metrics.Addr != "" {
				addr = appConfig.Metrics.Addr
			}

			app := collector.NewServer()
			errCh := make(chan error, 1)
			go func() {
				errCh <- app.Listen(addr)
			}()
			logger.Infof("Serving metrics on %s/metrics", addr)

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("error serving metrics: %w", err)
				}
				return nil
			case <-cmd.Context().Done():
				return app.Shutdown()
			}
		},
	}
	cmd.Flags().String(flagAddr, defaultMetricsAddr, "Listen address")
	return cmd
}
