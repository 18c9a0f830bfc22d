package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/celestiaorg/jobdesk/internal/api/v1/client"
	"github.com/celestiaorg/jobdesk/internal/config"
	"github.com/celestiaorg/jobdesk/internal/logger"
	"github.com/celestiaorg/jobdesk/internal/metrics"
)

// flag names
const (
	flagServerAddress = "server-address"
	flagTimeout       = "timeout"
	flagOutput        = "output"
	flagMetricsAddr   = "metrics-addr"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// appConfig is the loaded configuration with flag overrides applied
	appConfig config.Config
	// collector records metrics for the running command
	collector *metrics.Collector
	// metricsApp serves /metrics when --metrics-addr is set
	metricsApp *fiber.App

	// newAPIClient builds the client; tests replace it with one returning a mock
	newAPIClient = client.NewClient
)

// NewRootCmd builds the jobdesk command tree
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobdesk",
		Short: "jobdesk - browse scraped jobs and manage generated proposals",
		Long: `jobdesk is a command line client for the proposal backend. It browses scraped
job postings, drives proposal generation, edits and saves drafts, applies to
jobs and manages the proposal prompt.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	cmd.PersistentFlags().StringP(flagServerAddress, "s", "", "Address of the proposal backend (env: JOBDESK_SERVER_ADDRESS)")
	cmd.PersistentFlags().Duration(flagTimeout, 0, "Backend request timeout (default 30s)")
	cmd.PersistentFlags().StringP(flagOutput, "o", outputJSON, "Output format: json or yaml")
	cmd.PersistentFlags().String(flagMetricsAddr, "", "Serve Prometheus metrics on this address while the command runs")

	cmd.AddCommand(newJobsCmd())
	cmd.AddCommand(newProposalCmd())
	cmd.AddCommand(newPromptsCmd())
	cmd.AddCommand(newMetricsCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command; canceling ctx stops long running commands
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// setup loads configuration, applies flag overrides and creates the client.
// Precedence: flag > environment > config file > default.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed(flagServerAddress) {
		cfg.API.BaseURL, _ = flags.GetString(flagServerAddress)
	}
	if flags.Changed(flagTimeout) {
		cfg.API.Timeout, _ = flags.GetDuration(flagTimeout)
	}
	if flags.Changed(flagMetricsAddr) {
		cfg.Metrics.Addr, _ = flags.GetString(flagMetricsAddr)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := outputFormat(cmd); err != nil {
		return err
	}

	logger.InitializeAndConfigure(cfg.LogLevel, cfg.LogJSON)
	logger.Debugf("jobdesk server address: %s", cfg.API.BaseURL)

	appConfig = cfg
	collector = metrics.NewCollector()

	opts := client.DefaultOptions()
	opts.BaseURL = cfg.API.BaseURL
	opts.AuthToken = cfg.API.Token
	opts.Metrics = collector
	if cfg.API.Timeout > 0 {
		opts.Timeout = cfg.API.Timeout
	}
	apiClient, err = newAPIClient(opts)
	if err != nil {
		return fmt.Errorf("error creating API client: %w", err)
	}

	// metrics serve runs its own listener
	if cfg.Metrics.Addr != "" && cmd.Name() != metricsServeName {
		metricsApp = collector.NewServer()
		go func(app *fiber.App, addr string) {
			if err := app.Listen(addr); err != nil {
				logger.Errorf("Metrics server stopped: %v", err)
			}
		}(metricsApp, cfg.Metrics.Addr)
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if metricsApp == nil {
		return nil
	}
	err := metricsApp.ShutdownWithTimeout(5 * time.Second)
	metricsApp = nil
	return err
}

// commandContext returns a cancelable context for a command's remote work.
// Individual requests are bounded by the client timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithCancel(cmd.Context())
}
