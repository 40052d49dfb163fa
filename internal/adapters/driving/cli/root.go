// Package cli provides the concierge command line interface.
package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/concierge/internal/core/ports/driving"
	"github.com/custodia-labs/concierge/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services holds the driving ports the commands call.
type Services struct {
	Answer   driving.AnswerService
	Index    driving.IndexService
	Sync     driving.SyncService
	Stats    driving.StatsService
	Settings driving.SettingsService

	// Metrics serves the Prometheus exposition. Optional.
	Metrics http.Handler
}

// LoadOptions tells the loader what a command needs.
type LoadOptions struct {
	Home         string
	Ephemeral    bool
	SettingsOnly bool
	DocsDir      string
	QAFile       string
}

// Loader builds the services for a command. The returned function
// releases them.
type Loader func(ctx context.Context, opts LoadOptions) (*Services, func() error, error)

var (
	loader    Loader
	services  *Services
	closeFunc func() error

	verboseFlag   bool
	homeFlag      string
	ephemeralFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Tiered, confidence-aware institutional Q&A",
	Long: `Concierge answers questions about an institution from curated
rules, a curated Q&A list and a document corpus. Each query is classified,
routed to the cheapest strategy that can answer it and escalated when
confidence is low. When nothing is confident enough it declines.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verboseFlag {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "concierge home directory (default ~/.concierge)")
	rootCmd.PersistentFlags().BoolVar(&ephemeralFlag, "ephemeral", false, "keep all state in memory, including settings changes")
}

// SetLoader sets the function that builds services on first use.
func SetLoader(l Loader) {
	loader = l
}

// SetServices sets ready-made services, bypassing the loader.
func SetServices(s *Services) {
	services = s
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases any services it loaded.
func Execute() error {
	defer release()
	return rootCmd.Execute()
}

// requireServices returns the configured services, loading them on first use.
func requireServices(cmd *cobra.Command, opts LoadOptions) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if loader == nil {
		return nil, errors.New("services not configured")
	}
	opts.Home = homeFlag
	opts.Ephemeral = opts.Ephemeral || ephemeralFlag

	s, closer, err := loader(cmd.Context(), opts)
	if err != nil {
		return nil, err
	}
	services, closeFunc = s, closer
	return s, nil
}

func release() {
	if closeFunc == nil {
		return
	}
	if err := closeFunc(); err != nil {
		logger.Warn("Failed to release resources: %v", err)
	}
	services, closeFunc = nil, nil
}
