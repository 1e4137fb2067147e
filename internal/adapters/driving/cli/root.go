// Package cli provides the docket command line interface.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/custodia-labs/docket/internal/core/ports/driving"
)

// Services holds the driving ports the commands use.
type Services struct {
	Ingest   driving.IngestService
	Search   driving.SearchService
	Document driving.DocumentService
	Logger   *zap.Logger

	// Workers is the default ingestion concurrency.
	Workers int

	// ServerAddr is the default MCP HTTP address.
	ServerAddr string

	// Close releases stores and providers.
	Close func() error
}

// App wires the commands to the composition root.
type App struct {
	// Version is printed by the version command.
	Version string

	// Settings opens the configuration only. It must not require a valid
	// configuration, so that config set can repair one.
	Settings func(configPath string) (driving.SettingsService, error)

	// Services builds the full pipeline from the configuration.
	Services func(ctx context.Context, configPath string, verbose bool) (*Services, error)
}

var (
	app        App
	configPath string
	verbose    bool

	// Lazily built; tests assign them directly.
	services        *Services
	settingsService driving.SettingsService
)

var rootCmd = &cobra.Command{
	Use:   "docket",
	Short: "Document ingestion and retrieval",
	Long: `docket ingests PDFs and scanned images, splits their text into chunks,
embeds them and answers semantic queries over the stored chunks.

Documents belong to an application reference. Search, text and list
operations are also exposed as MCP tools by "docket mcp".`,
	SilenceUsage: true,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeServices()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.docket/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute(ctx context.Context, a App) error {
	app = a
	defer closeServices() //nolint:errcheck
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// loadServices builds the pipeline on first use.
func loadServices(cmd *cobra.Command) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if app.Services == nil {
		return nil, errors.New("services not configured")
	}
	s, err := app.Services(cmd.Context(), configPath, verbose)
	if err != nil {
		return nil, err
	}
	services = s
	return services, nil
}

// loadSettings opens the configuration on first use.
func loadSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	if app.Settings == nil {
		return nil, errors.New("settings service not configured")
	}
	s, err := app.Settings(configPath)
	if err != nil {
		return nil, err
	}
	settingsService = s
	return settingsService, nil
}

func closeServices() error {
	if services == nil || services.Close == nil {
		return nil
	}
	closeFn := services.Close
	services.Close = nil
	return closeFn()
}
