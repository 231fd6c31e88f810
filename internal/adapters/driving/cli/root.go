// Package cli implements the ragpipe command line on top of the driving ports.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragpipe/internal/core/ports/driving"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// skipBootstrap marks commands that run without any service.
const skipBootstrap = "skip-bootstrap"

// Service instances used by the commands. They are set by SetServices or
// built lazily by the bootstrap function before the first command runs.
var (
	ingestionService  driving.IngestionService
	retrievalService  driving.RetrievalService
	collectionService driving.CollectionService
	settingsService   driving.SettingsService
	configChecker     func(ctx context.Context) []ConfigCheck
	servicesErr       error
	closeServices     func() error
	servicesReady     bool
)

var (
	rootVerbose   bool
	rootConfigDir string
	rootInMemory  bool
)

// Options are the global flags handed to the bootstrap function.
type Options struct {
	// ConfigDir holds config.toml, prompts and data. Empty means ~/.ragpipe.
	ConfigDir string

	// InMemory keeps vectors in memory instead of on disk.
	InMemory bool
}

// ConfigCheck is the outcome of validating one configured component.
type ConfigCheck struct {
	Component string
	Err       error
}

// Services groups what the commands need.
type Services struct {
	Ingestion   driving.IngestionService
	Retrieval   driving.RetrievalService
	Collection  driving.CollectionService
	Settings    driving.SettingsService
	CheckConfig func(ctx context.Context) []ConfigCheck

	// Err explains why the AI services could not be built. Settings stay
	// usable so the configuration can be fixed from the command line.
	Err error

	Close func() error
}

// BootstrapFunc builds the services from the global flags.
type BootstrapFunc func(opts Options) (*Services, error)

var bootstrap BootstrapFunc

// SetBootstrap registers the function that builds services on first use.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices injects services directly, bypassing the bootstrap function.
func SetServices(s *Services) {
	if s == nil {
		ingestionService = nil
		retrievalService = nil
		collectionService = nil
		settingsService = nil
		configChecker = nil
		servicesErr = nil
		closeServices = nil
		servicesReady = false
		return
	}
	ingestionService = s.Ingestion
	retrievalService = s.Retrieval
	collectionService = s.Collection
	settingsService = s.Settings
	configChecker = s.CheckConfig
	servicesErr = s.Err
	closeServices = s.Close
	servicesReady = true
}

var rootCmd = &cobra.Command{
	Use:   "ragpipe",
	Short: "Question answering over your documents",
	Long: `ragpipe indexes PDF, Markdown and text files into a vector store and
answers questions about them with citations to the pages they came from.

Documents are ingested incrementally: chunks that are already indexed are
skipped, so re-running ingest only embeds what changed.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepareServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootConfigDir, "config-dir", "", "configuration directory (default ~/.ragpipe)")
	rootCmd.PersistentFlags().BoolVar(&rootInMemory, "memory", false, "keep vectors in memory for this run")
}

func prepareServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(rootVerbose)

	if servicesReady || bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}

	s, err := bootstrap(Options{ConfigDir: rootConfigDir, InMemory: rootInMemory})
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	SetServices(s)
	if servicesErr != nil {
		logger.Warn("%v", servicesErr)
	}
	return nil
}

// Execute runs the root command and releases the services afterwards.
func Execute(ctx context.Context) error {
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("closing services: %v", err)
			}
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// notConfigured reports a missing service, with the bootstrap error if any.
func notConfigured(name string) error {
	if servicesErr != nil {
		return fmt.Errorf("%s service not configured: %w", name, servicesErr)
	}
	return errors.New(name + " service not configured")
}
