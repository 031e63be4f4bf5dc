// Package cli provides the grabdocs command line: batch ingestion, queries,
// file management, the folder watcher and the HTTP, MCP and TUI front ends.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/grabdocs/internal/adapters/driven/ai"
	"github.com/custodia-labs/grabdocs/internal/adapters/driven/config/file"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driving"
	"github.com/custodia-labs/grabdocs/internal/core/services"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// annotationInit selects how much of the stack a command needs.
const (
	annotationInit = "grabdocs/init"
	initNone       = "none"
	initSettings   = "settings"
)

var (
	verbose   bool
	ownerID   string
	configDir string
)

// Handles built by PersistentPreRunE. Tests assign them directly.
var (
	settingsService driving.SettingsService
	ingestService   driving.IngestService
	queryService    driving.QueryService
	fileService     driving.FileService
	linkService     driving.LinkService

	pipelineWorkers = domain.DefaultWorkers
	defaultTopK     = domain.DefaultTopK

	active           *wiring
	servicesInjected bool
)

var errNotConfigured = errors.New("services not configured")

var rootCmd = &cobra.Command{
	Use:   "grabdocs",
	Short: "Upload files, then ask questions about them",
	Long: `grabdocs stores uploaded files, classifies them as documents, receipts
or forms, splits them into overlapping chunks and indexes the chunks for
semantic retrieval. Queries can be scoped to specific files or to a kind.

Configuration lives in ~/.grabdocs/config.toml. Any key can be overridden
with a GRABDOCS_* environment variable, and a .env file in the working
directory is loaded first.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupServices,
	PersistentPostRunE: teardownServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "trace pipeline stages to stderr")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", defaultOwner(), "owner identity files are stored under (env GRABDOCS_OWNER)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", os.Getenv("GRABDOCS_HOME"), "configuration directory (default ~/.grabdocs)")
}

func defaultOwner() string {
	if v := strings.TrimSpace(os.Getenv("GRABDOCS_OWNER")); v != "" {
		return v
	}
	return "local"
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails.
	if closeErr := teardownServices(nil, nil); err == nil {
		err = closeErr
	}
	return err
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if servicesInjected {
		return nil
	}

	level := cmd.Annotations[annotationInit]
	if level == initNone {
		return nil
	}

	// A missing .env file is normal.
	_ = godotenv.Load()

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("config store: %w", err)
	}
	settingsService = services.NewSettingsService(store, ai.NewConfigValidator())
	if level == initSettings {
		return nil
	}

	if strings.TrimSpace(ownerID) == "" {
		return domain.ErrOwnerRequired
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := settingsService.Validate(); err != nil {
		return err
	}

	w, err := buildServices(cmd.Context(), settings)
	if err != nil {
		return err
	}
	for _, warning := range w.warnings {
		logger.Warn("%s", warning)
	}

	active = w
	ingestService = w.pipeline
	queryService = w.pipeline
	fileService = w.files
	linkService = w.links
	pipelineWorkers = settings.Pipeline.Workers
	if settings.Retrieval.TopK > 0 {
		defaultTopK = settings.Retrieval.TopK
	}
	return nil
}

func teardownServices(_ *cobra.Command, _ []string) error {
	if active == nil {
		return nil
	}
	err := active.Close()
	active = nil
	return err
}
