package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/nftgrab/internal/adapters/opensea"
	"github.com/kamal-hamza/nftgrab/internal/adapters/repository"
	"github.com/kamal-hamza/nftgrab/internal/core/ports"
	"github.com/kamal-hamza/nftgrab/internal/core/services"
	"github.com/kamal-hamza/nftgrab/pkg/config"
	"github.com/kamal-hamza/nftgrab/pkg/logging"
	"github.com/kamal-hamza/nftgrab/pkg/ui"
	"github.com/kamal-hamza/nftgrab/pkg/workspace"
)

var (
	// Global workspace and configuration
	appWorkspace *workspace.Workspace
	appConfig    *config.Config
	appLogger    *log.Logger
	logCloser    io.Closer

	// Store
	assetStore *repository.SQLiteStore

	// Services
	fetchService  *services.FetchService
	exportService *services.ExportService
	reportService *services.ReportService
	session       *services.Session

	// Global flags
	plainOutput bool
	logLevel    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nftgrab",
	Short: "nftgrab - OpenSea collection downloader",
	Long: ui.StyleTitle.Render("nftgrab") + " - OpenSea Collection Downloader\n\n" +
		"Fetches every token of an OpenSea collection, saves each image to disk\n" +
		"and exports the combined metadata to CSV.",
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "Plain line output instead of the interactive progress bar")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// initializeApp initializes the application components
func initializeApp(cmd *cobra.Command, args []string) error {
	// Version needs nothing
	if cmd.Name() == "version" {
		return nil
	}

	ws, err := workspace.New()
	if err != nil {
		return fmt.Errorf("failed to initialize workspace: %w", err)
	}
	if err := ws.Initialize(); err != nil {
		return err
	}
	appWorkspace = ws

	cfg, err := config.Load(ws.ConfigPath)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(ws.ConfigPath); os.IsNotExist(statErr) {
		// First run: write the defaults so they can be edited
		if err := cfg.Save(ws.ConfigPath); err != nil {
			fmt.Println(ui.FormatWarning("Could not write default config: " + err.Error()))
		}
	}
	if err := config.LoadDotEnv(); err != nil {
		fmt.Println(ui.FormatWarning("Could not read .env: " + err.Error()))
	}
	cfg.ApplyEnv()
	if cmd.Flags().Changed("plain") {
		cfg.PlainOutput = plainOutput
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	appConfig = cfg

	ui.SetTheme(cfg.ColorTheme)

	logger, closer, err := logging.New(logging.Options{
		Path:       ws.LogPath(),
		Level:      cfg.LogLevel,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	appLogger = logger
	logCloser = closer

	store, err := repository.OpenSQLiteStore(ws.DatabasePath(), logger)
	if err != nil {
		return fmt.Errorf("failed to open run database: %w", err)
	}
	assetStore = store

	fetchService, exportService, reportService = buildServices(cfg, store, logger)
	session = services.NewSession(fetchService, exportService)

	return nil
}

// buildServices wires the core services to their adapters
func buildServices(cfg *config.Config, store ports.AssetStore, logger log.FieldLogger) (*services.FetchService, *services.ExportService, *services.ReportService) {
	newMarket := func(apiKey string) ports.Marketplace {
		return opensea.NewClient(cfg.APIBaseURL, apiKey, cfg.DownloadTimeout())
	}
	images := services.NewDownloadService(cfg.DownloadTimeout(), cfg.IPFSGateway, logger)

	fetch := services.NewFetchService(newMarket, images, store, logger, services.FetchOptions{
		TokenLimit:   cfg.TokenLimit,
		RequestDelay: cfg.RequestDelay(),
	})
	export := services.NewExportService(store, logger)
	report := services.NewReportService(store, logger)

	return fetch, export, report
}

// shutdownApp releases the database and log file
func shutdownApp(cmd *cobra.Command, args []string) error {
	if assetStore != nil {
		assetStore.Close()
	}
	if logCloser != nil {
		logCloser.Close()
	}
	return nil
}

// getContext returns a context that is cancelled on interrupt
func getContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
