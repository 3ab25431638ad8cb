package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/nftgrab/pkg/config"
	"github.com/kamal-hamza/nftgrab/pkg/ui"
)

var configEdit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the nftgrab configuration",
	Long: `Show the effective configuration (file plus NFTGRAB_* environment).

Use --edit to open the config file in $EDITOR.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVarP(&configEdit, "edit", "e", false, "Open the config file in $EDITOR")
}

func runConfig(cmd *cobra.Command, args []string) error {
	path := appWorkspace.ConfigPath

	if configEdit {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("config file not found at %s", path)
		}

		fmt.Println(ui.FormatInfo("Opening config: " + path))

		c := exec.Command(GetPreferredEditor(), path)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	}

	fmt.Println(ui.FormatTitle("Configuration"))
	fmt.Println()
	for _, kv := range configRows(appConfig) {
		fmt.Println(ui.RenderKeyValue(kv[0], kv[1]))
	}
	fmt.Println()
	fmt.Println(ui.FormatMuted("File: " + path))

	return nil
}

// configRows lists the effective settings; the API key only shows whether it is set
func configRows(cfg *config.Config) [][2]string {
	downloadDir := cfg.DownloadDir
	if downloadDir == "" {
		downloadDir = "(per collection under " + appWorkspace.ImagesPath + ")"
	}

	apiKey := "not set"
	if config.APIKeyFromEnv() != "" {
		apiKey = "set (environment)"
	}

	return [][2]string{
		{"api_base_url", cfg.APIBaseURL},
		{"ipfs_gateway", cfg.IPFSGateway},
		{"download_dir", downloadDir},
		{"token_limit", strconv.Itoa(cfg.TokenLimit)},
		{"request_delay_ms", strconv.Itoa(cfg.RequestDelayMS)},
		{"download_timeout_sec", strconv.Itoa(cfg.DownloadTimeoutSec)},
		{"log_level", cfg.LogLevel},
		{"log_max_size_mb", strconv.Itoa(cfg.LogMaxSizeMB)},
		{"log_max_backups", strconv.Itoa(cfg.LogMaxBackups)},
		{"color_theme", cfg.ColorTheme},
		{"plain_output", strconv.FormatBool(cfg.PlainOutput)},
		{"api key", apiKey},
	}
}
