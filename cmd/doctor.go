package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kamal-hamza/nftgrab/pkg/config"
	"github.com/kamal-hamza/nftgrab/pkg/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of your nftgrab installation",
	Long: `Diagnose issues with your nftgrab setup.

Checks for:
  - Data directory and run database
  - Configuration file existence
  - API key availability
  - Download directory permissions`,
	Args: cobra.NoArgs,
	Run:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) {
	fmt.Println(ui.FormatTitle("🏥 nftgrab Doctor"))
	fmt.Println()

	// 1. Check Workspace
	checkStep("Data Directory", func() error {
		if !appWorkspace.Exists() {
			return fmt.Errorf("not found at %s", appWorkspace.RootPath)
		}
		return nil
	})

	checkStep("Run Database", func() error {
		ctx, stop := getContext()
		defer stop()
		if _, err := assetStore.ListRuns(ctx, 1); err != nil {
			return fmt.Errorf("unreadable at %s: %w", appWorkspace.DatabasePath(), err)
		}
		return nil
	})

	// 2. Check Config
	checkStep("Configuration File", func() error {
		if _, err := os.Stat(appWorkspace.ConfigPath); os.IsNotExist(err) {
			return fmt.Errorf("missing at %s", appWorkspace.ConfigPath)
		}
		return nil
	})

	checkStep("API Key", func() error {
		if config.APIKeyFromEnv() == "" {
			return fmt.Errorf("not in environment (set NFTGRAB_API_KEY or pass --api-key)")
		}
		return nil
	})

	// 3. Check Download Directory
	checkStep("Download Directory", func() error {
		dir := appConfig.DownloadDir
		if dir == "" {
			dir = appWorkspace.ImagesPath
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create %s", dir)
		}
		probe, err := os.CreateTemp(dir, ".nftgrab-doctor-*")
		if err != nil {
			return fmt.Errorf("not writable: %s", dir)
		}
		probe.Close()
		os.Remove(probe.Name())
		return nil
	})

	// 4. Check Environment
	checkStep("Interactive Terminal", func() error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("stdout is not a terminal (plain progress will be used)")
		}
		return nil
	})

	checkStep("Clipboard", func() error {
		if clipboard.Unsupported {
			return fmt.Errorf("unsupported (needed by 'nftgrab assets')")
		}
		return nil
	})

	fmt.Println()
	fmt.Println(ui.FormatMuted("Log file: " + filepath.Clean(appWorkspace.LogPath())))
}

// checkStep runs a check function and prints the result nicely
func checkStep(name string, check func() error) {
	err := check()
	if err == nil {
		fmt.Printf("%s %s\n", ui.FormatSuccess("✔"), name)
	} else {
		fmt.Printf("%s %s\n", ui.FormatError("✘"), name)
		fmt.Printf("    %s\n", ui.StyleMuted.Render(err.Error()))
	}
}
