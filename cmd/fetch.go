package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
	"github.com/kamal-hamza/nftgrab/internal/core/services"
	"github.com/kamal-hamza/nftgrab/pkg/config"
	"github.com/kamal-hamza/nftgrab/pkg/ui"
)

var (
	fetchDir    string
	fetchAPIKey string
	fetchExport string
	fetchLimit  int
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <collection-slug>",
	Short: "Fetch a collection and download every image",
	Long: `Fetch every token of an OpenSea collection and download its images.

The slug is resolved to the collection's contract, then token IDs
0 through 7776 are requested one at a time. Missing tokens are skipped.
Each image is saved as <name><ext> in the download directory.

The API key is read from --api-key, NFTGRAB_API_KEY or OPENSEA_API_KEY
(a .env file in the working directory is honoured), or prompted for.
It is never written to disk.

Examples:
  nftgrab fetch boredapeyachtclub
  nftgrab fetch cool-cats -d ./cats --export cats.csv
  nftgrab fetch cool-cats --limit 100 --plain`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchDir, "dir", "d", "", "Download directory (default: config download_dir or the data directory)")
	fetchCmd.Flags().StringVar(&fetchAPIKey, "api-key", "", "OpenSea API key")
	fetchCmd.Flags().StringVarP(&fetchExport, "export", "e", "", "Export metadata to this CSV file when the fetch completes")
	fetchCmd.Flags().IntVarP(&fetchLimit, "limit", "n", 0, "Only try the first N token IDs")
}

func runFetch(cmd *cobra.Command, args []string) error {
	slug := strings.TrimSpace(args[0])

	dir := fetchDir
	if dir == "" {
		dir = appConfig.DownloadDir
	}
	if dir == "" {
		dir = appWorkspace.DefaultImageDir(slug)
	}

	apiKey, err := config.ResolveAPIKey(fetchAPIKey, config.TerminalPrompter(os.Stdin, os.Stderr))
	if err != nil {
		printFetchError(err)
		return err
	}

	ctx, stop := getContext()
	defer stop()

	req := services.FetchRequest{
		Slug:       slug,
		Directory:  dir,
		APIKey:     apiKey,
		TokenLimit: fetchLimit,
	}

	total := fetchService.TokenLimit()
	if fetchLimit > 0 && fetchLimit < total {
		total = fetchLimit
	}

	fmt.Println(ui.FormatRocket("Fetching collection " + slug + "..."))
	fmt.Println()
	fmt.Println(ui.RenderKeyValue("Directory", dir))
	fmt.Println(ui.RenderKeyValue("Token IDs", fmt.Sprintf("0-%d", total-1)))
	fmt.Println()

	progressChan := make(chan services.FetchProgress, 16)

	resultChan := make(chan *services.FetchResponse, 1)
	errorChan := make(chan error, 1)

	go func() {
		resp, err := session.Fetch(ctx, req, progressChan)
		resultChan <- resp
		errorChan <- err
	}()

	showProgress("Fetching "+slug, fetchUpdates(progressChan), stop)

	resp := <-resultChan
	err = <-errorChan

	if err != nil && !errors.Is(err, context.Canceled) {
		printFetchError(err)
		return err
	}

	fmt.Println()
	if errors.Is(err, context.Canceled) {
		fmt.Println(ui.FormatWarning("Fetch interrupted. Assets fetched so far are kept."))
		if resp == nil {
			return err
		}
	} else if resp.Empty {
		fmt.Println(ui.FormatWarning("No assets found for this collection."))
		return nil
	} else {
		fmt.Println(ui.FormatSuccess(fmt.Sprintf("Fetch and download completed. Total assets: %d", resp.Collection.Len())))
	}
	printRunSummary(resp.Run)

	if fetchExport != "" && resp != nil && !resp.Empty {
		// Partial results are still exported after an interrupt
		if exportErr := exportTo(context.WithoutCancel(ctx), fetchExport); exportErr != nil {
			return exportErr
		}
	}
	return err
}

// fetchUpdates translates fetch progress into progress bar updates
func fetchUpdates(in <-chan services.FetchProgress) <-chan ui.ProgressUpdate {
	out := make(chan ui.ProgressUpdate, cap(in))
	go func() {
		defer close(out)
		for p := range in {
			out <- ui.ProgressUpdate{
				Current: p.Current,
				Total:   p.Total,
				Label:   fmt.Sprintf("token %d %s", p.TokenID, outcomeLabel(p.Outcome)),
				Status:  fmt.Sprintf("assets %d", p.Fetched),
			}
		}
	}()
	return out
}

func outcomeLabel(o services.TokenOutcome) string {
	switch o {
	case services.OutcomeFetched:
		return ui.IconSuccess
	case services.OutcomeFailed:
		return ui.IconError
	default:
		return ui.IconSkip
	}
}

// showProgress renders updates with the bar on a terminal, or plain lines otherwise
func showProgress(title string, updates <-chan ui.ProgressUpdate, cancel func()) {
	if appConfig.PlainOutput || !term.IsTerminal(int(os.Stdout.Fd())) {
		ui.PlainProgress(os.Stdout, title, updates)
		return
	}
	if err := ui.RunProgress(title, updates, cancel); err != nil {
		appLogger.WithError(err).Warn("Progress display failed")
		// Keep draining so the run is not blocked
		for range updates {
		}
	}
}

func printFetchError(err error) {
	var cfgErr *domain.ConfigurationError
	var resErr *domain.ResolutionError

	switch {
	case errors.As(err, &cfgErr):
		fmt.Println(ui.FormatError("Missing " + cfgErr.Field))
		if cfgErr.Field == "api key" {
			fmt.Println(ui.FormatInfo("Pass --api-key or set NFTGRAB_API_KEY"))
		}
	case errors.As(err, &resErr):
		fmt.Println(ui.FormatError("Failed to get collection info: " + resErr.Err.Error()))
	case errors.Is(err, domain.ErrRunInProgress):
		fmt.Println(ui.FormatWarning("A run is already in progress"))
	default:
		fmt.Println(ui.FormatError("Fetch failed: " + err.Error()))
	}
}

func printRunSummary(run *domain.Run) {
	if run == nil {
		return
	}
	fmt.Println()
	fmt.Println(ui.RenderKeyValue("Contract", run.Address+" ("+run.Chain+")"))
	fmt.Println(ui.RenderKeyValue("Attempted", fmt.Sprintf("%d", run.Attempted)))
	fmt.Println(ui.RenderKeyValue("Fetched", ui.StyleSuccess.Render(fmt.Sprintf("%d", run.Fetched))))
	fmt.Println(ui.RenderKeyValue("Not found", fmt.Sprintf("%d", run.NotFound)))
	if run.Failed > 0 {
		fmt.Println(ui.RenderKeyValue("Failed", ui.StyleError.Render(fmt.Sprintf("%d", run.Failed))))
	}
	if run.DownloadFailed > 0 {
		fmt.Println(ui.RenderKeyValue("Image failures", ui.StyleWarning.Render(fmt.Sprintf("%d", run.DownloadFailed))))
	}
	fmt.Println(ui.RenderKeyValue("Duration", formatDuration(run.Duration())))
	fmt.Println()
	fmt.Println(ui.FormatImage("Images saved to " + run.Directory))
}
