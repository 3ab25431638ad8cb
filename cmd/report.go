package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
	"github.com/kamal-hamza/nftgrab/internal/core/services"
	"github.com/kamal-hamza/nftgrab/pkg/ui"
)

var (
	reportLimit int
	reportOpen  bool
	reportClean bool
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [out.html]",
	Short: "Render run history as an HTML chart",
	Long: `Render a stacked bar chart of token outcomes for recent runs.

The report is written to the reports directory unless a path is given.

Examples:
  nftgrab report
  nftgrab report --open
  nftgrab report runs.html -n 10`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 20, "Number of recent runs to chart (0 = all)")
	reportCmd.Flags().BoolVarP(&reportOpen, "open", "o", false, "Open the report when done")
	reportCmd.Flags().BoolVar(&reportClean, "clean", false, "Remove previously generated reports first")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, stop := getContext()
	defer stop()

	if reportClean {
		if err := appWorkspace.CleanReports(); err != nil {
			fmt.Println(ui.FormatWarning("Could not clean reports: " + err.Error()))
		}
	}

	dest := appWorkspace.GetReportPath(fmt.Sprintf("runs-%s.html", time.Now().Format("20060102-150405")))
	if len(args) > 0 {
		dest = args[0]
	}

	resp, err := reportService.Execute(ctx, services.ReportRequest{
		Destination: dest,
		Limit:       reportLimit,
	})
	if errors.Is(err, domain.ErrNoAssets) {
		fmt.Println(ui.FormatWarning("No runs to report"))
		return nil
	}
	if err != nil {
		fmt.Println(ui.FormatError("Failed to render report"))
		return err
	}

	fmt.Println(ui.FormatSuccess(fmt.Sprintf("Report of %d runs written", len(resp.Runs))))
	fmt.Println(ui.RenderKeyValue("Path", resp.Destination))

	if reportOpen {
		if err := OpenFile(resp.Destination); err != nil {
			fmt.Println(ui.FormatWarning(err.Error()))
		}
	}
	return nil
}
