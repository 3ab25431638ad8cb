package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
	"github.com/kamal-hamza/nftgrab/pkg/ui"
)

var runsLimit int

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:     "runs",
	Aliases: []string{"history"},
	Short:   "List recent fetch runs",
	Long: `List recent fetch runs with their token outcomes.

Examples:
  nftgrab runs
  nftgrab runs -n 50`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to show (0 = all)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx, stop := getContext()
	defer stop()

	runs, err := assetStore.ListRuns(ctx, runsLimit)
	if err != nil {
		fmt.Println(ui.FormatError("Failed to list runs"))
		return err
	}

	if len(runs) == 0 {
		fmt.Println(ui.FormatWarning("No runs yet"))
		fmt.Println(ui.FormatInfo("Start one with: nftgrab fetch <collection-slug>"))
		return nil
	}

	fmt.Println(ui.FormatTitle(fmt.Sprintf("Runs (%d)", len(runs))))
	fmt.Println()

	table := ui.NewTable([]ui.TableColumn{
		{Header: "Started", Width: 16},
		{Header: "Collection", MaxWidth: 28},
		{Header: "Status", Width: 9},
		{Header: "Fetched", Align: "right"},
		{Header: "Missing", Align: "right"},
		{Header: "Failed", Align: "right"},
		{Header: "Images ✘", Align: "right"},
		{Header: "Duration", Align: "right"},
	})

	for _, r := range runs {
		table.AddRow([]string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Slug,
			renderStatus(r.Status),
			fmt.Sprintf("%d", r.Fetched),
			fmt.Sprintf("%d", r.NotFound),
			fmt.Sprintf("%d", r.Failed),
			fmt.Sprintf("%d", r.DownloadFailed),
			formatDuration(r.Duration()),
		})
	}

	fmt.Print(table.Render())
	fmt.Println()
	fmt.Println(ui.FormatMuted(fmt.Sprintf("Database: %s", appWorkspace.DatabasePath())))

	return nil
}

func renderStatus(s domain.RunStatus) string {
	switch s {
	case domain.RunStatusCompleted:
		return s.String()
	case domain.RunStatusFailed:
		return "✘ " + s.String()
	case domain.RunStatusEmpty:
		return "∅ " + s.String()
	default:
		return "… " + s.String()
	}
}
