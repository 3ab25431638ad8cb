package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
	"github.com/kamal-hamza/nftgrab/internal/core/services"
	"github.com/kamal-hamza/nftgrab/pkg/ui"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [file.csv]",
	Short: "Export the last fetched collection's metadata to CSV",
	Long: `Write the metadata of the most recent fetch to a CSV file.

The header is the union of every field seen across the collection.
Tokens that lack a field get an empty cell; nested values are written
as JSON. An existing file is overwritten.

Examples:
  nftgrab export
  nftgrab export ~/Desktop/cool-cats.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, stop := getContext()
	defer stop()

	dest := ""
	if len(args) > 0 {
		dest = args[0]
	} else {
		run, err := assetStore.LatestRun(ctx)
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Println(ui.FormatWarning("No assets to export. Run 'nftgrab fetch <slug>' first."))
			return nil
		}
		dest = appWorkspace.DefaultExportPath(run.Slug)
	}

	return exportTo(ctx, dest)
}

// exportTo writes the session's collection to dest and reports the result
func exportTo(ctx context.Context, dest string) error {
	progressChan := make(chan services.ExportProgress, 16)

	resultChan := make(chan *services.ExportResponse, 1)
	errorChan := make(chan error, 1)

	go func() {
		resp, err := session.Export(ctx, dest, progressChan)
		resultChan <- resp
		errorChan <- err
	}()

	showProgress("Exporting metadata", exportUpdates(progressChan), func() {})

	resp := <-resultChan
	if err := <-errorChan; err != nil {
		if errors.Is(err, domain.ErrNoAssets) {
			fmt.Println(ui.FormatWarning("No assets to export. Run 'nftgrab fetch <slug>' first."))
			return nil
		}
		fmt.Println(ui.FormatError("Export failed: " + err.Error()))
		return err
	}

	fmt.Println(ui.FormatExport("Metadata exported to " + resp.Destination))
	fmt.Println(ui.RenderKeyValue("Rows", fmt.Sprintf("%d", resp.Rows)))
	fmt.Println(ui.RenderKeyValue("Columns", fmt.Sprintf("%d", len(resp.Columns))))
	if resp.Run != nil {
		fmt.Println(ui.RenderKeyValue("Collection", resp.Run.Slug))
	}
	return nil
}

func exportUpdates(in <-chan services.ExportProgress) <-chan ui.ProgressUpdate {
	out := make(chan ui.ProgressUpdate, cap(in))
	go func() {
		defer close(out)
		for p := range in {
			out <- ui.ProgressUpdate{
				Current: p.Row,
				Total:   p.Total,
				Label:   "rows",
			}
		}
	}()
	return out
}
