package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
	"github.com/kamal-hamza/nftgrab/internal/core/services"
	"github.com/kamal-hamza/nftgrab/pkg/ui"
)

var assetsList bool

// assetsCmd represents the assets command
var assetsCmd = &cobra.Command{
	Use:   "assets [query]",
	Short: "Browse the last fetched collection",
	Long: `Browse the assets of the most recent fetch.

Opens a fuzzy finder with a metadata preview. The selected asset's
image URL is copied to the clipboard.

Examples:
  nftgrab assets
  nftgrab assets "gold fur"
  nftgrab assets --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAssets,
}

func init() {
	assetsCmd.Flags().BoolVarP(&assetsList, "list", "l", false, "Print a table instead of the interactive finder")
}

func runAssets(cmd *cobra.Command, args []string) error {
	ctx, stop := getContext()
	defer stop()

	run, err := assetStore.LatestRun(ctx)
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Println(ui.FormatWarning("No fetch runs yet"))
		return nil
	}

	assets, err := assetStore.LoadAssets(ctx, run.ID)
	if err != nil {
		fmt.Println(ui.FormatError("Failed to load assets"))
		return err
	}

	query := ""
	if len(args) > 0 {
		query = args[0]
	}
	assets = filterAssets(assets, query)

	if len(assets) == 0 {
		fmt.Println(ui.FormatWarning("No matching assets in " + run.Slug))
		return nil
	}

	if assetsList {
		renderAssetTable(run, assets)
		return nil
	}
	return runInteractiveAssetSearch(assets)
}

// filterAssets keeps assets whose name, identifier or image URL contain every word of query
func filterAssets(assets []domain.Asset, query string) []domain.Asset {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return assets
	}

	var out []domain.Asset
	for _, a := range assets {
		haystack := strings.ToLower(assetSearchText(a))
		match := true
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, a)
		}
	}
	return out
}

func assetSearchText(a domain.Asset) string {
	return fmt.Sprintf("#%d  %s  %s  %s", a.TokenID, a.DisplayName(), a.Record.Identifier(), a.Record.ImageURL())
}

func renderAssetTable(run *domain.Run, assets []domain.Asset) {
	fmt.Println(ui.FormatTitle(fmt.Sprintf("%s (%d assets)", run.Slug, len(assets))))
	fmt.Println()

	table := ui.NewTable([]ui.TableColumn{
		{Header: "Token", Align: "right"},
		{Header: "Name", MaxWidth: 32},
		{Header: "Image", MaxWidth: 60},
	})
	for _, a := range assets {
		table.AddRow([]string{
			fmt.Sprintf("%d", a.TokenID),
			a.DisplayName(),
			a.Record.ImageURL(),
		})
	}
	fmt.Print(table.Render())
}

// renderAssetPreview lists every field of the record, sorted by key
func renderAssetPreview(a domain.Asset) string {
	var s strings.Builder
	s.WriteString(fmt.Sprintf("Token: %s\n", ui.StyleBold.Render(fmt.Sprintf("%d", a.TokenID))))
	s.WriteString(fmt.Sprintf("Name:  %s\n\n", a.DisplayName()))

	keys := a.Record.Keys()
	sort.Strings(keys)
	s.WriteString(ui.StyleHeader.Render("Metadata") + "\n")
	for _, k := range keys {
		v := services.FormatCell(a.Record[k])
		if v == "" {
			continue
		}
		s.WriteString(fmt.Sprintf("%s: %s\n", k, v))
	}
	return s.String()
}

// runInteractiveAssetSearch launches the fuzzy finder for assets
func runInteractiveAssetSearch(assets []domain.Asset) error {
	idx, err := fuzzyfinder.Find(
		assets,
		func(i int) string {
			return assetSearchText(assets[i])
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			return renderAssetPreview(assets[i])
		}),
	)

	if err != nil {
		fmt.Println(ui.FormatInfo("Selection cancelled."))
		return nil
	}

	selected := assets[idx]
	imageURL := services.ResolveImageURL(selected.Record.ImageURL(), appConfig.IPFSGateway)

	fmt.Println(ui.FormatSuccess("Selected: " + selected.DisplayName()))
	fmt.Println()
	fmt.Println(ui.RenderKeyValue("Token", fmt.Sprintf("%d", selected.TokenID)))
	if imageURL == "" {
		fmt.Println(ui.FormatMuted("(No image URL)"))
		return nil
	}

	fmt.Println(ui.RenderKeyValue("Image URL (copied)", imageURL))
	if err := clipboard.WriteAll(imageURL); err != nil {
		fmt.Println(ui.FormatMuted("(Clipboard access failed)"))
	}

	return nil
}
