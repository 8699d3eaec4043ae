package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeeChunJun/OpenGrokMCP/internal/opengrok"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search indexed source code",
	Long: `Search indexed source code.

Set at least one of --full, --defs, --refs, --path or --hist. Results are
printed as path:line: text, or as JSON with --json.

Examples:
  opengrok-mcp search --full "spin_lock_irqsave"
  opengrok-mcp search --defs start_kernel --projects linux
  opengrok-mcp search --path Makefile --max-results 5 --json`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

var (
	searchQuery    opengrok.SearchQuery
	searchProjects []string
	searchJSON     bool
)

func init() {
	rootCmd.AddCommand(searchCmd)

	f := searchCmd.Flags()
	f.StringVar(&searchQuery.Full, "full", "", "Full-text query")
	f.StringVar(&searchQuery.Defs, "defs", "", "Symbol definition query")
	f.StringVar(&searchQuery.Refs, "refs", "", "Symbol reference query")
	f.StringVar(&searchQuery.Path, "path", "", "File path query")
	f.StringVar(&searchQuery.Hist, "hist", "", "History query")
	f.StringVar(&searchQuery.Type, "type", "", "File type filter")
	f.StringSliceVar(&searchProjects, "projects", nil, "Projects to search (default: the configured project)")
	f.IntVar(&searchQuery.MaxResults, "max-results", 0, "Maximum number of results")
	f.IntVar(&searchQuery.Start, "start", 0, "Offset of the first result")
	f.BoolVar(&searchJSON, "json", false, "Print JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	q := searchQuery
	q.Projects = searchProjects
	result, err := client.Search(cmd.Context(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		return writeJSON(out, result)
	}
	for _, hit := range result.Hits {
		if hit.LineNumber > 0 {
			fmt.Fprintf(out, "%s:%d: %s\n", hit.FilePath, hit.LineNumber, hit.Snippet)
		} else {
			fmt.Fprintf(out, "%s: %s\n", hit.FilePath, hit.Snippet)
		}
	}
	if next := q.Start + result.Documents; result.Documents > 0 && result.TotalCount > next {
		_, _ = causeColor.Fprintf(cmd.ErrOrStderr(), "%d of %d files, next page: --start %d\n",
			result.Documents, result.TotalCount, next)
	}
	return nil
}
