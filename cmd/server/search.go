package main

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
)

var (
	searchMax   int
	searchQuick bool
	searchDepth string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run one aggregated web search and print the response as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the JSON response
		cfg, log, err := setup(os.Stderr)
		if err != nil {
			return err
		}
		if !cfg.WebSearch.Enabled {
			return errors.New("web search is disabled in the configuration")
		}

		stack, err := buildSearch(cfg, log)
		if err != nil {
			return err
		}
		defer stack.close()

		query := strings.Join(args, " ")
		var resp *domain.SearchResponse
		if searchQuick {
			resp = stack.aggregator.QuickSearch(cmd.Context(), query, quickMaxResults(cmd))
		} else {
			opts := domain.DefaultDeepSearchOptions()
			opts.MaxResults = searchMax
			opts.SearchDepth = domain.SearchDepth(searchDepth)
			resp = stack.aggregator.DeepSearch(cmd.Context(), query, opts)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

// quickMaxResults is --max when given, else the quick search default
func quickMaxResults(cmd *cobra.Command) int {
	if cmd.Flags().Changed("max") {
		return searchMax
	}
	return domain.DefaultQuickMaxResults
}

func init() {
	searchCmd.Flags().IntVar(&searchMax, "max", domain.DefaultDeepMaxResults, "Maximum number of results (quick search defaults to 5)")
	searchCmd.Flags().BoolVar(&searchQuick, "quick", false, "Use the single-engine quick search")
	searchCmd.Flags().StringVar(&searchDepth, "depth", string(domain.DepthDeep), "Depth label: surface, deep or expert")
}
