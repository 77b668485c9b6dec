package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/core/domain"
)

var (
	searchAgents      []string
	searchProject     string
	searchTypes       []string
	searchFrom        string
	searchTo          string
	searchNoFuzzy     bool
	searchMinMessages int
	searchLimit       int
	searchSnippets    int
	searchJSON        bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search agent conversations, memory files, and plans",
	Long: `Performs full-text search across everything your local coding agents
have recorded: conversation transcripts, prompt history, memory files,
and plan files. Results are ranked by relevance with short, specific
matches favoured over long transcripts.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchAgents, "agent", "a", nil, "restrict to these agents (claude, codex, cursor, all)")
	searchCmd.Flags().StringVarP(&searchProject, "project", "p", "", "project path substring filter")
	searchCmd.Flags().StringSliceVarP(&searchTypes, "type", "t", nil, "document types (conversation, memory, plan, knowledge)")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "earliest date (YYYY-MM-DD or RFC3339)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "latest date (YYYY-MM-DD or RFC3339)")
	searchCmd.Flags().BoolVar(&searchNoFuzzy, "no-fuzzy", false, "exact matching only, no typo tolerance")
	searchCmd.Flags().IntVar(&searchMinMessages, "min-messages", 0, "drop conversations with fewer messages")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultSearchLimit, "maximum number of results")
	searchCmd.Flags().IntVar(&searchSnippets, "snippets", domain.DefaultMaxSnippets, "maximum snippets per result")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	opts := domain.DefaultSearchOptions()
	opts.Query = args[0]
	opts.Agents = searchAgents
	opts.Project = searchProject
	opts.MinMessageCount = searchMinMessages
	for _, t := range searchTypes {
		opts.Types = append(opts.Types, domain.DocumentType(t))
	}

	// Config-file search defaults sit between the built-in defaults and
	// explicit flags.
	cfg := configStore.Config().Search
	if cfg.Limit > 0 {
		opts.Limit = cfg.Limit
	}
	if cfg.MaxSnippets > 0 {
		opts.MaxSnippets = cfg.MaxSnippets
	}
	if cfg.Fuzzy != nil {
		opts.Fuzzy = *cfg.Fuzzy
	}
	if cmd.Flags().Changed("limit") {
		opts.Limit = searchLimit
	}
	if cmd.Flags().Changed("snippets") {
		opts.MaxSnippets = searchSnippets
	}
	if cmd.Flags().Changed("no-fuzzy") {
		opts.Fuzzy = !searchNoFuzzy
	}

	var err error
	if opts.DateFrom, err = parseDateFlag(searchFrom, false); err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	if opts.DateTo, err = parseDateFlag(searchTo, true); err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	results, err := searchService.Search(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, results)
	}
	return outputSearchResults(cmd, results)
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchResults(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i := range results {
		r := &results[i]
		title := r.Display
		if title == "" {
			title = r.ID
		}

		cmd.Printf("[%d] %s %s\n", i+1,
			styleTitle.Render(title),
			styleScore.Render(fmt.Sprintf("(%.2f)", r.Score)))

		meta := fmt.Sprintf("%s · %s", r.Agent, domain.ResolveDocumentType(r.Type, ""))
		if r.Project != "" {
			meta += " · " + r.Project
		}
		if r.Timestamp != 0 {
			meta += " · " + time.UnixMilli(r.Timestamp).Format("2006-01-02 15:04")
		}
		if r.MatchCount > 1 {
			meta += fmt.Sprintf(" · %s", styleMatch.Render(fmt.Sprintf("%d matches", r.MatchCount)))
		}
		cmd.Printf("    %s\n", styleMeta.Render(meta))

		for _, sn := range r.Snippets {
			cmd.Println(styleSnippet.Render(sn.Text))
		}
		cmd.Println()
	}
	return nil
}

// parseDateFlag converts a date flag to epoch millis. Date-only values
// used as an upper bound cover the whole day.
func parseDateFlag(s string, endOfDay bool) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t.UnixMilli(), nil
}
