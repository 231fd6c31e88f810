package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

var (
	searchDocs     []string
	searchLimit    int
	searchNoRerank bool
	searchProvider string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Ask a question about indexed documents",
	Long: `Retrieves the chunks most similar to the question, optionally reranks
them, and asks an LLM for an answer citing the pages it relies on.

If the requested LLM backend is unreachable, the next configured backend
answers instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchDocs, "doc", nil, "restrict the search to these document ids")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "number of chunks given to the LLM (0 = configured top_k)")
	searchCmd.Flags().BoolVar(&searchNoRerank, "no-rerank", false, "skip the reranking pass")
	searchCmd.Flags().StringVar(&searchProvider, "provider", "", "LLM backend: mistral, groq or anthropic (default: configured)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output the response as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return notConfigured("retrieval")
	}

	useReranking := !searchNoRerank
	if settingsService != nil && useReranking {
		if settings, err := settingsService.Get(); err == nil {
			useReranking = settings.Retrieval.UseReranking
		}
	}

	opts := domain.SearchOptions{
		DocIDs:       searchDocs,
		Limit:        searchLimit,
		UseReranking: useReranking,
		Provider:     domain.LLMProvider(searchProvider),
	}

	resp := retrievalService.Search(cmd.Context(), args[0], opts)

	if searchJSON {
		if err := printJSON(cmd, resp); err != nil {
			return err
		}
	} else {
		printRAGResponse(cmd, &resp)
	}

	if !resp.Success {
		return fmt.Errorf("search failed: %s", resp.ErrorMessage)
	}
	return nil
}

func printRAGResponse(cmd *cobra.Command, resp *domain.RAGResponse) {
	cmd.Println(resp.Answer)
	if !resp.Success {
		return
	}

	if len(resp.Claims) > 0 {
		cmd.Println()
		cmd.Println("Claims:")
		for i := range resp.Claims {
			cmd.Printf("  - %s %s\n", resp.Claims[i].Text, formatCitations(resp.Claims[i].Citations))
		}
	}

	if len(resp.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i := range resp.Sources {
			src := resp.Sources[i]
			cmd.Printf("  [%d] %s, page %d (%.2f)\n", i+1, src.DocID, src.Page, src.Score)
			if src.ContentPreview != "" {
				cmd.Printf("      %s\n", strings.ReplaceAll(src.ContentPreview, "\n", " "))
			}
		}
	}

	cmd.Println()
	reranked := "no"
	if resp.Reranked {
		reranked = "yes"
	}
	cmd.Printf("Provider: %s | Reranked: %s | Confidence: %.1f | %.2fs\n",
		resp.Provider, reranked, resp.Confidence, resp.ProcessingTime)
}

func formatCitations(citations []domain.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	parts := make([]string, len(citations))
	for i, c := range citations {
		parts[i] = fmt.Sprintf("%s p.%d", c.DocID, c.Page)
	}
	return "[" + strings.Join(parts, "; ") + "]"
}
