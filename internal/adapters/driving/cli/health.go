package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that every component is reachable",
	Long: `Pings the embedding service, the vector store, the reranker and each
configured LLM backend.

The command fails when ragpipe cannot answer questions at all: the embedding
service or the vector store is down, or no LLM backend responds.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if collectionService == nil {
		return notConfigured("collection")
	}

	report := collectionService.HealthCheck(cmd.Context())

	if healthJSON {
		if err := printJSON(cmd, report); err != nil {
			return err
		}
	} else {
		for _, name := range report.Components() {
			status := "ok"
			if !report[name] {
				status = "unavailable"
			}
			cmd.Printf("  %-14s %s\n", name, status)
		}
	}

	return operational(report)
}

// operational reports whether the components needed to answer a question are up.
func operational(report domain.HealthReport) error {
	var down []string
	for _, name := range []string{domain.ComponentEmbedding, domain.ComponentVectorStore} {
		if !report[name] {
			down = append(down, name)
		}
	}

	anyLLM := false
	for _, p := range domain.AllLLMProviders() {
		if report[domain.LLMComponent(p)] {
			anyLLM = true
			break
		}
	}
	if !anyLLM {
		down = append(down, "llm")
	}

	if len(down) > 0 {
		return errors.New("unavailable: " + strings.Join(down, ", "))
	}
	return nil
}
