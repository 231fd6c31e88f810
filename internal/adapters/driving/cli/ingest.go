package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

var (
	ingestDocID   string
	ingestRebuild bool
	ingestJSON    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Index a file or a directory",
	Long: `Extracts, chunks and embeds documents into the vector store. Supported
files: .pdf, .docx, .xlsx, .html/.htm, .md/.markdown and .txt.

A directory is walked recursively; hidden files and directories are skipped.
Chunks whose content is already indexed are not embedded again, so running
ingest twice on the same files stores nothing the second time.

Use --rebuild to clear the collection before ingesting a directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDocID, "doc-id", "", "document id for a single file (default: file name without extension)")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "clear the collection before ingesting the directory")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return notConfigured("ingestion")
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	if !info.IsDir() {
		if ingestRebuild {
			return errors.New("--rebuild requires a directory")
		}
		return ingestFile(cmd, path)
	}
	if ingestDocID != "" {
		return errors.New("--doc-id can only be used with a single file")
	}
	return ingestDir(cmd, path)
}

func ingestFile(cmd *cobra.Command, path string) error {
	result := ingestionService.IngestDocument(cmd.Context(), path, ingestDocID)

	if ingestJSON {
		if err := printJSON(cmd, result); err != nil {
			return err
		}
	} else {
		printIngestionResult(cmd, result)
	}

	if !result.Success {
		return fmt.Errorf("ingestion failed: %s", result.Error)
	}
	return nil
}

func ingestDir(cmd *cobra.Command, dir string) error {
	ctx := cmd.Context()

	var (
		stats *domain.IngestionStats
		err   error
	)
	if ingestRebuild {
		if !ingestJSON {
			cmd.Printf("Rebuilding collection from %s...\n", dir)
		}
		stats, err = ingestionService.Rebuild(ctx, dir)
	} else {
		if !ingestJSON {
			cmd.Printf("Ingesting %s...\n", dir)
		}
		stats, err = ingestionService.IngestDirectory(ctx, dir)
	}
	if stats == nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if ingestJSON {
		if jsonErr := printJSON(cmd, stats); jsonErr != nil {
			return jsonErr
		}
	} else {
		printIngestionStats(cmd, stats)
	}

	if err != nil {
		return fmt.Errorf("%d file(s) failed: %w", stats.Errors, err)
	}
	return nil
}

func printIngestionResult(cmd *cobra.Command, r domain.IngestionResult) {
	switch {
	case !r.Success:
		cmd.Printf("  [error]   %s: %s\n", r.FilePath, r.Error)
	case r.Skipped():
		cmd.Printf("  [skipped] %s (%s, already indexed)\n", r.FilePath, r.DocID)
	default:
		cmd.Printf("  [ok]      %s (%s): %d chunks from %d pages", r.FilePath, r.DocID, r.ChunksCreated, r.PagesProcessed)
		if r.ChunksSkipped > 0 {
			cmd.Printf(", %d unchanged", r.ChunksSkipped)
		}
		cmd.Println()
	}
}

func printIngestionStats(cmd *cobra.Command, stats *domain.IngestionStats) {
	if len(stats.Results) == 0 {
		cmd.Println("No supported files found.")
		return
	}

	for i := range stats.Results {
		printIngestionResult(cmd, stats.Results[i])
	}
	cmd.Println()
	cmd.Printf("Processed: %d, Skipped: %d, Errors: %d, Chunks: %d\n",
		stats.Processed, stats.Skipped, stats.Errors, stats.TotalChunks)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
