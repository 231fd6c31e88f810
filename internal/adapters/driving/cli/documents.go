package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage indexed documents",
	Long:  `List indexed documents or remove one from the collection.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document from the index",
	Long: `Deletes every chunk of a document. The document can be ingested again
afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsDelete,
}

func init() {
	documentsListCmd.Flags().BoolVar(&documentsJSON, "json", false, "output documents as JSON")
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if collectionService == nil {
		return notConfigured("collection")
	}

	docs, err := collectionService.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentsJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s\n", docs[i].DocID)
		cmd.Printf("    Chunks: %d\n", docs[i].ChunksCount)
		cmd.Printf("    Pages:  %d (%s)\n", docs[i].PagesCount, docs[i].PagesRange)
		if docs[i].FilePath != "" {
			cmd.Printf("    File:   %s\n", docs[i].FilePath)
		}
		if !docs[i].CreatedAt.IsZero() {
			cmd.Printf("    Added:  %s\n", docs[i].CreatedAt.Format("2006-01-02 15:04:05"))
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return notConfigured("collection")
	}

	docID := args[0]
	deleted, err := collectionService.DeleteDocument(cmd.Context(), docID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if !deleted {
		return fmt.Errorf("document not found: %s", docID)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}
