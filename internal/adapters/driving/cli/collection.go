package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	collectionJSON bool
	collectionYes  bool
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Inspect or reset the vector store collection",
}

var collectionInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show collection statistics",
	Args:  cobra.NoArgs,
	RunE:  runCollectionInfo,
}

var collectionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every indexed chunk",
	Long:  `Removes all points from the collection. Documents must be ingested again.`,
	Args:  cobra.NoArgs,
	RunE:  runCollectionClear,
}

func init() {
	collectionInfoCmd.Flags().BoolVar(&collectionJSON, "json", false, "output collection info as JSON")
	collectionClearCmd.Flags().BoolVarP(&collectionYes, "yes", "y", false, "do not ask for confirmation")
	collectionCmd.AddCommand(collectionInfoCmd)
	collectionCmd.AddCommand(collectionClearCmd)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionInfo(cmd *cobra.Command, _ []string) error {
	if collectionService == nil {
		return notConfigured("collection")
	}

	info, err := collectionService.GetCollectionInfo(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	if collectionJSON {
		return printJSON(cmd, info)
	}

	cmd.Printf("Collection: %s\n\n", info.Name)
	cmd.Printf("  Points:    %d\n", info.PointsCount)
	cmd.Printf("  Vectors:   %d\n", info.VectorsCount)
	cmd.Printf("  Dimension: %d\n", info.Dimension)
	cmd.Printf("  Distance:  %s\n", info.Distance)
	cmd.Printf("  Status:    %s\n", info.Status)
	return nil
}

func runCollectionClear(cmd *cobra.Command, _ []string) error {
	if collectionService == nil {
		return notConfigured("collection")
	}

	if !collectionYes && !confirm(cmd, "Delete every indexed chunk?") {
		cmd.Println("Aborted.")
		return nil
	}

	if _, err := collectionService.ClearCollection(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}

	cmd.Println("Collection cleared.")
	return nil
}

// confirm asks a yes/no question on the command input. Anything but y or yes is no.
func confirm(cmd *cobra.Command, question string) bool {
	cmd.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(cmd.InOrStdin())
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
