package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

var (
	indexDocsDir string
	indexQAFile  string
	indexJSON    bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect the answer indices",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the indices from the corpus",
	Long: `Reads the document directory and the curated Q&A file, embeds them and
replaces the persisted indices. Paths default to the paths.docs_dir and
paths.qa_file settings.`,
	Args: cobra.NoArgs,
	RunE: runIndexBuild,
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the loaded index",
	Args:  cobra.NoArgs,
	RunE:  runIndexInfo,
}

func init() {
	indexBuildCmd.Flags().StringVar(&indexDocsDir, "docs", "", "directory of documents to index")
	indexBuildCmd.Flags().StringVar(&indexQAFile, "qa", "", "CSV file of curated Question,Answers pairs")
	indexInfoCmd.Flags().BoolVar(&indexJSON, "json", false, "output as JSON")
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexInfoCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd, LoadOptions{DocsDir: indexDocsDir, QAFile: indexQAFile})
	if err != nil {
		return err
	}

	cmd.Println("Building index...")
	meta, err := syncWithProgress(cmd, svc.Sync)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	cmd.Println("Index built.")
	printMeta(cmd.OutOrStdout(), meta)
	return nil
}

func runIndexInfo(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd, LoadOptions{})
	if err != nil {
		return err
	}

	meta, err := svc.Index.Info()
	if errors.Is(err, domain.ErrIndexUnavailable) {
		cmd.Println("No index built yet. Run 'concierge index build'.")
		return nil
	}
	if err != nil {
		return err
	}

	if indexJSON {
		return writeJSON(cmd.OutOrStdout(), meta)
	}
	printMeta(cmd.OutOrStdout(), meta)
	return nil
}

func printMeta(w io.Writer, meta domain.IndexMeta) {
	fmt.Fprintf(w, "  Documents: %d (%d chunks of %d chars, %d overlap)\n",
		meta.Documents, meta.Chunks, meta.ChunkSize, meta.ChunkOverlap)
	fmt.Fprintf(w, "  Q&A pairs: %d\n", meta.QAPairs)
	fmt.Fprintf(w, "  Model:     %s (%d dimensions)\n", meta.EmbeddingModel, meta.Dimensions)
	if !meta.BuiltAt.IsZero() {
		fmt.Fprintf(w, "  Built:     %s\n", meta.BuiltAt.Local().Format("2006-01-02 15:04:05"))
	}
}
