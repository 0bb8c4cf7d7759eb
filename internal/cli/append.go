package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docrag/config"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/extract"
	"docrag/internal/usecase"
)

var appendStore string

var appendCmd = &cobra.Command{
	Use:   "append [path...]",
	Short: "Add new or changed files to an existing index",
	Long: `Append embeds files that the store has not seen yet. Folders are walked.
Files whose path, modification time and size are already recorded are skipped.

Examples:
  docrag append --store ./index ./manuals/new.docx
  docrag append --store ./index ./manuals`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAppend,
}

func init() {
	rootCmd.AddCommand(appendCmd)
	appendCmd.Flags().StringVarP(&appendStore, "store", "s", "", "store directory (required)")
	_ = appendCmd.MarkFlagRequired("store")
}

func runAppend(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	lock, err := lockStore(appendStore, true)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	result, err := appendPaths(cmd, cfg, appendStore, args, true)
	if err != nil {
		return fmt.Errorf("append failed: %w", err)
	}

	fmt.Printf("\nAppend complete:\n")
	fmt.Printf("  Chunks added:    %d\n", result.Added)
	fmt.Printf("  Files added:     %d\n", result.FilesAdded)
	fmt.Printf("  Files unchanged: %d\n", result.FilesUnchanged)
	fmt.Printf("  Files failed:    %d\n", result.FilesFailed)
	if result.DupChunks > 0 || result.DupFiles > 0 {
		fmt.Printf("  Duplicates:      %d chunks, %d files\n", result.DupChunks, result.DupFiles)
	}
	printWarnings(result.Errors)
	return nil
}

// appendPaths runs one append against storeDir. The caller holds the
// store lock.
func appendPaths(cmd *cobra.Command, cfg *config.Config, storeDir string, paths []string, showProgress bool) (*usecase.AppendResult, error) {
	embedder, closer, err := embedding.FromConfig(cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	req := usecase.AppendRequest{StoreDir: storeDir, Paths: paths}
	var progress *progressSink
	if showProgress {
		progress = newProgress("Appending", logger)
		req.Progress = progress.Func()
	}

	appender := usecase.NewAppender(cfg, extract.NewRegistry(), embedder, nil, logger)
	result, err := appender.Append(cmd.Context(), req)
	if progress != nil {
		progress.Finish()
	}
	return result, err
}
