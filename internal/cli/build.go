package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/extract"
	"docrag/internal/usecase"
)

var buildOut string

var buildCmd = &cobra.Command{
	Use:   "build [folder]",
	Short: "Build a fresh index from a folder",
	Long: `Build walks the folder, extracts and chunks every supported document,
embeds the chunks and writes a new store, replacing any previous one.

Examples:
  docrag build .                       # Index current directory into ./.docrag/index
  docrag build ./manuals --out ./index`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "store directory (default is <folder>/.docrag/index)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", root)
	}

	out := buildOut
	if out == "" {
		out = filepath.Join(root, ".docrag", "index")
	}
	// Keep the store itself out of the corpus walk.
	cfg.Index.Excludes = append(cfg.Index.Excludes, ".docrag/**")

	lock, err := lockStore(out, true)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	embedder, closer, err := embedding.FromConfig(cfg.Embedding, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	progress := newProgress("Building", logger)
	builder := usecase.NewBuilder(cfg, extract.NewRegistry(), embedder, nil, logger)
	result, err := builder.Build(cmd.Context(), usecase.BuildRequest{
		Root:     root,
		OutDir:   out,
		Progress: progress.Func(),
	})
	progress.Finish()
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("\nBuild complete:\n")
	fmt.Printf("  Files found:    %d\n", result.FilesFound)
	fmt.Printf("  Files indexed:  %d\n", result.FilesIndexed)
	fmt.Printf("  Files skipped:  %d\n", result.FilesSkipped)
	fmt.Printf("  Chunks:         %d\n", result.Chunks)
	fmt.Printf("  Dimension:      %d (%s)\n", result.Dim, result.IndexType)
	fmt.Printf("  Duration:       %s\n", formatDuration(result.Duration))
	printWarnings(result.Errors)

	fmt.Printf("\nIndex stored at: %s\n", out)
	return nil
}

func printWarnings(errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Printf("\nWarnings:\n")
	for _, e := range errs {
		fmt.Printf("  - %s\n", e)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
