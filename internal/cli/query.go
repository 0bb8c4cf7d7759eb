package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docrag/internal/adapter/embedding"
	"docrag/internal/domain"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

var (
	queryStore      string
	queryText       string
	queryTopK       int
	queryCandidateK int
	queryMinScore   float64
	queryMaxPerFile int
	queryNoRerank   bool
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search an index",
	Long: `Search fuses dense vector similarity with BM25 lexical scores, optionally
reranks the head of the list, and caps results per file.

Examples:
  docrag query --store ./index -q "max boiler pressure"
  docrag query --store ./index -q "relief valve" -k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryStore, "store", "s", "", "store directory (required)")
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().IntVar(&queryCandidateK, "candidate-k", 0, "candidates per generator (default from config)")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", -1, "drop results below this final score")
	queryCmd.Flags().IntVar(&queryMaxPerFile, "max-per-file", -1, "results per file, 0 for unlimited")
	queryCmd.Flags().BoolVar(&queryNoRerank, "no-rerank", false, "disable reranking")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	_ = queryCmd.MarkFlagRequired("store")
	_ = queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if queryTopK > 0 {
		cfg.Retrieve.TopK = queryTopK
	}
	if queryCandidateK > 0 {
		cfg.Retrieve.CandidateK = queryCandidateK
	}
	if queryMinScore >= 0 {
		cfg.Retrieve.MinScore = queryMinScore
	}
	if queryMaxPerFile >= 0 {
		cfg.Retrieve.MaxPerFile = queryMaxPerFile
	}
	if queryNoRerank {
		cfg.Retrieve.Rerank = false
	}

	lock, err := lockStore(queryStore, false)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	embedder, closer, err := embedding.FromConfig(cfg.Embedding, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	var reranker port.Reranker
	if cfg.Retrieve.Rerank {
		reranker = usecase.NewReranker(cfg.Rerank, cfg.Index.Stemming)
	}

	uc, err := usecase.OpenRetrieveUseCase(cmd.Context(), queryStore, cfg, embedder, reranker, logger)
	if err != nil {
		return err
	}

	results, err := uc.Retrieve(cmd.Context(), queryText)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if results == nil {
			results = []domain.QueryResult{}
		}
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s (final %.3f, fused %.3f%s) ---\n", i+1, location(r), r.FinalScore, r.FusedScore, rerankNote(r))
		text := r.Text
		if runes := []rune(text); len(runes) > 500 {
			text = string(runes[:500]) + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}

func location(r domain.QueryResult) string {
	parts := []string{r.RelPath}
	if r.Section != "" {
		parts = append(parts, r.Section)
	}
	if r.Subsection != "" {
		parts = append(parts, r.Subsection)
	}
	return strings.Join(parts, " > ")
}

func rerankNote(r domain.QueryResult) string {
	if r.RerankScore == nil {
		return ""
	}
	return fmt.Sprintf(", rerank %.3f", *r.RerankScore)
}
