// Command benchmark measures retrieval quality of a store against a set
// of labelled queries.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"docrag/config"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/retriever"
	"docrag/internal/domain"
	"docrag/internal/logging"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

// evalCase is one labelled query. Relevant lists file names.
type evalCase struct {
	Query    string   `yaml:"query"`
	Relevant []string `yaml:"relevant"`
}

type caseFile struct {
	Cases []evalCase `yaml:"cases"`
}

type caseScore struct {
	Query     string
	Retrieved []string
	Precision float64
	Recall    float64
	RR        float64
	NDCG      float64
}

type report struct {
	Cases         []caseScore
	MeanPrecision float64
	MeanRecall    float64
	MRR           float64
	MeanNDCG      float64
}

type searchFunc func(ctx context.Context, query string) ([]domain.QueryResult, error)

func main() {
	storeDir := flag.String("store", "", "store directory")
	casesPath := flag.String("cases", "", "YAML file with labelled queries")
	cfgPath := flag.String("config", "", "config file (default: ./docrag.yaml)")
	topK := flag.Int("k", 0, "results per query (default from config)")
	noRerank := flag.Bool("no-rerank", false, "disable reranking")
	flag.Parse()

	if *storeDir == "" || *casesPath == "" {
		fmt.Println("Usage: benchmark -store ./index -cases cases.yaml [-k 6] [-no-rerank]")
		fmt.Println("\ncases.yaml:")
		fmt.Println("  cases:")
		fmt.Println("    - query: max boiler pressure")
		fmt.Println("      relevant: [boiler-sop.docx]")
		os.Exit(1)
	}

	if err := run(context.Background(), *storeDir, *casesPath, *cfgPath, *topK, *noRerank); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, storeDir, casesPath, cfgPath string, topK int, noRerank bool) error {
	var (
		cfg *config.Config
		err error
	)
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if topK > 0 {
		cfg.Retrieve.TopK = topK
	}
	if noRerank {
		cfg.Retrieve.Rerank = false
	}
	logger := logging.Setup(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	cases, err := loadCases(casesPath)
	if err != nil {
		return err
	}

	embedder, closer, err := embedding.FromConfig(cfg.Embedding, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	var reranker port.Reranker
	if cfg.Retrieve.Rerank {
		reranker = usecase.NewReranker(cfg.Rerank, cfg.Index.Stemming)
	}
	uc, err := usecase.OpenRetrieveUseCase(ctx, storeDir, cfg, embedder, reranker, logger)
	if err != nil {
		return err
	}

	uc.WarmUp()
	rep, err := evaluate(ctx, uc.Retrieve, cases)
	if err != nil {
		return err
	}
	printReport(rep, cfg.Retrieve.TopK, uc.RerankEnabled())
	return nil
}

func loadCases(path string) ([]evalCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cases: %w", err)
	}
	var cf caseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing cases: %w", err)
	}
	if len(cf.Cases) == 0 {
		return nil, fmt.Errorf("no cases in %s", path)
	}
	return cf.Cases, nil
}

// evaluate runs every case and scores the ranked distinct file names.
func evaluate(ctx context.Context, search searchFunc, cases []evalCase) (report, error) {
	var rep report
	for _, c := range cases {
		results, err := search(ctx, c.Query)
		if err != nil {
			return rep, fmt.Errorf("query %q: %w", c.Query, err)
		}
		retrieved := distinctFiles(results)
		gains, ideal := retriever.BinaryGains(retrieved, c.Relevant)
		s := caseScore{
			Query:     c.Query,
			Retrieved: retrieved,
			Precision: retriever.PrecisionAtK(retrieved, c.Relevant),
			Recall:    retriever.RecallAtK(retrieved, c.Relevant),
			RR:        retriever.ReciprocalRank(retrieved, c.Relevant),
			NDCG:      retriever.NDCG(gains, ideal),
		}
		rep.Cases = append(rep.Cases, s)
		rep.MeanPrecision += s.Precision
		rep.MeanRecall += s.Recall
		rep.MRR += s.RR
		rep.MeanNDCG += s.NDCG
	}
	if n := float64(len(rep.Cases)); n > 0 {
		rep.MeanPrecision /= n
		rep.MeanRecall /= n
		rep.MRR /= n
		rep.MeanNDCG /= n
	}
	return rep, nil
}

func distinctFiles(results []domain.QueryResult) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range results {
		if !seen[r.FileName] {
			seen[r.FileName] = true
			out = append(out, r.FileName)
		}
	}
	return out
}

func printReport(rep report, topK int, rerank bool) {
	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Cases: %d  top_k: %d  rerank: %v\n\n", len(rep.Cases), topK, rerank)

	for i, c := range rep.Cases {
		fmt.Printf("%d. %q\n", i+1, c.Query)
		fmt.Printf("   P=%.2f R=%.2f RR=%.2f NDCG=%.2f\n", c.Precision, c.Recall, c.RR, c.NDCG)
		fmt.Printf("   %s\n\n", strings.Join(c.Retrieved, ", "))
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Mean precision: %.3f\n", rep.MeanPrecision)
	fmt.Printf("Mean recall:    %.3f\n", rep.MeanRecall)
	fmt.Printf("MRR:            %.3f\n", rep.MRR)
	fmt.Printf("Mean NDCG:      %.3f\n", rep.MeanNDCG)
}
