package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"docrag/internal/domain"
	ragerr "docrag/internal/errors"
	"docrag/internal/port"
)

const defaultRerankBaseURL = "https://api.cohere.ai/v1"

// HTTPReranker calls a Cohere-compatible /rerank endpoint. Self-hosted
// rerank servers (TEI, Infinity, Jina) accept the same request shape.
type HTTPReranker struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// NewHTTPReranker creates a reranker for baseURL. The API key is read from
// apiKeyEnv and may be empty for local servers.
func NewHTTPReranker(apiKeyEnv, model, baseURL string, timeout time.Duration) *HTTPReranker {
	if model == "" {
		model = "rerank-english-v3.0"
	}
	if baseURL == "" {
		baseURL = defaultRerankBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var apiKey string
	if apiKeyEnv != "" {
		apiKey = os.Getenv(apiKeyEnv)
	}

	return &HTTPReranker{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Rerank scores every document against query.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, documents []string) ([]port.RerankedResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	// Cohere has a limit of 1000 documents per request
	const maxDocs = 1000
	if len(documents) > maxDocs {
		documents = documents[:maxDocs]
	}

	jsonData, err := json.Marshal(rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     r.model,
		TopN:      len(documents),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, ragerr.New(ragerr.CodeRerankUnavailable, "rerank request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ragerr.Newf(ragerr.CodeRerankUnavailable, "rerank API returned status %d: %s", resp.StatusCode, string(body))
	}

	var rerankResp rerankResponse
	if err := json.Unmarshal(body, &rerankResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]port.RerankedResult, 0, len(rerankResp.Results))
	for _, res := range rerankResp.Results {
		if res.Index < 0 || res.Index >= len(documents) {
			continue
		}
		results = append(results, port.RerankedResult{
			Index: res.Index,
			Score: res.RelevanceScore,
		})
	}
	return results, nil
}

// Available sends a one-document probe request.
func (r *HTTPReranker) Available(ctx context.Context) bool {
	if r.apiKey == "" && r.baseURL == defaultRerankBaseURL {
		return false
	}
	_, err := r.Rerank(ctx, "probe", []string{"probe"})
	return err == nil
}

// ModelName returns the model name.
func (r *HTTPReranker) ModelName() string {
	return r.model
}

// OverlapReranker scores documents by the fraction of distinct query
// terms they contain. It needs no model and is always available.
type OverlapReranker struct {
	tokenizer port.Tokenizer
}

// NewOverlapReranker creates a term-overlap reranker.
func NewOverlapReranker(tokenizer port.Tokenizer) *OverlapReranker {
	return &OverlapReranker{tokenizer: tokenizer}
}

func (r *OverlapReranker) Rerank(ctx context.Context, query string, documents []string) ([]port.RerankedResult, error) {
	queryTerms := termSet(r.tokenizer.Tokenize(query))

	results := make([]port.RerankedResult, len(documents))
	for i, doc := range documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[i] = port.RerankedResult{
			Index: i,
			Score: termOverlap(queryTerms, termSet(r.tokenizer.Tokenize(doc))),
		}
	}
	return results, nil
}

func (r *OverlapReranker) Available(context.Context) bool { return true }

func (r *OverlapReranker) ModelName() string { return "term-overlap" }

func termSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// termOverlap returns the share of query terms present in the document.
func termOverlap(queryTerms, docTerms map[string]struct{}) float64 {
	if len(queryTerms) == 0 || len(docTerms) == 0 {
		return 0
	}
	matches := 0
	for term := range queryTerms {
		if _, ok := docTerms[term]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTerms))
}

// RerankHead rescores the first n candidates, which must be ordered by
// fused score. Reranker scores are min-max normalized across the head and
// blended as alpha*rerank + (1-alpha)*fused. On error the candidates are
// left untouched.
func RerankHead(ctx context.Context, rr port.Reranker, query string, cands []domain.Candidate, text func(pos int) string, n int, alpha float64) error {
	if rr == nil || n <= 0 || len(cands) == 0 {
		return nil
	}
	if n > len(cands) {
		n = len(cands)
	}
	head := cands[:n]

	texts := make([]string, n)
	for i, c := range head {
		texts[i] = text(c.Pos)
	}

	results, err := rr.Rerank(ctx, query, texts)
	if err != nil {
		return err
	}

	hits := make([]port.Hit, 0, len(results))
	for _, res := range results {
		if res.Index < 0 || res.Index >= n {
			continue
		}
		hits = append(hits, port.Hit{Pos: res.Index, Score: res.Score})
	}
	norm := MinMax(hits)
	for _, h := range hits {
		raw := h.Score
		c := &head[h.Pos]
		c.Rerank = &raw
		c.Final = alpha*norm[h.Pos] + (1-alpha)*c.Fused
	}
	return nil
}
