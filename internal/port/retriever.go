package port

import (
	"context"

	"docrag/internal/domain"
)

// Retriever answers a query with ranked chunk records.
type Retriever interface {
	Search(ctx context.Context, query string) ([]domain.QueryResult, error)
}

// ProgressFunc receives integer completion percentages in [0, 100].
type ProgressFunc func(percent int)
