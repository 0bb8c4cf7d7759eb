package embedding

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	ragerr "docrag/internal/errors"
	"docrag/internal/port"
)

// EncodeAll embeds texts in batches of batchSize using at most workers
// concurrent calls. Results keep input order. onBatch, when set, is called
// after each finished batch with the number of texts done so far.
func EncodeAll(ctx context.Context, e port.Embedder, texts []string, batchSize, workers int, onBatch func(done, total int)) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = 128
	}
	if workers <= 0 {
		workers = 1
	}

	out := make([][]float32, len(texts))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(texts); start += batchSize {
		start := start
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			vecs, err := e.Embed(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return ragerr.Newf(ragerr.CodeEmbeddingFailed, "embedder returned %d vectors for %d texts", len(vecs), end-start)
			}
			copy(out[start:end], vecs)

			mu.Lock()
			done += end - start
			if onBatch != nil {
				onBatch(done, len(texts))
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ProbeDimension returns e's dimension, embedding a short probe text when
// the embedder only learns it from the first response.
func ProbeDimension(ctx context.Context, e port.Embedder) (int, error) {
	if d := e.Dimension(); d > 0 {
		return d, nil
	}
	vecs, err := e.Embed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(vecs) == 0 {
		return 0, nil
	}
	return len(vecs[0]), nil
}
