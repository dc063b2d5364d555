package entityloader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"tronquery/internal/domain"
)

// BatchFetcher fetches a batch of address queries by id in one round
// trip.
type BatchFetcher interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.AddressQuery, error)
}

// QueryLoader batches per-request id lookups so that concurrent fetches
// collapse into a single store round trip.
type QueryLoader struct {
	Loader *dataloader.Loader
}

// NewQueryLoader builds a loader over the batch fetcher.
func NewQueryLoader(fetcher BatchFetcher) *QueryLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				return []*dataloader.Result{{Error: fmt.Errorf("invalid id: %w", err)}}
			}
			ids[i] = id
		}

		queries, err := fetcher.GetByIDs(ctx, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Map id -> instance for ordering
		byID := make(map[int64]*domain.AddressQuery, len(queries))
		for _, q := range queries {
			byID[q.ID] = q
		}

		// Build results in the same order as keys
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if q, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: q}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &QueryLoader{Loader: loader}
}

// Load resolves one address query through the batch, returning nil when
// the id is unknown.
func (l *QueryLoader) Load(ctx context.Context, id int64) (*domain.AddressQuery, error) {
	thunk := l.Loader.Load(ctx, dataloader.StringKey(strconv.FormatInt(id, 10)))
	data, err := thunk()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	query, ok := data.(*domain.AddressQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected loader result type %T", data)
	}
	return query, nil
}
