package middleware

import (
	"context"
	"net/http"

	"tronquery/internal/entityloader"
)

type ctxKey string

const queryLoaderKey ctxKey = "queryLoader"

// DataLoaderMiddleware attaches a fresh per-request loader to the
// context, scoping its cache to one request.
func DataLoaderMiddleware(fetcher entityloader.BatchFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := entityloader.NewQueryLoader(fetcher)

			ctx := context.WithValue(r.Context(), queryLoaderKey, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// QueryLoaderFromContext retrieves the loader from context.
func QueryLoaderFromContext(ctx context.Context) *entityloader.QueryLoader {
	if l, ok := ctx.Value(queryLoaderKey).(*entityloader.QueryLoader); ok {
		return l
	}
	return nil
}
