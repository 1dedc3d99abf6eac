package domain

import "context"

// MarketSource fetches the current listings of one platform.
//
// FetchMarkets is fail-soft: transport errors, bad statuses and malformed
// bodies are logged by the implementation and reported as an empty slice, so
// an outage of one platform never fails an aggregate fetch.
type MarketSource interface {
	Source() Source
	FetchMarkets(ctx context.Context, limit int) []Market
}
