// Package services implements the business logic layer of the collections
// dashboard. It sits between the HTTP handlers and the collections pipeline,
// keeping caching and refresh policy out of both.
//
// # Dashboard snapshots
//
// DashboardService runs the full pipeline (list batches, fetch, normalize,
// aggregate, compute) and memoizes the result per cache epoch:
//
//	epoch := now.UnixNano() / ttl
//
// Every instant inside one ttl-aligned window maps to the same snapshot.
// Concurrent callers that miss the cache for the same epoch share a single
// pass through golang.org/x/sync/singleflight, and each receives its own deep
// copy of the result.
//
//	svc := NewDashboardService(source, aggregator, cache.NewMemoryCache(4, time.Minute), DashboardOptions{
//	    TTL:    time.Minute,
//	    Logger: logger,
//	})
//	snap, err := svc.Snapshot(ctx)
//
// Refresh drops every cached snapshot and recomputes immediately. The
// scheduler and the manual refresh endpoint both use it.
//
// # Views
//
// FilterAgents, RankAgents and Analytics derive the agent selection, agent
// rankings and account-state chart series from a snapshot. They are pure
// functions over the report tables.
//
// # Error Handling
//
// A pass that yields no records returns an AppError of type DATA wrapping
// collections.ErrEmptyData; handlers render it as 503. A batch listing failure
// returns a NETWORK AppError. Per-batch failures never fail a pass; they are
// carried as warnings on the snapshot.
//
// # Testing
//
// Services are tested against sources.MemorySource fixtures and testify mocks:
//
//	src := new(mockBatchSource)
//	src.On("ListBatches", mock.Anything).Return(nil, errors.New("403"))
package services
