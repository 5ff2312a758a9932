package collections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"collectdash/pkg/contracts/domain"
)

// BatchSource is the external store of named record batches.
type BatchSource interface {
	// ListBatches returns every batch identifier in source order.
	ListBatches(ctx context.Context) ([]string, error)
	// FetchBatch returns one batch's rows, header first, with numbers unformatted.
	FetchBatch(ctx context.Context, name string) (domain.RawBatch, error)
}

// Collection is the unified record set of one aggregation run.
// Records are ordered by batch order, then by row order within a batch.
// Listed holds every non-excluded batch name, including failed ones.
type Collection struct {
	Records  []domain.Record
	Listed   []string
	Batches  []string
	Warnings []domain.BatchWarning
}

// Aggregator fetches and normalizes every non-excluded batch.
type Aggregator struct {
	normalizer *Normalizer
	exclusions Exclusions
	logger     *slog.Logger
}

// NewAggregator creates an aggregator. A nil normalizer selects the defaults.
func NewAggregator(normalizer *Normalizer, exclusions Exclusions, logger *slog.Logger) *Aggregator {
	if normalizer == nil {
		normalizer = NewNormalizer(NormalizerOptions{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		normalizer: normalizer,
		exclusions: exclusions,
		logger:     logger.With(slog.String("component", "aggregator")),
	}
}

// Exclusions returns the exclusion matcher in use.
func (a *Aggregator) Exclusions() Exclusions {
	return a.exclusions
}

// Aggregate runs one pass over the source. Batches that fail to load are
// skipped and reported in Collection.Warnings. When no batch yields a record
// the collection is returned together with ErrEmptyData. A cancelled context
// aborts the pass and its partial result is discarded.
func (a *Aggregator) Aggregate(ctx context.Context, src BatchSource) (*Collection, error) {
	names, err := src.ListBatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	coll := &Collection{Records: []domain.Record{}, Listed: a.exclusions.Filter(names)}
	for _, name := range coll.Listed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := src.FetchBatch(ctx, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, ctxErr
			}
			fetchErr := &BatchFetchError{Batch: name, Err: err}
			a.logger.WarnContext(ctx, "skipping batch",
				slog.String("batch", name),
				slog.String("error", err.Error()))
			coll.Warnings = append(coll.Warnings, domain.BatchWarning{
				Batch:   name,
				Message: fetchErr.Error(),
			})
			continue
		}

		batch.Name = name
		records := a.normalizer.Normalize(batch)
		coll.Batches = append(coll.Batches, name)
		coll.Records = append(coll.Records, records...)

		a.logger.DebugContext(ctx, "batch normalized",
			slog.String("batch", name),
			slog.Int("records", len(records)))
	}

	if len(coll.Records) == 0 {
		return coll, ErrEmptyData
	}
	return coll, nil
}
