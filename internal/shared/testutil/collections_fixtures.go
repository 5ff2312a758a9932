package testutil

import (
	"context"
	"sync"

	"collectdash/internal/sources"
	"collectdash/pkg/contracts/domain"
)

// FixtureHeader is the agent worksheet header used by the fixtures.
var FixtureHeader = []any{"LID", "Account Holder Name", "Outstanding Balance", "Account State", "Repayment Status", "Feedback", "Amount Paid"}

// Expected totals of NewPortfolioSource.
const (
	FixtureTotalCollected = 800.0
	FixtureRecordCount    = 5
)

// NewPortfolioSource returns a two-agent portfolio plus an excluded summary
// sheet.
//
//	Alice: Arrears 200 (paying partially), NPL 0
//	Bob:   Arrears 500, Write Off 100 (paying partially), Closed 300
//
// Bob's untracked "Closed" payment counts toward his collections only, which
// puts his conversion rate at 1.5.
func NewPortfolioSource() *sources.MemorySource {
	return sources.NewMemorySource().
		Put("Bob", [][]any{
			FixtureHeader,
			{"3", "Carol W", 2000.0, "Arrears", "Fully Paid", "Retired", 500.0},
			{"4", "Dan K", 4000.0, "Write Off", "Paying Partially", "Employed", 100.0},
			{"5", "Eve M", 1500.0, "Closed", "", "Deceased", 300.0},
		}).
		Put("Summary", [][]any{
			FixtureHeader,
			{"x", "ignored", 99999.0, "Arrears", "", "", 9999.0},
		}).
		Put("Alice", [][]any{
			FixtureHeader,
			{"1", "John D", 1000.0, "Arrears", "Paying Partially", "Employed", 200.0},
			{"2", "Mary A", 3000.0, "NPL", "", "Unemployed", 0.0},
		})
}

// StalledSource holds every FetchBatch until Release, ignoring the fetch
// context the way a hung upstream does.
type StalledSource struct {
	*sources.MemorySource
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// NewStalledSource wraps inner. Tests must call Release, usually from
// t.Cleanup.
func NewStalledSource(inner *sources.MemorySource) *StalledSource {
	return &StalledSource{
		MemorySource: inner,
		entered:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
}

func (s *StalledSource) FetchBatch(ctx context.Context, name string) (domain.RawBatch, error) {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return s.MemorySource.FetchBatch(ctx, name)
}

// Entered is signalled when the first fetch starts waiting.
func (s *StalledSource) Entered() <-chan struct{} { return s.entered }

// Release lets every held and future fetch through.
func (s *StalledSource) Release() {
	s.once.Do(func() { close(s.release) })
}
