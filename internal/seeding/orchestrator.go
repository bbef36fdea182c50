package seeding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Run executes n owner tasks with at most cfg.Concurrency in flight. A new
// task starts only after a running one finishes. Results are kept in
// completion order and there is always exactly one per task.
func (s *Seeder) Run(ctx context.Context, n int) *Report {
	if n < 0 {
		n = 0
	}
	start := time.Now()
	report := &Report{
		Requested:   n,
		Concurrency: s.cfg.Concurrency,
		Results:     make([]Result, 0, n),
	}

	s.logger.Info("Starting seed run", "owners", n, "concurrency", s.cfg.Concurrency)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			s.logger.Info("Processing owner", "owner_index", i, "progress", fmt.Sprintf("%d/%d", i+1, n))
			r := s.runUnit(ctx, i)
			mu.Lock()
			report.Results = append(report.Results, r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	s.logger.Info("Seed run finished",
		"owners", n,
		"succeeded", report.Count(Success),
		"partial", report.Count(PartialSuccess),
		"failed", report.Count(Failed),
		"duration", report.Duration.Round(time.Millisecond))

	return report
}

// runUnit turns a panic inside a task into a Failed result so one owner
// cannot take down the batch.
func (s *Seeder) runUnit(ctx context.Context, index int) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Owner task panicked", "owner_index", index, "panic", r)
			res = Result{Index: index, Outcome: Failed, Err: fmt.Errorf("owner task %d panicked: %v", index, r)}
		}
	}()

	res = s.process(ctx, index)
	res.Index = index
	if res.Outcome == "" {
		res.Outcome = Failed
		if res.Err == nil {
			res.Err = fmt.Errorf("owner task %d returned no outcome", index)
		}
	}
	return res
}
