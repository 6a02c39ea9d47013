package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/sharegraph"
	"github.com/syssam/sharegraph/graph"
	"github.com/syssam/sharegraph/regulate"
	"github.com/syssam/sharegraph/schema"
)

// Processor turns records into regulated graphs and persists them.
// It is safe for concurrent use; every record gets its own graph.
type Processor struct {
	registry  *schema.Registry
	regulator *regulate.Regulator
	persister Persister
	logger    *slog.Logger
	metrics   *Metrics
	workers   int
}

// Option configures a Processor.
type Option func(*Processor)

// WithPersister sets where regulated records go. Without one, records are
// only regulated and their nodes returned in the Result.
func WithPersister(p Persister) Option {
	return func(pr *Processor) {
		pr.persister = p
	}
}

// WithRegulator replaces the default regulator.
func WithRegulator(r *regulate.Regulator) Option {
	return func(pr *Processor) {
		pr.regulator = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(pr *Processor) {
		pr.logger = l
	}
}

// WithMetrics sets the collectors updated for every record.
func WithMetrics(m *Metrics) Option {
	return func(pr *Processor) {
		pr.metrics = m
	}
}

// WithWorkers sets how many records ProcessBatch handles at once.
func WithWorkers(n int) Option {
	return func(pr *Processor) {
		if n > 0 {
			pr.workers = n
		}
	}
}

// New returns a Processor reading its schema from reg.
func New(reg *schema.Registry, opts ...Option) *Processor {
	p := &Processor{
		registry: reg,
		logger:   slog.Default(),
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.regulator == nil {
		p.regulator = regulate.New(regulate.WithLogger(p.logger))
	}
	return p
}

// Fatal reports whether err must stop a whole batch rather than reject a
// single record.
func Fatal(err error) bool {
	return errors.Is(err, sharegraph.ErrSchemaLoad) ||
		errors.Is(err, sharegraph.ErrCyclicalDependency) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Process handles one record. The returned Result is never nil; its Err
// matches the returned error.
func (p *Processor) Process(ctx context.Context, rec Record) (*Result, error) {
	start := time.Now()
	res := &Result{RecordID: rec.ID}
	err := p.process(ctx, rec, res)
	res.Duration = time.Since(start)
	res.Err = err

	logger := p.logger.With("record", rec.ID)
	switch {
	case err == nil:
		p.metrics.observe(res, OutcomeOK)
		logger.Debug("record processed", "nodes", len(res.Nodes), "merged", res.Merged, "duration", res.Duration)
	case Fatal(err):
		p.metrics.observe(res, OutcomeAborted)
		logger.Error("record aborted batch", "error", err)
	default:
		p.metrics.observe(res, OutcomeRejected)
		logger.Warn("record rejected", "error", err)
	}
	return res, err
}

func (p *Processor) process(ctx context.Context, rec Record, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := p.registry.Schema()
	if err != nil {
		return fmt.Errorf("pipeline: load schema: %w", err)
	}
	g, err := graph.FromJSONLD(s, rec.Nodes)
	if err != nil {
		return fmt.Errorf("pipeline: build graph: %w", err)
	}
	before := g.Len()
	nodes, err := p.regulator.Regulate(g)
	if err != nil {
		return fmt.Errorf("pipeline: regulate: %w", err)
	}
	res.Merged = before - g.Len()
	res.Nodes = make([]map[string]any, len(nodes))
	for i, n := range nodes {
		res.Nodes[i] = n.JSONLD()
	}
	if p.persister == nil {
		return nil
	}
	if err := p.persister.Persist(ctx, res.Nodes); err != nil {
		return fmt.Errorf("pipeline: persist: %w", err)
	}
	return nil
}

// ProcessBatch processes records concurrently. Results line up with recs.
// Rejected records only fail their own Result; the first fatal error
// cancels the remaining work and is returned along with the results
// gathered so far, leaving nil entries for records never started.
func (p *Processor) ProcessBatch(ctx context.Context, recs []Record) ([]*Result, error) {
	results := make([]*Result, len(recs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)

	for i, rec := range recs {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			res, err := p.Process(ctx, rec)
			results[i] = res
			if err != nil && Fatal(err) {
				return err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}
	rejected := 0
	for _, r := range results {
		if !r.OK() {
			rejected++
		}
	}
	p.logger.Info("batch processed", "records", len(recs), "rejected", rejected)
	return results, nil
}
