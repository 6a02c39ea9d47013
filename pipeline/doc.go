// Package pipeline runs harvested records through the graph engine.
//
// Each record becomes its own graph, which is regulated and handed to a
// Persister in dependency order:
//
//	p := pipeline.New(registry,
//	    pipeline.WithPersister(st),
//	    pipeline.WithWorkers(8),
//	    pipeline.WithMetrics(pipeline.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	results, err := p.ProcessBatch(ctx, records)
//
// # Failure Isolation
//
// A record that fails ingestion, validation or persistence is rejected on
// its own: its Result carries the error and the rest of the batch goes on.
// Schema load failures, dependency cycles and context cancellation are not
// record problems; they stop the whole batch and ProcessBatch returns them.
package pipeline
