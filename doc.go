// Package sharegraph holds the error taxonomy shared by the schema-driven
// typed graph engine.
//
// The engine aggregates scholarly-metadata records into a normalized graph of
// typed entities. Its packages are:
//
//   - schema: value types for entity types, attributes and relations, plus the
//     immutable Schema and the lazily built Registry.
//   - schema/load: parses a declarative type specification into a Schema.
//   - schema/gen: generates Go constants for the names of a Schema.
//   - graph: a mutable, schema-validated property graph with named edges.
//   - toposort: generic dependency ordering.
//   - idobf: reversible integer id obfuscation for external references.
//   - regulate: validation, deduplication and ordering of ingested graphs.
//   - pipeline: batch processing of harvested records with per-record isolation.
//   - dialect, dialect/sql: database/sql drivers with statement statistics.
//   - store: a reference persistence collaborator backed by database/sql.
//   - cmd/sharegraph: command line front end for all of the above.
//
// # Errors
//
// Every package reports failures with the types declared here, so callers
// can classify them with errors.Is:
//
//	if errors.Is(err, sharegraph.ErrSchemaLoad) {
//	    // fatal: refuse to serve until the schema is fixed
//	}
//	if errors.Is(err, sharegraph.ErrSchemaKey) {
//	    // reject the offending record
//	}
package sharegraph
