// Package store persists regulated records into a SQL database.
//
// Every concrete type of the schema gets one table named after the
// underscored plural of the type, for example "abstract_creative_works".
// A table has three columns: the node id, the declared type name and the
// node's JSON-LD rendering as JSON payload.
//
//	drv, err := sql.Open(dialect.SQLite, "file:share.db?_pragma=foreign_keys(1)")
//	st, err := store.New(drv, s, store.WithLogger(logger))
//	if err := st.Migrate(ctx); err != nil {
//	    return err
//	}
//	p := pipeline.New(reg, pipeline.WithPersister(st))
//
// Migrate only ever adds tables. Existing tables are checked against the
// expected columns first and an incompatible table fails the migration
// instead of being altered.
package store
