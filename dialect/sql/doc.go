// Package sql implements the dialect.Driver interfaces on top of
// database/sql.
//
// Statements are written once with "?" placeholders; Conn rebinds them to
// "$1, $2, ..." on Postgres:
//
//	drv := sql.OpenDB(dialect.Postgres, db)
//	err := drv.Exec(ctx, "DELETE FROM tags WHERE id = ?", []any{id}, nil)
//
// Query scans into a *Rows:
//
//	var rows sql.Rows
//	if err := drv.Query(ctx, "SELECT id FROM tags", []any{}, &rows); err != nil {
//	    return err
//	}
//	defer rows.Close()
//
// # Statistics
//
// StatsDriver counts statements and flags slow ones, logging them with
// log/slog when asked to:
//
//	drv := sql.NewStatsDriver(base,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(logger),
//	)
//	fmt.Println(drv.QueryStats().Stats())
package sql
