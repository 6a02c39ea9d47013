// Package dialect names the SQL databases the reference store runs on and
// defines the driver interfaces it writes through.
//
// # Supported Dialects
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// Tx adds Commit and Rollback to ExecQuerier. The database/sql backed
// implementation lives in dialect/sql:
//
//	drv, err := sql.Open(dialect.SQLite, "file:share.db?_pragma=foreign_keys(1)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
package dialect
