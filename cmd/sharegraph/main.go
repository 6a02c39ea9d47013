// Command sharegraph loads a schema and regulates harvested JSON-LD records
// against it.
//
//	sharegraph check    -schema share.yaml
//	sharegraph regulate -schema share.yaml -driver sqlite -dsn share.db records/*.json
//	sharegraph watch    -schema share.yaml incoming/
//	sharegraph gen      -schema share.yaml -pkg share -out share/names.go
//	sharegraph id encode WorkIdentifier 12345
//	sharegraph id decode 0AD53-D3E-6F5
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"

	"github.com/syssam/sharegraph/dialect/sql"
	"github.com/syssam/sharegraph/idobf"
	"github.com/syssam/sharegraph/pipeline"
	"github.com/syssam/sharegraph/regulate"
	"github.com/syssam/sharegraph/schema"
	"github.com/syssam/sharegraph/schema/gen"
	"github.com/syssam/sharegraph/schema/load"
	"github.com/syssam/sharegraph/store"
)

const usage = `usage: sharegraph <command> [flags] [args]

commands:
  check                     load the schema and summarize it
  regulate <file>...        regulate record files and print or persist them
  watch <dir>               regulate record files as they appear in dir
  gen                       write Go constants for the schema names
  id encode <type> <id>     obfuscate an entity id
  id decode <id>            reverse an obfuscated id

Run "sharegraph <command> -h" for the flags of a command.`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	commands := map[string]func(context.Context, []string, io.Writer, io.Writer) error{
		"check":    runCheck,
		"regulate": runRegulate,
		"watch":    runWatch,
		"gen":      runGen,
		"id":       runID,
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s\n", args[0], usage)
		return 2
	}
	err := cmd(ctx, args[1:], stdout, stderr)
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "sharegraph %s: %v\n\n%s\n", args[0], err, usage)
		return 2
	default:
		fmt.Fprintf(stderr, "sharegraph %s: %v\n", args[0], err)
		return 1
	}
}

var errUsage = errors.New("bad arguments")

// app bundles what the record processing commands share.
type app struct {
	cfg      Config
	logger   *slog.Logger
	registry *schema.Registry
	metrics  *prometheus.Registry
	closers  []func() error
}

func newApp(cfg Config, stderr io.Writer) *app {
	path := cfg.SchemaPath
	return &app{
		cfg:    cfg,
		logger: cfg.Logger(stderr),
		registry: schema.NewRegistry(func() (*schema.Schema, error) {
			return load.LoadFile(path)
		}),
		metrics: prometheus.NewRegistry(),
	}
}

// processor builds a pipeline, persisting to the configured database if
// there is one.
func (a *app) processor(ctx context.Context) (*pipeline.Processor, error) {
	s, err := a.registry.Schema()
	if err != nil {
		return nil, err
	}
	identity := regulate.DefaultIdentity()
	for typ, fields := range a.cfg.Identity {
		identity[typ] = fields
	}
	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithWorkers(a.cfg.Workers),
		pipeline.WithMetrics(pipeline.NewMetrics(a.metrics)),
		pipeline.WithRegulator(regulate.New(
			regulate.WithIdentity(identity),
			regulate.WithLogger(a.logger),
		)),
	}
	if a.cfg.Driver != "" {
		drv, err := sql.Open(a.cfg.Driver, a.cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, drv.Close)
		st, err := store.New(drv, s,
			store.WithLogger(a.logger),
			store.WithQueryStats(sql.WithSlowThreshold(a.cfg.SlowQuery), sql.WithSlowQueryLog(a.logger)),
		)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			a.logger.Info("database statistics", "stats", st.QueryStats().Stats())
			return nil
		})
		opts = append(opts, pipeline.WithPersister(st))
	}
	return pipeline.New(a.registry, opts...), nil
}

// close releases resources in reverse order and writes the metrics file.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if a.cfg.Metrics != "" {
		if err := prometheus.WriteToTextfile(a.cfg.Metrics, a.metrics); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

func runCheck(_ context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, _, err := LoadConfig("check", args, stderr, nil)
	if err != nil {
		return err
	}
	s, err := load.LoadFile(cfg.SchemaPath)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONCRETE TYPE\tTYPES\tATTRIBUTES\tRELATIONS")
	types := 0
	for _, c := range s.ConcreteTypes() {
		var attrs, rels int
		for _, f := range s.Fields(c) {
			if f.IsRelation() {
				rels++
			} else {
				attrs++
			}
		}
		n := len(s.TypeNames(c))
		types += n
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", c, n, attrs, rels)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "ok: %d concrete types, %d types\n", len(s.ConcreteTypes()), types)
	return nil
}

func runRegulate(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	cfg, files, err := LoadConfig("regulate", args, stderr, nil)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no record files", errUsage)
	}
	recs := make([]pipeline.Record, len(files))
	for i, path := range files {
		if recs[i], err = readRecord(path); err != nil {
			return err
		}
	}

	a := newApp(cfg, stderr)
	defer func() { err = errors.Join(err, a.close()) }()
	p, err := a.processor(ctx)
	if err != nil {
		return err
	}
	results, err := p.ProcessBatch(ctx, recs)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	rejected := 0
	for _, res := range results {
		out := map[string]any{"record": res.RecordID}
		if res.OK() {
			out["@graph"] = res.Nodes
			out["merged"] = res.Merged
		} else {
			out["error"] = res.Err.Error()
			rejected++
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	if rejected > 0 {
		return fmt.Errorf("%d of %d records rejected", rejected, len(results))
	}
	return nil
}

func readRecord(path string) (pipeline.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return pipeline.Record{}, err
	}
	defer f.Close()
	return pipeline.DecodeRecord(filepath.Base(path), f)
}

func runGen(_ context.Context, args []string, stdout, stderr io.Writer) error {
	var pkg, out *string
	cfg, _, err := LoadConfig("gen", args, stderr, func(fs *flag.FlagSet) {
		pkg = fs.String("pkg", "share", "package name of the generated file")
		out = fs.String("out", filepath.Join("share", "names.go"), "path of the generated file")
	})
	if err != nil {
		return err
	}
	s, err := load.LoadFile(cfg.SchemaPath)
	if err != nil {
		return err
	}
	if err := gen.Write(s, *pkg, *out); err != nil {
		return err
	}
	fmt.Fprintln(stdout, *out)
	return nil
}

func runID(_ context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, rest, err := LoadConfig("id", args, stderr, nil)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("%w: id needs encode or decode", errUsage)
	}
	s, err := load.LoadFile(cfg.SchemaPath)
	if err != nil {
		return err
	}
	obf, err := idobf.New(idTags(cfg, s))
	if err != nil {
		return err
	}
	switch {
	case rest[0] == "encode" && len(rest) == 3:
		n, err := strconv.ParseInt(rest[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", rest[2], err)
		}
		id, err := obf.Encode(rest[1], n)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, id)
	case rest[0] == "decode" && len(rest) == 2:
		typ, n, err := obf.Decode(rest[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s %d\n", typ, n)
	default:
		return fmt.Errorf("%w: id encode <type> <id> | id decode <id>", errUsage)
	}
	return nil
}

// idTags returns the configured type tags, or numbers the concrete types
// from 1 in declaration order.
func idTags(cfg Config, s *schema.Schema) map[string]uint8 {
	if len(cfg.IDTags) > 0 {
		return cfg.IDTags
	}
	tags := make(map[string]uint8)
	for i, c := range s.ConcreteTypes() {
		tags[c] = uint8(i + 1)
	}
	return tags
}
