package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/syssam/sharegraph/pipeline"
)

const defaultSettle = 250 * time.Millisecond

func runWatch(ctx context.Context, args []string, _, stderr io.Writer) (err error) {
	var settle *time.Duration
	cfg, rest, err := LoadConfig("watch", args, stderr, func(fs *flag.FlagSet) {
		settle = fs.Duration("settle", defaultSettle, "quiet period before a written file is processed")
	})
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: watch needs one directory", errUsage)
	}
	if *settle <= 0 {
		return fmt.Errorf("%w: -settle must be positive, got %s", errUsage, *settle)
	}
	a := newApp(cfg, stderr)
	defer func() { err = errors.Join(err, a.close()) }()
	p, err := a.processor(ctx)
	if err != nil {
		return err
	}
	w := &watcher{dir: rest[0], settle: *settle, process: p.Process, logger: a.logger}
	return w.run(ctx)
}

// watcher processes *.json record files created or written in dir. A file
// is processed once no event for it arrived for the settle period.
type watcher struct {
	dir     string
	settle  time.Duration
	process func(context.Context, pipeline.Record) (*pipeline.Result, error)
	logger  *slog.Logger
}

func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for records", "dir", w.dir)

	pending := make(map[string]time.Time)
	tick := time.NewTicker(max(w.settle/2, time.Millisecond))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped", "pending", len(pending))
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if isRecordFile(ev.Name) && ev.Has(fsnotify.Create|fsnotify.Write) {
				pending[ev.Name] = time.Now()
			}
			if ev.Has(fsnotify.Remove | fsnotify.Rename) {
				delete(pending, ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		case now := <-tick.C:
			for name, at := range pending {
				if now.Sub(at) < w.settle {
					continue
				}
				delete(pending, name)
				if err := w.handle(ctx, name); err != nil {
					return err
				}
			}
		}
	}
}

// handle processes one file. Only fatal pipeline errors are returned.
func (w *watcher) handle(ctx context.Context, name string) error {
	rec, err := readRecord(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		w.logger.Warn("unreadable record", "file", name, "error", err)
		return nil
	}
	if _, err := w.process(ctx, rec); err != nil && pipeline.Fatal(err) && ctx.Err() == nil {
		return err
	}
	return nil
}

func isRecordFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".json") && !strings.HasPrefix(base, ".")
}
