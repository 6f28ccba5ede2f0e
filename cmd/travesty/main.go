// Command travesty annotates HTML documents with satirical text
// replacements.
//
// Usage:
//
//	travesty -rules rules.yaml -in page.html             # annotate once to stdout
//	travesty -rules-db rules.db -in page.html            # rules from SQLite
//	travesty -rules rules.yaml -in page.html -feed       # apply NDJSON mutations from stdin first
//	travesty -rules rules.yaml -in page.html -watch      # re-annotate on every file change
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/travesty"
	"github.com/hazyhaar/travesty/mutation"
	"github.com/hazyhaar/travesty/rules"
)

func main() {
	rulesPath := flag.String("rules", "", "path to rules.yaml")
	rulesDB := flag.String("rules-db", "", "path to a SQLite rules database")
	inPath := flag.String("in", "", "path to the HTML document to annotate")
	configPath := flag.String("config", "", "path to travesty.yaml engine config")
	feed := flag.Bool("feed", false, "apply NDJSON mutation records from stdin before rendering")
	watch := flag.Bool("watch", false, "watch the input file and re-annotate on change")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *rulesPath, *rulesDB, *inPath, *configPath, *feed, *watch); err != nil {
		logger.Error("travesty: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, rulesPath, rulesDB, inPath, configPath string, feed, watch bool) error {
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: travesty -rules <file>|-rules-db <file> -in <page.html> [-feed|-watch]")
		os.Exit(1)
	}

	reg, err := loadRules(ctx, rulesPath, rulesDB)
	if err != nil {
		return err
	}
	logger.Info("travesty: rules loaded", "count", reg.Len())

	cfg := travesty.DefaultConfig()
	if configPath != "" {
		cfg, err = travesty.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	if watch {
		return runWatch(ctx, logger, cfg, reg, inPath)
	}
	return runOnce(logger, cfg, reg, inPath, feed, os.Stdout)
}

func loadRules(ctx context.Context, rulesPath, rulesDB string) (*rules.Registry, error) {
	switch {
	case rulesPath != "" && rulesDB != "":
		return nil, fmt.Errorf("use -rules or -rules-db, not both")
	case rulesPath != "":
		return rules.LoadFile(rulesPath)
	case rulesDB != "":
		db, err := sql.Open("sqlite", rulesDB)
		if err != nil {
			return nil, fmt.Errorf("open rules db: %w", err)
		}
		defer db.Close()
		return rules.LoadDB(ctx, db)
	default:
		return nil, fmt.Errorf("no rules source: pass -rules or -rules-db")
	}
}

// runOnce annotates one document. With -feed it first replays host mutation
// records from stdin through the live engine, flushing the pending batch
// before the final render.
func runOnce(logger *slog.Logger, cfg *travesty.Config, reg *rules.Registry, inPath string, feed bool, out *os.File) error {
	raw, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	e, err := travesty.New(cfg, reg, logger)
	if err != nil {
		return err
	}
	if err := e.LoadDocument(raw); err != nil {
		return err
	}
	if err := e.Start(); err != nil {
		return err
	}
	defer e.Stop()

	if feed {
		err := mutation.ReadRecords(os.Stdin, func(rec mutation.Record) error {
			// Per-record failures are already logged by the engine;
			// the feed keeps going.
			e.ApplyHost(rec)
			return nil
		})
		if err != nil {
			return fmt.Errorf("mutation feed: %w", err)
		}
		e.Flush()
	}

	html, err := e.HTML()
	if err != nil {
		return err
	}
	if _, err := out.Write(html); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	stats := e.Stats()
	logger.Info("travesty: done",
		"wrappers", stats.Wrappers, "observed", stats.Observed, "flushes", stats.Flushes)
	return nil
}

// runWatch re-annotates the input file on every write until the context is
// cancelled. Each pass builds a fresh engine: markers are per document
// lifetime and a rewritten file is a new document.
func runWatch(ctx context.Context, logger *slog.Logger, cfg *travesty.Config, reg *rules.Registry, inPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(inPath); err != nil {
		return fmt.Errorf("watch %s: %w", inPath, err)
	}

	if err := runOnce(logger, cfg, reg, inPath, false, os.Stdout); err != nil {
		logger.Warn("travesty: initial pass failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			logger.Info("travesty: input changed, re-annotating", "file", ev.Name)
			if err := runOnce(logger, cfg, reg, inPath, false, os.Stdout); err != nil {
				logger.Warn("travesty: pass failed", "error", err)
			}
			// Editors that replace the file drop the watch on the old inode.
			watcher.Add(inPath)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("travesty: watch error", "error", err)
		}
	}
}
