// Command reciboscan parses OCR output files from the command line and
// writes the structured receipts as JSON or XLSX.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/dcastano/reciboscan/internal/async"
	"github.com/dcastano/reciboscan/internal/common"
	"github.com/dcastano/reciboscan/internal/entity"
	"github.com/dcastano/reciboscan/internal/export"
	"github.com/dcastano/reciboscan/internal/ingest"
	"github.com/dcastano/reciboscan/internal/ocr"
	"github.com/dcastano/reciboscan/internal/pipeline"
	"github.com/dcastano/reciboscan/internal/registry"
	"github.com/dcastano/reciboscan/internal/repository"
)

func main() {
	_ = godotenv.Load()
	cfg := common.LoadConfig()

	fs := ff.NewFlagSet("reciboscan")
	var (
		format   = fs.StringLong("format", "json", "output format: 'json' or 'xlsx'")
		out      = fs.StringLong("out", "", "output file (default stdout for json, receipts.xlsx for xlsx)")
		boltPath = fs.StringLong("store-bolt", cfg.Store.BoltPath, "bbolt file for learned templates ('' = in-memory)")
		chainDir = fs.StringLong("chain-dir", cfg.Parser.ChainTemplateDir, "directory of extra chain template JSON files")
		region   = fs.StringLong("region", cfg.Parser.DefaultRegion, "default regional preset")
		watch    = fs.StringLong("watch", "", "watch a directory for OCR files and parse them as they appear")
		workers  = fs.IntLong("workers", 4, "parse workers in watch mode")
		debug    = fs.BoolLong("debug", "enable debug logging")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("RECIBOSCAN")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	files := fs.GetArgs()
	if len(files) == 0 && *watch == "" {
		fmt.Fprintf(os.Stderr, "usage: reciboscan [flags] <ocr-file>...\n%s\n", ffhelp.Flags(fs))
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	chains, err := registry.LoadChainTemplates(*chainDir, logger)
	if err != nil {
		fatal(logger, "loading chain templates failed", err)
	}
	regions := registry.NewRegionRegistry(registry.BuiltinRegions(), *region)
	taxRegions := registry.NewTaxRegionRegistry(registry.BuiltinTaxRegions(), "ES_IVA")

	var repo repository.TemplateRepository
	if *boltPath == "" {
		repo = repository.NewMemoryRepository()
	} else {
		repo, err = repository.NewBoltRepository(*boltPath, logger)
		if err != nil {
			fatal(logger, "opening template store failed", err)
		}
	}

	pipe := pipeline.New(pipeline.Config{
		MinChainConfidence: cfg.Parser.MinChainConfidence,
		MinLearnConfidence: cfg.Parser.MinLearnConfidence,
		DefaultRegion:      *region,
	}, chains, regions, taxRegions, repo, logger)

	ctx := context.Background()
	if *watch != "" {
		runWatch(pipe, *watch, *workers, logger)
		return
	}

	var receipts []*entity.ParsedReceipt
	for _, path := range files {
		doc, err := readDocument(path)
		if err != nil {
			fatal(logger, "reading "+path, err)
		}
		r, err := pipe.Parse(ctx, doc)
		if err != nil {
			logger.Warn("template store errors", "file", path, "error", err)
		}
		receipts = append(receipts, r)
	}

	if err := write(receipts, *format, *out, logger); err != nil {
		fatal(logger, "writing output", err)
	}
}

// runWatch parses OCR files from dir as they appear, writing a
// .receipt.json next to each input. Runs until interrupted.
func runWatch(pipe *pipeline.Pipeline, dir string, workers int, logger *slog.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := async.NewQueue(func(ctx context.Context, path string) error {
		if strings.HasSuffix(path, ".receipt.json") {
			return nil
		}
		doc, err := readDocument(path)
		if err != nil {
			return err
		}
		r, err := pipe.Parse(ctx, doc)
		if err != nil {
			logger.Warn("template store errors", "file", path, "error", err)
		}
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path+".receipt.json", data, 0o644)
	}, logger, async.WithWorkers(workers))

	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
	}, logger)
	if err != nil {
		fatal(logger, "starting watcher", err)
	}
	logger.Info("watching", "dir", dir)

	for paths != nil || errs != nil {
		select {
		case p, ok := <-paths:
			if !ok {
				paths = nil
				continue
			}
			queue.Enqueue(ctx, async.Job{Path: p})
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)
}

// readDocument loads a JSON OCR document, or wraps a plain text file's
// lines as a geometry-less document.
func readDocument(path string) (entity.OcrDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.OcrDocument{}, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ocr.DecodeDocument(f)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return entity.OcrDocument{}, err
	}
	return entity.DocumentFromLines(strings.Split(string(raw), "\n")), nil
}

func write(receipts []*entity.ParsedReceipt, format, out string, logger *slog.Logger) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			enc = json.NewEncoder(f)
		}
		enc.SetIndent("", "  ")
		return enc.Encode(receipts)
	case "xlsx":
		data, err := export.NewService(logger).ReceiptsXLSX(receipts)
		if err != nil {
			return err
		}
		if out == "" {
			out = "receipts.xlsx"
		}
		return os.WriteFile(out, data, 0o644)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
