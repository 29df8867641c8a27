// Command vahan-export fetches one dashboard and writes its tables as CSV
// files, optionally with an XLSX workbook and a NATS summary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/vahan-insights/engine/dashboard"
	"github.com/WessleyAI/vahan-insights/engine/domain"
	"github.com/WessleyAI/vahan-insights/engine/export"
	"github.com/WessleyAI/vahan-insights/engine/vahan"
	"github.com/WessleyAI/vahan-insights/pkg/config"
	"github.com/WessleyAI/vahan-insights/pkg/fn"
	"github.com/WessleyAI/vahan-insights/pkg/natsutil"
)

// SubjectSuffix is appended to the configured NATS subject for export
// summaries.
const SubjectSuffix = ".exported"

// Summary is published after a successful export.
type Summary struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Filters     domain.Filters `json:"filters"`
	Text        string         `json:"summary"`
	Files       []string       `json:"files"`
	LatestYoY   *float64       `json:"latest_yoy"`
	LatestQoQ   *float64       `json:"latest_qoq"`
}

type options struct {
	filters   domain.Filters
	outDir    string
	xlsx      bool
	publish   bool
	topMakers bool
	workers   int
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	opts, err := parseFlags(os.Args[1:], cfg, time.Now())
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error("invalid arguments", "err", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, cfg, logger, os.Stdout); err != nil {
		logger.Error("export failed", "err", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, cfg config.Config, now time.Time) (options, error) {
	def := domain.DefaultFilters(now)
	opts := options{}
	fs := flag.NewFlagSet("vahan-export", flag.ContinueOnError)
	fs.IntVar(&opts.filters.FromYear, "from", def.FromYear, "first registration year")
	fs.IntVar(&opts.filters.ToYear, "to", def.ToYear, "last registration year")
	fs.StringVar(&opts.filters.StateCode, "state", def.StateCode, "state code, empty for all India")
	fs.StringVar(&opts.filters.RTOCode, "rto", def.RTOCode, "RTO code, 0 for the state aggregate")
	fs.StringVar(&opts.filters.VehicleClasses, "classes", def.VehicleClasses, "vehicle classes filter")
	fs.StringVar(&opts.filters.VehicleMakers, "makers", def.VehicleMakers, "vehicle makers filter")
	fs.IntVar(&opts.filters.TimePeriod, "period", def.TimePeriod, "time period (0, 1 or 2)")
	fs.IntVar(&opts.filters.FitnessCheck, "fitness", def.FitnessCheck, "fitness check (0 or 1)")
	fs.StringVar(&opts.filters.VehicleType, "vehicle-type", def.VehicleType, "vehicle type filter")
	fs.StringVar(&opts.outDir, "out", ".", "output directory")
	fs.BoolVar(&opts.xlsx, "xlsx", false, "also write "+dashboard.FileWorkbook)
	fs.BoolVar(&opts.publish, "publish", false, "publish a summary to NATS")
	fs.BoolVar(&opts.topMakers, "top-makers", cfg.IncludeTopMakers, "include the top makers table")
	fs.IntVar(&opts.workers, "workers", 4, "parallel file writers")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, domain.ValidateFilters(opts.filters, now)
}

func run(ctx context.Context, opts options, cfg config.Config, logger *slog.Logger, out io.Writer) error {
	if opts.publish && cfg.NATSURL == "" {
		return errors.New("-publish requires NATS_URL")
	}

	client := vahan.New(vahan.Options{
		BaseURL:       cfg.BaseURL,
		UserAgent:     cfg.UserAgent,
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         cfg.Burst,
		Logger:        logger,
	})
	svc := dashboard.New(client, dashboard.Options{IncludeTopMakers: opts.topMakers}, logger)

	d, err := svc.Build(ctx, opts.filters)
	if err != nil {
		return err
	}
	if d.TrendError != "" {
		logger.Warn("trend unavailable", "err", d.TrendError)
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tables := d.Tables()
	files, err := fn.Collect(fn.ParMapResult(tables, opts.workers, func(t export.Table) fn.Result[string] {
		path := filepath.Join(opts.outDir, t.Filename)
		return fn.FromPair(path, writeFile(path, func(w io.Writer) error { return export.WriteCSV(w, t) }))
	})).Unwrap()
	if err != nil {
		return err
	}
	if opts.xlsx && len(tables) > 0 {
		path := filepath.Join(opts.outDir, dashboard.FileWorkbook)
		if err := writeFile(path, func(w io.Writer) error { return export.WriteXLSX(w, tables...) }); err != nil {
			return err
		}
		files = append(files, path)
	}

	fmt.Fprintln(out, d.Summary())
	for _, f := range files {
		fmt.Fprintf(out, "  wrote %s\n", f)
	}

	if opts.publish {
		return publish(ctx, cfg, Summary{
			GeneratedAt: time.Now().UTC(),
			Filters:     d.Filters,
			Text:        d.Summary(),
			Files:       files,
			LatestYoY:   d.LatestYoY,
			LatestQoQ:   d.LatestQoQ,
		})
	}
	return nil
}

func publish(ctx context.Context, cfg config.Config, s Summary) error {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("vahan-export"))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()
	if err := natsutil.Publish(ctx, nc, cfg.NATSSubject+SubjectSuffix, s); err != nil {
		return err
	}
	return nc.FlushTimeout(5 * time.Second)
}

// writeFile creates path and fills it with write. A failed write or close
// leaves no partial file behind.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return fill(path, f, write)
}

func fill(path string, f io.WriteCloser, write func(io.Writer) error) error {
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
