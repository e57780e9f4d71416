package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	oaoption "github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"

	"github.com/theimaginaryfoundation/note-sheets/migration"
	"github.com/theimaginaryfoundation/note-sheets/migration/config"
	"github.com/theimaginaryfoundation/note-sheets/migration/logging"
	"github.com/theimaginaryfoundation/note-sheets/migration/metrics"
	"github.com/theimaginaryfoundation/note-sheets/migration/provider"
	"github.com/theimaginaryfoundation/note-sheets/migration/sink"
	"github.com/theimaginaryfoundation/note-sheets/migration/source"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	static, err := config.LoadFromFile(cfg.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = firstNonEmpty(cfg.LogLevel, static.Logging.Level)
	logCfg.Format = firstNonEmpty(cfg.LogFormat, static.Logging.Format)
	logger := logging.Init(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, static, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AccessToken = os.Getenv("GOOGLE_ACCESS_TOKEN")
	cfg.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	cfg.S3AccessKey = os.Getenv("NOTESHEETS_S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("NOTESHEETS_S3_SECRET_KEY")

	fs.SetOutput(os.Stderr)

	var characters string
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "YAML config file (default: ./note-sheets.yaml or ~/.config/note-sheets/note-sheets.yaml if present)")
	fs.StringVar(&characters, "characters", "", "Comma separated character names to export (e.g. 아서,샬럿)")

	fs.StringVar(&cfg.Source, "source", cfg.Source, "Where archives live: dir, drive or s3")
	fs.StringVar(&cfg.InputDir, "in", cfg.InputDir, "Archive directory for -source dir")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "S3-compatible endpoint host:port for -source s3")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "Bucket for -source s3")
	fs.StringVar(&cfg.S3Prefix, "s3-prefix", cfg.S3Prefix, "Object key prefix for -source s3")
	fs.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "Bucket region for -source s3 (skips the location lookup)")
	fs.BoolVar(&cfg.S3UseSSL, "s3-ssl", true, "Use TLS for -source s3 (keys from NOTESHEETS_S3_ACCESS_KEY / NOTESHEETS_S3_SECRET_KEY)")

	fs.StringVar(&cfg.Sink, "sink", cfg.Sink, "Where tables go: csv or sheets")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Output directory for -sink csv")
	fs.StringVar(&cfg.Title, "title", cfg.Title, "Spreadsheet / file title (default from config sheet_title)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite existing CSV files")
	fs.StringVar(&cfg.CredentialsFile, "credentials", cfg.CredentialsFile, "Google credentials JSON (GOOGLE_ACCESS_TOKEN wins when set)")

	fs.BoolVar(&cfg.Flat, "flat", false, "One row per message in load order, without thread grouping")
	fs.BoolVar(&cfg.IncludeTarget, "target", false, "Add the addressed-mention column")

	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Archives fetched in parallel")
	fs.Float64Var(&cfg.RateLimit, "rps", cfg.RateLimit, "Max remote API requests per second (0 = unlimited)")

	fs.BoolVar(&cfg.Summarize, "summarize", false, "Add a per-thread summary table written by an OpenAI model (uses OPENAI_API_KEY)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model for -summarize")
	fs.IntVar(&cfg.SummaryConcurrency, "summary-concurrency", cfg.SummaryConcurrency, "Summary requests in flight")
	fs.BoolVar(&cfg.Flex, "flex", false, "Use the flex service tier for summaries")

	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write run metrics in Prometheus text format to this path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level override (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format override (console, json)")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/archive-sheets -characters 아서,샬럿 -in archives -out out")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/archive-sheets -characters 루 -source drive -sink sheets -config note-sheets.yaml")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Characters = splitList(characters)
	if cfg.InputDir != "" {
		cfg.InputDir = filepath.Clean(cfg.InputDir)
	}
	if cfg.OutputDir != "" {
		cfg.OutputDir = filepath.Clean(cfg.OutputDir)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg Config, static *config.Config, stdout io.Writer) error {
	runID := uuid.NewString()
	logger := logging.FromContext(ctx).With().Str("run_id", runID).Logger()
	ctx = logging.WithContext(ctx, logger)

	refs, err := static.Select(cfg.Characters)
	if err != nil {
		return err
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	session := source.Session{AccessToken: cfg.AccessToken, CredentialsFile: cfg.CredentialsFile}

	src, err := openSource(ctx, cfg, static, session, limiter)
	if err != nil {
		return err
	}
	out, err := openSink(ctx, cfg, session, limiter)
	if err != nil {
		return err
	}

	rec := metrics.New()
	msgs, report, err := migration.LoadArchives(ctx, src, refs, migration.LoadOptions{
		ItemsField:  static.ItemsField,
		Language:    static.Language,
		Concurrency: cfg.Concurrency,
		Recorder:    rec,
	})
	if err != nil {
		return err
	}
	if failed := report.Failed(); failed > 0 {
		logger.Warn().Int("failed", failed).Int("archives", len(refs)).Msg("some archives were dropped")
	}

	layout := migration.Layout{Threaded: !cfg.Flat, IncludeTarget: cfg.IncludeTarget}
	res := migration.Run(msgs, migration.PipelineOptions{
		Projector: migration.Projector{
			Filter:   static.Filter(),
			Names:    static.NameByID(),
			Location: static.Location(),
		},
		Layout:    layout,
		TableName: "rows",
		Recorder:  rec,
	})
	logger.Info().
		Int("messages", len(msgs)).
		Int("threads", len(res.Threads)).
		Int("rows", len(res.Rows)).
		Msg("table built")

	tables := []migration.Table{res.Table}
	if cfg.Summarize {
		t, err := summarize(ctx, cfg, res.Rows, rec)
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}

	title := firstNonEmpty(cfg.Title, static.SheetTitle)
	location, err := out.WriteTables(ctx, title, tables)
	if err != nil {
		return fmt.Errorf("write tables: %w", err)
	}
	logger.Info().Str("output", location).Msg("tables written")

	rec.MarkSuccess()
	if cfg.MetricsFile != "" {
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("metrics textfile not written")
		}
	}

	fmt.Fprintf(stdout, "run_id=%s archives=%d failed=%d messages=%d threads=%d rows=%d output=%s\n",
		runID, len(refs), report.Failed(), len(msgs), len(res.Threads), len(res.Rows), location)
	return nil
}

func openSource(ctx context.Context, cfg Config, static *config.Config, session source.Session, limiter *rate.Limiter) (source.Source, error) {
	switch cfg.Source {
	case "dir":
		return source.Dir{Root: cfg.InputDir}, nil
	case "drive":
		d, err := source.NewDrive(ctx, static.DriveFiles, session.ClientOptions(drive.DriveReadonlyScope)...)
		if err != nil {
			return nil, err
		}
		return source.RateLimited(d, limiter), nil
	case "s3":
		s, err := source.NewS3(source.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Region:    cfg.S3Region,
		})
		if err != nil {
			return nil, err
		}
		return source.RateLimited(s, limiter), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func openSink(ctx context.Context, cfg Config, session source.Session, limiter *rate.Limiter) (sink.Writer, error) {
	switch cfg.Sink {
	case "csv":
		return sink.CSVDir{Dir: cfg.OutputDir, Overwrite: cfg.Overwrite}, nil
	case "sheets":
		return sink.NewSheets(ctx, limiter, session.ClientOptions(sheets.SpreadsheetsScope)...)
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}

func summarize(ctx context.Context, cfg Config, rows []migration.Row, rec *metrics.Run) (migration.Table, error) {
	if cfg.APIKey == "" {
		return migration.Table{}, errors.New("summarize: OPENAI_API_KEY is not set")
	}
	logger := logging.Component(ctx, "summarizer")

	client := openai.NewClient(oaoption.WithAPIKey(cfg.APIKey))
	s := provider.OpenAIThreadSummarizer{Client: &client, Model: cfg.Model, Flex: cfg.Flex}

	digests := migration.DigestRows(rows)
	sums, err := migration.SummarizeThreads(ctx, digests, s, cfg.SummaryConcurrency, func(d migration.ThreadDigest, err error) {
		rec.ObserveSummary(err)
		if err != nil {
			logger.Error().Err(err).Int("thread", d.Index).Msg("summary failed")
			return
		}
		logger.Debug().Int("thread", d.Index).Int("rows", len(d.Rows)).Msg("summary done")
	})
	if err != nil {
		return migration.Table{}, err
	}
	return migration.SummaryTable("summaries", digests, sums), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
