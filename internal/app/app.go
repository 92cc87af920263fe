package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"alert-digest/internal/alerting"
	"alert-digest/internal/config"
	"alert-digest/internal/directory"
	"alert-digest/internal/extract"
	"alert-digest/internal/metrics"
	"alert-digest/internal/service"
	"alert-digest/internal/source"
	"alert-digest/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return nil
}

// loadDirectory reads subscriptions from PostgreSQL when a DSN is set,
// otherwise from the semicolon-delimited table.
func (a *App) loadDirectory(ctx context.Context) (*directory.Directory, error) {
	cfg := a.Config.Directory
	if cfg.DSN == "" {
		dir, err := directory.LoadFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		a.Logger.Info().Str("path", cfg.Path).Int("subscriptions", dir.Len()).Msg("subscription table loaded")
		return dir, nil
	}

	pool, err := storage.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := storage.NewStore(pool, cfg.Table)
	defer store.Close()

	dir, err := storage.LoadDirectory(ctx, store)
	if err != nil {
		return nil, err
	}
	a.Logger.Info().Str("table", cfg.Table).Int("subscriptions", dir.Len()).Msg("subscription table loaded")
	return dir, nil
}

// run loads the inputs and executes the pipeline once.
func (a *App) run(ctx context.Context, paths []string) (*service.Result, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input paths given")
	}

	dir, err := a.loadDirectory(ctx)
	if err != nil {
		return nil, err
	}

	loader := source.NewLoader(source.Options{Extensions: a.Config.Source.Extensions}, a.Logger)
	records, sourceRejections, err := loader.Load(ctx, paths)
	if err != nil {
		return nil, err
	}

	extractor := extract.New(extract.Options{
		VendorMarker: a.Config.Extraction.VendorMarker,
		Offset:       &a.Config.Extraction.UTCOffset,
	}, dir, a.Logger)

	recorder := metrics.NewRecorder()
	svc := service.New(a.Config, extractor, recorder, a.Logger)

	result, err := svc.Process(ctx, records, sourceRejections)
	if err != nil {
		return nil, err
	}

	if path := a.Config.Metrics.Textfile; path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			a.Logger.Error().Err(err).Str("path", path).Msg("failed to write metrics")
		}
	}
	return result, nil
}

// ProcessOptions configure the process command.
type ProcessOptions struct {
	Paths  []string
	Output string
	Format string
	Notify bool
}

// ExportOptions hold parameters for exporting accepted events.
type ExportOptions struct {
	Paths   []string
	CSVPath string
	PNGPath string
}

// DirectoryOptions configure the directory command.
type DirectoryOptions struct {
	Filter string
}

func (a *App) deliver(ctx context.Context, result *service.Result) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return fmt.Errorf("no delivery channel configured")
	}

	failed := 0
	for _, date := range result.Report.Dates() {
		note := alerting.Notification{
			RunID:      result.Summary.RunID,
			Date:       date,
			Lines:      result.Report.Lines(date),
			Rejections: len(result.Rejections),
		}
		sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := notifier.Notify(sendCtx, note)
		cancel()
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Str("date", date).Msg("failed to deliver digest")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d digest deliveries failed", failed)
	}
	return nil
}
