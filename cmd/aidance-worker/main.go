package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"aidance/internal/amqp"
	"aidance/internal/backend"
	"aidance/internal/cli"
	"aidance/internal/config"
	applog "aidance/internal/log"
	ports "aidance/internal/sheets"
	gsheet "aidance/internal/sheets/google"
	memsheet "aidance/internal/sheets/memory"
	"aidance/internal/storage"
	"aidance/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting aidance-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	ctx, stop := cli.GracefulShutdown(context.Background(), logger)
	defer stop()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize exporter", applog.FieldError, err)
		os.Exit(1)
	}
	w := worker.NewExportWorker(exporter, time.Local, logger.WithComponent(applog.ComponentWorker))

	if cfg.ExportBackfill {
		backfill(ctx, cfg, w, logger)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(applog.ComponentAMQP))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeRecordEvents(gctx, w.HandleRecordEvent)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func newExporter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (ports.ExpenseExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
		return memsheet.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger.WithComponent(applog.ComponentSheets))
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// backfill exports the records already in the sqlite store so events the
// worker missed still reach the sheet. Failures are logged, not fatal.
func backfill(ctx context.Context, cfg *config.Config, w *worker.ExportWorker, logger *applog.Logger) {
	if cfg.DataBackend != string(backend.SQLiteBackend) {
		logger.Info("Skipping backfill - only the sqlite backend is shared with the server")
		return
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		return
	}
	bcfg.CacheTTL = 0
	bcfg.DataDirectory = ""

	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend), nil).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open store for backfill", applog.FieldError, err)
		return
	}
	defer res.Cleanup()

	store := storage.NewStore(res.KV, logger.WithComponent(applog.ComponentStorage))
	n, err := w.Backfill(ctx, store.Records(ctx))
	if err != nil {
		logger.Error("Backfill failed", applog.FieldError, err, applog.FieldCount, n)
		return
	}
	logger.Info("Backfill completed", applog.FieldCount, n)
}
