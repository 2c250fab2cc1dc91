package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aidance/internal/amqp"
	"aidance/internal/core"
	applog "aidance/internal/log"
	"aidance/internal/sheets"
)

// ExportWorker copies expense records to the spreadsheet. Every other record
// type is skipped. Export is idempotent on the record id.
type ExportWorker struct {
	exporter sheets.ExpenseExporter
	loc      *time.Location
	logger   *applog.Logger
}

func NewExportWorker(exporter sheets.ExpenseExporter, loc *time.Location, logger *applog.Logger) *ExportWorker {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = applog.Default(applog.ComponentWorker)
	}
	return &ExportWorker{exporter: exporter, loc: loc, logger: logger.WithComponent(applog.ComponentWorker)}
}

// HandleRecordEvent is the amqp.Handler for record.created events.
func (w *ExportWorker) HandleRecordEvent(ctx context.Context, msg *amqp.RecordEvent) error {
	_, err := w.export(ctx, msg.Record)
	return err
}

// Backfill exports the expenses in records that the sheet does not have
// yet. It stops at the first failure and returns how many rows it wrote.
func (w *ExportWorker) Backfill(ctx context.Context, records []core.Record) (int, error) {
	exported := 0
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		ok, err := w.export(ctx, r)
		if err != nil {
			return exported, err
		}
		if ok {
			exported++
		}
	}
	return exported, nil
}

func (w *ExportWorker) export(ctx context.Context, r core.Record) (bool, error) {
	row, err := sheets.RowFromRecord(r, w.loc)
	if errors.Is(err, sheets.ErrNotExpense) {
		w.logger.DebugContext(ctx, "Skipping non-expense record",
			applog.FieldRecordID, r.ID, applog.FieldRecordType, string(r.Type))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	exists, err := w.exporter.HasRecord(ctx, r.ID)
	if err != nil {
		return false, fmt.Errorf("check exported %s: %w", r.ID, err)
	}
	if exists {
		w.logger.DebugContext(ctx, "Expense already exported", applog.FieldRecordID, r.ID)
		return false, nil
	}

	ref, err := w.exporter.AppendExpense(ctx, row)
	if err != nil {
		return false, fmt.Errorf("export expense %s: %w", r.ID, err)
	}
	w.logger.InfoContext(ctx, "Expense exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldRecordID, r.ID,
		applog.FieldCategory, row.Category,
		applog.FieldAmount, row.Amount,
		"row_ref", ref)
	return true, nil
}
