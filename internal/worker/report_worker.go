// Package worker reacts to ledger events published by the API process.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"envelopes/internal/amqp"
	"envelopes/internal/sheets"
)

// Exporter populates one month and hands it to a report writer.
type Exporter interface {
	ExportMonth(ctx context.Context, date time.Time, writer sheets.ReportWriter) (string, error)
}

// ReportWorker rewrites the month reports affected by a ledger change. A change
// in one month moves the carried-forward figures of every later month, so each
// month from the event through the current one is exported again.
type ReportWorker struct {
	exporter  Exporter
	writer    sheets.ReportWriter
	maxMonths int
	now       func() time.Time
}

func NewReportWorker(exporter Exporter, writer sheets.ReportWriter, maxMonths int) *ReportWorker {
	if maxMonths < 1 {
		maxMonths = 1
	}
	return &ReportWorker{
		exporter:  exporter,
		writer:    writer,
		maxMonths: maxMonths,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP
func (w *ReportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", msg.Kind,
		"id", msg.ID,
		"month", msg.Month.Format("2006-01"))

	months := w.affectedMonths(msg.Month)
	for _, month := range months {
		ref, err := w.exporter.ExportMonth(ctx, month, w.writer)
		if err != nil {
			return fmt.Errorf("export %s: %w", month.Format("2006-01"), err)
		}
		slog.DebugContext(ctx, "Exported month report", "month", month.Format("2006-01"), "ref", ref)
	}

	slog.InfoContext(ctx, "Successfully exported month reports",
		"kind", msg.Kind,
		"id", msg.ID,
		"months", len(months))
	return nil
}

// affectedMonths lists the first day of each month from the month of from
// through the current month. When the span exceeds maxMonths only the most
// recent months are kept. A future month yields just that month.
func (w *ReportWorker) affectedMonths(from time.Time) []time.Time {
	first := monthStart(from)
	last := monthStart(w.now())
	if first.After(last) {
		return []time.Time{first}
	}

	var months []time.Time
	for m := last; !m.Before(first) && len(months) < w.maxMonths; m = m.AddDate(0, -1, 0) {
		months = append(months, m)
	}
	// oldest first
	for i, j := 0, len(months)-1; i < j; i, j = i+1, j-1 {
		months[i], months[j] = months[j], months[i]
	}
	return months
}

// StartupExport rewrites the recent months once at worker startup. It covers
// events missed while the worker was down.
func (w *ReportWorker) StartupExport(ctx context.Context) error {
	current := monthStart(w.now())
	from := current.AddDate(0, -(w.maxMonths - 1), 0)

	successCount, errorCount := 0, 0
	for _, month := range w.affectedMonths(from) {
		if _, err := w.exporter.ExportMonth(ctx, month, w.writer); err != nil {
			slog.ErrorContext(ctx, "Failed to export month on startup",
				"month", month.Format("2006-01"), "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"success", successCount,
		"errors", errorCount)
	if successCount == 0 && errorCount > 0 {
		return fmt.Errorf("startup export: all %d months failed", errorCount)
	}
	return nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
