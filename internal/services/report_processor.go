package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"envelopes/internal/sheets"
)

// ReportProcessorConfig holds configuration for the report processor
type ReportProcessorConfig struct {
	// PollInterval is how often the recent months are exported (default: 15m)
	PollInterval time.Duration

	// Months is how many months, ending with the current one, each pass
	// exports (default: 2)
	Months int
}

// DefaultReportProcessorConfig returns sensible defaults
func DefaultReportProcessorConfig() ReportProcessorConfig {
	return ReportProcessorConfig{
		PollInterval: 15 * time.Minute,
		Months:       2,
	}
}

// ReportProcessor periodically re-exports the most recent months. It backs up
// event-driven exports when events are lost or the worker was down.
type ReportProcessor struct {
	service *LedgerService
	writer  sheets.ReportWriter
	config  ReportProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReportProcessor creates a new report processor
func NewReportProcessor(service *LedgerService, writer sheets.ReportWriter, config ReportProcessorConfig) *ReportProcessor {
	if config.Months < 1 {
		config.Months = 1
	}
	return &ReportProcessor{
		service: service,
		writer:  writer,
		config:  config,
	}
}

// Start begins the export loop. Returns an error if already running.
func (p *ReportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("report processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Report processor started",
		"poll_interval", p.config.PollInterval,
		"months", p.config.Months)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ReportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Report processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Report processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ReportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ReportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Export immediately on startup
	p.ExportRecent(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ExportRecent(ctx)
		}
	}
}

// ExportRecent exports the configured number of months ending with the
// current one, oldest first, and returns how many were written.
func (p *ReportProcessor) ExportRecent(ctx context.Context) int {
	current := p.service.now()
	written := 0
	for i := p.config.Months - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			return written
		default:
		}

		month := time.Date(current.Year(), current.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		ref, err := p.service.ExportMonth(ctx, month, p.writer)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to export month",
				"month", month.Format("2006-01"), "error", err)
			continue
		}
		written++
		slog.DebugContext(ctx, "Exported month", "month", month.Format("2006-01"), "ref", ref)
	}
	return written
}
