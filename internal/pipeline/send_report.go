package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

// ReportSender delivers the daily HTML report (with its optional
// Excel attachment) to recipient. The real Gmail-SMTP-credentialed
// client body is out of scope (spec.md Non-goals list SMTP among the
// third-party API client bodies); NullReportSender is the
// zero-configuration default, mirroring send_email.py's "Gmail
// credentials not configured" guard.
type ReportSender interface {
	Send(ctx context.Context, recipient, subject, htmlBody, attachmentPath string) (bool, error)
}

// NullReportSender always reports failure without attempting delivery.
type NullReportSender struct{ Log *slog.Logger }

func (s NullReportSender) Send(ctx context.Context, recipient, subject, htmlBody, attachmentPath string) (bool, error) {
	if s.Log != nil {
		s.Log.Error("send report: no report sender configured, cannot send email")
	}
	return false, nil
}

type reportStore interface {
	UnsentLeads(ctx context.Context, limit int) ([]pipelinestore.Lead, error)
	MarkLeadsSent(ctx context.Context, leadIDs []int64, sentDate time.Time) error
}

// BuildAndSendReport is run_pipeline.py's stage 4-5: gather unsent
// enriched leads, render Excel + HTML, send, and mark sent leads on
// success. Returns the count of leads marked sent.
func BuildAndSendReport(ctx context.Context, store reportStore, excel ExcelBuilder, sender ReportSender, recipient string, runDate string, limit int, log *slog.Logger) (int, error) {
	leads, err := store.UnsentLeads(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("build outputs: list unsent leads: %w", err)
	}
	if len(leads) == 0 {
		log.Warn("build outputs: no enriched leads available to send")
		return 0, nil
	}

	withEmail, withPhone := 0, 0
	for _, l := range leads {
		if l.Email != "" {
			withEmail++
		}
		if l.Phone != "" {
			withPhone++
		}
	}
	log.Info("build outputs: preparing leads", "count", len(leads), "with_email", withEmail, "with_phone", withPhone)

	excelPath, err := excel.Build(ctx, leads, runDate)
	if err != nil {
		log.Error("build outputs: excel build failed", "error", err)
	}

	html := BuildEmailHTML(leads, runDate)

	subject := fmt.Sprintf("Informe Diario de Leads - %s - %d Agencias de Marketing", runDate, len(leads))
	sent, err := sender.Send(ctx, recipient, subject, html, excelPath)
	if err != nil {
		log.Error("send report: send failed", "error", err)
		return 0, nil
	}
	if !sent {
		return 0, nil
	}

	ids := make([]int64, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}
	sentDate, err := time.Parse("2006-01-02", runDate)
	if err != nil {
		sentDate = time.Now().UTC()
	}
	if err := store.MarkLeadsSent(ctx, ids, sentDate); err != nil {
		return 0, fmt.Errorf("build outputs: mark leads sent: %w", err)
	}

	log.Info("send report: complete", "sent", len(leads), "recipient", recipient)
	return len(leads), nil
}
