package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pipelineai "github.com/codeready-toolchain/acem/internal/pipeline/ai"
	"github.com/codeready-toolchain/acem/internal/pipeline/outreach"
	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

type outreachStore interface {
	LeadsForOutreach(ctx context.Context, limit int) ([]pipelinestore.Lead, error)
	InsertOutreach(ctx context.Context, leadID int64, emailTo, subject, body, outreachType string, gmassID *string) (int64, error)
	OutreachNeedingFollowup(ctx context.Context, followupDays int) ([]pipelinestore.OutreachWithLead, error)
	MarkFollowupSent(ctx context.Context, outreachID int64) error
}

// SendOutreach is run_pipeline.py's stage 6: generate and send one
// initial outreach email per sent-but-not-yet-contacted lead. Only
// runs when transport is non-nil, matching send_outreach.py's guard
// that the whole stage is skipped without GMASS_API_KEY configured
// (or, here, without any transport wired at all).
func SendOutreach(ctx context.Context, store outreachStore, transport outreach.Transport, providers []pipelineai.Provider, limit int, requestDelay time.Duration, log *slog.Logger) (int, error) {
	if transport == nil {
		log.Info("send outreach: no transport configured, skipping")
		return 0, nil
	}

	leads, err := store.LeadsForOutreach(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("send outreach: list leads: %w", err)
	}
	if len(leads) == 0 {
		log.Info("send outreach: no leads ready for outreach")
		return 0, nil
	}

	log.Info("send outreach: sending", "count", len(leads), "transport", transport.Name())
	sent := 0

	for _, lead := range leads {
		if lead.Email == "" {
			continue
		}
		email := outreach.Generate(ctx, outreach.Lead{
			CompanyName:           lead.CompanyName,
			ContactName:           lead.ContactName,
			City:                  lead.City,
			Country:               lead.Country,
			AISummary:             lead.AISummary,
			AutomationSuggestions: lead.AutomationSuggestions,
		}, outreach.EmailTypeInitial, providers...)

		messageID, err := transport.Send(ctx, lead.Email, email.Subject, email.HTMLBody)
		if err != nil {
			log.Warn("send outreach: send failed", "lead_id", lead.ID, "error", err)
			continue
		}

		var gmassID *string
		if messageID != "" {
			gmassID = &messageID
		}
		if _, err := store.InsertOutreach(ctx, lead.ID, lead.Email, email.Subject, email.Body, pipelinestore.OutreachTypeInitial, gmassID); err != nil {
			log.Warn("send outreach: insert failed", "lead_id", lead.ID, "error", err)
			continue
		}
		sent++
		time.Sleep(requestDelay)
	}

	log.Info("send outreach: complete", "sent", sent, "attempted", len(leads))
	return sent, nil
}

// SendFollowups is run_pipeline.py's stage 7: send a single followup
// to every initial outreach that is old enough, unreplied, and not
// already followed up (send_followups.py), through the same Transport
// that initial outreach uses.
func SendFollowups(ctx context.Context, store outreachStore, transport outreach.Transport, providers []pipelineai.Provider, followupDays int, requestDelay time.Duration, log *slog.Logger) (int, error) {
	if transport == nil {
		log.Info("send followups: no transport configured, skipping")
		return 0, nil
	}

	due, err := store.OutreachNeedingFollowup(ctx, followupDays)
	if err != nil {
		return 0, fmt.Errorf("send followups: list due: %w", err)
	}
	if len(due) == 0 {
		log.Info("send followups: none due")
		return 0, nil
	}

	log.Info("send followups: sending", "count", len(due))
	sent := 0

	for _, row := range due {
		email := outreach.Generate(ctx, outreach.Lead{
			CompanyName:           row.CompanyName,
			ContactName:           row.ContactName,
			AISummary:             row.AISummary,
			AutomationSuggestions: row.AutomationSuggestions,
		}, outreach.EmailTypeFollowup, providers...)

		subject := email.Subject
		if row.EmailSubject != "" {
			subject = "Re: " + row.EmailSubject
		}

		messageID, err := transport.Send(ctx, row.EmailTo, subject, email.HTMLBody)
		if err != nil {
			log.Warn("send followups: send failed", "outreach_id", row.OutreachID, "error", err)
			continue
		}

		var gmassID *string
		if messageID != "" {
			gmassID = &messageID
		}
		if _, err := store.InsertOutreach(ctx, row.LeadID, row.EmailTo, subject, email.Body, pipelinestore.OutreachTypeFollowup, gmassID); err != nil {
			log.Warn("send followups: insert failed", "outreach_id", row.OutreachID, "error", err)
			continue
		}
		if err := store.MarkFollowupSent(ctx, row.OutreachID); err != nil {
			log.Warn("send followups: mark sent failed", "outreach_id", row.OutreachID, "error", err)
			continue
		}
		sent++
		time.Sleep(requestDelay)
	}

	log.Info("send followups: complete", "sent", sent, "attempted", len(due))
	return sent, nil
}
