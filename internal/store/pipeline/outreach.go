package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertOutreach is db_manager.py's insert_outreach.
func (s *Store) InsertOutreach(ctx context.Context, leadID int64, emailTo, subject, body, outreachType string, gmassID *string) (int64, error) {
	return s.insertReturningID(ctx, `
		INSERT INTO outreach
		(lead_id, email_to, email_subject, email_body, outreach_type, sent_date, gmass_message_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'sent')
	`, leadID, emailTo, subject, body, outreachType, time.Now().UTC().Format("2006-01-02 15:04:05"), gmassID)
}

// OutreachNeedingFollowup is db_manager.py's
// get_outreach_needing_followup: initial sends at least followupDays
// old with no reply and no followup yet.
func (s *Store) OutreachNeedingFollowup(ctx context.Context, followupDays int) ([]OutreachWithLead, error) {
	var q string
	if s.postgres {
		q = fmt.Sprintf(`
			SELECT o.id, o.lead_id, o.email_to, o.email_subject, o.email_body,
			       l.company_name, l.contact_name, l.ai_summary, l.automation_suggestions
			FROM outreach o
			JOIN leads l ON o.lead_id = l.id
			WHERE o.outreach_type = 'initial'
			  AND o.replied = 0
			  AND o.followup_sent = 0
			  AND o.status = 'sent'
			  AND CAST(o.sent_date AS DATE) <= CURRENT_DATE - (%d * INTERVAL '1 day')
			ORDER BY o.sent_date ASC
		`, followupDays)
	} else {
		q = fmt.Sprintf(`
			SELECT o.id, o.lead_id, o.email_to, o.email_subject, o.email_body,
			       l.company_name, l.contact_name, l.ai_summary, l.automation_suggestions
			FROM outreach o
			JOIN leads l ON o.lead_id = l.id
			WHERE o.outreach_type = 'initial'
			  AND o.replied = 0
			  AND o.followup_sent = 0
			  AND o.status = 'sent'
			  AND date(o.sent_date) <= date('now', '-%d days')
			ORDER BY o.sent_date ASC
		`, followupDays)
	}

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutreachWithLead
	for rows.Next() {
		var row OutreachWithLead
		var companyName, contactName, aiSummary, automations sql.NullString
		if err := rows.Scan(&row.OutreachID, &row.LeadID, &row.EmailTo, &row.EmailSubject, &row.EmailBody,
			&companyName, &contactName, &aiSummary, &automations); err != nil {
			return nil, err
		}
		row.CompanyName = companyName.String
		row.ContactName = contactName.String
		row.AISummary = aiSummary.String
		row.AutomationSuggestions = automations.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkFollowupSent is db_manager.py's mark_followup_sent.
func (s *Store) MarkFollowupSent(ctx context.Context, outreachID int64) error {
	_, err := s.exec(ctx, `
		UPDATE outreach SET followup_sent = 1, followup_date = ? WHERE id = ?
	`, time.Now().UTC().Format("2006-01-02 15:04:05"), outreachID)
	return err
}

// MarkOutreachReplied is db_manager.py's mark_outreach_replied,
// set externally by a webhook or manual admin action.
func (s *Store) MarkOutreachReplied(ctx context.Context, outreachID int64) error {
	_, err := s.exec(ctx, `
		UPDATE outreach SET replied = 1, reply_date = ?, status = 'replied' WHERE id = ?
	`, time.Now().UTC().Format("2006-01-02 15:04:05"), outreachID)
	return err
}

// TotalOutreachSentCount counts every initial outreach row ever sent,
// for the facade's synthesized-snapshot fallback.
func (s *Store) TotalOutreachSentCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM outreach WHERE outreach_type = 'initial' AND sent_date IS NOT NULL`).Scan(&count)
	return count, err
}

// CountOutreachSentBetween counts initial outreach rows sent in
// [start, end) -- server.py's _count_outreach_sent_between, used by
// the facade when a run row predates the outreach_sent column.
func (s *Store) CountOutreachSentBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := s.queryRow(ctx, `
		SELECT COUNT(*) FROM outreach
		WHERE outreach_type = 'initial' AND sent_date >= ? AND sent_date < ?
	`, formatQueryTime(start), formatQueryTime(end)).Scan(&count)
	return count, err
}
