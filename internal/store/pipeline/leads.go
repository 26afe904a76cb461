package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// LeadExists reports whether a lead with domain already exists
// (db_manager.py's lead_exists).
func (s *Store) LeadExists(ctx context.Context, domain string) (bool, error) {
	var id int64
	err := s.queryRow(ctx, `SELECT id FROM leads WHERE domain = ?`, domain).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertLead inserts a new lead and returns its id, or nil if domain
// already exists (unique-constraint violation swallowed, not an
// error -- db_manager.py's insert_lead).
func (s *Store) InsertLead(ctx context.Context, in LeadInput) (*int64, error) {
	// Empty optional fields are stored as NULL so the IS NULL checks
	// in the enrichment and priority queries see them as missing.
	nullable := func(v string) any {
		if v == "" {
			return nil
		}
		return v
	}
	id, err := s.insertReturningID(ctx, `
		INSERT INTO leads (domain, company_name, website, phone, address, city, country, snippet, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'new')
	`, in.Domain, nullable(in.CompanyName), nullable(in.Website), nullable(in.Phone), nullable(in.Address), nullable(in.City), nullable(in.Country), nullable(in.Snippet))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("insert lead %s: %w", in.Domain, err)
	}
	return &id, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

// InsertLeadsBatch inserts each lead, counting how many were actually
// new (db_manager.py's insert_leads_batch).
func (s *Store) InsertLeadsBatch(ctx context.Context, leads []LeadInput) (int, error) {
	inserted := 0
	for _, lead := range leads {
		id, err := s.InsertLead(ctx, lead)
		if err != nil {
			return inserted, err
		}
		if id != nil {
			inserted++
		}
	}
	return inserted, nil
}

func scanLeadRows(rows *sql.Rows, cols []string) ([]Lead, error) {
	var leads []Lead
	for rows.Next() {
		dest := make([]any, len(cols))
		values := make([]sql.NullString, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		lead := Lead{}
		for i, col := range cols {
			v := values[i].String
			switch col {
			case "id":
				fmt.Sscanf(v, "%d", &lead.ID)
			case "domain":
				lead.Domain = v
			case "company_name":
				lead.CompanyName = v
			case "website":
				lead.Website = v
			case "phone":
				lead.Phone = v
			case "address":
				lead.Address = v
			case "city":
				lead.City = v
			case "country":
				lead.Country = v
			case "snippet":
				lead.Snippet = v
			case "contact_name":
				lead.ContactName = v
			case "email":
				lead.Email = v
			case "email_source":
				lead.EmailSource = v
			case "scraped_text":
				lead.ScrapedText = v
			case "ai_summary":
				lead.AISummary = v
			case "automation_suggestions":
				lead.AutomationSuggestions = v
			case "status":
				lead.Status = v
			}
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// LeadsNeedingEnrichment is db_manager.py's get_leads_needing_enrichment.
func (s *Store) LeadsNeedingEnrichment(ctx context.Context, limit int) ([]Lead, error) {
	cols := []string{"id", "domain", "company_name", "website", "phone", "address", "city", "country", "email", "scraped_text", "status"}
	rows, err := s.query(ctx, fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE (email IS NULL OR scraped_text IS NULL) AND website IS NOT NULL AND status = 'new'
		ORDER BY CASE WHEN email IS NULL THEN 0 ELSE 1 END, discovered_date DESC
		LIMIT ?
	`, strings.Join(cols, ", ")), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeadRows(rows, cols)
}

// LeadsNeedingEmailEnrichment is db_manager.py's
// get_leads_needing_email_enrichment. CRITICAL regression guard: this
// must NOT filter by email_source. A lead previously marked
// email_source='apollo' with email still NULL must keep being
// returned here so it gets retried (spec.md §4.E.3, §8).
func (s *Store) LeadsNeedingEmailEnrichment(ctx context.Context, limit int) ([]Lead, error) {
	cols := []string{"id", "domain", "company_name", "website", "email", "email_source", "status"}
	rows, err := s.query(ctx, fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE email IS NULL AND website IS NOT NULL AND status = 'new'
		ORDER BY discovered_date DESC
		LIMIT ?
	`, strings.Join(cols, ", ")), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeadRows(rows, cols)
}

// LeadsNeedingAI is db_manager.py's get_leads_needing_ai.
func (s *Store) LeadsNeedingAI(ctx context.Context, limit int) ([]Lead, error) {
	cols := []string{"id", "company_name", "website", "domain", "city", "country", "phone", "snippet", "scraped_text", "email", "contact_name"}
	rows, err := s.query(ctx, fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE ai_summary IS NULL AND status = 'new'
		ORDER BY discovered_date DESC
		LIMIT ?
	`, strings.Join(cols, ", ")), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeadRows(rows, cols)
}

// LeadsMissingPhone is db_manager.py's get_leads_missing_phone.
func (s *Store) LeadsMissingPhone(ctx context.Context, limit int) ([]Lead, error) {
	cols := []string{"id", "domain", "company_name"}
	rows, err := s.query(ctx, fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE phone IS NULL AND domain IS NOT NULL AND status = 'new'
		ORDER BY discovered_date DESC
		LIMIT ?
	`, strings.Join(cols, ", ")), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeadRows(rows, cols)
}

// UnsentLeads is db_manager.py's get_unsent_leads: enriched leads not
// yet sent, prioritizing has-email-and-phone > has-email > has-phone.
func (s *Store) UnsentLeads(ctx context.Context, limit int) ([]Lead, error) {
	cols := []string{"id", "domain", "company_name", "website", "phone", "address", "city", "country", "contact_name", "email", "email_source", "ai_summary", "automation_suggestions"}
	rows, err := s.query(ctx, fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE sent_date IS NULL AND status = 'new' AND ai_summary IS NOT NULL
		ORDER BY
			CASE
				WHEN email IS NOT NULL AND phone IS NOT NULL THEN 0
				WHEN email IS NOT NULL THEN 1
				WHEN phone IS NOT NULL THEN 2
				ELSE 3
			END,
			discovered_date DESC
		LIMIT ?
	`, strings.Join(cols, ", ")), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeadRows(rows, cols)
}

// LeadsForOutreach is db_manager.py's get_leads_for_outreach: sent
// leads with an email and no prior initial outreach row.
func (s *Store) LeadsForOutreach(ctx context.Context, limit int) ([]Lead, error) {
	cols := []string{"id", "domain", "company_name", "website", "phone", "city", "country", "contact_name", "email", "ai_summary", "automation_suggestions"}
	qualified := make([]string, len(cols))
	for i, c := range cols {
		qualified[i] = "l." + c
	}
	rows, err := s.query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM leads l
		LEFT JOIN outreach o ON l.id = o.lead_id AND o.outreach_type = 'initial'
		WHERE l.sent_date IS NOT NULL
		  AND l.email IS NOT NULL
		  AND o.id IS NULL
		ORDER BY l.sent_date DESC
		LIMIT ?
	`, strings.Join(qualified, ", ")), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeadRows(rows, cols)
}

// UpdateLeadEnrichment is db_manager.py's update_lead_enrichment: only
// the non-nil fields of data are set.
func (s *Store) UpdateLeadEnrichment(ctx context.Context, leadID int64, data EnrichmentUpdate) error {
	var setClauses []string
	var values []any

	add := func(col string, v *string) {
		if v != nil {
			setClauses = append(setClauses, col+" = ?")
			values = append(values, *v)
		}
	}
	add("email", data.Email)
	add("email_source", data.EmailSource)
	add("contact_name", data.ContactName)
	add("scraped_text", data.ScrapedText)
	add("phone", data.Phone)
	add("address", data.Address)

	if len(setClauses) == 0 {
		return nil
	}
	values = append(values, leadID)
	_, err := s.exec(ctx, fmt.Sprintf(`UPDATE leads SET %s WHERE id = ?`, strings.Join(setClauses, ", ")), values...)
	return err
}

// UpdateLeadAI is db_manager.py's update_lead_ai.
func (s *Store) UpdateLeadAI(ctx context.Context, leadID int64, summary string, automationSuggestionsJSON string) error {
	_, err := s.exec(ctx, `UPDATE leads SET ai_summary = ?, automation_suggestions = ? WHERE id = ?`, summary, automationSuggestionsJSON, leadID)
	return err
}

// MarkLeadsSent is db_manager.py's mark_leads_sent.
func (s *Store) MarkLeadsSent(ctx context.Context, leadIDs []int64, sentDate time.Time) error {
	if len(leadIDs) == 0 {
		return nil
	}
	args := make([]any, 0, len(leadIDs)+1)
	args = append(args, sentDate.Format("2006-01-02"))
	for _, id := range leadIDs {
		args = append(args, id)
	}
	_, err := s.exec(ctx, fmt.Sprintf(
		`UPDATE leads SET sent_date = ?, status = 'sent' WHERE id IN (%s)`, placeholderList(len(leadIDs)),
	), args...)
	return err
}

// TotalLeadsCount is db_manager.py's get_total_leads_count.
func (s *Store) TotalLeadsCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&count)
	return count, err
}

// UnsentCount is db_manager.py's get_unsent_count.
func (s *Store) UnsentCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM leads WHERE sent_date IS NULL AND status = 'new' AND ai_summary IS NOT NULL`).Scan(&count)
	return count, err
}

// SentLeadsCount counts every lead marked sent, for the facade's
// synthesized-snapshot fallback (server.py's sent_total).
func (s *Store) SentLeadsCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM leads WHERE sent_date IS NOT NULL`).Scan(&count)
	return count, err
}

// PendingLeadsCount counts every lead not yet sent, for the facade's
// synthesized-snapshot fallback (server.py's pending_total).
func (s *Store) PendingLeadsCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM leads WHERE sent_date IS NULL`).Scan(&count)
	return count, err
}
