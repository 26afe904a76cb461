package pipeline

import (
	"context"
	"fmt"
)

// ensureSchema creates tables idempotently and backfills columns
// added after v1 (outreach_sent), exactly the "on open, the layer
// ensures required tables and columns exist" policy of spec.md §4.A,
// and seeds city_rotation once if empty.
func (s *Store) ensureSchema(ctx context.Context) error {
	var stmts []string
	if s.postgres {
		stmts = postgresSchema
	} else {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pipeline store: ensure schema: %w", err)
		}
	}

	if err := s.backfillOutreachSentColumn(ctx); err != nil {
		return err
	}
	return s.seedCitiesIfEmpty(ctx)
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id BIGSERIAL PRIMARY KEY,
		domain TEXT UNIQUE,
		company_name TEXT,
		website TEXT,
		phone TEXT,
		address TEXT,
		city TEXT,
		country TEXT,
		snippet TEXT,
		contact_name TEXT,
		email TEXT,
		email_source TEXT,
		scraped_text TEXT,
		ai_summary TEXT,
		automation_suggestions TEXT,
		discovered_date TIMESTAMP DEFAULT now(),
		sent_date TIMESTAMP,
		status TEXT DEFAULT 'new'
	)`,
	`CREATE TABLE IF NOT EXISTS city_rotation (
		id BIGSERIAL PRIMARY KEY,
		city_name TEXT NOT NULL,
		country TEXT NOT NULL,
		language TEXT DEFAULT 'es',
		last_searched TIMESTAMP,
		search_count INTEGER DEFAULT 0,
		UNIQUE (city_name, country)
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id BIGSERIAL PRIMARY KEY,
		run_date TIMESTAMP,
		leads_discovered INTEGER,
		leads_enriched INTEGER,
		leads_with_email INTEGER,
		leads_ai_analyzed INTEGER,
		leads_sent INTEGER,
		outreach_sent INTEGER DEFAULT 0,
		errors TEXT,
		duration_seconds DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS outreach (
		id BIGSERIAL PRIMARY KEY,
		lead_id BIGINT NOT NULL REFERENCES leads(id),
		email_to TEXT NOT NULL,
		email_subject TEXT,
		email_body TEXT,
		outreach_type TEXT DEFAULT 'initial',
		sent_date TIMESTAMP,
		gmass_message_id TEXT,
		opened INTEGER DEFAULT 0,
		clicked INTEGER DEFAULT 0,
		replied INTEGER DEFAULT 0,
		reply_date TIMESTAMP,
		followup_sent INTEGER DEFAULT 0,
		followup_date TIMESTAMP,
		status TEXT DEFAULT 'pending'
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT UNIQUE,
		company_name TEXT,
		website TEXT,
		phone TEXT,
		address TEXT,
		city TEXT,
		country TEXT,
		snippet TEXT,
		contact_name TEXT,
		email TEXT,
		email_source TEXT,
		scraped_text TEXT,
		ai_summary TEXT,
		automation_suggestions TEXT,
		discovered_date TEXT DEFAULT CURRENT_TIMESTAMP,
		sent_date TEXT,
		status TEXT DEFAULT 'new'
	)`,
	`CREATE TABLE IF NOT EXISTS city_rotation (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		city_name TEXT NOT NULL,
		country TEXT NOT NULL,
		language TEXT DEFAULT 'es',
		last_searched TEXT,
		search_count INTEGER DEFAULT 0,
		UNIQUE (city_name, country)
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_date TEXT,
		leads_discovered INTEGER,
		leads_enriched INTEGER,
		leads_with_email INTEGER,
		leads_ai_analyzed INTEGER,
		leads_sent INTEGER,
		outreach_sent INTEGER DEFAULT 0,
		errors TEXT,
		duration_seconds REAL
	)`,
	`CREATE TABLE IF NOT EXISTS outreach (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lead_id INTEGER NOT NULL REFERENCES leads(id),
		email_to TEXT NOT NULL,
		email_subject TEXT,
		email_body TEXT,
		outreach_type TEXT DEFAULT 'initial',
		sent_date TEXT,
		gmass_message_id TEXT,
		opened INTEGER DEFAULT 0,
		clicked INTEGER DEFAULT 0,
		replied INTEGER DEFAULT 0,
		reply_date TEXT,
		followup_sent INTEGER DEFAULT 0,
		followup_date TEXT,
		status TEXT DEFAULT 'pending'
	)`,
}

func (s *Store) backfillOutreachSentColumn(ctx context.Context) error {
	if s.postgres {
		_, err := s.db.ExecContext(ctx, `ALTER TABLE pipeline_runs ADD COLUMN IF NOT EXISTS outreach_sent INTEGER DEFAULT 0`)
		return err
	}

	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(pipeline_runs)`)
	if err != nil {
		return err
	}
	defer rows.Close()

	hasColumn := false
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt any
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == "outreach_sent" {
			hasColumn = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if hasColumn {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `ALTER TABLE pipeline_runs ADD COLUMN outreach_sent INTEGER DEFAULT 0`)
	return err
}

func (s *Store) seedCitiesIfEmpty(ctx context.Context) error {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM city_rotation`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, city := range citySeeds {
		if s.postgres {
			if _, err := s.exec(ctx, `
				INSERT INTO city_rotation (city_name, country, language)
				VALUES (?, ?, ?)
				ON CONFLICT (city_name, country) DO NOTHING
			`, city.CityName, city.Country, city.Language); err != nil {
				return fmt.Errorf("seed city %s: %w", city.CityName, err)
			}
		} else {
			if _, err := s.exec(ctx, `
				INSERT OR IGNORE INTO city_rotation (city_name, country, language)
				VALUES (?, ?, ?)
			`, city.CityName, city.Country, city.Language); err != nil {
				return fmt.Errorf("seed city %s: %w", city.CityName, err)
			}
		}
	}
	return nil
}
