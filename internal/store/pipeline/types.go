// Package pipeline implements the lead-generation pipeline's
// relational store (spec.md §3 "Pipeline store", §4.A), selectable at
// Open between an embedded modernc.org/sqlite file (development) and
// jackc/pgx/v5/stdlib over Postgres (production), behind one Store so
// stage code never branches on backend.
//
// Every query here is ported function-for-function from
// original_source/agents/lead_generation/tools/db_manager.py: same
// WHERE clauses, same ORDER BY priority CASE expressions, same
// regression-guard semantics for get_leads_needing_email_enrichment.
package pipeline

import "time"

// Lead statuses.
const (
	LeadStatusNew  = "new"
	LeadStatusSent = "sent"
)

// Email source tags (spec.md §3). "none" means an enrichment attempt
// was made (Apollo matched, or a free-tier probe ran) and found
// nothing; it is a tag, never a filter predicate that excludes the
// lead from future attempts (see DESIGN.md Open Question resolution).
const (
	EmailSourceApollo       = "apollo"
	EmailSourceWebsiteScrape = "website_scrape"
	EmailSourceSerperSearch = "serper_search"
	EmailSourceSMTPVerified = "smtp_verified"
	EmailSourcePatternGuess = "pattern_guess"
	EmailSourceNone         = "none"
)

// Outreach type/status constants.
const (
	OutreachTypeInitial  = "initial"
	OutreachTypeFollowup = "followup"

	OutreachStatusPending = "pending"
	OutreachStatusSent    = "sent"
	OutreachStatusReplied = "replied"
)

// Lead is a prospective company, unique by Domain.
type Lead struct {
	ID                     int64
	Domain                 string
	CompanyName            string
	Website                string
	Phone                  string
	Address                string
	City                   string
	Country                string
	Snippet                string
	ContactName            string
	Email                  string
	EmailSource            string
	ScrapedText            string
	AISummary              string
	AutomationSuggestions  string // serialized JSON list of {name,description,value}
	DiscoveredDate         time.Time
	SentDate               *time.Time
	Status                 string
}

// LeadInput is the subset of Lead fields supplied at discovery time.
type LeadInput struct {
	Domain      string
	CompanyName string
	Website     string
	Phone       string
	Address     string
	City        string
	Country     string
	Snippet     string
}

// EnrichmentUpdate carries the optional fields update_lead_enrichment
// may set; a nil/zero field is left untouched.
type EnrichmentUpdate struct {
	Email       *string
	EmailSource *string
	ContactName *string
	ScrapedText *string
	Phone       *string
	Address     *string
}

// City is one city_rotation row.
type City struct {
	CityName     string
	Country      string
	Language     string
	LastSearched *time.Time
	SearchCount  int64
}

// PipelineRunStats is the per-stage tally the driver accumulates and
// logs via LogPipelineRun at the end of every run.
type PipelineRunStats struct {
	Discovered      int
	Enriched        int
	WithEmail       int
	AIAnalyzed      int
	Sent            int
	OutreachSent    int
	Errors          []string
	DurationSeconds float64
}

// PipelineRun is a logged run, as read back by the facade.
type PipelineRun struct {
	ID              int64
	RunDate         time.Time
	LeadsDiscovered int64
	LeadsEnriched   int64
	LeadsWithEmail  int64
	LeadsAIAnalyzed int64
	LeadsSent       int64
	OutreachSent    int64
	Errors          []string
	DurationSeconds float64
}

// Outreach is one sent outreach email.
type Outreach struct {
	ID             int64
	LeadID         int64
	EmailTo        string
	EmailSubject   string
	EmailBody      string
	OutreachType   string
	SentDate       *time.Time
	GmassMessageID *string
	Opened         bool
	Clicked        bool
	Replied        bool
	ReplyDate      *time.Time
	FollowupSent   bool
	FollowupDate   *time.Time
	Status         string
}

// OutreachWithLead is the join row get_outreach_needing_followup reads.
type OutreachWithLead struct {
	OutreachID            int64
	LeadID                int64
	EmailTo               string
	EmailSubject          string
	EmailBody             string
	CompanyName           string
	ContactName           string
	AISummary             string
	AutomationSuggestions string
}
