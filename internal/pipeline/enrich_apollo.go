package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeready-toolchain/acem/internal/pipeline/enrich"
	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

// PersonEnrichment is what a PersonEnricher found for one contact.
type PersonEnrichment struct {
	Email       string
	Phone       string
	ContactName string
}

// PersonEnricher enriches a single contact by domain/name/LinkedIn
// URL. The real Apollo.io /people/match client body is out of scope
// (spec.md Non-goals: third-party API client bodies); NullPersonEnricher
// is the zero-configuration default.
type PersonEnricher interface {
	EnrichPerson(ctx context.Context, domain, name, linkedinURL string) (PersonEnrichment, error)
}

// OrgPhoneEnricher looks up a company's phone number by domain. The
// real Apollo.io /organizations/enrich body is out of scope.
type OrgPhoneEnricher interface {
	EnrichOrganizationPhone(ctx context.Context, domain string) (string, error)
}

// NullPersonEnricher always reports no match, as apollo_enrich.py's
// enrich_person does when APOLLO_API_KEY is unset.
type NullPersonEnricher struct{}

func (NullPersonEnricher) EnrichPerson(ctx context.Context, domain, name, linkedinURL string) (PersonEnrichment, error) {
	return PersonEnrichment{}, nil
}

// NullOrgPhoneEnricher always reports no phone.
type NullOrgPhoneEnricher struct{}

func (NullOrgPhoneEnricher) EnrichOrganizationPhone(ctx context.Context, domain string) (string, error) {
	return "", nil
}

type emailEnrichmentStore interface {
	LeadsNeedingEmailEnrichment(ctx context.Context, limit int) ([]pipelinestore.Lead, error)
	LeadsMissingPhone(ctx context.Context, limit int) ([]pipelinestore.Lead, error)
	UpdateLeadEnrichment(ctx context.Context, leadID int64, data pipelinestore.EnrichmentUpdate) error
}

// EnrichEmailsApollo is run_pipeline.py's stage 2b, extended with the
// free-tier fallback (enrich_emails_free.py) for any lead Apollo
// leaves without an email -- avoiding a second read pass over
// LeadsNeedingEmailEnrichment while Apollo is unconfigured or
// inconclusive. Matches apollo_enrich.py's critical regression guard:
// email_source is only ever set to "apollo" when Apollo actually found
// an email; otherwise it is the free-tier finder's source when that
// finder returns an email, and "none" (retryable) when nothing was
// found.
func EnrichEmailsApollo(ctx context.Context, store emailEnrichmentStore, person PersonEnricher, orgPhone OrgPhoneEnricher, free *enrich.FreeEmailFinder, limit int, rateLimitDelay time.Duration, log *slog.Logger) (int, error) {
	leads, err := store.LeadsNeedingEmailEnrichment(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("enrich apollo: list leads: %w", err)
	}
	if len(leads) == 0 {
		log.Info("enrich apollo: no leads need email enrichment")
		return 0, nil
	}

	log.Info("enrich apollo: enriching leads", "count", len(leads))
	found := 0

	for _, lead := range leads {
		enrichment, err := person.EnrichPerson(ctx, lead.Domain, lead.ContactName, "")
		if err != nil {
			log.Warn("enrich apollo: person enrichment failed", "domain", lead.Domain, "error", err)
		}

		email := enrichment.Email
		emailSource := ""
		if email != "" {
			emailSource = pipelinestore.EmailSourceApollo
		} else if free != nil {
			// Apollo found no email: fall through to the free-tier
			// search/pattern-guess strategies before giving up.
			if freeEmail, freeSource := free.Find(ctx, lead.Domain, lead.CompanyName); freeEmail != "" {
				email = freeEmail
				emailSource = freeSource
			}
		}
		if emailSource == "" {
			emailSource = pipelinestore.EmailSourceNone
		}

		update := pipelinestore.EnrichmentUpdate{EmailSource: &emailSource}
		if email != "" {
			update.Email = &email
		}
		contactName := enrichment.ContactName
		if contactName == "" {
			contactName = lead.ContactName
		}
		if contactName != "" {
			update.ContactName = &contactName
		}
		if enrichment.Phone != "" {
			update.Phone = &enrichment.Phone
		}

		if err := store.UpdateLeadEnrichment(ctx, lead.ID, update); err != nil {
			log.Warn("enrich apollo: update failed", "lead_id", lead.ID, "error", err)
			continue
		}
		if email != "" {
			found++
		}
		time.Sleep(rateLimitDelay)
	}

	log.Info("enrich apollo: email pass complete", "found", found, "attempted", len(leads))

	phoneFound, err := enrichMissingPhones(ctx, store, orgPhone, limit, rateLimitDelay, log)
	if err != nil {
		return found, err
	}
	log.Info("enrich apollo: phone pass complete", "found", phoneFound)

	return found, nil
}

func enrichMissingPhones(ctx context.Context, store emailEnrichmentStore, orgPhone OrgPhoneEnricher, limit int, rateLimitDelay time.Duration, log *slog.Logger) (int, error) {
	leads, err := store.LeadsMissingPhone(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("enrich apollo: list leads missing phone: %w", err)
	}
	if len(leads) == 0 {
		return 0, nil
	}

	updated := 0
	for _, lead := range leads {
		if lead.Domain == "" {
			continue
		}
		phone, err := orgPhone.EnrichOrganizationPhone(ctx, lead.Domain)
		if err != nil {
			log.Warn("enrich apollo: org phone lookup failed", "domain", lead.Domain, "error", err)
			continue
		}
		phone = strings.TrimSpace(phone)
		if phone == "" {
			continue
		}
		if err := store.UpdateLeadEnrichment(ctx, lead.ID, pipelinestore.EnrichmentUpdate{Phone: &phone}); err != nil {
			log.Warn("enrich apollo: phone update failed", "lead_id", lead.ID, "error", err)
			continue
		}
		updated++
		time.Sleep(rateLimitDelay)
	}
	return updated, nil
}
