package enrich

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// EmailPatterns are the common marketing-agency mailbox patterns
// tried in order, mirroring enrich_emails_free.py's EMAIL_PATTERNS.
var EmailPatterns = []string{"info@%s", "contacto@%s", "hola@%s", "hello@%s", "contact@%s"}

// SearchClient is the narrow interface a Serper.dev-backed email
// search would implement; the actual HTTP client body is out of
// scope. NullSearchClient is the zero-configuration default.
type SearchClient interface {
	SearchEmails(ctx context.Context, domain, companyName string) ([]string, error)
}

// NullSearchClient always returns no results, as if no API key were
// configured (enrich_emails_free.py's "if SERPER_API_KEY" guard).
type NullSearchClient struct{}

func (NullSearchClient) SearchEmails(ctx context.Context, domain, companyName string) ([]string, error) {
	return nil, nil
}

// FreeEmailFinder runs the two free-tier discovery strategies:
// a pluggable web search, then an MX/SMTP probe of common mailbox
// patterns.
type FreeEmailFinder struct {
	Search      SearchClient
	SMTPTimeout time.Duration
}

// NewFreeEmailFinder builds a finder; search may be NullSearchClient{}.
func NewFreeEmailFinder(search SearchClient) *FreeEmailFinder {
	if search == nil {
		search = NullSearchClient{}
	}
	return &FreeEmailFinder{Search: search, SMTPTimeout: 8 * time.Second}
}

// Find runs Strategy 1 (search) then Strategy 2 (MX + SMTP pattern
// probe), returning (email, source). source is "none" when nothing
// was found -- a retryable tag, never a terminal state
// (enrich_emails_free.py's run()).
func (f *FreeEmailFinder) Find(ctx context.Context, domain, companyName string) (string, string) {
	if emails, err := f.Search.SearchEmails(ctx, domain, companyName); err == nil {
		for _, e := range emails {
			if strings.Contains(strings.ToLower(e), strings.ToLower(domain)) {
				return e, "serper_search"
			}
		}
	}

	email, source := f.tryEmailPatterns(domain)
	if email != "" {
		return email, source
	}
	return "", "none"
}

// tryEmailPatterns is _try_email_patterns: checks MX/A resolution,
// then RCPT-TO-verifies each pattern in turn, falling back to a
// pattern_guess of info@domain if mail is accepted but no pattern
// verifies conclusively.
func (f *FreeEmailFinder) tryEmailPatterns(domain string) (string, string) {
	if !mxExists(domain) {
		return "", "none"
	}

	for _, pattern := range EmailPatterns {
		email := fmt.Sprintf(pattern, domain)
		if f.verifySMTP(email) {
			return email, "smtp_verified"
		}
	}

	return "info@" + domain, "pattern_guess"
}

// mxExists ports _check_mx_exists: try resolving a mail exchanger,
// falling back to a bare A/AAAA lookup.
func mxExists(domain string) bool {
	if mxRecords, err := net.LookupMX(domain); err == nil && len(mxRecords) > 0 {
		return true
	}
	if _, err := net.LookupHost(domain); err == nil {
		return true
	}
	return false
}

// verifySMTP ports _verify_email_smtp: connect to the domain's SMTP
// port and issue HELO/MAIL FROM/RCPT TO, returning whether the
// recipient was accepted (250). Any failure (blocked, timeout,
// refused) is treated as inconclusive, not a positive rejection.
func (f *FreeEmailFinder) verifySMTP(email string) bool {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 {
		return false
	}
	domain := parts[1]

	conn, err := net.DialTimeout("tcp", domain+":25", f.SMTPTimeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(f.SMTPTimeout))

	client, err := smtp.NewClient(conn, domain)
	if err != nil {
		return false
	}
	defer client.Close()

	if err := client.Hello("verify.local"); err != nil {
		return false
	}
	if err := client.Mail("test@verify.local"); err != nil {
		return false
	}
	if err := client.Rcpt(email); err != nil {
		return false
	}
	return true
}
