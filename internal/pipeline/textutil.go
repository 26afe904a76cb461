package pipeline

import (
	"net/url"
	"regexp"
	"strings"
)

// textutil.go ports original_source/agents/lead_generation/tools/utils.py's
// text-handling helpers: extract_domain, clean_email,
// extract_emails_from_text, is_excluded_domain, sanitize_text.

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
var emailFindPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
var wwwPrefix = regexp.MustCompile(`^www\.`)
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
var whitespacePattern = regexp.MustCompile(`\s+`)

var boilerplatePhrases = []string{"cookie", "privacy policy", "terms of service", "subscribe to our"}

// CleanEmail normalizes and validates an email, returning "" if invalid.
func CleanEmail(raw string) string {
	if raw == "" {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(raw))
	if emailPattern.MatchString(email) {
		return email
	}
	return ""
}

// ExtractDomain extracts the root (www-stripped, lowercased) domain
// from a URL, defaulting to https:// when no scheme is present.
func ExtractDomain(raw string) string {
	if raw == "" {
		return ""
	}
	u := raw
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	domain := parsed.Host
	if domain == "" {
		domain = strings.SplitN(parsed.Path, "/", 2)[0]
	}
	domain = wwwPrefix.ReplaceAllString(domain, "")
	return strings.ToLower(domain)
}

// ExtractEmailsFromText finds, validates, and dedupes all emails in
// text, preserving first-seen order.
func ExtractEmailsFromText(text string) []string {
	if text == "" {
		return nil
	}
	raw := emailFindPattern.FindAllString(text, -1)
	seen := make(map[string]bool)
	var emails []string
	for _, e := range raw {
		lower := strings.ToLower(e)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		if cleaned := CleanEmail(e); cleaned != "" {
			emails = append(emails, cleaned)
		}
	}
	return emails
}

// IsExcludedDomain reports whether url's domain matches (as a
// substring) any entry of excluded -- directory sites, social media,
// and the like never get inserted as leads.
func IsExcludedDomain(rawURL string, excluded []string) bool {
	domain := ExtractDomain(rawURL)
	if domain == "" {
		return true
	}
	for _, e := range excluded {
		if strings.Contains(domain, e) {
			return true
		}
	}
	return false
}

// SanitizeText strips HTML tags, collapses whitespace, drops sentences
// containing boilerplate phrases, and truncates to maxLength on a
// word boundary -- used to prepare scraped page text for AI prompts.
func SanitizeText(htmlOrText string, maxLength int) string {
	if htmlOrText == "" {
		return ""
	}
	text := htmlTagPattern.ReplaceAllString(htmlOrText, " ")
	text = strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))

	for _, phrase := range boilerplatePhrases {
		text = dropSentencesContaining(text, phrase)
	}

	if len(text) > maxLength {
		truncated := text[:maxLength]
		if idx := strings.LastIndex(truncated, " "); idx > 0 {
			truncated = truncated[:idx]
		}
		text = truncated + "..."
	}
	return text
}

func dropSentencesContaining(text, phrase string) string {
	pattern := regexp.MustCompile(`(?i)[^.]*` + regexp.QuoteMeta(phrase) + `[^.]*\.?`)
	return pattern.ReplaceAllString(text, "")
}
