// Package enrich implements the website-scraping and free-tier
// email-discovery enrichment stages, grounded on
// original_source/agents/lead_generation/tools/enrich_leads.py and
// enrich_emails_free.py. Website fetching uses
// github.com/gocolly/colly/v2 (the scraping library the example pack
// reaches for in tools/niezatapialni-scraper), replacing the
// original's requests+BeautifulSoup.
package enrich

import (
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// ContactPages are probed, in order, on each lead's website.
var ContactPages = []string{
	"", "/contacto", "/contact", "/contact-us", "/contactanos",
	"/about", "/about-us", "/nosotros", "/sobre-nosotros", "/equipo", "/team",
}

var lowPriorityEmailPrefixes = []string{
	"noreply", "no-reply", "no.reply", "donotreply", "mailer-daemon",
	"postmaster", "webmaster", "admin", "support", "newsletter",
	"suscripciones", "unsubscribe",
}

var genericGoodEmailPrefixes = map[string]bool{
	"info": true, "hello": true, "hola": true, "contacto": true,
	"contact": true, "ventas": true, "sales": true,
}

var pageTextPaths = map[string]bool{
	"": true, "/nosotros": true, "/about": true, "/about-us": true, "/sobre-nosotros": true,
}

var roleKeywords = []string{
	"CEO", "Fundador", "Founder", "Director", "Managing Director",
	"Directora", "Cofundador", "Co-founder", "Owner", "Gerente",
	"Socio", "Partner",
}

var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+\d{1,3}[\s.-]?\(?\d{1,4}\)?[\s.-]?\d{3,4}[\s.-]?\d{3,4}`),
	regexp.MustCompile(`\(\d{2,4}\)\s?\d{3,4}[\s.-]?\d{3,4}`),
	regexp.MustCompile(`\b\d{2,4}[\s.-]\d{2,4}[\s.-]\d{2,4}(?:[\s.-]\d{2,4})?\b`),
	regexp.MustCompile(`\+\d{1,3}\s?\d{6,12}\b`),
}

var nonDigitPattern = regexp.MustCompile(`\D`)

// EmailExtractor, EmailCleaner and TextSanitizer are the three
// textutil.go helpers the scraper needs, injected to avoid an import
// cycle with the parent pipeline package.
type EmailExtractor func(text string) []string
type EmailCleaner func(raw string) string
type TextSanitizer func(htmlOrText string, maxLength int) string

// WebsiteScrapeResult is the non-empty subset of fields a scrape
// found; zero-value fields should be left untouched by the caller.
type WebsiteScrapeResult struct {
	Email       string
	EmailSource string
	ContactName string
	Phone       string
	ScrapedText string
}

// WebsiteScraper visits a lead's homepage and contact-style paths,
// collecting candidate emails, a contact name, a phone number, and
// page text for AI analysis.
type WebsiteScraper struct {
	Timeout        time.Duration
	PageDelay      time.Duration
	ExtractEmails  EmailExtractor
	CleanEmail     EmailCleaner
	Sanitize       TextSanitizer
}

// NewWebsiteScraper builds a scraper with the given helper functions
// wired in from the parent package (ExtractEmailsFromText, CleanEmail,
// SanitizeText).
func NewWebsiteScraper(extract EmailExtractor, clean EmailCleaner, sanitize TextSanitizer) *WebsiteScraper {
	return &WebsiteScraper{
		Timeout:       15 * time.Second,
		PageDelay:     500 * time.Millisecond,
		ExtractEmails: extract,
		CleanEmail:    clean,
		Sanitize:      sanitize,
	}
}

// Scrape fetches website and each of ContactPages beneath it,
// returning the combined, prioritized result (enrich_leads.py's
// _scrape_lead).
func (w *WebsiteScraper) Scrape(website string) WebsiteScrapeResult {
	if website == "" {
		return WebsiteScrapeResult{}
	}

	var allEmails []string
	var allText []string
	var phone, contactName string

	for _, path := range ContactPages {
		url := normalizeURL(website, path)
		page, err := w.fetchPage(url)
		if err != nil || page == nil {
			continue
		}

		allEmails = append(allEmails, w.ExtractEmails(page.text)...)
		for _, href := range page.mailtoHrefs {
			if email := w.CleanEmail(strings.SplitN(strings.TrimPrefix(href, "mailto:"), "?", 2)[0]); email != "" {
				allEmails = append(allEmails, email)
			}
		}

		if phone == "" {
			if len(page.telHrefs) > 0 {
				phone = strings.TrimSpace(strings.TrimPrefix(page.telHrefs[0], "tel:"))
			} else {
				phone = extractPhone(page.text)
			}
		}

		if contactName == "" {
			contactName = extractContactName(page.text)
		}

		if pageTextPaths[path] {
			clean := w.Sanitize(page.text, 800)
			if len(clean) > 50 {
				allText = append(allText, clean)
			}
		}

		time.Sleep(w.PageDelay)
	}

	unique := dedupePreserveOrder(allEmails)
	prioritized := prioritizeEmails(unique)

	result := WebsiteScrapeResult{Phone: phone, ContactName: contactName}
	if len(prioritized) > 0 {
		result.Email = prioritized[0]
		result.EmailSource = "website_scrape"
	}
	if len(allText) > 0 {
		result.ScrapedText = strings.Join(allText, " | ")
	}
	return result
}

type fetchedPage struct {
	text        string
	mailtoHrefs []string
	telHrefs    []string
}

func (w *WebsiteScraper) fetchPage(url string) (*fetchedPage, error) {
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	c.SetRequestTimeout(w.Timeout)

	page := &fetchedPage{}
	var fetchErr error

	c.OnHTML("html", func(e *colly.HTMLElement) {
		e.ForEach("script, style, noscript, iframe", func(_ int, child *colly.HTMLElement) {
			child.DOM.Remove()
		})
		page.text = strings.TrimSpace(e.DOM.Text())
	})

	c.OnHTML(`a[href]`, func(e *colly.HTMLElement) {
		href := e.Attr("href")
		switch {
		case strings.HasPrefix(href, "mailto:"):
			page.mailtoHrefs = append(page.mailtoHrefs, href)
		case strings.HasPrefix(href, "tel:"):
			page.telHrefs = append(page.telHrefs, href)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(url); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	return page, nil
}

func normalizeURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

func extractPhone(text string) string {
	if text == "" {
		return ""
	}
	for _, pattern := range phonePatterns {
		if m := pattern.FindString(text); m != "" {
			digits := nonDigitPattern.ReplaceAllString(m, "")
			if len(digits) >= 8 && len(digits) <= 14 {
				return strings.TrimSpace(m)
			}
		}
	}
	return ""
}

func extractContactName(text string) string {
	for _, keyword := range roleKeywords {
		patterns := []*regexp.Regexp{
			regexp.MustCompile(`(?i)([A-Z][a-záéíóúñ]+ [A-Z][a-záéíóúñ]+(?:\s[A-Z][a-záéíóúñ]+)?)\s*[,\-–|]\s*` + regexp.QuoteMeta(keyword)),
			regexp.MustCompile(`(?i)` + regexp.QuoteMeta(keyword) + `\s*[,\-–|:]\s*([A-Z][a-záéíóúñ]+ [A-Z][a-záéíóúñ]+)`),
		}
		for _, pattern := range patterns {
			if m := pattern.FindStringSubmatch(text); m != nil {
				name := strings.TrimSpace(m[1])
				words := strings.Fields(name)
				if len(words) >= 2 && len(words) <= 4 && len(name) < 60 {
					return name
				}
			}
		}
	}
	return ""
}

func prioritizeEmails(emails []string) []string {
	var personal, genericGood, genericBad []string
	for _, email := range emails {
		prefix := strings.ToLower(strings.SplitN(email, "@", 2)[0])
		switch {
		case hasAnyPrefix(prefix, lowPriorityEmailPrefixes):
			genericBad = append(genericBad, email)
		case genericGoodEmailPrefixes[prefix]:
			genericGood = append(genericGood, email)
		default:
			personal = append(personal, email)
		}
	}
	out := make([]string, 0, len(emails))
	out = append(out, personal...)
	out = append(out, genericGood...)
	out = append(out, genericBad...)
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func dedupePreserveOrder(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
