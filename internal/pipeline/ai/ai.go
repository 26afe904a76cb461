// Package ai builds the Spanish-language company-analysis prompt,
// parses the model's response with the same tolerance as
// original_source/agents/lead_generation/tools/utils.py's
// safe_json_parse, and falls back to a deterministic canned analysis
// when no provider is configured or every provider call fails.
//
// The provider call bodies (Gemini/OpenAI HTTP clients) are explicitly
// out of scope; Provider is a narrow interface any such client can
// implement, with NullProvider standing in when none is wired.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Automation is one suggested automation in a lead's analysis.
type Automation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Value       string `json:"value"`
}

// Analysis is the parsed result of analyzing one lead.
type Analysis struct {
	Summary     string       `json:"summary"`
	Automations []Automation `json:"automations"`
}

// Lead is the subset of lead fields the prompt builder reads.
type Lead struct {
	CompanyName string
	City        string
	Country     string
	Website     string
	Phone       string
	Snippet     string
	ScrapedText string
}

// Provider calls an AI text-completion backend with prompt and
// returns its raw text response. Gemini/OpenAI client bodies are
// narrow interfaces by design; see NullProvider.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// NullProvider is the zero-configuration default: it always reports
// itself unavailable so callers fall through to the generic fallback
// without ever emitting a network call.
type NullProvider struct{ ProviderName string }

func (p NullProvider) Name() string { return p.ProviderName }

func (p NullProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("ai: provider %q not configured", p.ProviderName)
}

// BuildPrompt renders the exact analysis prompt structure from
// ai_analyze.py's _build_prompt, in Spanish.
func BuildPrompt(lead Lead) string {
	var info strings.Builder
	fmt.Fprintf(&info, "Empresa: %s", orDefault(lead.CompanyName, "Desconocida"))
	if lead.City != "" || lead.Country != "" {
		fmt.Fprintf(&info, "\nUbicacion: %s, %s", lead.City, lead.Country)
	}
	if lead.Website != "" {
		fmt.Fprintf(&info, "\nWebsite: %s", lead.Website)
	}
	if lead.Phone != "" {
		fmt.Fprintf(&info, "\nTelefono: %s", lead.Phone)
	}
	if lead.Snippet != "" {
		fmt.Fprintf(&info, "\nDescripcion (buscador): %s", lead.Snippet)
	}
	if lead.ScrapedText != "" {
		fmt.Fprintf(&info, "\nContenido del sitio web: %s", lead.ScrapedText)
	}

	return fmt.Sprintf(`Eres un consultor experto en automatizacion de negocios. Analiza la siguiente agencia de marketing digital y sugiere formas en las que podrian beneficiarse de la automatizacion.

%s

Basandote en esta informacion:

1. Escribe un resumen de 2-3 frases sobre que hace esta agencia, que servicios ofrece, y quienes son sus clientes probables.

2. Sugiere exactamente 3 automatizaciones especificas y accionables que esta agencia podria implementar o que les podrias vender. Para cada automatizacion:
   - Nombre conciso
   - Explicacion de que hace en 1-2 frases
   - Valor de negocio concreto (tiempo ahorrado, impacto en ingresos, eficiencia)

Enfocate en automatizaciones practicas y realistas: workflows de CRM, secuencias de email automatizadas, reportes automaticos para clientes, lead scoring, onboarding automatizado de clientes, generacion automatica de propuestas, automatizacion de redes sociales, chatbots, integraciones entre herramientas, dashboards en tiempo real, facturacion automatica, etc.

Las automatizaciones deben ser especificas para esta agencia basandote en sus servicios. NO des sugerencias genericas.

Responde UNICAMENTE con este formato JSON valido, sin texto adicional:
{
  "summary": "...",
  "automations": [
    {"name": "...", "description": "...", "value": "..."},
    {"name": "...", "description": "...", "value": "..."},
    {"name": "...", "description": "...", "value": "..."}
  ]
}`, info.String())
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

var (
	fencedJSONPattern = regexp.MustCompile(`(?s)` + "```json" + `\s*\n?(.*?)\n?\s*` + "```")
	fencedAnyPattern  = regexp.MustCompile(`(?s)` + "```" + `\s*\n?(.*?)\n?\s*` + "```")
	braceGreedyPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// SafeParse ports utils.py's safe_json_parse: try a direct parse,
// then a ```json fenced block, then a bare ``` fenced block, then the
// widest brace-to-brace match. Returns nil if nothing parses.
func SafeParse(text string) *Analysis {
	if text == "" {
		return nil
	}
	if a := tryUnmarshal(text); a != nil {
		return a
	}
	for _, pattern := range []*regexp.Regexp{fencedJSONPattern, fencedAnyPattern} {
		if m := pattern.FindStringSubmatch(text); m != nil {
			if a := tryUnmarshal(m[1]); a != nil {
				return a
			}
		}
	}
	if m := braceGreedyPattern.FindString(text); m != "" {
		if a := tryUnmarshal(m); a != nil {
			return a
		}
	}
	return nil
}

func tryUnmarshal(text string) *Analysis {
	var a Analysis
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return nil
	}
	if a.Summary == "" || len(a.Automations) == 0 {
		return nil
	}
	return &a
}

// Analyze tries each provider in order (Gemini primary, OpenAI
// secondary per ai_analyze.py's _analyze_lead), falling back to a
// deterministic canned analysis if every provider is unconfigured,
// errors, or returns unparseable text.
func Analyze(ctx context.Context, lead Lead, providers ...Provider) Analysis {
	prompt := BuildPrompt(lead)
	for _, p := range providers {
		text, err := p.Complete(ctx, prompt)
		if err != nil || text == "" {
			continue
		}
		if parsed := SafeParse(text); parsed != nil {
			return *parsed
		}
	}
	return genericFallback(lead)
}

// genericFallback is ai_analyze.py's _generic_fallback, verbatim.
func genericFallback(lead Lead) Analysis {
	company := orDefault(lead.CompanyName, "Esta agencia")
	summary := fmt.Sprintf("%s es una agencia de marketing digital ubicada en %s, %s.", company, lead.City, lead.Country)
	if lead.Snippet != "" {
		snippet := lead.Snippet
		if len(snippet) > 150 {
			snippet = snippet[:150]
		}
		summary += " " + snippet
	}

	return Analysis{
		Summary: summary,
		Automations: []Automation{
			{
				Name:        "Automatizacion de reportes para clientes",
				Description: "Sistema automatico que genera y envia reportes mensuales de rendimiento a cada cliente con metricas de campanas, ROI y recomendaciones.",
				Value:       "Ahorra 5-10 horas semanales en generacion manual de reportes y mejora la retencion de clientes.",
			},
			{
				Name:        "Secuencias de email para captacion de leads",
				Description: "Flujo automatizado de emails de seguimiento para prospectos que muestran interes, con contenido personalizado segun la industria del prospecto.",
				Value:       "Aumenta la tasa de conversion de leads en un 20-30% y libera tiempo del equipo comercial.",
			},
			{
				Name:        "Dashboard centralizado en tiempo real",
				Description: "Panel integrado que conecta Google Ads, Meta Ads, Analytics y CRM para visualizar el rendimiento de todas las campanas en un solo lugar.",
				Value:       "Reduccion del 70% en tiempo de recopilacion de datos y toma de decisiones mas rapida basada en datos actualizados.",
			},
		},
	}
}

// AutomationsJSON serializes automations for storage in the
// automation_suggestions column.
func AutomationsJSON(automations []Automation) (string, error) {
	raw, err := json.Marshal(automations)
	if err != nil {
		return "", fmt.Errorf("ai: marshal automations: %w", err)
	}
	return string(raw), nil
}
