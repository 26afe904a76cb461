// Package outreach builds and sends personalized cold-outreach and
// followup emails, grounded on
// original_source/agents/lead_generation/tools/build_outreach_email.py,
// send_outreach.py, and send_followups.py. The AI generation step
// reuses the narrow ai.Provider interface; the transactional send
// step is a pluggable Transport, since the real GMass/Gmail-SMTP
// client bodies are out of scope (spec.md Non-goals).
package outreach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pipelineai "github.com/codeready-toolchain/acem/internal/pipeline/ai"
)

// EmailType selects which prompt/fallback template to render.
type EmailType string

const (
	EmailTypeInitial  EmailType = "initial"
	EmailTypeFollowup EmailType = "followup"
)

// Lead is the subset of lead/outreach-join fields the email builder
// needs.
type Lead struct {
	CompanyName           string
	ContactName           string
	City                  string
	Country               string
	AISummary             string
	AutomationSuggestions string // serialized JSON list of {name,description,value}
}

// GeneratedEmail is a rendered outreach email, plain-text and HTML.
type GeneratedEmail struct {
	Subject  string
	Body     string
	HTMLBody string
}

func firstName(contactName string) string {
	fields := strings.Fields(contactName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func greetingHint(contactName string) string {
	if contactName == "" {
		return "Saludo: Hola (sin nombre, usar saludo generico profesional)"
	}
	return "Saludo: Hola " + firstName(contactName)
}

type parsedAutomation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Value       string `json:"value"`
}

func automationLines(automationSuggestionsJSON string) (detailed, brief string) {
	if automationSuggestionsJSON == "" {
		return "", ""
	}
	var automations []parsedAutomation
	if err := json.Unmarshal([]byte(automationSuggestionsJSON), &automations); err != nil {
		return "", ""
	}
	var detailedLines, briefLines []string
	for i, a := range automations {
		if i >= 3 {
			break
		}
		detailedLines = append(detailedLines, fmt.Sprintf("- %s: %s (Beneficio: %s)", a.Name, a.Description, a.Value))
		briefLines = append(briefLines, fmt.Sprintf("%d. %s", i+1, a.Name))
	}
	return strings.Join(detailedLines, "\n"), strings.Join(briefLines, "\n")
}

// BuildPrompt renders the exact Spanish prompt structure from
// build_outreach_email.py's _build_email_prompt.
func BuildPrompt(lead Lead, emailType EmailType) string {
	if emailType == EmailTypeFollowup {
		return fmt.Sprintf(`Eres un experto en emails de seguimiento de ventas B2B.

CONTEXTO:
- Ya enviaste un email inicial a %s hace 3 dias
- No han respondido
- El email anterior hablaba sobre automatizacion para su agencia de marketing
- %s

TU OBJETIVO:
Escribir un email de seguimiento corto que:
1. NO repita el email anterior
2. Aporte valor adicional (un tip, una estadistica, un caso de uso)
3. Sea aun mas corto que el primero (maximo 80 palabras)
4. Mantenga el tono amigable, no desesperado
5. Termine con una pregunta simple de si/no

REGLAS:
- NO digas "solo queria hacer seguimiento" o "no se si viste mi email"
- Aporta algo nuevo de valor
- Tono casual pero profesional
- Subject que genere curiosidad (maximo 5 palabras)
- TODO en espanol

FIRMA:
Luka

Responde UNICAMENTE con este formato JSON:
{
  "subject": "...",
  "body": "..."
}`, lead.CompanyName, greetingHint(lead.ContactName))
	}

	detailed, _ := automationLines(lead.AutomationSuggestions)
	if detailed == "" {
		detailed = "- Automatizacion de procesos de marketing y ventas"
	}

	return fmt.Sprintf(`Eres un experto en copywriting de emails de ventas B2B. Tu trabajo es escribir emails de prospeccion que generen respuestas.

CONTEXTO DEL LEAD:
- Empresa: %s
- Ubicacion: %s, %s
- %s
- Resumen de la empresa: %s
- Automatizaciones que les beneficiarian:
%s

ESTRUCTURA OBLIGATORIA DEL EMAIL (sigue este orden exacto):

1. Saludo: "Hola [nombre],"
2. Observacion de crecimiento: "Vi que en [empresa] estan creciendo en el sector de [su industria/especialidad]. Felicidades por el avance!"
   - Usa el resumen de la empresa para identificar su industria o especialidad concreta (ej: "marketing digital", "publicidad programatica", "branding para startups")
3. Automatizaciones sugeridas: Presenta las 3 automatizaciones de forma natural, breve y fluida. Puedes usar una mini-lista informal o integrarlas en un parrafo corto.
4. Propuesta de valor: "Nosotros ayudamos a empresas como la tuya a automatizar esos flujos repetitivos. Basicamente, conectamos tus herramientas para que trabajen solas."
5. Prueba social: "Recientemente ayudamos a [tipo de empresa similar, ej: 'una agencia de marketing en Madrid'] a ahorrar X horas a la semana automatizando [proceso relevante]."
   - Inventa un caso creible y relevante basado en su tipo de negocio. Varia el numero de horas (10-20) y el proceso segun las automatizaciones sugeridas.
6. CTA: "Que tan abierto estas a explorar este tipo de soluciones?"
7. Firma (siempre exactamente asi):
   Luka Radeljak
   Consultor de Automatizacion
   ACEM Systems

REGLAS DEL SUBJECT:
- Formato: "Ahorren X horas semanales con ACEM Systems"
- X = un numero estimado de horas que ahorrarian (entre 8 y 20, basado en las automatizaciones sugeridas)

REGLAS GENERALES:
- Maximo 150 palabras en el cuerpo
- Tono cercano, directo, profesional
- TODO en espanol
- NO uses frases genericas como "espero que estes bien"
- Si no tienes nombre del contacto, usa solo "Hola,"

Responde UNICAMENTE con este formato JSON:
{
  "subject": "...",
  "body": "..."
}

El body debe ser texto plano con saltos de linea (\n), NO HTML.`, lead.CompanyName, lead.City, lead.Country,
		greetingHint(lead.ContactName), lead.AISummary, detailed)
}

func toHTML(body string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; font-size: 14px; line-height: 1.6; color: #333;">
%s
</div>`, strings.ReplaceAll(body, "\n", "<br>\n"))
}

// Generate produces a personalized outreach email, trying each
// provider in turn before falling back to a deterministic template
// (build_outreach_email.py's generate_outreach_email).
func Generate(ctx context.Context, lead Lead, emailType EmailType, providers ...pipelineai.Provider) GeneratedEmail {
	prompt := BuildPrompt(lead, emailType)

	for _, p := range providers {
		text, err := p.Complete(ctx, prompt)
		if err != nil || text == "" {
			continue
		}
		if parsedEmail := safeParseEmail(text); parsedEmail != nil && parsedEmail.Subject != "" && parsedEmail.Body != "" {
			return GeneratedEmail{Subject: parsedEmail.Subject, Body: parsedEmail.Body, HTMLBody: toHTML(parsedEmail.Body)}
		}
	}

	return fallback(lead, emailType)
}

type emailJSON struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// safeParseEmail parses the {subject, body} shape: first the whole
// text, then the span from the first "{" to the last "}" (which also
// covers a fenced block).
func safeParseEmail(text string) *emailJSON {
	var e emailJSON
	if err := json.Unmarshal([]byte(text), &e); err == nil && e.Subject != "" && e.Body != "" {
		return &e
	}
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			if err := json.Unmarshal([]byte(text[start:end+1]), &e); err == nil && e.Subject != "" && e.Body != "" {
				return &e
			}
		}
	}
	return nil
}

// fallback is build_outreach_email.py's _fallback_email, verbatim.
func fallback(lead Lead, emailType EmailType) GeneratedEmail {
	first := firstName(lead.ContactName)
	greeting := "Hola,"
	if first != "" {
		greeting = fmt.Sprintf("Hola %s,", first)
	}

	if emailType == EmailTypeFollowup {
		body := fmt.Sprintf(`%s

Dato curioso: las agencias que automatizan sus reportes retienen un 23%% mas de clientes.

La razon? Los clientes reciben updates consistentes sin que el equipo tenga que dedicar horas.

Tienes 15 minutos esta semana para una llamada rapida?

Luka`, greeting)
		return GeneratedEmail{Subject: "Una idea rapida", Body: body, HTMLBody: toHTML(body)}
	}

	company := orDefault(lead.CompanyName, "tu agencia")
	body := fmt.Sprintf(`%s

Vi que en %s estan creciendo en el sector de marketing digital. Felicidades por el avance!

Algunas automatizaciones que podrian ayudarles: reportes automaticos para clientes, secuencias de email para captacion de leads y dashboards centralizados de metricas.

Nosotros ayudamos a empresas como la tuya a automatizar esos flujos repetitivos. Basicamente, conectamos tus herramientas para que trabajen solas.

Recientemente ayudamos a una agencia de marketing similar a ahorrar 15 horas a la semana automatizando sus reportes.

Que tan abierto estas a explorar este tipo de soluciones?

Luka Radeljak
Consultor de Automatizacion
ACEM Systems`, greeting, company)

	return GeneratedEmail{Subject: "Ahorren 15 horas semanales con ACEM Systems", Body: body, HTMLBody: toHTML(body)}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
