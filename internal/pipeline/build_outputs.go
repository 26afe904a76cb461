package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

// ExcelBuilder writes the per-run lead spreadsheet. Its concrete body
// (xlsx generation) is out of scope (spec.md Non-goals); NullExcelBuilder
// is the zero-configuration default.
type ExcelBuilder interface {
	Build(ctx context.Context, leads []pipelinestore.Lead, runDate string) (path string, err error)
}

// NullExcelBuilder reports that no attachment was produced, matching
// the build_excel stage's role as a narrow, unimplemented interface
// here.
type NullExcelBuilder struct{}

func (NullExcelBuilder) Build(ctx context.Context, leads []pipelinestore.Lead, runDate string) (string, error) {
	return "", nil
}

// BuildEmailHTML renders the daily report's HTML body, ported
// function-for-function from build_email_body.py's run().
func BuildEmailHTML(leads []pipelinestore.Lead, runDate string) string {
	count := len(leads)
	withEmail := 0
	for _, l := range leads {
		if l.Email != "" {
			withEmail++
		}
	}

	var cards strings.Builder
	for i, lead := range leads {
		company := orDefault(lead.CompanyName, "Sin nombre")
		summary := orDefault(lead.AISummary, "Sin resumen disponible.")
		email := orDefault(lead.Email, "No encontrado")
		location := lead.Country
		if lead.City != "" {
			location = lead.City + ", " + lead.Country
		}

		var websiteLink string
		if lead.Website != "" {
			websiteLink = fmt.Sprintf(`<a href="%s" style="color:#0563C1;text-decoration:none;font-size:12px;">%s</a>`,
				html.EscapeString(lead.Website), html.EscapeString(lead.Website))
		}

		var autoTag string
		if topAuto := topAutomationName(lead.AutomationSuggestions); topAuto != "" {
			autoTag = fmt.Sprintf(`
            <div style="margin-top:8px;padding:6px 10px;background:#EEF4FF;border-left:3px solid #3B82F6;border-radius:2px;">
                <span style="font-size:11px;color:#1E40AF;">Automatizacion sugerida:</span>
                <span style="font-size:12px;color:#1E3A5F;font-weight:600;">%s</span>
            </div>`, html.EscapeString(topAuto))
		}

		background := ""
		if i%2 == 0 {
			background = "background:#FAFBFC;"
		}

		fmt.Fprintf(&cards, `
        <div style="padding:16px 20px;border-bottom:1px solid #E5E7EB;%s">
            <div style="display:flex;justify-content:space-between;align-items:flex-start;">
                <div>
                    <div style="font-size:15px;font-weight:700;color:#1B3A5C;margin-bottom:4px;">%s</div>
                    <div style="font-size:12px;color:#6B7280;margin-bottom:6px;">%s | %s</div>
                </div>
            </div>
            <div style="font-size:13px;color:#374151;line-height:1.5;margin-top:4px;">%s</div>
            %s
            %s
        </div>`, background, html.EscapeString(company), html.EscapeString(location), html.EscapeString(email),
			html.EscapeString(summary), websiteLink, autoTag)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;font-family:'Segoe UI',Roboto,Helvetica,Arial,sans-serif;background:#F3F4F6;">
    <div style="max-width:700px;margin:20px auto;background:#FFFFFF;border-radius:8px;overflow:hidden;box-shadow:0 1px 3px rgba(0,0,0,0.1);">

        <!-- Header -->
        <div style="background:linear-gradient(135deg,#1B3A5C,#2563EB);padding:24px 28px;color:white;">
            <div style="font-size:22px;font-weight:700;margin-bottom:4px;">Informe Diario de Leads</div>
            <div style="font-size:14px;opacity:0.9;">%s | %d agencias de marketing digital</div>
        </div>

        <!-- Stats bar -->
        <div style="display:flex;background:#F0F4FF;padding:12px 28px;border-bottom:1px solid #E5E7EB;">
            <div style="flex:1;text-align:center;">
                <div style="font-size:20px;font-weight:700;color:#1B3A5C;">%d</div>
                <div style="font-size:11px;color:#6B7280;">Leads totales</div>
            </div>
            <div style="flex:1;text-align:center;">
                <div style="font-size:20px;font-weight:700;color:#059669;">%d</div>
                <div style="font-size:11px;color:#6B7280;">Con email</div>
            </div>
            <div style="flex:1;text-align:center;">
                <div style="font-size:20px;font-weight:700;color:#2563EB;">%d</div>
                <div style="font-size:11px;color:#6B7280;">Automatizaciones</div>
            </div>
        </div>

        <!-- Lead cards -->
        <div>
            %s
        </div>

        <!-- Footer -->
        <div style="padding:20px 28px;background:#F9FAFB;border-top:1px solid #E5E7EB;">
            <div style="font-size:13px;color:#6B7280;text-align:center;">
                Detalles completos con las 3 automatizaciones por empresa en el <strong>Excel adjunto</strong>.
            </div>
            <div style="font-size:11px;color:#9CA3AF;text-align:center;margin-top:8px;">
                Generado automaticamente por el Pipeline de Lead Generation & Enrichment
            </div>
        </div>

    </div>
</body>
</html>`, runDate, count, count, withEmail, count*3, cards.String())
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// topAutomationName extracts the first automation's name from a
// serialized automation_suggestions column, tolerating malformed or
// empty input (build_email_body.py's _get_top_automation).
func topAutomationName(automationSuggestionsJSON string) string {
	if automationSuggestionsJSON == "" {
		return ""
	}
	var automations []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(automationSuggestionsJSON), &automations); err != nil || len(automations) == 0 {
		return ""
	}
	return automations[0].Name
}
