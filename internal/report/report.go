// Package report renders a finished screening run for human review.
package report

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"crosscheck/internal/audit"
	"crosscheck/internal/domain"
	"crosscheck/internal/risk"
)

// Document is one rendered report.
type Document struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Format      string    `json:"format"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Generator renders a report from a finished run. Callers guarantee the
// inputs belong to the same run and the assessment is final.
type Generator interface {
	Generate(ctx context.Context, identity domain.ClientIdentity, evidence []domain.EvidenceEntry, assessment risk.Assessment, trail []audit.Entry) (Document, error)
}

const textTemplate = `SCREENING REPORT: {{.Identity.Name}} ({{.Identity.EntityType}})
Generated: {{.Assessment.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}

RISK ASSESSMENT
  Composite score: {{printf "%.2f" .Assessment.CompositeScore}}
  Tier:            {{.Assessment.Tier}}
  Due diligence:   {{.Assessment.DueDiligence}}
  Monitoring:      {{.Assessment.MonitoringFrequency}}
{{- if .Assessment.Recommendations}}

RECOMMENDATIONS
{{- range .Assessment.Recommendations}}
  - {{.}}
{{- end}}
{{- end}}

RISK FACTORS
{{- range .Assessment.Factors}}
  {{printf "%-20s" .Category}} {{printf "%.2f" .Score}}{{with .Detail}}  {{.}}{{end}}{{with .Evidence}}  evidence {{.}}{{end}}
{{- end}}

EVIDENCE ({{len .Evidence}} retained)
{{- range .Evidence}}
  [{{.Seq}}] round {{.Round}} {{.Decision.Candidate.Source}} {{.Decision.Decision}} score {{printf "%.2f" .Decision.Score}}: {{.Decision.Candidate.Title}}
{{- end}}
{{- if .Trail}}

AUDIT TRAIL ({{len .Trail}} entries)
{{- range .Trail}}
  {{.Timestamp.Format "15:04:05"}} {{.Actor}}{{with .Operator}}/{{.}}{{end}} {{.Action}}
{{- end}}
{{- end}}
`

// TextGenerator renders plain-text reports. It is deliberately minimal;
// review tooling consumes the structured assessment directly.
type TextGenerator struct {
	tmpl *template.Template
}

func NewTextGenerator() *TextGenerator {
	return &TextGenerator{tmpl: template.Must(template.New("report").Parse(textTemplate))}
}

func (g *TextGenerator) Generate(_ context.Context, identity domain.ClientIdentity, evidence []domain.EvidenceEntry, assessment risk.Assessment, trail []audit.Entry) (Document, error) {
	var buf bytes.Buffer
	err := g.tmpl.Execute(&buf, struct {
		Identity   domain.ClientIdentity
		Evidence   []domain.EvidenceEntry
		Assessment risk.Assessment
		Trail      []audit.Entry
	}{identity, evidence, assessment, trail})
	if err != nil {
		return Document{}, fmt.Errorf("render report: %w", err)
	}
	return Document{
		Title:       fmt.Sprintf("Screening report: %s", identity.Name),
		Body:        buf.String(),
		Format:      "text/plain",
		GeneratedAt: assessment.GeneratedAt,
	}, nil
}
