package services

import (
	"bytes"
	"html/template"
	"sort"

	"ethics-submission-api/models"
)

// safeHTML marks pre-sanitized narrative fields as safe so rich-text
// formatting survives into the PDF.
func safeHTML(s string) template.HTML {
	return template.HTML(s)
}

var templateFuncs = template.FuncMap{
	"safeHTML": safeHTML,
	"sectionTitle": func(section string) string {
		titles := map[string]string{
			"introduction":           "Introduction",
			"background":             "Background of the Study",
			"objectives":             "Objectives",
			"methodology":            "Methodology",
			"population":             "Study Population",
			"sampling":               "Sampling Design",
			"interventions":          "Interventions",
			"data_collection":        "Data Collection Procedures",
			"data_analysis":          "Data Analysis Plan",
			"ethical_considerations": "Ethical Considerations",
			"timeline":               "Study Timeline",
			"references":             "References",
		}
		if t, ok := titles[section]; ok {
			return t
		}
		return section
	},
}

const baseStyle = `
<style>
  body { font-family: "Times New Roman", serif; font-size: 12pt; color: #111; }
  h1 { font-size: 16pt; text-align: center; margin-bottom: 0; }
  h2 { font-size: 13pt; border-bottom: 1px solid #444; padding-bottom: 2px; }
  .meta { text-align: center; font-size: 10pt; color: #555; margin-bottom: 24px; }
  table.fields { width: 100%; border-collapse: collapse; }
  table.fields td { border: 1px solid #888; padding: 6px; vertical-align: top; }
  table.fields td.label { width: 35%; font-weight: bold; background: #f2f2f2; }
  .section { page-break-inside: avoid; margin-bottom: 16px; }
  .signature-block { margin-top: 32px; }
  .signature-block img { max-height: 60px; }
  .signature-line { border-top: 1px solid #111; width: 240px; margin-top: 4px; font-size: 10pt; }
  .checklist li { list-style: none; }
</style>`

var applicationFormTemplate = template.Must(template.New("application_form").Funcs(templateFuncs).Parse(baseStyle + `
<h1>Application for Ethical Review</h1>
<div class="meta">{{if .Submission.SubmissionNumber}}{{.Submission.SubmissionNumber}} &middot; {{end}}{{.Title}}</div>
{{if .Submission.CoAuthors}}<div class="meta">Co-authors: {{range $i, $a := .Submission.CoAuthors}}{{if $i}}, {{end}}{{$a}}{{end}}</div>{{end}}
<table class="fields">
  <tr><td class="label">Principal Investigator</td><td>{{.Form.ResearcherName}}</td></tr>
  <tr><td class="label">Institution</td><td>{{.Form.Institution}}</td></tr>
  <tr><td class="label">Position</td><td>{{.Form.PositionTitle}}</td></tr>
  {{if .Form.Adviser}}<tr><td class="label">Adviser</td><td>{{.Form.Adviser}}</td></tr>{{end}}
  {{if .Form.CoResearchers}}<tr><td class="label">Co-researchers</td><td>{{range $i, $r := .Form.CoResearchers}}{{if $i}}, {{end}}{{$r}}{{end}}</td></tr>{{end}}
  <tr><td class="label">Funding Source</td><td>{{.Form.FundingSource}}</td></tr>
  <tr><td class="label">Study Type</td><td>{{.Form.StudyType}}</td></tr>
  <tr><td class="label">Study Site</td><td>{{.Form.StudySite}}</td></tr>
  <tr><td class="label">Study Duration</td><td>{{.Form.StudyDuration.StartDate}} to {{.Form.StudyDuration.EndDate}}</td></tr>
  <tr><td class="label">Address</td><td>{{.Form.ContactInfo.Address}}</td></tr>
  <tr><td class="label">Phone</td><td>{{.Form.ContactInfo.Phone}}</td></tr>
  <tr><td class="label">Email</td><td>{{.Form.ContactInfo.Email}}</td></tr>
</table>
<div class="section">
  <h2>Checklist of Documents</h2>
  <ul class="checklist">
    <li>[{{if .Form.Checklist.ApplicationForm}}x{{else}} {{end}}] Application form</li>
    <li>[{{if .Form.Checklist.ResearchProtocol}}x{{else}} {{end}}] Research protocol</li>
    <li>[{{if .Form.Checklist.ConsentForm}}x{{else}} {{end}}] Informed consent form</li>
    <li>[{{if .Form.Checklist.TechnicalReview}}x{{else}} {{end}}] Technical review certificate</li>
    <li>[{{if .Form.Checklist.EndorsementLetter}}x{{else}} {{end}}] Endorsement letter</li>
    <li>[{{if .Form.Checklist.Questionnaire}}x{{else}} {{end}}] Questionnaire / data collection instrument</li>
  </ul>
</div>
`))

var researchProtocolTemplate = template.Must(template.New("research_protocol").Funcs(templateFuncs).Parse(baseStyle + `
<h1>Research Protocol</h1>
<div class="meta">{{.Title}}</div>
{{range .Sections}}
<div class="section">
  <h2>{{sectionTitle .Name}}</h2>
  <div>{{safeHTML .HTML}}</div>
</div>
{{end}}
<div class="signature-block">
  <h2>Researchers</h2>
  {{range .Researchers}}
  <div class="section">
    {{if .SignatureURL}}<img src="{{.SignatureURL}}" alt="signature">{{end}}
    <div class="signature-line">{{.Name}}</div>
  </div>
  {{end}}
</div>
`))

var consentFormTemplate = template.Must(template.New("consent_form").Funcs(templateFuncs).Parse(baseStyle + `
<h1>Informed Consent Form</h1>
<div class="meta">{{.Title}}</div>
{{range .Blocks}}
<div class="section">
  <h2>{{.Heading}} ({{.Language}})</h2>
  <table class="fields">
    <tr><td class="label">Introduction</td><td>{{safeHTML .Narrative.Introduction}}</td></tr>
    <tr><td class="label">Purpose of the Study</td><td>{{safeHTML .Narrative.Purpose}}</td></tr>
    <tr><td class="label">Procedures</td><td>{{safeHTML .Narrative.Procedures}}</td></tr>
    <tr><td class="label">Risks and Discomforts</td><td>{{safeHTML .Narrative.Risks}}</td></tr>
    <tr><td class="label">Benefits</td><td>{{safeHTML .Narrative.Benefits}}</td></tr>
    <tr><td class="label">Confidentiality</td><td>{{safeHTML .Narrative.Confidentiality}}</td></tr>
    <tr><td class="label">Voluntary Participation</td><td>{{safeHTML .Narrative.Participation}}</td></tr>
  </table>
</div>
{{end}}
<div class="section">
  <h2>Contact</h2>
  <p>{{.Consent.ContactPerson}} &mdash; {{.Consent.ContactNumber}}</p>
</div>
`))

type protocolSectionView struct {
	Name string
	HTML string
}

type protocolResearcherView struct {
	Name         string
	SignatureURL string
}

type consentBlockView struct {
	Heading   string
	Language  string
	Narrative models.ConsentNarrative
}

func buildApplicationFormHTML(title string, form *models.ApplicationForm, submission *models.Submission) (string, error) {
	data := struct {
		Title      string
		Form       *models.ApplicationForm
		Submission *models.Submission
	}{title, form, submission}

	var buf bytes.Buffer
	if err := applicationFormTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildResearchProtocolHTML(title string, protocol *models.ResearchProtocol, signatureURLs map[string]string) (string, error) {
	sections := make([]protocolSectionView, 0, len(models.ProtocolSections))
	html := protocol.SectionHTML()
	for _, name := range models.ProtocolSections {
		sections = append(sections, protocolSectionView{Name: name, HTML: html[name]})
	}

	researchers := make([]protocolResearcherView, 0, len(protocol.Researchers))
	for _, r := range protocol.Researchers {
		researchers = append(researchers, protocolResearcherView{
			Name:         r.Name,
			SignatureURL: signatureURLs[r.ID],
		})
	}

	data := struct {
		Title       string
		Sections    []protocolSectionView
		Researchers []protocolResearcherView
	}{title, sections, researchers}

	var buf bytes.Buffer
	if err := researchProtocolTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildConsentFormHTML(title string, consent *models.ConsentForm) (string, error) {
	blocks := make([]consentBlockView, 0, 4)
	appendSection := func(heading string, section models.ConsentSection) {
		langs := make([]string, 0, len(section))
		for lang := range section {
			langs = append(langs, lang)
		}
		sort.Strings(langs)
		for _, lang := range langs {
			blocks = append(blocks, consentBlockView{
				Heading:   heading,
				Language:  lang,
				Narrative: section[lang],
			})
		}
	}

	switch consent.ConsentType {
	case models.ConsentTypeAdult:
		appendSection("Adult Consent", consent.AdultConsent)
	case models.ConsentTypeMinor:
		appendSection("Minor Assent", consent.MinorAssent)
	case models.ConsentTypeBoth:
		appendSection("Adult Consent", consent.AdultConsent)
		appendSection("Minor Assent", consent.MinorAssent)
	}

	data := struct {
		Title   string
		Blocks  []consentBlockView
		Consent *models.ConsentForm
	}{title, blocks, consent}

	var buf bytes.Buffer
	if err := consentFormTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
