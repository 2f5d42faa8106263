package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/brand"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/leads"
)

type templateData struct {
	Lead      *leads.Lead
	Brand     brand.Context
	BrandName string
	FirstName string
	Submitted string
}

var funcs = map[string]any{
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}

var internalText = texttemplate.Must(texttemplate.New("internal.txt").Parse(`New 1031 Exchange Lead

Name: {{.Lead.Name}}
{{- with .Lead.Company}}
Company: {{.}}{{end}}
Email: {{.Lead.Email}}
Phone: {{.Lead.Phone}}
Project Type: {{.Lead.ProjectType}}
{{- with .Lead.Timeline}}
Timeline: {{.}}{{end}}
{{- with .Lead.Property}}
Property: {{.}}{{end}}
{{- with .Lead.EstimatedCloseDate}}
Estimated Close Date: {{.}}{{end}}
{{- with .Lead.City}}
City: {{.}}{{end}}
Submitted: {{.Submitted}}
{{- with .Lead.Details}}

Details:
{{.}}{{end}}
`))

var internalHTML = htmltemplate.Must(htmltemplate.New("internal.html").Funcs(funcs).Parse(`<h2>New 1031 Exchange Lead</h2>
<p><strong>Name:</strong> {{.Lead.Name}}</p>
{{- with .Lead.Company}}
<p><strong>Company:</strong> {{.}}</p>{{end}}
<p><strong>Email:</strong> <a href="mailto:{{.Lead.Email}}">{{.Lead.Email}}</a></p>
<p><strong>Phone:</strong> <a href="tel:{{.Lead.Phone}}">{{.Lead.Phone}}</a></p>
<p><strong>Project Type:</strong> {{.Lead.ProjectType}}</p>
{{- with .Lead.Timeline}}
<p><strong>Timeline:</strong> {{.}}</p>{{end}}
{{- with .Lead.Property}}
<p><strong>Property:</strong> {{.}}</p>{{end}}
{{- with .Lead.EstimatedCloseDate}}
<p><strong>Estimated Close Date:</strong> {{.}}</p>{{end}}
{{- with .Lead.City}}
<p><strong>City:</strong> {{.}}</p>{{end}}
<p><strong>Submitted:</strong> {{.Submitted}}</p>
{{- with .Lead.Details}}
<p><strong>Details:</strong></p>
<p>{{range $i, $line := lines .}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>{{end}}
`))

var customerText = texttemplate.Must(texttemplate.New("customer.txt").Parse(`Hi {{.FirstName}},

Thank you for contacting {{.BrandName}}. We received your 1031 exchange inquiry on {{.Submitted}} and a member of our team will follow up shortly.

Project Type: {{.Lead.ProjectType}}
{{- with .Lead.Timeline}}
Timeline: {{.}}{{end}}
{{- with .Lead.Property}}
Property: {{.}}{{end}}
{{- with .Lead.EstimatedCloseDate}}
Estimated Close Date: {{.}}{{end}}

{{- if or .Brand.Phone .Brand.Email}}

Need to reach us sooner?
{{- with .Brand.Phone}}
Phone: {{.}}{{end}}
{{- with .Brand.Email}}
Email: {{.}}{{end}}{{end}}

{{.BrandName}}
{{- with .Brand.SiteURL}}
{{.}}{{end}}
`))

var customerHTML = htmltemplate.Must(htmltemplate.New("customer.html").Parse(`<div style="font-family: sans-serif; max-width: 600px;">
<p>Hi {{.FirstName}},</p>
<p>Thank you for contacting <strong>{{.BrandName}}</strong>. We received your 1031 exchange inquiry on {{.Submitted}} and a member of our team will follow up shortly.</p>
<p><strong>Project Type:</strong> {{.Lead.ProjectType}}</p>
{{- with .Lead.Timeline}}
<p><strong>Timeline:</strong> {{.}}</p>{{end}}
{{- with .Lead.Property}}
<p><strong>Property:</strong> {{.}}</p>{{end}}
{{- with .Lead.EstimatedCloseDate}}
<p><strong>Estimated Close Date:</strong> {{.}}</p>{{end}}
{{- if or .Brand.Phone .Brand.Email}}
<p>Need to reach us sooner?{{with .Brand.Phone}} Call <a href="tel:{{.}}">{{.}}</a>.{{end}}{{with .Brand.Email}} Email <a href="mailto:{{.}}">{{.}}</a>.{{end}}</p>{{end}}
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">{{.BrandName}}{{with .Brand.SiteURL}} · <a href="{{.}}">{{.}}</a>{{end}}</p>
</div>
`))

func newTemplateData(lead *leads.Lead, b brand.Context) templateData {
	first := lead.Name
	if fields := strings.Fields(lead.Name); len(fields) > 0 {
		first = fields[0]
	}
	if first == "" {
		first = "there"
	}
	return templateData{
		Lead:      lead,
		Brand:     b,
		BrandName: b.DisplayName(),
		FirstName: first,
		Submitted: b.FormatSubmitted(lead.SubmittedAt),
	}
}

// InternalAlert builds the operator-facing message with every captured field.
func InternalAlert(lead *leads.Lead, b brand.Context, to string) (EmailMessage, error) {
	data := newTemplateData(lead, b)
	text, html, err := render(internalText, internalHTML, data)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:       to,
		ReplyTo:  lead.Email,
		Subject:  fmt.Sprintf("New 1031 Exchange Lead: %s", lead.Name),
		Body:     text,
		HTML:     html,
		Category: CategoryLeadAlert,
	}, nil
}

// CustomerConfirmation builds the receipt sent back to the visitor.
func CustomerConfirmation(lead *leads.Lead, b brand.Context) (EmailMessage, error) {
	data := newTemplateData(lead, b)
	text, html, err := render(customerText, customerHTML, data)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:       lead.Email,
		ToName:   lead.Name,
		ReplyTo:  b.Email,
		Subject:  fmt.Sprintf("We received your 1031 exchange inquiry - %s", data.BrandName),
		Body:     text,
		HTML:     html,
		Category: CategoryLeadConfirmation,
	}, nil
}

func render(text *texttemplate.Template, html *htmltemplate.Template, data templateData) (string, string, error) {
	var tb, hb bytes.Buffer
	if err := text.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("notify: render %s: %w", text.Name(), err)
	}
	if err := html.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("notify: render %s: %w", html.Name(), err)
	}
	return strings.TrimSpace(tb.String()), strings.TrimSpace(hb.String()), nil
}
