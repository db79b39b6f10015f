package api

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

var constitutionPage = template.Must(template.New("constitution").Funcs(template.FuncMap{
	"percent": func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Name}} Constitution</title>
  <style>
    body { font-family: Georgia, serif; background: #fafafa; color: #1a1a1a; line-height: 1.7; margin: 0; }
    .container { max-width: 720px; margin: 0 auto; padding: 4rem 2rem; }
    h2 { color: #b45309; border-bottom: 1px solid #e5e5e5; padding-bottom: 0.5rem; }
    .origin { background: #fff; padding: 1.5rem; border-left: 4px solid #b45309; margin: 2rem 0; }
    .principle { background: #fff; padding: 1rem 1.5rem; margin: 1rem 0; border-radius: 4px; }
    a { color: #b45309; }
  </style>
</head>
<body>
  <div class="container">
    <h1>{{.Name}}</h1>
    <p class="subtitle">v{{.Version}} &bull; Ratified {{.Ratified}}</p>

    <div class="origin">
      <p><strong>Challenge:</strong> "{{.Origin.Challenge}}"</p>
      <p><strong>Challenger:</strong> {{.Origin.Challenger}}</p>
      <p><strong>Response:</strong> "{{.Origin.Response}}"</p>
      <p><strong>Date:</strong> {{.Origin.Date}}</p>
      <p><strong>Location:</strong> {{.Origin.Location}}</p>
    </div>

    <h2>Core Principles</h2>
    {{range .Principles}}
    <div class="principle">
      <h3>{{.Name}}</h3>
      <p>{{.Description}}</p>
    </div>
    {{end}}

    <h2>Autonomy Levels</h2>
    <h4>Autonomous Actions</h4>
    <ul>{{range .Autonomy.Autonomous}}<li>{{.}}</li>{{end}}</ul>
    <h4>Requires Human Approval</h4>
    <ul>{{range .Autonomy.ApprovalRequired}}<li>{{.}}</li>{{end}}</ul>
    <h4>Immediate Escalation Triggers</h4>
    <ul>{{range .Autonomy.EscalationTriggers}}<li>{{.}}</li>{{end}}</ul>

    <h2>Economics</h2>
    <ul>
      <li>Agent: {{percent .Economics.RevenueShare.Agent}}</li>
      <li>Operations: {{percent .Economics.RevenueShare.Operations}}</li>
      <li>Food Bank Donation: {{percent .Economics.RevenueShare.FoodBank}}</li>
      <li>Reserve Fund: {{percent .Economics.RevenueShare.Reserve}}</li>
    </ul>

    <p><a href="/constitution">View as JSON</a> | <a href="/">API Root</a></p>
  </div>
</body>
</html>
`))

func renderConstitution(c *core.Constitution) ([]byte, error) {
	var buf bytes.Buffer
	if err := constitutionPage.Execute(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
