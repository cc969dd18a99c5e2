package render

import (
	"bytes"
	"html/template"

	"heatmaptracker/internal/model"
	"heatmaptracker/internal/tracker"
)

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>{{.Heading}}</title>
<style>
body {
  font-family: sans-serif;
  color: #24292f;
  margin: 16px;
  background: #ffffff;
}
h1 {
  font-size: 20px;
  margin: 0 0 4px 0;
}
.subtitle {
  color: #57606a;
  margin-bottom: 12px;
}
table.stats {
  border-collapse: collapse;
  margin-top: 12px;
}
table.stats th, table.stats td {
  text-align: left;
  padding: 4px 12px 4px 0;
  border-top: 1px solid #d0d7de;
}
.legend-strip span {
  display: inline-block;
  width: 12px;
  height: 12px;
  margin-right: 4px;
  border-radius: 2px;
}
</style>
</head>
<body>
<main id="tracker" data-tracker="{{.View.ID}}" data-year="{{.View.Year}}" data-ready="true">
<h1>{{.Heading}}</h1>
{{with .View.Subtitle}}<div class="subtitle">{{.}}</div>{{end}}
{{if .ShowHeatmap}}<section class="heatmap">{{.SVG}}</section>{{end}}
{{if .ShowLegend}}<section class="legend-strip">
{{range .View.Legend}}<span title="{{.Intensity}}: {{printf "%.2f" .Min}} - {{printf "%.2f" .Max}}" style="background: {{.Color | safeCSS}}"></span>{{end}}
</section>{{end}}
{{if .ShowStatistics}}<section class="statistics">
<table class="stats">
<tbody>
<tr><th>Total tracking days this year</th><td>{{.View.TotalTrackingDaysThisYear}}</td></tr>
<tr><th>Total tracking days</th><td>{{.View.TotalTrackingDays}}</td></tr>
<tr><th>Current streak</th><td>{{.View.CurrentStreakText}}</td></tr>
<tr><th>Longest streak</th><td>{{.View.LongestStreakText}}</td></tr>
{{range .View.Insights}}<tr class="insight" data-insight="{{.Name}}"><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</tbody>
</table>
</section>{{end}}
</main>
</body>
</html>
`

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"safeCSS": func(s string) template.CSS { return template.CSS(s) },
}).Parse(pageHTML))

type pageData struct {
	View           *tracker.View
	Heading        string
	SVG            template.HTML
	ShowHeatmap    bool
	ShowLegend     bool
	ShowStatistics bool
}

// HTMLPage wraps an SVG produced by SVG in a standalone page with the
// statistics table. The page root carries data-ready="true" so headless
// capture knows rendering has finished.
func HTMLPage(v *tracker.View, svg string) (string, error) {
	heading := v.Title
	if heading == "" {
		heading = v.ID
	}
	data := pageData{
		View:           v,
		Heading:        heading,
		SVG:            template.HTML(svg),
		ShowHeatmap:    v.TabVisible(model.ViewHeatmap),
		ShowLegend:     v.TabVisible(model.ViewLegend) && len(v.Legend) > 0,
		ShowStatistics: v.TabVisible(model.ViewStatistics),
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
