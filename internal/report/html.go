package report

import (
	"html/template"
	"os"
	"time"

	"sightline/pkg/models"
)

// card is the per-target view model for the HTML gallery.
type card struct {
	Index       int
	URL         string
	FinalURL    string
	Status      string
	StatusClass string
	Title       string
	LoadMillis  int64
	Techs       []string
	Category    string
	SecGrade    string
	Screenshot  string
	Heatmap     string
	Compare     string
	DiffPct     float64
	HasDiff     bool
	Severity    string
	Changes     []models.ContentChange
	Notes       string
}

type pageData struct {
	GeneratedAt string
	Counts      models.Counts
	Severity    *models.SeverityCounts
	Cards       []card
}

// WriteHTML renders the gallery report for one run.
func WriteHTML(filename string, results []models.CaptureResult, counts models.Counts, severity *models.SeverityCounts) error {
	data := pageData{
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Counts:      counts,
		Severity:    severity,
	}
	for i := range results {
		r := &results[i]
		c := card{
			Index:       r.Index,
			URL:         r.URL,
			FinalURL:    r.FinalURL,
			Status:      r.StatusLabel(),
			StatusClass: statusClass(r),
			Title:       r.Title,
			LoadMillis:  r.LoadMillis,
			Techs:       r.Technologies,
			Category:    r.Category,
			SecGrade:    r.SecGrade,
			Screenshot:  r.Screenshot,
			Heatmap:     r.DiffHeatmap,
			Compare:     r.DiffCompare,
			Notes:       r.Notes,
		}
		if r.DiffSeverity != "" {
			c.HasDiff = true
			c.Severity = string(r.DiffSeverity)
			c.DiffPct = r.DiffPercent
			c.Changes = r.ContentChanges
		}
		data.Cards = append(data.Cards, c)
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return reportTemplate.Execute(f, data)
}

func statusClass(r *models.CaptureResult) string {
	switch {
	case r.Failed():
		return "fail"
	case r.StatusCode >= 500:
		return "fail"
	case r.StatusCode >= 400:
		return "warn"
	default:
		return "ok"
	}
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sightline Report</title>
<style>
body { background: #0f1219; color: #d8dee9; font-family: system-ui, sans-serif; margin: 0; padding: 24px; }
h1 { font-size: 20px; margin: 0 0 4px; }
.meta { color: #7b8494; font-size: 13px; margin-bottom: 20px; }
.stats { display: flex; gap: 16px; margin-bottom: 24px; font-size: 14px; }
.stats span { padding: 4px 10px; border-radius: 4px; background: #1a1f2b; }
.grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(340px, 1fr)); gap: 16px; }
.card { background: #161b26; border-radius: 8px; overflow: hidden; border: 1px solid #232a3a; }
.card img { width: 100%; height: 190px; object-fit: cover; object-position: top; display: block; background: #000; }
.card .body { padding: 12px 14px; }
.card .url { font-size: 13px; word-break: break-all; color: #8fbcf5; }
.card .title { font-size: 14px; margin: 6px 0 4px; }
.row { display: flex; gap: 8px; flex-wrap: wrap; font-size: 12px; margin-top: 8px; }
.badge { padding: 2px 8px; border-radius: 10px; background: #222a3a; }
.ok { color: #7ee2a8; } .warn { color: #f5d76e; } .fail { color: #f58f8f; }
.sev-critical { background: #5c1a1a; color: #ffb3b3; }
.sev-high { background: #5c3a1a; color: #ffd3a1; }
.sev-medium { background: #5c521a; color: #fff0a1; }
.sev-low { background: #1a3a5c; color: #a1d3ff; }
.sev-new { background: #1a5c3a; color: #a1ffd3; }
.sev-none { background: #222a3a; color: #7b8494; }
.changes { font-size: 12px; color: #9aa4b5; margin-top: 8px; }
.changes li { margin: 2px 0; }
.diffimgs a { font-size: 12px; color: #8fbcf5; margin-right: 10px; }
footer { margin-top: 28px; color: #555e6e; font-size: 12px; }
</style>
</head>
<body>
<h1>Sightline Report</h1>
<div class="meta">generated {{.GeneratedAt}}</div>
<div class="stats">
  <span>{{.Counts.Total}} targets</span>
  <span class="ok">{{.Counts.Success}} ok</span>
  <span class="warn">{{.Counts.Warn}} warnings</span>
  <span class="fail">{{.Counts.Fail}} failed</span>
  {{with .Severity}}
  <span>diff: {{.Critical}} critical / {{.High}} high / {{.Medium}} medium / {{.Low}} low / {{.New}} new</span>
  {{end}}
</div>
<div class="grid">
{{range .Cards}}
  <div class="card">
    {{if .Screenshot}}<a href="{{.Screenshot}}"><img src="{{.Screenshot}}" alt="screenshot" loading="lazy"></a>{{end}}
    <div class="body">
      <div class="url"><a href="{{.URL}}" class="url">{{.URL}}</a></div>
      {{if .Title}}<div class="title">{{.Title}}</div>{{end}}
      <div class="row">
        <span class="badge {{.StatusClass}}">{{.Status}}</span>
        <span class="badge">{{.LoadMillis}} ms</span>
        {{if .SecGrade}}<span class="badge">grade {{.SecGrade}}</span>{{end}}
        {{if .Category}}<span class="badge">{{.Category}}</span>{{end}}
        {{if .HasDiff}}<span class="badge sev-{{.Severity}}">{{.Severity}}{{if ge .DiffPct 0.0}} · {{.DiffPct}}%{{end}}</span>{{end}}
      </div>
      {{if .Techs}}
      <div class="row">{{range .Techs}}<span class="badge">{{.}}</span>{{end}}</div>
      {{end}}
      {{if .Changes}}
      <ul class="changes">
        {{range .Changes}}<li>{{.Field}}: {{.Old}} &rarr; {{.New}}</li>{{end}}
      </ul>
      {{end}}
      {{if .Heatmap}}
      <div class="row diffimgs"><a href="{{.Heatmap}}">heatmap</a><a href="{{.Compare}}">before/after</a></div>
      {{end}}
    </div>
  </div>
{{end}}
</div>
<footer>sightline</footer>
</body>
</html>
`))
