package report

// htmlTemplate is the standalone HTML research report. Charts are inline SVG.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root { --text: #1a1a2e; --muted: #6b7280; --border: #e5e7eb; --accent: #2563eb; --panel: #f8fafc; }
  * { box-sizing: border-box; }
  body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: var(--text);
         max-width: 900px; margin: 0 auto; padding: 20px; line-height: 1.5; }
  h1 { color: var(--accent); font-size: 1.5rem; margin: 0 0 4px; }
  h2 { font-size: 1.15rem; margin: 28px 0 10px; padding-bottom: 4px; border-bottom: 2px solid var(--accent); }
  h3 { font-size: 1rem; margin: 16px 0 6px; }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .badge { background: var(--accent); color: #fff; padding: 2px 10px; border-radius: 4px; font-weight: 700; margin-right: 8px; }
  .tiles { display: grid; grid-template-columns: repeat(auto-fill, minmax(140px, 1fr)); gap: 8px;
           background: var(--panel); padding: 12px; border-radius: 8px; }
  .tile .label { font-size: 0.75rem; color: var(--muted); text-transform: uppercase; }
  .tile .value { font-weight: 600; }
  table { width: 100%; border-collapse: collapse; font-size: 0.85rem; margin: 8px 0; }
  th, td { padding: 4px 8px; border-bottom: 1px solid var(--border); text-align: right; }
  th:first-child, td:first-child { text-align: left; }
  th { background: var(--panel); }
  .chart { margin: 12px 0; overflow-x: auto; }
  .warn { color: #b45309; font-size: 0.85rem; }
  @media print { .chart { page-break-inside: avoid; } }
</style>
</head>
<body>
<header>
  <h1><span class="badge">{{.Symbol}}</span>{{.Title}}</h1>
  {{if .Name}}<div>{{.Name}}{{if .Industry}} · {{.Industry}}{{end}}{{if .SectorETF}} · sector ETF {{.SectorETF}}{{end}}</div>{{end}}
  <div class="muted">Generated {{.GeneratedAt}}</div>
</header>

{{if .Quote}}
<h2>Quote</h2>
<div class="tiles">
  {{range .Quote}}<div class="tile"><div class="label">{{.Label}}</div><div class="value">{{.Value}}</div></div>{{end}}
</div>
{{end}}

{{if .Summary}}
<h2>Option chain</h2>
<table>
  <tr><th>Side</th><th>Contracts</th><th>Volume</th><th>Open interest</th><th>Engagement</th><th>Avg IV</th><th>ITM</th><th>OTM</th></tr>
  {{range .Summary}}<tr><td>{{.Side}}</td><td>{{.Count}}</td><td>{{.Volume}}</td><td>{{.OpenInterest}}</td><td>{{.Engagement}}</td><td>{{.AvgIV}}</td><td>{{.ITM}}</td><td>{{.OTM}}</td></tr>{{end}}
</table>
<p>Put/call ratio: {{.PCR}}</p>
{{if .MaxPain}}
<h3>Max pain</h3>
<table>
  <tr><th>Expiration</th><th>Strike</th></tr>
  {{range .MaxPain}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>{{end}}
</table>
{{end}}
{{end}}

{{if .Greeks}}
<h2>Greeks by expiration</h2>
{{range .Greeks}}
<h3>{{.Title}}</h3>
<table>
  <tr>{{range $.GreeksHeaderCells}}<th>{{.}}</th>{{end}}</tr>
  {{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
</table>
{{end}}
{{range .GreeksCharts}}<div class="chart">{{.}}</div>{{end}}
{{end}}

{{if .SkewChart}}
<h2>Volatility skew</h2>
{{if .HV}}<p>One-year historical volatility: {{.HV}}</p>{{end}}
<div class="chart">{{.SkewChart}}</div>
{{end}}

{{if .SurfaceChart}}
<h2>Volatility surface</h2>
<p>{{.Surface}}</p>
<div class="chart">{{.SurfaceChart}}</div>
{{end}}

{{if .Technical}}
<h2>Technical indicators</h2>
<table>
  {{range .Technical}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>{{end}}
</table>
{{end}}

{{if .Warnings}}
<h2>Skipped sections</h2>
{{range .Warnings}}<p class="warn">{{.}}</p>{{end}}
{{end}}
</body>
</html>
`
