package server

import (
	"html/template"
	"io"

	"github.com/hstream-dev/hstream/pkg/component"
)

// pageShell is the HTML skeleton served on a root visit. Each visible
// component renders into a container that re-fetches its label when the
// matching refresh event fires; markup records are inlined verbatim.
const pageShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>hstream</title>
<link rel="stylesheet" href="{{.Stylesheet}}">
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
</head>
<body hx-get="/update" hx-trigger="every 2s, get-updated-components from:body" hx-swap="none">
<nav id="hstream-nav">
{{- range .Components}}{{if isNav .}}
<div id="hs-{{.Key}}" hx-get="/{{.Key}}/label" hx-trigger="refresh-{{.Key}} from:body">{{raw .Label}}</div>
{{- end}}{{end}}
</nav>
<main>
{{- range .Components}}
{{- if isMarkup .}}
{{raw .Label}}
{{- else if isInput .}}
<form hx-post="/value_changed/{{.Key}}" hx-trigger="change">
<div id="hs-{{.Key}}" hx-get="/{{.Key}}/label" hx-trigger="refresh-{{.Key}} from:body">{{raw .Label}}</div>
<input name="{{.Key}}" value="{{.CurrentValue}}">
</form>
{{- else if not (isNav .)}}
<div id="hs-{{.Key}}" hx-get="/{{.Key}}/label" hx-trigger="refresh-{{.Key}} from:body">{{raw .Label}}</div>
{{- end}}
{{- end}}
</main>
</body>
</html>
`

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	// Labels are script-authored markup, rendered as-is.
	"raw": func(s string) template.HTML { return template.HTML(s) },
	"isNav": func(r *component.Record) bool {
		return r.Kind == component.KindNav
	},
	"isInput": func(r *component.Record) bool {
		return r.Kind == component.KindInput
	},
	"isMarkup": func(r *component.Record) bool {
		return r.Kind == component.KindMarkup
	},
}).Parse(pageShell))

type pageData struct {
	Stylesheet string
	Components []*component.Record
}

// renderPage writes the page shell for the session's component set.
func (s *Server) renderPage(w io.Writer, components *component.Set) error {
	return pageTemplate.Execute(w, pageData{
		Stylesheet: s.config.StylesheetHref,
		Components: components.Records(),
	})
}
