package cli

import (
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/iudanet/vaultsync/internal/client/data"
)

const entryTemplate = `=== {{.Label}} ===
ID:       {{.ID}}
{{- if .Category}}
Category: {{.Category}}
{{- end}}
{{- if .URL}}
URL:      {{.URL}}
{{- end}}
{{- if .Secret.Username}}
Login:    {{.Secret.Username}}
{{- end}}
Password: {{password .Secret.Password}}
{{- if .Secret.Notes}}
Notes:    {{.Secret.Notes}}
{{- end}}
Created:  {{millis .CreatedAt}}
Updated:  {{millis .UpdatedAt}}
`

func renderEntry(w io.Writer, entry *data.Entry, reveal bool) error {
	funcs := template.FuncMap{
		"password": func(p string) string {
			if reveal || p == "" {
				return p
			}
			return strings.Repeat("*", 8)
		},
		"millis": func(ms int64) string {
			return time.UnixMilli(ms).UTC().Format(time.RFC3339)
		},
	}
	tmpl, err := template.New("entry").Funcs(funcs).Parse(entryTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, entry)
}
