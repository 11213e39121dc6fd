package plan

import (
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

var summaryTemplate = template.Must(template.New("summary").
	Funcs(sprig.HermeticTxtFuncMap()).
	Parse(`Plan {{ .ID }} (schema {{ .SchemaVersion }}): {{ len .Steps }} {{ if eq (len .Steps) 1 }}step{{ else }}steps{{ end }}
{{- range $i, $s := .Steps }}
{{ add1 $i | printf "%3d" }}. {{ $s.ID }} ({{ $s.Kind }})
{{- if $s.DependsOn }} after {{ join ", " $s.DependsOn }}{{ end }}
{{- end }}
`))

// Summary writes a short human readable listing of the plan's steps.
func (p *Plan) Summary(w io.Writer) error {
	return summaryTemplate.Execute(w, p)
}
