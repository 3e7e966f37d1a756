package email

import (
	htemplate "html/template"
	ttemplate "text/template"
)

// Templates del digest y de la auto-respuesta por formato inválido. El
// reminder no está acá: su cuerpo lo produce el paquete render.

const digestTextTmpl = `Here is the {{.TeamName}} digest for {{.Date}}.
{{range .Entries}}
{{.Name}}
{{- if .Update}}
{{- if .Update.Done}}
  Done:
{{- range .Update.Done}}
    - {{.}}
{{- end}}
{{- end}}
{{- if .Update.WillDo}}
  Will do:
{{- range .Update.WillDo}}
    + {{.}}
{{- end}}
{{- end}}
{{- if .Update.Blockers}}
  Blockers:
{{- range .Update.Blockers}}
    * {{.}}
{{- end}}
{{- end}}
{{- else}}
  (no update sent)
{{- end}}
{{end}}`

const digestHTMLTmpl = `<html>
<body style="font-family: sans-serif; color: #333;">
<p>Here is the <b>{{.TeamName}}</b> digest for {{.Date}}.</p>
{{range .Entries}}
<h3 style="margin-bottom: 4px;">{{.Name}}</h3>
{{if .Update}}
{{if .Update.Done}}<p style="margin: 2px 0;">Done:</p><ul style="margin: 2px 0;">{{range .Update.Done}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .Update.WillDo}}<p style="margin: 2px 0;">Will do:</p><ul style="margin: 2px 0;">{{range .Update.WillDo}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .Update.Blockers}}<p style="margin: 2px 0;">Blockers:</p><ul style="margin: 2px 0;">{{range .Update.Blockers}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{else}}
<p style="color: #999;">(no update sent)</p>
{{end}}
{{end}}
</body>
</html>`

const formatErrorTmpl = `Sorry! We could not read your update.

Every line of your reply has to start with one of these markers:

  - something you got done
  + something you will do
  * something blocking you

This is what we received:

{{.Body}}
`

var (
	digestText  = ttemplate.Must(ttemplate.New("digest_text").Parse(digestTextTmpl))
	digestHTML  = htemplate.Must(htemplate.New("digest_html").Parse(digestHTMLTmpl))
	formatError = ttemplate.Must(ttemplate.New("format_error").Parse(formatErrorTmpl))
)
