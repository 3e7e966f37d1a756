// Package render produce el cuerpo de texto plano del reminder email.
//
// El render es una función pura: mismo contexto ⇒ mismo output byte a byte.
// Las dos listas son opcionales (nil == vacía ⇒ se omite la sección completa);
// TeamEmail y TeamName son obligatorios.
package render

import (
	"strings"
	"text/template"
)

// Context son las variables de una invocación de render. Lo arma el caller
// (scheduler/worker) por cada envío y se descarta después.
type Context struct {
	// PreviousTodos son los "+" del último update, para confirmar si se hicieron.
	// El orden de entrada se preserva tal cual.
	PreviousTodos []string

	// PreviousBlockers son los "*" del último update, para confirmar si se
	// destrabaron. Orden preservado.
	PreviousBlockers []string

	// TeamEmail es la dirección del equipo, interpolada verbatim en el tip.
	TeamEmail string

	// TeamName es el nombre del equipo, interpolado verbatim en el cierre.
	TeamName string
}

// MissingFieldError indica que falta un campo obligatorio del contexto.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "render: missing required field " + e.Field
}

// reminderTmpl es el template del reminder. Bloques en orden fijo:
// instrucciones + ejemplo, to-dos previos (condicional), blockers previos
// (condicional), tip con el email del equipo, cierre con el nombre.
const reminderTmpl = `Hi!

Just reply to this email with your status update. Start each line with
one of these markers:

  - something you got done
  + something you will do next
  * something blocking you

For example:

  - Shipped the billing fix
  + Write the release notes
  * Still waiting on staging access

{{if .PreviousTodos}}Were these items done?
{{range .PreviousTodos}}  + {{.}}
{{end}}
{{end}}{{if .PreviousBlockers}}Were these blockers addressed?
{{range .PreviousBlockers}}  * {{.}}
{{end}}
{{end}}Tip: you can send an update at any moment by writing to {{.TeamEmail}}.

Thanks for keeping {{.TeamName}} in the loop!
`

var reminder = template.Must(template.New("reminder").Parse(reminderTmpl))

// Render produce el cuerpo del reminder para el contexto dado.
//
// Sin efectos secundarios y seguro para uso concurrente. El único error
// posible es *MissingFieldError cuando TeamEmail o TeamName están vacíos:
// una lista ausente se trata igual que una vacía.
func Render(ctx Context) (string, error) {
	if strings.TrimSpace(ctx.TeamEmail) == "" {
		return "", &MissingFieldError{Field: "team_email"}
	}
	if strings.TrimSpace(ctx.TeamName) == "" {
		return "", &MissingFieldError{Field: "team_name"}
	}

	var sb strings.Builder
	if err := reminder.Execute(&sb, ctx); err != nil {
		// No alcanzable con text/template sobre strings, pero no lo tragamos.
		return "", err
	}
	return sb.String(), nil
}
