// Package inbound parsea las replies de correo con el status update de un
// miembro. Cada línea útil empieza con un marcador: "-" (hecho), "+" (por
// hacer) o "*" (bloqueo). El resto del correo (citas, firmas, saludos) se
// descarta.
package inbound

import (
	"errors"
	"regexp"
	"strings"
)

// ErrWrongFormat indica que el cuerpo no contiene ninguna línea con marcador.
// El webhook responde con el auto-reply de formato ante este error.
var ErrWrongFormat = errors.New("inbound: no update lines found in reply")

// Reply es el resultado de parsear el cuerpo de un correo entrante.
// Las listas conservan el orden del correo, sin dedup.
type Reply struct {
	Done     []string
	WillDo   []string
	Blockers []string
}

// Patrones de comienzo de bloque citado ("On ... wrote:", clientes en
// español, y el separador de Outlook).
var quoteIntro = regexp.MustCompile(`(?i)^(on .+ wrote:|el .+ escribió:|-+ ?original message ?-+|from: .+)$`)

// Parse extrae el update del cuerpo de una reply. Corta en el primer bloque
// citado y junta las líneas por marcador. Retorna ErrWrongFormat si no hay
// ninguna línea útil antes de la cita.
func Parse(body string) (Reply, error) {
	var r Reply

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		// Texto citado: todo lo que sigue es el correo original.
		if strings.HasPrefix(line, ">") || quoteIntro.MatchString(line) {
			break
		}

		marker := line[0]
		rest := strings.TrimSpace(line[1:])
		if rest == "" {
			continue
		}
		switch marker {
		case '-':
			r.Done = append(r.Done, rest)
		case '+':
			r.WillDo = append(r.WillDo, rest)
		case '*':
			r.Blockers = append(r.Blockers, rest)
		}
	}

	if len(r.Done) == 0 && len(r.WillDo) == 0 && len(r.Blockers) == 0 {
		return Reply{}, ErrWrongFormat
	}
	return r, nil
}
