// Package apikey verifica la API key de administración. La clave se guarda
// en config como hash bcrypt; el texto plano solo se acepta en dev.
package apikey

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidKey = errors.New("apikey: invalid admin API key")

// Verifier valida la API key presentada contra la configuración.
type Verifier struct {
	plain string // solo dev
	hash  string // bcrypt
}

// NewVerifier arma un Verifier. hash tiene prioridad sobre plain.
func NewVerifier(plain, hash string) *Verifier {
	return &Verifier{plain: strings.TrimSpace(plain), hash: strings.TrimSpace(hash)}
}

// Enabled retorna true si hay alguna clave configurada.
func (v *Verifier) Enabled() bool { return v.plain != "" || v.hash != "" }

// Verify compara la clave presentada. Retorna ErrInvalidKey si no matchea
// o si no hay clave configurada.
func (v *Verifier) Verify(presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" || !v.Enabled() {
		return ErrInvalidKey
	}
	if v.hash != "" {
		if bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(presented)) != nil {
			return ErrInvalidKey
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(v.plain), []byte(presented)) != 1 {
		return ErrInvalidKey
	}
	return nil
}

// Generate crea una clave aleatoria (base64url sin padding) y su bcrypt,
// para `digestusctl keygen`.
func Generate(nBytes int) (key, hash string, err error) {
	if nBytes <= 0 {
		nBytes = 32
	}
	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}
	key = base64.RawURLEncoding.EncodeToString(b)

	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return key, string(h), nil
}
