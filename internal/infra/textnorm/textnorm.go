// Package textnorm dobra acentos e caixa para comparar texto digitado pelo
// usuário ("Básico", "CRÉDITO") com códigos e palavras-chave.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fold decompõe em NFKD, remove as marcas combinantes e passa para minúsculas.
func Fold(text string) string {
	decomposed := norm.NFKD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
