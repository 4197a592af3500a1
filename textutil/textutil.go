// Package textutil contiene las utilidades de texto compartidas por el
// matching de preguntas y la evaluación de respuestas: normalización,
// tokenización con stopwords en español y similitud de Jaccard.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenLen is the minimum token length in runes. Shorter tokens
// (articles, conjunctions, single letters) carry no signal.
const minTokenLen = 3

// stripMarks removes diacritics: decompose (NFD), drop combining marks,
// recompose (NFC). "señor" -> "senor", "está" -> "esta".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// stopwords is the closed set of Spanish function words ignored during
// tokenization. Entries are already in normalized (accent-free) form.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"el la los las un una unos unas de del al a ante bajo cabe con contra " +
			"desde durante en entre hacia hasta para por segun sin sobre tras " +
			"y o u e que como cual cuales cuanto cuanta cuantos cuando donde " +
			"quien quienes yo tu vos usted ustedes mi mis su sus es son esta " +
			"estan soy eres somos ser estar hay tener tiene tenes tienes tienen hace") {
		stopwords[w] = struct{}{}
	}
}

// Normalize devuelve la forma canónica de un texto: minúsculas, sin
// tildes, sin signos ni símbolos (se reemplazan por espacio), con los
// espacios colapsados y sin bordes. Es idempotente.
func Normalize(text string) string {
	lower := strings.ToLower(text)
	stripped, _, err := transform.String(stripMarks, lower)
	if err != nil {
		stripped = lower
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pending := false
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		// Whitespace and punctuation both collapse into a single
		// separator, emitted only between words.
		pending = true
	}
	return b.String()
}

// Tokenize normaliza el texto y devuelve los tokens que sobreviven el
// filtro de stopwords y de longitud mínima, en orden de aparición.
func Tokenize(text string) []string {
	nrm := Normalize(text)
	if nrm == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(nrm, " ") {
		if utf8.RuneCountInString(t) < minTokenLen {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// IsStopword reports whether the normalized word belongs to the closed
// stopword set.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// Jaccard calcula |A∩B| / |A∪B| entre dos listas de tokens tratadas
// como conjuntos. Devuelve 0 cuando la unión es vacía.
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func toSet(tokens []string) map[string]struct{} {
	s := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}
