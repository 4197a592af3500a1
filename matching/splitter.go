package matching

import (
	"strings"

	"dxpro-backend/textutil"
)

// connectors son las palabras que separan preguntas encadenadas dentro
// de una misma oración, ya en forma normalizada.
var connectors = map[string]struct{}{
	"y":       {},
	"tambien": {},
	"ademas":  {},
}

func isTerminator(r rune) bool {
	return r == '?' || r == '.' || r == ','
}

// Split descompone un enunciado compuesto en fragmentos independientes
// ya normalizados, en orden de aparición: primero corta por signos de
// cierre (?, ., ,) sobre el texto crudo y luego por conectores dentro
// de cada trozo. Nunca devuelve una lista vacía; si nada sobrevive,
// devuelve el enunciado normalizado como único fragmento.
func Split(utterance string) []string {
	var frags []string
	for _, piece := range strings.FieldsFunc(utterance, isTerminator) {
		nrm := textutil.Normalize(piece)
		if nrm == "" {
			continue
		}
		words := strings.Split(nrm, " ")
		var cur []string
		flush := func() {
			if len(cur) > 0 {
				frags = append(frags, strings.Join(cur, " "))
				cur = nil
			}
		}
		for _, w := range words {
			if _, conn := connectors[w]; conn {
				flush()
				continue
			}
			cur = append(cur, w)
		}
		flush()
	}
	if len(frags) == 0 {
		return []string{textutil.Normalize(utterance)}
	}
	return frags
}
