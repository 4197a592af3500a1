// Package matching implementa el motor de correspondencia de preguntas
// del paciente simulado: índices derivados por caso, la cascada de
// estrategias de matching y el divisor de preguntas compuestas.
package matching

import "dxpro-backend/textutil"

// Intent es una unidad de respuesta autorada: un nombre, sus variantes
// de pregunta y la respuesta del paciente.
type Intent struct {
	Name     string
	Variants []string
	Answer   string
}

type exactEntry struct {
	intent string
	answer string
}

type tokenEntry struct {
	intent string
	tokens []string
	answer string
}

// fuzzySearcher abstrae el buscador aproximado para poder reemplazarlo
// en tests de la cascada.
type fuzzySearcher interface {
	search(query string) []fuzzyResult
}

// CaseIndex agrupa las estructuras derivadas de un caso. Se construye
// una sola vez y nunca se muta; puede compartirse entre goroutines.
type CaseIndex struct {
	exact   map[string]exactEntry
	entries []tokenEntry // orden de autoría; desempata la etapa de tokens
	fuzzy   fuzzySearcher
}

// BuildIndex deriva el índice de matching de la lista de intents en
// orden de autoría. Si dos variantes normalizan igual, la última pisa a
// la anterior en la tabla exacta ("last variant wins", es política y no
// error: la etapa fuzzy recupera la variante pisada).
func BuildIndex(intents []Intent) *CaseIndex {
	idx := &CaseIndex{exact: make(map[string]exactEntry)}
	var corpus []fuzzyDoc
	for _, in := range intents {
		for _, v := range in.Variants {
			nrm := textutil.Normalize(v)
			if nrm != "" {
				idx.exact[nrm] = exactEntry{intent: in.Name, answer: in.Answer}
			}
			idx.entries = append(idx.entries, tokenEntry{
				intent: in.Name,
				tokens: textutil.Tokenize(v),
				answer: in.Answer,
			})
		}
		corpus = append(corpus, fuzzyDoc{
			Intent:   in.Name,
			Variants: in.Variants,
			Answer:   in.Answer,
		})
	}
	idx.fuzzy = newFuzzyIndex(corpus)
	return idx
}

// Empty reports whether the index has nothing to match against.
func (ix *CaseIndex) Empty() bool {
	return ix == nil || (len(ix.exact) == 0 && len(ix.entries) == 0)
}
