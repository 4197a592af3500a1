package matching

import (
	"sort"
	"strings"
)

// Parámetros del buscador aproximado, heredados de la configuración
// original del índice (umbral 0.34, fragmento mínimo de 3 caracteres,
// sin sensibilidad a la posición).
const (
	fuzzyIndexThreshold = 0.34
	fuzzyMinQueryLen    = 3
)

// fuzzyDoc es una entrada del corpus aproximado: un intent con todas
// sus variantes crudas. La búsqueda puntúa contra las variantes tal
// como fueron autoradas (solo en minúsculas), no contra su forma
// normalizada; por eso el matcher tiene una recuperación exacta aparte.
type fuzzyDoc struct {
	Intent   string
	Variants []string
	Answer   string
}

type fuzzyResult struct {
	doc   fuzzyDoc
	score float64 // distancia en [0,1], menor es mejor
}

type fuzzyIndex struct {
	docs    []fuzzyDoc
	lowered [][]string // variantes en minúsculas, paralelo a docs
}

func newFuzzyIndex(docs []fuzzyDoc) *fuzzyIndex {
	ix := &fuzzyIndex{docs: docs, lowered: make([][]string, len(docs))}
	for i, d := range docs {
		low := make([]string, len(d.Variants))
		for j, v := range d.Variants {
			low[j] = strings.ToLower(v)
		}
		ix.lowered[i] = low
	}
	return ix
}

// search devuelve los documentos con distancia <= fuzzyIndexThreshold,
// ordenados de menor a mayor distancia. El orden de autoría desempata.
func (ix *fuzzyIndex) search(query string) []fuzzyResult {
	if ix == nil {
		return nil
	}
	q := []rune(query)
	if len(q) < fuzzyMinQueryLen {
		return nil
	}
	var results []fuzzyResult
	for i, d := range ix.docs {
		best := 1.0
		for _, v := range ix.lowered[i] {
			if s := variantDistance(q, v); s < best {
				best = s
			}
		}
		if best <= fuzzyIndexThreshold {
			results = append(results, fuzzyResult{doc: d, score: best})
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].score < results[b].score
	})
	return results
}

// variantDistance es la distancia normalizada entre la consulta y una
// variante: Levenshtein sobre runas dividido por el largo mayor. Una
// consulta contenida en la variante se penaliza solo por el resto no
// cubierto, a mitad de peso, para ignorar la posición del fragmento.
func variantDistance(query []rune, variant string) float64 {
	v := []rune(variant)
	if len(v) == 0 {
		return 1
	}
	if string(query) == variant {
		return 0
	}
	dist := float64(levenshtein(query, v)) / float64(max(len(query), len(v)))
	if len(query) < len(v) && strings.Contains(variant, string(query)) {
		contained := (1 - float64(len(query))/float64(len(v))) * 0.5
		if contained < dist {
			dist = contained
		}
	}
	return dist
}

// levenshtein computes edit distance over runes with a single-row DP.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
