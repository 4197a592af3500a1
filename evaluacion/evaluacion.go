// Package evaluacion puntúa las entregas finales del estudiante
// (diagnóstico presuntivo y plan de tratamiento) contra las listas de
// referencia del caso, usando la misma similitud de tokens que el
// matcher de preguntas.
package evaluacion

import (
	"math"
	"strings"

	"dxpro-backend/textutil"
)

// Umbrales de aceptación. El diagnóstico exige más coincidencia que los
// ítems de tratamiento porque se compara como frase completa.
const (
	diagnosisThreshold = 0.72
	treatmentThreshold = 0.70
)

// Pesos del puntaje compuesto.
const (
	diagnosisWeight = 0.6
	treatmentWeight = 0.4
)

// DiagnosisResult es el resultado de evaluar el diagnóstico libre.
// Reference siempre trae el candidato más cercano, se haya alcanzado o
// no el umbral, para poder mostrar "la mejor aproximación".
type DiagnosisResult struct {
	Correct    bool    `json:"correcto"`
	Similarity float64 `json:"similitud"`
	Reference  string  `json:"referencia"`
}

// TreatmentResult es el resultado de evaluar el plan de tratamiento.
type TreatmentResult struct {
	Matched []string `json:"aciertos"`
	Missing []string `json:"faltantes"`
	Extra   []string `json:"extras"`
	Score   float64  `json:"puntaje"`
}

// Score es el puntaje compuesto de una entrega.
type Score struct {
	Diagnosis float64
	Treatment float64
	Total     float64
}

// EvaluateDiagnosis busca el candidato esperado con mayor Jaccard
// contra el texto del estudiante (primero en caso de empate) y lo da
// por correcto desde 0.72. La similitud se redondea a 2 decimales.
func EvaluateDiagnosis(userText string, expected []string) DiagnosisResult {
	if strings.TrimSpace(userText) == "" {
		return DiagnosisResult{}
	}
	userTokens := textutil.Tokenize(userText)
	best := 0.0
	ref := ""
	for _, candidate := range expected {
		s := textutil.Jaccard(userTokens, textutil.Tokenize(candidate))
		if s > best {
			best = s
			ref = candidate
		}
	}
	return DiagnosisResult{
		Correct:    best >= diagnosisThreshold,
		Similarity: round2(best),
		Reference:  ref,
	}
}

// EvaluateTreatment divide la entrega en ítems y los asigna de forma
// voraz, en orden de entrada, contra los esperados aún no consumidos.
// Un esperado acreditado sale del pool para no contarse dos veces. La
// asignación voraz depende del orden de entrada a propósito: es
// reproducible y así se conserva.
func EvaluateTreatment(userText string, expected []string) TreatmentResult {
	userItems := splitItems(userText)
	pool := make([]string, 0, len(expected))
	for _, e := range expected {
		if nrm := textutil.Normalize(e); nrm != "" {
			pool = append(pool, nrm)
		}
	}
	total := len(pool)

	res := TreatmentResult{Matched: []string{}, Missing: []string{}, Extra: []string{}}
	used := make(map[int]bool, total)
	for _, item := range userItems {
		itemTokens := textutil.Tokenize(item)
		best := 0.0
		bestIdx := -1
		for i, exp := range pool {
			if used[i] {
				continue
			}
			if s := textutil.Jaccard(itemTokens, textutil.Tokenize(exp)); s > best {
				best = s
				bestIdx = i
			}
		}
		if bestIdx >= 0 && best >= treatmentThreshold {
			used[bestIdx] = true
			res.Matched = append(res.Matched, pool[bestIdx])
		} else {
			res.Extra = append(res.Extra, item)
		}
	}
	for i, exp := range pool {
		if !used[i] {
			res.Missing = append(res.Missing, exp)
		}
	}

	if total == 0 {
		res.Score = 1
	} else {
		res.Score = round2(clamp01(float64(len(res.Matched)) / float64(total)))
	}
	return res
}

// CompositeScore combina ambos resultados: el diagnóstico vale 1 si es
// correcto y su similitud cruda si no; 60/40 a favor del diagnóstico.
func CompositeScore(diag DiagnosisResult, tto TreatmentResult) Score {
	ds := diag.Similarity
	if diag.Correct {
		ds = 1
	}
	ds = clamp01(ds)
	return Score{
		Diagnosis: ds,
		Treatment: tto.Score,
		Total:     round2(diagnosisWeight*ds + treatmentWeight*tto.Score),
	}
}

// Percentages devuelve los tres componentes escalados a 0-100 para
// mostrar.
func (s Score) Percentages() (diagnosis, treatment, total int) {
	return int(math.Round(s.Diagnosis * 100)),
		int(math.Round(s.Treatment * 100)),
		int(math.Round(s.Total * 100))
}

// splitItems corta el texto del plan en ítems por coma, punto y coma,
// "+" y conectores ("y", "e"), ya normalizados y sin vacíos.
func splitItems(text string) []string {
	pieces := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '+'
	})
	var items []string
	for _, piece := range pieces {
		nrm := textutil.Normalize(piece)
		if nrm == "" {
			continue
		}
		var cur []string
		flush := func() {
			if len(cur) > 0 {
				items = append(items, strings.Join(cur, " "))
				cur = nil
			}
		}
		for _, w := range strings.Split(nrm, " ") {
			if w == "y" || w == "e" {
				flush()
				continue
			}
			cur = append(cur, w)
		}
		flush()
	}
	return items
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
