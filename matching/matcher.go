package matching

import "dxpro-backend/textutil"

// Umbrales de la cascada. Calibrados sobre los casos autorados; subir
// el umbral de tokens reduce falsos positivos a costa de más fallbacks.
const (
	tokenAcceptThreshold = 0.58
	tokenBonus           = 0.05
	tokenBonusMinScore   = 0.5
	tokenBonusMinTokens  = 2
	fuzzyAcceptThreshold = 0.30
)

// query es la pregunta ya preprocesada que recorre la cascada.
type query struct {
	norm   string
	tokens []string
}

// strategy es una etapa de la cascada: intenta resolver la pregunta y
// devuelve (respuesta, true) o declina con false. Las etapas nunca
// fallan, solo declinan.
type strategy interface {
	attempt(q query, idx *CaseIndex) (string, bool)
}

// Matcher evalúa sus estrategias en orden fijo de prioridad y corta en
// la primera que acepta.
type Matcher struct {
	strategies []strategy
}

// NewMatcher arma la cascada por defecto: exacta, similitud de tokens,
// búsqueda aproximada.
func NewMatcher() *Matcher {
	return &Matcher{strategies: []strategy{
		exactStrategy{},
		tokenStrategy{},
		fuzzyStrategy{},
	}}
}

// Match busca la respuesta autorada para una pregunta. El segundo valor
// es false cuando ninguna etapa alcanza su umbral; quién llama decide
// entre el fallback generativo y el texto "desconocido" del caso.
func (m *Matcher) Match(question string, idx *CaseIndex) (string, bool) {
	if idx.Empty() {
		return "", false
	}
	q := query{norm: textutil.Normalize(question), tokens: textutil.Tokenize(question)}
	if q.norm == "" {
		return "", false
	}
	for _, s := range m.strategies {
		if answer, ok := s.attempt(q, idx); ok {
			return answer, true
		}
	}
	return "", false
}

// exactStrategy resuelve por variante normalizada idéntica.
type exactStrategy struct{}

func (exactStrategy) attempt(q query, idx *CaseIndex) (string, bool) {
	if e, ok := idx.exact[q.norm]; ok {
		return e.answer, true
	}
	return "", false
}

// tokenStrategy toma la variante con mayor Jaccard contra los tokens de
// la pregunta. Un empate exacto lo gana la primera variante en orden de
// autoría. El bono premia coincidencias altas entre frases con al menos
// dos tokens de contenido.
type tokenStrategy struct{}

func (tokenStrategy) attempt(q query, idx *CaseIndex) (string, bool) {
	bestScore := 0.0
	bestAnswer := ""
	found := false
	for _, e := range idx.entries {
		if len(e.tokens) == 0 {
			continue
		}
		score := textutil.Jaccard(q.tokens, e.tokens)
		if score >= tokenBonusMinScore && len(e.tokens) >= tokenBonusMinTokens && len(q.tokens) >= tokenBonusMinTokens {
			score += tokenBonus
		}
		if score > bestScore {
			bestScore = score
			bestAnswer = e.answer
			found = true
		}
	}
	if found && bestScore >= tokenAcceptThreshold {
		return bestAnswer, true
	}
	return "", false
}

// fuzzyStrategy es el último recurso local: acepta el mejor candidato
// aproximado si su distancia es baja, o si alguna de sus variantes
// crudas normaliza exactamente a la pregunta (la puntuación sobre
// variantes sin normalizar puede ser imprecisa con mucha puntuación o
// tildes aunque exista una igualdad exacta tras normalizar).
type fuzzyStrategy struct{}

func (fuzzyStrategy) attempt(q query, idx *CaseIndex) (string, bool) {
	if idx.fuzzy == nil {
		return "", false
	}
	results := idx.fuzzy.search(q.norm)
	if len(results) == 0 {
		return "", false
	}
	top := results[0]
	if top.score <= fuzzyAcceptThreshold {
		return top.doc.Answer, true
	}
	for _, v := range top.doc.Variants {
		if textutil.Normalize(v) == q.norm {
			return top.doc.Answer, true
		}
	}
	return "", false
}
