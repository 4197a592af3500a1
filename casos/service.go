package casos

import (
	"errors"
	"log"
	"math/rand"
	"sync"

	"dxpro-backend/matching"
)

// ErrNoCases indica que el sistema pedido no tiene casos autorados.
var ErrNoCases = errors.New("no hay casos para ese sistema")

// CaseService es el dueño del cache de índices por caso: carga el
// documento una vez, construye su CaseIndex y los retiene por la vida
// del proceso. El ciclo de vida es explícito (se inyecta, se puede
// desalojar); no hay estado global escondido.
type CaseService struct {
	repo *Repository

	mu    sync.RWMutex
	cache map[string]*caseEntry
}

type caseEntry struct {
	caso  *Case
	index *matching.CaseIndex
}

func NewCaseService(repo *Repository) *CaseService {
	return &CaseService{repo: repo, cache: make(map[string]*caseEntry)}
}

// Get devuelve el caso y su índice, construyéndolos en el primer
// acceso. Dos primeros accesos concurrentes pueden construir dos
// veces; la segunda escritura pisa a la primera con un índice
// idéntico, así que solo se pierde trabajo, no consistencia.
func (s *CaseService) Get(id string) (*Case, *matching.CaseIndex, error) {
	s.mu.RLock()
	e, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return e.caso, e.index, nil
	}

	caso, err := s.repo.Load(id)
	if err != nil {
		return nil, nil, err
	}
	e = &caseEntry{caso: caso, index: matching.BuildIndex(caso.Intents())}

	s.mu.Lock()
	if prev, ok := s.cache[id]; ok {
		e = prev
	} else {
		s.cache[id] = e
	}
	s.mu.Unlock()

	log.Printf("[CASE] cargado %s (%d intents)", id, len(e.caso.Respuestas))
	return e.caso, e.index, nil
}

// Evict descarta el caso del cache; el próximo acceso lo reconstruye.
func (s *CaseService) Evict(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

// Pick elige un caso al azar entre los del sistema pedido.
func (s *CaseService) Pick(system string) (CaseRef, error) {
	refs, err := s.repo.List(system)
	if err != nil {
		return CaseRef{}, err
	}
	if len(refs) == 0 {
		return CaseRef{}, ErrNoCases
	}
	return refs[rand.Intn(len(refs))], nil
}
