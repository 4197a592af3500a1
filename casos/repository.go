package casos

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CaseRef identifica un caso en disco. El ID tiene la forma
// "sistema/archivo.json", igual que la ruta relativa al directorio
// base.
type CaseRef struct {
	ID   string
	Path string
}

// Repository lista y carga documentos de caso desde un árbol de
// directorios: un subdirectorio por sistema (cardiovascular,
// respiratorio, ...) con un JSON por caso.
type Repository struct {
	baseDir string
}

func NewRepository(baseDir string) *Repository {
	return &Repository{baseDir: baseDir}
}

// List enumera los casos de un sistema; "all" o "todos" recorre todos
// los sistemas. El resultado va en orden de directorio (determinista).
func (r *Repository) List(system string) ([]CaseRef, error) {
	var systems []string
	if system == "all" || system == "todos" {
		entries, err := os.ReadDir(r.baseDir)
		if err != nil {
			return nil, fmt.Errorf("no se pudo leer el directorio de casos: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				systems = append(systems, e.Name())
			}
		}
	} else {
		if err := validSegment(system); err != nil {
			return nil, err
		}
		info, err := os.Stat(filepath.Join(r.baseDir, system))
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("sistema %q inexistente", system)
		}
		systems = []string{system}
	}

	var refs []CaseRef
	for _, sys := range systems {
		entries, err := os.ReadDir(filepath.Join(r.baseDir, sys))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			refs = append(refs, CaseRef{
				ID:   sys + "/" + e.Name(),
				Path: filepath.Join(r.baseDir, sys, e.Name()),
			})
		}
	}
	return refs, nil
}

// Load lee y valida un caso por ID. Un documento malformado devuelve
// error descriptivo, nunca un caso degradado.
func (r *Repository) Load(id string) (*Case, error) {
	sys, file, ok := strings.Cut(id, "/")
	if !ok {
		return nil, fmt.Errorf("id de caso inválido: %q", id)
	}
	if err := validSegment(sys); err != nil {
		return nil, err
	}
	if err := validSegment(file); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(r.baseDir, sys, file))
	if err != nil {
		return nil, fmt.Errorf("caso %q: %w", id, err)
	}
	var c Case
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("caso %q: JSON inválido: %w", id, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("caso %q: %w", id, err)
	}
	return &c, nil
}

// validSegment rechaza segmentos de ruta que escapen del directorio
// base.
func validSegment(s string) error {
	if s == "" || s == "." || s == ".." ||
		strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("segmento de ruta inválido: %q", s)
	}
	return nil
}
