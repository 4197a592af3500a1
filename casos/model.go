// Package casos define el documento de caso clínico autorado, su
// validación, el repositorio en disco y los endpoints HTTP del
// simulador de paciente.
package casos

import (
	"bytes"
	"encoding/json"
	"fmt"

	"dxpro-backend/matching"

	"github.com/go-playground/validator/v10"
)

// DefaultUnknown es la respuesta cuando el caso no define su propio
// texto "desconocido".
const DefaultUnknown = "No entendí tu pregunta, ¿podés reformularla?"

var validate = validator.New()

// Respuesta es una unidad de respuesta autorada: el nombre del intent
// (la clave del objeto JSON), sus variantes de pregunta y lo que el
// paciente contesta.
type Respuesta struct {
	Intent    string   `json:"-"`
	Variantes []string `json:"variantes" validate:"required,min=1,dive,required"`
	Respuesta string   `json:"respuesta" validate:"required"`
}

// RespuestaList conserva el orden de autoría de las claves del objeto
// "respuestas" del JSON; ese orden desempata en la etapa de tokens.
type RespuestaList []Respuesta

// Evaluacion son las listas de referencia para puntuar la entrega.
type Evaluacion struct {
	DiagnosticoPresuntivo      []string `json:"diagnostico_presuntivo"`
	TratamientoInicialEsperado []string `json:"tratamiento_inicial_esperado"`
}

// Case es el documento de caso, inmutable una vez cargado.
type Case struct {
	Presentacion       string         `json:"presentacion"`
	PresentacionInicio string         `json:"presentacion_inicio,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	Respuestas         RespuestaList  `json:"respuestas" validate:"required,min=1,dive"`
	Evaluacion         *Evaluacion    `json:"evaluacion,omitempty"`
	Desconocido        string         `json:"desconocido,omitempty"`
}

// UnmarshalJSON recorre el objeto con un decoder para conservar el
// orden de las claves, que json.Unmarshal sobre un map perdería.
// Rechaza intents duplicados.
func (l *RespuestaList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("respuestas debe ser un objeto JSON")
	}
	seen := map[string]bool{}
	var out RespuestaList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		intent := keyTok.(string)
		if seen[intent] {
			return fmt.Errorf("intent duplicado: %q", intent)
		}
		seen[intent] = true
		var r Respuesta
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("intent %q: %w", intent, err)
		}
		r.Intent = intent
		out = append(out, r)
	}
	*l = out
	return nil
}

// MarshalJSON reconstruye el objeto en el mismo orden de autoría.
func (l RespuestaList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Intent)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		body, err := json.Marshal(struct {
			Variantes []string `json:"variantes"`
			Respuesta string   `json:"respuesta"`
		}{r.Variantes, r.Respuesta})
		if err != nil {
			return nil, err
		}
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Validate falla rápido y con mensaje descriptivo ante un documento
// malformado, en lugar de degradar en silencio a un índice que nunca
// matchea.
func (c *Case) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("documento de caso inválido: %w", err)
	}
	return nil
}

// Presentation devuelve el texto de presentación, aceptando la clave
// vieja "presentacion_inicio" de los casos más antiguos.
func (c *Case) Presentation() string {
	if c.Presentacion != "" {
		return c.Presentacion
	}
	if c.PresentacionInicio != "" {
		return c.PresentacionInicio
	}
	return "Caso sin presentación"
}

// Unknown devuelve el texto de fallback configurado o el genérico.
func (c *Case) Unknown() string {
	if c.Desconocido != "" {
		return c.Desconocido
	}
	return DefaultUnknown
}

// Intents proyecta las respuestas al tipo de entrada del índice de
// matching, en orden de autoría.
func (c *Case) Intents() []matching.Intent {
	out := make([]matching.Intent, 0, len(c.Respuestas))
	for _, r := range c.Respuestas {
		out = append(out, matching.Intent{
			Name:     r.Intent,
			Variants: r.Variantes,
			Answer:   r.Respuesta,
		})
	}
	return out
}

// ExpectedDiagnoses devuelve la lista de diagnósticos esperados, vacía
// si el caso no trae evaluación.
func (c *Case) ExpectedDiagnoses() []string {
	if c.Evaluacion == nil {
		return nil
	}
	return c.Evaluacion.DiagnosticoPresuntivo
}

// ExpectedTreatments devuelve la lista de tratamientos esperados.
func (c *Case) ExpectedTreatments() []string {
	if c.Evaluacion == nil {
		return nil
	}
	return c.Evaluacion.TratamientoInicialEsperado
}
