package casos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type mockAssistant struct {
	answer string
	err    error
	calls  int
}

func (m *mockAssistant) AnswerAsPatient(ctx context.Context, pregunta string, caso *Case) (string, error) {
	m.calls++
	return m.answer, m.err
}

type memRecorder struct {
	attempts []AttemptRecord
}

func (m *memRecorder) RecordAttempt(ctx context.Context, a AttemptRecord) error {
	m.attempts = append(m.attempts, a)
	return nil
}

func setupRouter(t *testing.T, ai Assistant) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewCaseService(writeTestCases(t)), ai)
	r := gin.New()
	h.RegisterRoutes(r)
	return r, h
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetCase(t *testing.T) {
	r, _ := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/caso?system=cardiovascular", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		CasoID       string `json:"casoId"`
		Presentacion string `json:"presentacion"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CasoID != "cardiovascular/caso1.json" || resp.Presentacion == "" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestGetCaseUnknownSystem(t *testing.T) {
	r, _ := setupRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/caso?system=neurologico", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func askRespuestas(t *testing.T, r *gin.Engine, pregunta string) []string {
	t.Helper()
	w := postJSON(t, r, "/api/preguntar", gin.H{"pregunta": pregunta, "caseId": "cardiovascular/caso1.json"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Respuestas []string `json:"respuestas"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Respuestas
}

func TestAskMatchedQuestion(t *testing.T) {
	r, _ := setupRouter(t, nil)
	got := askRespuestas(t, r, "¿Qué edad tenés?")
	if len(got) != 1 || got[0] != "Tengo 55 años." {
		t.Fatalf("respuestas = %v", got)
	}
}

// Pregunta compuesta: una respuesta por fragmento, en orden.
func TestAskCompoundQuestion(t *testing.T) {
	r, _ := setupRouter(t, nil)
	got := askRespuestas(t, r, "¿Dónde le duele? ¿Y tiene fiebre?")
	want := []string{"Acá, en el pecho.", "No, fiebre no."}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("respuestas = %v, want %v", got, want)
	}
}

func TestAskFallsBackToUnknownText(t *testing.T) {
	r, _ := setupRouter(t, nil) // sin assistant
	got := askRespuestas(t, r, "¿cuántos nietos tiene?")
	if len(got) != 1 || got[0] != "No entiendo la pregunta, doctor." {
		t.Fatalf("respuestas = %v, want texto desconocido del caso", got)
	}
}

func TestAskUsesAssistantOnNoMatch(t *testing.T) {
	ai := &mockAssistant{answer: "Eso no lo sé, doctor."}
	r, _ := setupRouter(t, ai)

	got := askRespuestas(t, r, "¿cuántos nietos tiene?")
	if len(got) != 1 || got[0] != "Eso no lo sé, doctor." {
		t.Fatalf("respuestas = %v", got)
	}
	if ai.calls != 1 {
		t.Fatalf("assistant llamado %d veces, want 1", ai.calls)
	}

	// Con match local el assistant no se invoca.
	_ = askRespuestas(t, r, "edad")
	if ai.calls != 1 {
		t.Fatalf("assistant llamado %d veces tras match local, want 1", ai.calls)
	}
}

func TestAskAssistantErrorDegradesToUnknown(t *testing.T) {
	ai := &mockAssistant{err: errors.New("rate limited")}
	r, _ := setupRouter(t, ai)
	got := askRespuestas(t, r, "¿cuántos nietos tiene?")
	if len(got) != 1 || got[0] != "No entiendo la pregunta, doctor." {
		t.Fatalf("respuestas = %v", got)
	}
}

func TestAskValidation(t *testing.T) {
	r, _ := setupRouter(t, nil)
	if w := postJSON(t, r, "/api/preguntar", gin.H{"caseId": "x/y.json"}); w.Code != http.StatusBadRequest {
		t.Fatalf("sin pregunta: status = %d", w.Code)
	}
	if w := postJSON(t, r, "/api/preguntar", gin.H{"pregunta": "hola"}); w.Code != http.StatusBadRequest {
		t.Fatalf("sin caseId: status = %d", w.Code)
	}
	w := postJSON(t, r, "/api/preguntar", gin.H{"pregunta": "hola", "caseId": "nada/caso.json"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("caso inexistente: status = %d", w.Code)
	}
}

func TestEvaluate(t *testing.T) {
	r, h := setupRouter(t, nil)
	rec := &memRecorder{}
	h.SetRecorder(rec)
	h.SetIdentifier(func(c *gin.Context) string { return "estudiante@dxpro.test" })

	w := postJSON(t, r, "/api/evaluar", gin.H{
		"diagnostico": "infarto agudo de miocardio",
		"tratamiento": "aspirina y reposo",
		"caseId":      "cardiovascular/caso1.json",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Puntaje struct {
			Diagnostico int `json:"diagnostico"`
			Tratamiento int `json:"tratamiento"`
			Total       int `json:"total"`
		} `json:"puntaje"`
		Diagnostico struct {
			Correcto bool `json:"correcto"`
		} `json:"diagnostico"`
		Tratamiento struct {
			Aciertos  []string `json:"aciertos"`
			Faltantes []string `json:"faltantes"`
		} `json:"tratamiento"`
		Feedback []string `json:"feedback"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Diagnostico.Correcto {
		t.Fatalf("diagnóstico exacto debió ser correcto: %s", w.Body.String())
	}
	if resp.Puntaje.Diagnostico != 100 {
		t.Fatalf("puntaje diagnóstico = %d, want 100", resp.Puntaje.Diagnostico)
	}
	// aspirina y reposo sobre [oxígeno, aspirina, reposo] = 2/3 -> 67.
	if resp.Puntaje.Tratamiento != 67 {
		t.Fatalf("puntaje tratamiento = %d, want 67", resp.Puntaje.Tratamiento)
	}
	if resp.Puntaje.Total != 87 { // 0.6*1 + 0.4*0.67 = 0.87
		t.Fatalf("puntaje total = %d, want 87", resp.Puntaje.Total)
	}
	if len(resp.Tratamiento.Faltantes) != 1 || resp.Tratamiento.Faltantes[0] != "oxigeno" {
		t.Fatalf("faltantes = %v", resp.Tratamiento.Faltantes)
	}
	if len(resp.Feedback) == 0 {
		t.Fatal("sin feedback")
	}

	if len(rec.attempts) != 1 {
		t.Fatalf("intentos registrados = %d, want 1", len(rec.attempts))
	}
	if a := rec.attempts[0]; a.Email != "estudiante@dxpro.test" || a.ScoreTotal != 0.87 {
		t.Fatalf("intento registrado = %+v", a)
	}
}

func TestEvaluateValidation(t *testing.T) {
	r, _ := setupRouter(t, nil)
	if w := postJSON(t, r, "/api/evaluar", gin.H{"diagnostico": "x"}); w.Code != http.StatusBadRequest {
		t.Fatalf("sin caseId: status = %d", w.Code)
	}
	w := postJSON(t, r, "/api/evaluar", gin.H{"diagnostico": "x", "caseId": "nada/caso.json"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("caso inexistente: status = %d", w.Code)
	}
}

func TestQuotaValidatorBlocks(t *testing.T) {
	r, h := setupRouter(t, nil)
	h.SetQuotaValidator(func(ctx context.Context, c *gin.Context, flow string) error {
		return errors.New("sin cupo")
	})
	w := postJSON(t, r, "/api/preguntar", gin.H{"pregunta": "edad", "caseId": "cardiovascular/caso1.json"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
