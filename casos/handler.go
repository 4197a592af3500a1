package casos

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"dxpro-backend/evaluacion"
	"dxpro-backend/matching"

	"github.com/gin-gonic/gin"
)

// fallbackTimeout acota la llamada al colaborador generativo; el
// matcher local no bloquea nunca.
const fallbackTimeout = 30 * time.Second

// Assistant es el colaborador generativo de último recurso. Se invoca
// solo cuando la cascada local declina; sus reintentos y backoff son
// asunto suyo, no del matcher.
type Assistant interface {
	AnswerAsPatient(ctx context.Context, pregunta string, caso *Case) (string, error)
}

// AttemptRecord es lo que se persiste de una entrega evaluada.
type AttemptRecord struct {
	Email            string
	CaseID           string
	Diagnostico      string
	Tratamiento      string
	ScoreDiagnostico float64
	ScoreTratamiento float64
	ScoreTotal       float64
}

// AttemptRecorder persiste intentos de evaluación; opcional.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, a AttemptRecord) error
}

// Handler expone los endpoints del simulador. El assistant y el
// recorder pueden ser nil: sin assistant toda pregunta sin match usa el
// texto "desconocido" del caso, y sin recorder no se persiste nada.
type Handler struct {
	svc      *CaseService
	ai       Assistant
	matcher  *matching.Matcher
	recorder AttemptRecorder
	identify func(c *gin.Context) string
	quota    func(ctx context.Context, c *gin.Context, flow string) error
}

func NewHandler(svc *CaseService, ai Assistant) *Handler {
	return &Handler{svc: svc, ai: ai, matcher: matching.NewMatcher()}
}

// SetRecorder inyecta la persistencia de intentos.
func (h *Handler) SetRecorder(r AttemptRecorder) { h.recorder = r }

// SetIdentifier inyecta la resolución de usuario desde la request (por
// el token de sesión); devuelve "" para anónimo.
func (h *Handler) SetIdentifier(fn func(c *gin.Context) string) { h.identify = fn }

// SetQuotaValidator permite inyectar un validador de cupo por flujo
// ("ask" o "evaluate").
func (h *Handler) SetQuotaValidator(fn func(ctx context.Context, c *gin.Context, flow string) error) {
	h.quota = fn
}

// RegisterRoutes publica los endpoints que espera el cliente web.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/caso", h.GetCase)
	r.POST("/api/preguntar", h.Ask)
	r.POST("/api/evaluar", h.Evaluate)
}

// --- Request models --- //

type askReq struct {
	Pregunta string `json:"pregunta"`
	CaseID   string `json:"caseId"`
}

type evaluateReq struct {
	Diagnostico string `json:"diagnostico"`
	Tratamiento string `json:"tratamiento"`
	CaseID      string `json:"caseId"`
}

// --- Handlers --- //

// GetCase elige un caso al azar del sistema pedido (?system=..., "all"
// para todos) y devuelve su presentación.
func (h *Handler) GetCase(c *gin.Context) {
	system := strings.TrimSpace(c.DefaultQuery("system", "all"))
	ref, err := h.svc.Pick(system)
	if err != nil {
		if errors.Is(err, ErrNoCases) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No hay casos para ese sistema."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Sistema solicitado no existe."})
		return
	}
	caso, _, err := h.svc.Get(ref.ID)
	if err != nil {
		log.Printf("[CASE] error cargando %s: %v", ref.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al seleccionar el caso."})
		return
	}
	meta := caso.Metadata
	if meta == nil {
		meta = map[string]any{"sistema": system}
	}
	c.JSON(http.StatusOK, gin.H{
		"casoId":       ref.ID,
		"presentacion": caso.Presentation(),
		"metadata":     meta,
	})
}

// Ask responde una o varias preguntas del estudiante. El enunciado se
// divide en fragmentos que se matchean de forma independiente y en
// orden; un fragmento sin match pasa al assistant y, si también falla,
// al texto "desconocido" del caso.
func (h *Handler) Ask(c *gin.Context) {
	if h.quota != nil {
		if err := h.quota(c.Request.Context(), c, "ask"); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "cupo de preguntas agotado"})
			return
		}
	}
	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Pregunta) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"respuestas": []string{"Falta campo 'pregunta'"}})
		return
	}
	if strings.TrimSpace(req.CaseID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"respuestas": []string{"Falta 'caseId'. Primero obtené /api/caso."}})
		return
	}
	caso, idx, err := h.svc.Get(req.CaseID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"respuestas": []string{"Caso no encontrado en servidor"}})
		return
	}

	fragments := matching.Split(req.Pregunta)
	out := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		answer, ok := h.matcher.Match(frag, idx)
		if !ok {
			answer = h.fallbackAnswer(c.Request.Context(), frag, caso)
		}
		out = append(out, answer)
	}
	c.JSON(http.StatusOK, gin.H{"respuestas": out})
}

// Evaluate puntúa diagnóstico y tratamiento contra las listas de
// referencia del caso y arma el feedback para el estudiante.
func (h *Handler) Evaluate(c *gin.Context) {
	if h.quota != nil {
		if err := h.quota(c.Request.Context(), c, "evaluate"); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "cupo de evaluaciones agotado"})
			return
		}
	}
	var req evaluateReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CaseID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Falta caseId"})
		return
	}
	caso, _, err := h.svc.Get(req.CaseID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Caso no encontrado"})
		return
	}

	diag := evaluacion.EvaluateDiagnosis(req.Diagnostico, caso.ExpectedDiagnoses())
	tto := evaluacion.EvaluateTreatment(req.Tratamiento, caso.ExpectedTreatments())
	score := evaluacion.CompositeScore(diag, tto)
	pDiag, pTto, pTotal := score.Percentages()

	if h.recorder != nil {
		rec := AttemptRecord{
			CaseID:           req.CaseID,
			Diagnostico:      req.Diagnostico,
			Tratamiento:      req.Tratamiento,
			ScoreDiagnostico: score.Diagnosis,
			ScoreTratamiento: score.Treatment,
			ScoreTotal:       score.Total,
		}
		if h.identify != nil {
			rec.Email = h.identify(c)
		}
		if err := h.recorder.RecordAttempt(c.Request.Context(), rec); err != nil {
			log.Printf("[EVAL] no se pudo registrar el intento: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"puntaje": gin.H{
			"diagnostico": pDiag,
			"tratamiento": pTto,
			"total":       pTotal,
		},
		"diagnostico": diag,
		"tratamiento": tto,
		"feedback":    buildFeedback(diag, tto),
	})
}

// fallbackAnswer resuelve un fragmento sin match local: assistant si
// hay, texto "desconocido" del caso si no o si el assistant falla.
func (h *Handler) fallbackAnswer(parent context.Context, pregunta string, caso *Case) string {
	if h.ai == nil {
		return caso.Unknown()
	}
	ctx, cancel := context.WithTimeout(parent, fallbackTimeout)
	defer cancel()
	answer, err := h.ai.AnswerAsPatient(ctx, pregunta, caso)
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			log.Printf("[FALLBACK] assistant: %v", err)
		}
		return caso.Unknown()
	}
	return answer
}

func buildFeedback(diag evaluacion.DiagnosisResult, tto evaluacion.TreatmentResult) []string {
	var fb []string
	if diag.Correct {
		fb = append(fb, fmt.Sprintf("Diagnóstico: correcto (%s).", diag.Reference))
	} else if diag.Reference != "" {
		fb = append(fb, fmt.Sprintf("Diagnóstico: no coincide con el esperado. Mejor aproximación: %s.", diag.Reference))
	} else {
		fb = append(fb, "Diagnóstico: no coincide con ninguno de los esperados.")
	}
	if len(tto.Matched) > 0 {
		fb = append(fb, "Tratamiento incluido: "+strings.Join(tto.Matched, ", ")+".")
	}
	if len(tto.Missing) > 0 {
		fb = append(fb, "Faltó mencionar: "+strings.Join(tto.Missing, ", ")+".")
	}
	if len(tto.Extra) > 0 {
		fb = append(fb, "Ítems no esperados: "+strings.Join(tto.Extra, ", ")+".")
	}
	return fb
}
