package resultados

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler expone el historial de intentos del usuario autenticado.
type Handler struct {
	repo *Repository
	// identify resuelve el email desde el token Bearer.
	identify func(token string) (string, bool)
}

func NewHandler(repo *Repository, identify func(token string) (string, bool)) *Handler {
	return &Handler{repo: repo, identify: identify}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/historial", h.History)
}

func (h *Handler) History(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	email, ok := "", false
	if h.identify != nil && token != "" {
		email, ok = h.identify(token)
	}
	if !ok || email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token inválido"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	attempts, err := h.repo.History(c.Request.Context(), email, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo consultar el historial"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"intentos": attempts})
}
