package login

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"dxpro-backend/files"
	"dxpro-backend/migrations"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// blacklist for manual logout (tokens -> expiry). Not persisted; acceptable for MVP.
var (
	blMu      sync.Mutex
	blacklist = map[string]int64{}
)

// tokenPayload minimal JWT-like payload
type tokenPayload struct {
	Email string `json:"email"`
	Exp   int64  `json:"exp"`
	Rem   bool   `json:"rem"` // remember flag
	Jti   string `json:"jti"` // unique id
}

func sessionDurations(remember bool) time.Duration {
	defHours := 12
	if v := os.Getenv("SESSION_DEFAULT_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			defHours = n
		}
	}
	remDays := 30
	if v := os.Getenv("SESSION_REMEMBER_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			remDays = n
		}
	}
	if remember {
		return time.Hour * 24 * time.Duration(remDays)
	}
	return time.Hour * time.Duration(defHours)
}

func sessionSecret() []byte {
	s := os.Getenv("SESSION_SECRET")
	if s == "" {
		s = "dev-insecure-secret"
	}
	return []byte(s)
}

func signToken(email string, dur time.Duration, remember bool) (string, int64, error) {
	exp := time.Now().Add(dur).Unix()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payloadBytes, _ := json.Marshal(tokenPayload{Email: email, Exp: exp, Rem: remember, Jti: uuid.NewString()})
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	mac := hmac.New(sha256.New, sessionSecret())
	mac.Write([]byte(header + "." + payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return header + "." + payload + "." + sig, exp, nil
}

func parseToken(token string) (tokenPayload, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return tokenPayload{}, false
	}
	unsigned := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, sessionSecret())
	mac.Write([]byte(unsigned))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return tokenPayload{}, false
	}
	pb, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return tokenPayload{}, false
	}
	var tp tokenPayload
	if err := json.Unmarshal(pb, &tp); err != nil {
		return tokenPayload{}, false
	}
	if tp.Exp < time.Now().Unix() {
		return tokenPayload{}, false
	}
	blMu.Lock()
	exp, blk := blacklist[token]
	blMu.Unlock()
	if blk && exp >= time.Now().Unix() {
		return tokenPayload{}, false
	}
	return tp, true
}

// GetEmailFromToken validates signature + expiry and returns email
func GetEmailFromToken(token string) (string, bool) {
	tp, ok := parseToken(token)
	if !ok {
		return "", false
	}
	return tp.Email, true
}

func Handler(c *gin.Context) {
	var creds Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos"})
		return
	}

	creds.Email = strings.TrimSpace(strings.ToLower(creds.Email))
	creds.Password = strings.TrimSpace(creds.Password)

	user := migrations.GetUserByEmail(creds.Email)
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales inválidas"})
		return
	}
	dur := sessionDurations(creds.Remember)
	token, exp, _ := signToken(user.Email, dur, creds.Remember)
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"user":       userResponse(user),
		"expires_at": exp,
		"remember":   creds.Remember,
	})
}

func userResponse(u *migrations.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"full_name":  u.FullName,
		"email":      u.Email,
		"dni":        u.DNI,
		"created_at": u.CreatedAt.Format(time.RFC3339),
		"updated_at": u.UpdatedAt.Format(time.RFC3339),
	}
}

func SessionHandler(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token inválido"})
		return
	}
	tp, ok := parseToken(token)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token inválido"})
		return
	}
	user := migrations.GetUserByEmail(tp.Email)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Usuario no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": userResponse(user)})
}

// LogoutHandler invalidates the token
func LogoutHandler(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token requerido"})
		return
	}
	// Add to blacklist until its natural expiry (best effort)
	if tp, ok := parseToken(token); ok {
		blMu.Lock()
		blacklist[token] = tp.Exp
		blMu.Unlock()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sesión cerrada"})
}

// RegisterHandler crea la cuenta del médico. Recibe multipart/form-data con
// full_name, email, password, dni y el PDF del certificado profesional.
func RegisterHandler(c *gin.Context) {
	fullName := strings.TrimSpace(c.PostForm("full_name"))
	if fullName == "" {
		fullName = strings.TrimSpace(c.PostForm("nombre"))
	}
	email := strings.TrimSpace(strings.ToLower(c.PostForm("email")))
	password := strings.TrimSpace(c.PostForm("password"))
	dni := strings.TrimSpace(c.PostForm("dni"))
	if fullName == "" || email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Campos requeridos faltantes"})
		return
	}
	if exists, err := migrations.EmailExists(email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error validando usuario"})
		return
	} else if exists {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "El correo ya está registrado"})
		return
	}

	certPath := ""
	if fh, err := c.FormFile("certificate"); err == nil {
		uploadDir := os.Getenv("UPLOADS_DIR")
		if uploadDir == "" {
			uploadDir = "uploads"
		}
		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo guardar el certificado"})
			return
		}
		certPath = filepath.Join(uploadDir, uuid.NewString()+".pdf")
		if err := c.SaveUploadedFile(fh, certPath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo guardar el certificado"})
			return
		}
		if err := files.ValidateCertificate(certPath); err != nil {
			os.Remove(certPath)
			c.JSON(http.StatusBadRequest, gin.H{"error": "El certificado debe ser un PDF válido"})
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear el usuario"})
		return
	}
	if err := migrations.CreateUser(fullName, email, string(hash), dni, certPath); err != nil {
		log.Printf("[login] registro falló para %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear el usuario"})
		return
	}
	c.Status(http.StatusCreated)
}

// RegisterRoutes monta los endpoints de autenticación.
func RegisterRoutes(r *gin.Engine) {
	r.POST("/api/login", Handler)
	r.POST("/api/register", RegisterHandler)
	r.GET("/api/session", SessionHandler)
	r.POST("/api/logout", LogoutHandler)
}
