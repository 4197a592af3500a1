package main

import (
	"log"
	"os"
	"strings"

	"dxpro-backend/casos"
	"dxpro-backend/conn"
	"dxpro-backend/login"
	"dxpro-backend/migrations"
	"dxpro-backend/openai"
	"dxpro-backend/resultados"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("sin archivo .env, usando variables de entorno del sistema")
	}

	db, err := conn.NewMySQL()
	if err != nil {
		// El simulador sigue funcionando sin base de datos; se pierden
		// login e historial pero no la práctica de casos.
		log.Printf("[db] sin conexión a MySQL, modo degradado: %v", err)
		db = nil
	} else {
		migrations.Init(db)
		if err := migrations.Migrate(); err != nil {
			log.Fatalf("[db] migración falló: %v", err)
		}
	}

	casesDir := os.Getenv("CASES_DIR")
	if casesDir == "" {
		casesDir = "casos_basicos"
	}
	repo := casos.NewRepository(casesDir)
	svc := casos.NewCaseService(repo)

	var ai casos.Assistant
	if os.Getenv("OPENAI_API_KEY") != "" {
		ai = openai.NewClient()
	} else {
		log.Println("[openai] OPENAI_API_KEY no definido, fallback generativo deshabilitado")
	}

	h := casos.NewHandler(svc, ai)
	h.SetIdentifier(func(c *gin.Context) string {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			return ""
		}
		email, ok := login.GetEmailFromToken(token)
		if !ok {
			return ""
		}
		return email
	})

	r := gin.Default()
	h.RegisterRoutes(r)

	if db != nil {
		attempts := resultados.NewRepository(db)
		h.SetRecorder(attempts)
		resultados.NewHandler(attempts, login.GetEmailFromToken).RegisterRoutes(r)
		login.RegisterRoutes(r)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("servidor detenido: %v", err)
	}
}
