package resultados

import (
	"context"
	"database/sql"
	"time"

	"dxpro-backend/casos"

	"github.com/google/uuid"
)

// Attempt es un intento de evaluación persistido.
type Attempt struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	CaseID           string    `json:"caseId"`
	Diagnostico      string    `json:"diagnostico"`
	Tratamiento      string    `json:"tratamiento"`
	ScoreDiagnostico float64   `json:"scoreDiagnostico"`
	ScoreTratamiento float64   `json:"scoreTratamiento"`
	ScoreTotal       float64   `json:"scoreTotal"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Repository guarda y consulta intentos sobre MySQL.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// RecordAttempt implementa casos.AttemptRecorder.
func (r *Repository) RecordAttempt(ctx context.Context, rec casos.AttemptRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO evaluation_attempts
		 (id, email, case_id, diagnostico, tratamiento, score_diagnostico, score_tratamiento, score_total)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), rec.Email, rec.CaseID, rec.Diagnostico, rec.Tratamiento,
		rec.ScoreDiagnostico, rec.ScoreTratamiento, rec.ScoreTotal,
	)
	return err
}

// History devuelve los últimos intentos del usuario, más recientes primero.
func (r *Repository) History(ctx context.Context, email string, limit int) ([]Attempt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, case_id, IFNULL(diagnostico,''), IFNULL(tratamiento,''),
		        score_diagnostico, score_tratamiento, score_total, created_at
		 FROM evaluation_attempts WHERE email = ?
		 ORDER BY created_at DESC LIMIT ?`, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.Email, &a.CaseID, &a.Diagnostico, &a.Tratamiento,
			&a.ScoreDiagnostico, &a.ScoreTratamiento, &a.ScoreTotal, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
