package migrations

import (
	"database/sql"
	"fmt"
	"time"
)

type User struct {
	ID              int       `db:"id"`
	FullName        string    `db:"full_name"`
	Email           string    `db:"email"`
	PasswordHash    string    `db:"password_hash"`
	DNI             string    `db:"dni"`
	CertificatePath string    `db:"certificate_path"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

var db *sql.DB

// Init sets the DB connection for migrations and queries
func Init(database *sql.DB) {
	db = database
}

// Migrate creates required tables if they do not exist
func Migrate() error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	createUsers := `
	CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		full_name VARCHAR(150) NOT NULL,
		email VARCHAR(191) NOT NULL UNIQUE,
		password_hash VARCHAR(191) NOT NULL,
		dni VARCHAR(50) NOT NULL DEFAULT '',
		certificate_path VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createUsers); err != nil {
		return err
	}

	createAttempts := `
	CREATE TABLE IF NOT EXISTS evaluation_attempts (
		id VARCHAR(36) PRIMARY KEY,
		email VARCHAR(191) NOT NULL,
		case_id VARCHAR(191) NOT NULL,
		diagnostico TEXT,
		tratamiento TEXT,
		score_diagnostico DECIMAL(5,2) NOT NULL DEFAULT 0.00,
		score_tratamiento DECIMAL(5,2) NOT NULL DEFAULT 0.00,
		score_total DECIMAL(5,2) NOT NULL DEFAULT 0.00,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_attempts_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createAttempts); err != nil {
		return err
	}
	return nil
}

// GetUserByEmail retrieves a user from DB by email
func GetUserByEmail(email string) *User {
	if db == nil {
		return nil
	}
	row := db.QueryRow("SELECT id, full_name, email, password_hash, IFNULL(dni,''), IFNULL(certificate_path,''), created_at, updated_at FROM users WHERE email = ? LIMIT 1", email)
	var u User
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.DNI, &u.CertificatePath, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil
	}
	return &u
}

// CreateUser inserts a new user record
func CreateUser(fullName, email, passwordHash, dni, certificatePath string) error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	_, err := db.Exec(
		"INSERT INTO users (full_name, email, password_hash, dni, certificate_path) VALUES (?, ?, ?, ?, ?)",
		fullName, email, passwordHash, dni, certificatePath,
	)
	return err
}

// EmailExists checks if a user with the given email exists
func EmailExists(email string) (bool, error) {
	if db == nil {
		return false, fmt.Errorf("db is not initialized")
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(1) FROM users WHERE email = ?", email).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
