package operator

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playmatatu/orbitsim/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound   = errors.New("operator not found")
	ErrInvalidKey = errors.New("invalid operator key")
)

// Get retrieves an operator account by name
func Get(db *sqlx.DB, name string) (*models.Operator, error) {
	var op models.Operator
	err := db.Get(&op, `SELECT name, key_hash, roles, created_at, updated_at FROM operators WHERE name=$1`, name)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// VerifyKey checks a plain key against the stored hash
func VerifyKey(hashedKey, plainKey string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedKey), []byte(plainKey)) == nil
}

// Create inserts or replaces an operator account
func Create(db *sqlx.DB, name, plainKey string, roles []string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainKey), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash key: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO operators (name, key_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			key_hash = EXCLUDED.key_hash,
			roles = EXCLUDED.roles,
			updated_at = NOW()
	`, name, string(hashed), pq.Array(roles))
	return err
}

// Authenticate validates a name + key combination
func Authenticate(db *sqlx.DB, name, key string) (*models.Operator, error) {
	op, err := Get(db, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[OPERATOR] No operator named %s", name)
			return nil, ErrNotFound
		}
		log.Printf("[OPERATOR] Database error: %v", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !VerifyKey(op.KeyHash, key) {
		log.Printf("[OPERATOR] Key verification failed for %s", name)
		return nil, ErrInvalidKey
	}
	return op, nil
}

// LogAction records an operator action in the audit log
func LogAction(db *sqlx.DB, operator, ip, route, action string, details map[string]interface{}, success bool) error {
	if db == nil {
		return nil
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("[OPERATOR] Failed to marshal audit details: %v", err)
		detailsJSON = []byte("{}")
	}

	_, err = db.Exec(`
		INSERT INTO operator_audit (operator, ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, operator, ip, route, action, detailsJSON, success)
	if err != nil {
		log.Printf("[OPERATOR] Failed to log action: %v", err)
	}
	return err
}

// AuditLogs returns recent audit entries, newest first
func AuditLogs(db *sqlx.DB, limit, offset int) ([]models.OperatorAudit, error) {
	var logs []models.OperatorAudit
	err := db.Select(&logs, `
		SELECT id, operator, ip, route, action, details, success, created_at
		FROM operator_audit
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return logs, err
}
