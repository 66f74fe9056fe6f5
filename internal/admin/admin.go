package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playmatatu/royale/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountNotFound = errors.New("admin account not found")
	ErrInvalidToken    = errors.New("invalid token")
)

// GetAdminAccount retrieves an operator account by username
func GetAdminAccount(ctx context.Context, db *sqlx.DB, username string) (*models.AdminAccount, error) {
	var acct models.AdminAccount
	err := db.GetContext(ctx, &acct, `SELECT username, display_name, token_hash, roles, created_at, updated_at FROM admin_accounts WHERE username=$1`, username)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// VerifyAdminToken checks if the provided token matches the stored hash
func VerifyAdminToken(hashedToken, plainToken string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken)) == nil
}

// HashToken bcrypt-hashes an operator token for storage.
func HashToken(plainToken string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}

// CreateAdminAccount creates or replaces an operator account
func CreateAdminAccount(ctx context.Context, db *sqlx.DB, username, displayName, plainToken string, roles []string) error {
	hashed, err := HashToken(plainToken)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO admin_accounts (username, display_name, token_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			token_hash = EXCLUDED.token_hash,
			roles = EXCLUDED.roles,
			updated_at = NOW()
	`, username, displayName, hashed, pq.Array(roles))

	return err
}

// ValidateCredentials validates a username + token combination
func ValidateCredentials(ctx context.Context, db *sqlx.DB, username, token string) (*models.AdminAccount, error) {
	acct, err := GetAdminAccount(ctx, db, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[ADMIN] No admin account found for: %s", username)
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !VerifyAdminToken(acct.TokenHash, token) {
		log.Printf("[ADMIN] Token verification failed for: %s", username)
		return nil, ErrInvalidToken
	}

	log.Printf("[ADMIN] Token verified for: %s", username)
	return acct, nil
}

// LogAdminAction records an operator action in the audit log
func LogAdminAction(ctx context.Context, db *sqlx.DB, username, ip, route, action string, details map[string]interface{}, success bool) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("[ADMIN] Failed to marshal audit details: %v", err)
		detailsJSON = []byte("{}")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO admin_audit (admin_username, ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, username, ip, route, action, detailsJSON, success)
	if err != nil {
		log.Printf("[ADMIN] Failed to log admin action: %v", err)
	}
	return err
}

// GetAdminAuditLogs retrieves recent audit entries with pagination
func GetAdminAuditLogs(ctx context.Context, db *sqlx.DB, limit, offset int) ([]models.AdminAudit, error) {
	var logs []models.AdminAudit
	err := db.SelectContext(ctx, &logs, `
		SELECT id, admin_username, ip, route, action, details, success, created_at
		FROM admin_audit
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return logs, err
}

// Directory adapts the account and audit tables to the HTTP layer.
type Directory struct {
	db *sqlx.DB
}

func NewDirectory(db *sqlx.DB) *Directory {
	if db == nil {
		return nil
	}
	return &Directory{db: db}
}

func (d *Directory) Authenticate(ctx context.Context, username, token string) (*models.AdminAccount, error) {
	return ValidateCredentials(ctx, d.db, username, token)
}

func (d *Directory) Audit(ctx context.Context, username, ip, route, action string, details map[string]interface{}, success bool) {
	LogAdminAction(ctx, d.db, username, ip, route, action, details, success)
}

func (d *Directory) AuditLog(ctx context.Context, limit, offset int) ([]models.AdminAudit, error) {
	return GetAdminAuditLogs(ctx, d.db, limit, offset)
}
