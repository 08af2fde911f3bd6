package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InitSchema creates the tables this service needs if they do not exist.
// Called once at startup for local runs; production deployments can manage
// the schema externally and this remains a no-op.
func InitSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS admins (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			admin_id BIGINT UNSIGNED NOT NULL,
			token_hash CHAR(64) NOT NULL,
			expires_at DATETIME NOT NULL,
			revoked_at DATETIME NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_refresh_hash (token_hash),
			CONSTRAINT fk_refresh_admin FOREIGN KEY (admin_id) REFERENCES admins(id)
		)`,
		`CREATE TABLE IF NOT EXISTS box_writes (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			box_id VARCHAR(16) NOT NULL,
			status VARCHAR(16) NOT NULL,
			actor VARCHAR(16) NOT NULL,
			applied BOOLEAN NOT NULL,
			written_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_box_writes_box (box_id, written_at)
		)`,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
