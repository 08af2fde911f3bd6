package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cafeteria-dispatch-board/internal/utils"
)

// Admin mirrors the 'admins' table. These are the staff accounts allowed
// to override box state and reset the board.
type Admin struct {
	ID           uint64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts an admin account and returns its ID.
func (r *AdminRepo) Create(ctx context.Context, email, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO admins (email, password_hash) VALUES (?,?)",
		email, hash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an admin by normalized email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var a Admin
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,is_active,created_at,updated_at FROM admins WHERE email=? LIMIT 1",
		email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetByID fetches an admin by id.
func (r *AdminRepo) GetByID(ctx context.Context, id uint64) (Admin, error) {
	var a Admin
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,is_active,created_at,updated_at FROM admins WHERE id=? LIMIT 1",
		id).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// adminWriter is the slice of AdminRepo that EnsureAdmin needs.
type adminWriter interface {
	GetByEmail(ctx context.Context, email string) (Admin, error)
	Create(ctx context.Context, email, password string, cost int) (uint64, error)
}

// EnsureAdmin provisions the startup admin account: if no account exists
// under email it creates one with the given password, otherwise it leaves
// the stored credentials alone. Returns the account ID and whether a row
// was inserted. Safe to call from several instances racing on boot.
func EnsureAdmin(ctx context.Context, r adminWriter, email, password string, cost int) (uint64, bool, error) {
	a, err := r.GetByEmail(ctx, email)
	if err == nil {
		return a.ID, false, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, err
	}
	id, err := r.Create(ctx, email, password, cost)
	if err == ErrEmailExists {
		// Another instance won the insert; adopt its row.
		a, err = r.GetByEmail(ctx, email)
		if err != nil {
			return 0, false, err
		}
		return a.ID, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
