package repository

import (
	"context"
	"database/sql"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/pricewatch-io/pricewatch/app/entity"
)

// EncodeUserID renders a primary key the way confirmation URLs carry it:
// URL-safe base64 over the decimal representation.
func EncodeUserID(id uint64) string {
	return base64.URLEncoding.EncodeToString([]byte(strconv.FormatUint(id, 10)))
}

func DecodeUserID(encoded string) (uint64, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(raw), 10, 64)
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (username, first_name, last_name, email, password_hash, is_active, last_login, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	query := `
		SELECT id, username, first_name, last_name, email, password_hash, is_active, last_login, created_at, updated_at
		FROM users WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByEncodedID resolves the base64 identity reference carried in
// confirmation URLs. A malformed reference resolves to no user, never to an
// error: the caller must not be able to distinguish the two.
func (r *UserRepository) FindByEncodedID(ctx context.Context, encoded string) (*entity.User, error) {
	id, err := DecodeUserID(encoded)
	if err != nil {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	query := `
		SELECT id, username, first_name, last_name, email, password_hash, is_active, last_login, created_at, updated_at
		FROM users WHERE username = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `
		SELECT id, username, first_name, last_name, email, password_hash, is_active, last_login, created_at, updated_at
		FROM users WHERE email = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// ExistsActiveWithEmail reports whether an active account other than
// excludingID already owns the address.
func (r *UserRepository) ExistsActiveWithEmail(ctx context.Context, email string, excludingID uint64) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM users WHERE email = ? AND is_active = 1 AND id <> ?)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email, excludingID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			username = ?,
			first_name = ?,
			last_name = ?,
			email = ?,
			password_hash = ?,
			is_active = ?,
			last_login = ?,
			updated_at = ?
		WHERE id = ?
	`
	user.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.LastLogin,
		user.UpdatedAt,
		user.ID,
	)
	return err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uint64, lastLogin time.Time) error {
	query := `UPDATE users SET last_login = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, lastLogin, userID)
	return err
}

func (r *UserRepository) scanOne(row *sql.Row) (*entity.User, error) {
	user := &entity.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
