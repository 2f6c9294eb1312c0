package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
)

const userColumns = `id, name, email, password_hash, status, refresh_token_hash, created_at, updated_at`

type usersRepo struct {
	db        dbtx
	forUpdate bool
}

func (r *usersRepo) lockClause() string {
	if r.forUpdate {
		return ` FOR UPDATE`
	}
	return ``
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`+r.lockClause(), id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`+r.lockClause(), email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Status), u.RefreshTokenHash,
		u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *usersRepo) SaveUser(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		    SET name = $1, password_hash = $2, status = $3, refresh_token_hash = $4, updated_at = $5
		  WHERE id = $6`,
		u.Name, u.PasswordHash, string(u.Status), u.RefreshTokenHash, u.UpdatedAt.UTC(), u.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u       domain.User
		status  string
		refresh sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &status, &refresh, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Status = domain.UserStatus(status)
	if !u.Status.Valid() {
		return domain.User{}, fmt.Errorf("postgres: user %s has unknown status %q", u.ID, status)
	}
	if refresh.Valid {
		u.RefreshTokenHash = &refresh.String
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}
