package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
)

const userColumns = `id, name, email, password_hash, status, refresh_token_hash, created_at, updated_at`

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		string(u.Status),
		mapOptionalString(u.RefreshTokenHash),
		formatTime(u.CreatedAt),
		formatTime(u.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *usersRepo) SaveUser(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		    SET name = ?, password_hash = ?, status = ?, refresh_token_hash = ?, updated_at = ?
		  WHERE id = ?`,
		u.Name,
		u.PasswordHash,
		string(u.Status),
		mapOptionalString(u.RefreshTokenHash),
		formatTime(u.UpdatedAt),
		u.ID,
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
		u                    domain.User
		status               string
		refresh              sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &status, &refresh, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Status = domain.UserStatus(status)
	if !u.Status.Valid() {
		return domain.User{}, fmt.Errorf("sqlite: user %s has unknown status %q", u.ID, status)
	}
	u.RefreshTokenHash = mapNullStringPtr(refresh)
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.User{}, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
