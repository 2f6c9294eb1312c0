package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
)

const otpColumns = `id, user_id, token_hash, used, attempts, purpose, created_at, updated_at, expires_at`

type otpsRepo struct {
	db dbtx
}

func (r *otpsRepo) CreateOTP(ctx context.Context, o domain.OTP) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otps (`+otpColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.UserID, o.TokenHash, o.Used, o.Attempts, string(o.Purpose),
		o.CreatedAt.UTC(), o.UpdatedAt.UTC(), o.ExpiresAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *otpsRepo) SaveOTP(ctx context.Context, o domain.OTP) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otps SET used = $1, updated_at = $2 WHERE id = $3`,
		o.Used, o.UpdatedAt.UTC(), o.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *otpsRepo) FindLatestPending(ctx context.Context, userID string, purpose domain.OTPPurpose, now time.Time) (domain.OTP, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+otpColumns+` FROM otps
		  WHERE user_id = $1 AND purpose = $2 AND NOT used AND expires_at > $3
		  ORDER BY created_at DESC
		  LIMIT 1`,
		userID, string(purpose), now.UTC(),
	)
	return scanOTP(row)
}

func (r *otpsRepo) FindUnused(ctx context.Context, userID string, purpose domain.OTPPurpose) ([]domain.OTP, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+otpColumns+` FROM otps
		  WHERE user_id = $1 AND purpose = $2 AND NOT used
		  ORDER BY created_at DESC`,
		userID, string(purpose),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OTP
	for rows.Next() {
		o, err := scanOTP(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *otpsRepo) ConsumeOTP(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otps SET used = TRUE, updated_at = $1 WHERE id = $2 AND NOT used`,
		now.UTC(), id,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *otpsRepo) RecordOTPFailure(ctx context.Context, id string, maxAttempts int, now time.Time) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE otps
		    SET attempts = attempts + 1,
		        used = attempts + 1 >= $1,
		        updated_at = $2
		  WHERE id = $3 AND NOT used
		  RETURNING attempts`,
		maxAttempts, now.UTC(), id,
	).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *otpsRepo) DeleteStaleOTPs(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM otps WHERE (used AND updated_at < $1) OR expires_at < $1`,
		before.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanOTP(row scanner) (domain.OTP, error) {
	var (
		o       domain.OTP
		purpose string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.TokenHash, &o.Used, &o.Attempts, &purpose, &o.CreatedAt, &o.UpdatedAt, &o.ExpiresAt)
	if err != nil {
		return domain.OTP{}, mapNotFound(err)
	}
	o.Purpose = domain.OTPPurpose(purpose)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	o.ExpiresAt = o.ExpiresAt.UTC()
	return o, nil
}
