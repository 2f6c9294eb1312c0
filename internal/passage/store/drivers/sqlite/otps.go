package sqlite

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
		`INSERT INTO otps (`+otpColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID,
		o.UserID,
		o.TokenHash,
		o.Used,
		o.Attempts,
		string(o.Purpose),
		formatTime(o.CreatedAt),
		formatTime(o.UpdatedAt),
		formatTime(o.ExpiresAt),
	)
	return mapConstraint(err)
}

func (r *otpsRepo) SaveOTP(ctx context.Context, o domain.OTP) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otps SET used = ?, updated_at = ? WHERE id = ?`,
		o.Used, formatTime(o.UpdatedAt), o.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *otpsRepo) FindLatestPending(ctx context.Context, userID string, purpose domain.OTPPurpose, now time.Time) (domain.OTP, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+otpColumns+` FROM otps
		  WHERE user_id = ? AND purpose = ? AND used = 0 AND expires_at > ?
		  ORDER BY created_at DESC, id DESC
		  LIMIT 1`,
		userID, string(purpose), formatTime(now),
	)
	return scanOTP(row)
}

func (r *otpsRepo) FindUnused(ctx context.Context, userID string, purpose domain.OTPPurpose) ([]domain.OTP, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+otpColumns+` FROM otps
		  WHERE user_id = ? AND purpose = ? AND used = 0
		  ORDER BY created_at DESC, id DESC`,
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
		`UPDATE otps SET used = 1, updated_at = ? WHERE id = ? AND used = 0`,
		formatTime(now), id,
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
		        used = CASE WHEN attempts + 1 >= ? THEN 1 ELSE 0 END,
		        updated_at = ?
		  WHERE id = ? AND used = 0
		  RETURNING attempts`,
		maxAttempts, formatTime(now), id,
	).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *otpsRepo) DeleteStaleOTPs(ctx context.Context, before time.Time) (int64, error) {
	cutoff := formatTime(before)
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM otps WHERE (used = 1 AND updated_at < ?) OR expires_at < ?`,
		cutoff, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanOTP(row scanner) (domain.OTP, error) {
	var (
		o                               domain.OTP
		purpose                         string
		createdAt, updatedAt, expiresAt string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.TokenHash, &o.Used, &o.Attempts, &purpose, &createdAt, &updatedAt, &expiresAt)
	if err != nil {
		return domain.OTP{}, mapNotFound(err)
	}
	o.Purpose = domain.OTPPurpose(purpose)

	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.OTP{}, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.OTP{}, err
	}
	if o.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return domain.OTP{}, err
	}
	return o, nil
}
