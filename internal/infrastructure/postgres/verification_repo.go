package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/internal/domain/repository"
)

type VerificationRepository struct {
	pool *pgxpool.Pool
}

func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

func (r *VerificationRepository) Upsert(ctx context.Context, v *entity.Verification) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO verifications (id, identifier, value, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identifier) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()
		RETURNING created_at, updated_at
	`, v.ID, v.Identifier, v.Value, v.ExpiresAt)

	return row.Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (r *VerificationRepository) GetByValue(ctx context.Context, value string) (*entity.Verification, error) {
	v := &entity.Verification{}

	row := r.pool.QueryRow(ctx, `
		SELECT id, identifier, value, expires_at, created_at, updated_at
		FROM verifications
		WHERE value = $1
	`, value)

	if err := row.Scan(&v.ID, &v.Identifier, &v.Value, &v.ExpiresAt,
		&v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (r *VerificationRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM verifications WHERE id = $1`, id)
	return err
}

func (r *VerificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM verifications WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

var _ repository.VerificationRepository = (*VerificationRepository)(nil)
