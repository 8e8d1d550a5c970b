package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/internal/domain/repository"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a session after taking a shared lock on the user row and
// re-checking deleted_at. A withdrawal running concurrently holds the row
// FOR UPDATE, so this insert either commits before the withdrawal (and the
// withdrawal's session delete sweeps it) or observes deleted_at and fails.
func (r *SessionRepository) Create(ctx context.Context, s *entity.Session) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var deletedAt *string
	err = tx.QueryRow(ctx, `
		SELECT deleted_at::text FROM users WHERE id = $1 FOR SHARE
	`, s.UserID).Scan(&deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.New("user not found")
		}
		return err
	}
	if deletedAt != nil {
		return repository.ErrUserWithdrawn
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, token, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING created_at, updated_at
	`, s.ID, s.UserID, s.Token, s.ExpiresAt, s.IPAddress, s.UserAgent)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*entity.Session, error) {
	s := &entity.Session{}
	var ip, ua *string

	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token, expires_at, ip_address, user_agent, created_at, updated_at
		FROM sessions
		WHERE token = $1
	`, token)

	if err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.ExpiresAt, &ip, &ua,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if ip != nil {
		s.IPAddress = *ip
	}
	if ua != nil {
		s.UserAgent = *ua
	}
	return s, nil
}

func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

var _ repository.SessionRepository = (*SessionRepository)(nil)
