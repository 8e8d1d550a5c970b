package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/internal/domain/repository"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, user_id, account_id, provider_id, access_token, refresh_token,
	access_token_expires_at, refresh_token_expires_at, scope, id_token, password,
	created_at, updated_at`

func scanAccount(row pgx.Row) (*entity.Account, error) {
	a := &entity.Account{}
	var access, refresh, scope, idToken, password *string
	if err := row.Scan(&a.ID, &a.UserID, &a.AccountID, &a.ProviderID,
		&access, &refresh, &a.AccessTokenExpiresAt, &a.RefreshTokenExpiresAt,
		&scope, &idToken, &password, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if access != nil {
		a.AccessToken = *access
	}
	if refresh != nil {
		a.RefreshToken = *refresh
	}
	if scope != nil {
		a.Scope = *scope
	}
	if idToken != nil {
		a.IDToken = *idToken
	}
	if password != nil {
		a.Password = *password
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, user_id, account_id, provider_id,
			access_token, refresh_token, access_token_expires_at, refresh_token_expires_at,
			scope, id_token, password)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8,
			NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''))
		RETURNING created_at, updated_at
	`, a.ID, a.UserID, a.AccountID, a.ProviderID,
		a.AccessToken, a.RefreshToken, a.AccessTokenExpiresAt, a.RefreshTokenExpiresAt,
		a.Scope, a.IDToken, a.Password)

	return row.Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepository) GetByProvider(ctx context.Context, providerID, accountID string) (*entity.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE provider_id = $1 AND account_id = $2
	`, providerID, accountID))
}

func (r *AccountRepository) GetCredential(ctx context.Context, userID string) (*entity.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1 AND provider_id = $2
	`, userID, entity.ProviderCredential))
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET password = $1, updated_at = now()
		WHERE user_id = $2 AND provider_id = $3
	`, passwordHash, userID, entity.ProviderCredential)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errors.New("credential account not found")
	}
	return nil
}

func (r *AccountRepository) UpdateTokens(ctx context.Context, a *entity.Account) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET access_token = NULLIF($1, ''), refresh_token = NULLIF($2, ''),
			access_token_expires_at = $3, refresh_token_expires_at = $4,
			scope = NULLIF($5, ''), id_token = NULLIF($6, ''), updated_at = now()
		WHERE id = $7
	`, a.AccessToken, a.RefreshToken, a.AccessTokenExpiresAt, a.RefreshTokenExpiresAt,
		a.Scope, a.IDToken, a.ID)
	return err
}

func (r *AccountRepository) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE user_id = $1`, userID)
	return err
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
