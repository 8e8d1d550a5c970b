package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/internal/domain/repository"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, name, email, email_verified, image, created_at, updated_at, deleted_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var image *string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerified, &image,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if image != nil {
		u.Image = *image
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, email_verified, image)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING created_at, updated_at
	`, u.ID, u.Name, u.Email, u.EmailVerified, u.Image)

	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email))
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $1, email = $2, image = NULLIF($3, ''), updated_at = $4
		WHERE id = $5
	`, u.Name, u.Email, u.Image, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errors.New("user not found")
	}
	return nil
}

func (r *UserRepository) SetEmailVerified(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email_verified = TRUE, updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// Withdraw runs the soft-delete lifecycle in one transaction. The user row is
// locked FOR UPDATE so that a concurrent login serializes against the delete
// of its sessions. The anonymize UPDATE is guarded on deleted_at IS NULL,
// which makes a second invocation a no-op; the session/account deletes run
// either way but match nothing the second time.
func (r *UserRepository) Withdraw(ctx context.Context, id string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var deletedAt *time.Time
	err = tx.QueryRow(ctx, `
		SELECT deleted_at FROM users WHERE id = $1 FOR UPDATE
	`, id).Scan(&deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, errors.New("user not found")
		}
		return false, err
	}

	res, err := tx.Exec(ctx, `
		UPDATE users
		SET email = $2, name = $3, image = NULL, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, entity.AnonymizedEmail(id), entity.WithdrawnName)
	if err != nil {
		return false, err
	}
	withdrawn := res.RowsAffected() > 0

	// Explicit cleanup. The schema-level cascade only fires on a hard DELETE
	// of the user row, which never happens here.
	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, id); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE user_id = $1`, id); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return withdrawn, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
