package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.FirebaseUID,
		&u.Email,
		&u.Role,
		&u.DisplayName,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgRepository) GetByFirebaseUID(ctx context.Context, uid string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, firebase_uid, email, role, display_name, created_at, updated_at
		FROM users
		WHERE firebase_uid = $1
	`, uid)
	return scanUser(row)
}

func (r *PgRepository) Upsert(ctx context.Context, u *User) (*User, bool, error) {
	// xmax = 0 only for freshly inserted tuples
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, firebase_uid, email, role, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (firebase_uid) DO UPDATE
		SET email = EXCLUDED.email,
		    role = EXCLUDED.role,
		    display_name = EXCLUDED.display_name,
		    updated_at = now()
		RETURNING id, firebase_uid, email, role, display_name, created_at, updated_at, (xmax = 0)
	`, uuid.New(), u.FirebaseUID, u.Email, u.Role, u.DisplayName)

	var out User
	var inserted bool
	err := row.Scan(
		&out.ID,
		&out.FirebaseUID,
		&out.Email,
		&out.Role,
		&out.DisplayName,
		&out.CreatedAt,
		&out.UpdatedAt,
		&inserted,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, false, ErrEmailTaken
		}
		return nil, false, err
	}
	return &out, inserted, nil
}
