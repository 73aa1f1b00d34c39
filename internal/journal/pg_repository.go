package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = `id, user_id, content, mood, tags, drawing, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Content,
		&e.Mood,
		&e.Tags,
		&e.Drawing,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return &e, nil
}

func (r *PgRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM journal_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id = $1`, id)
	return scanEntry(row)
}

func (r *PgRepository) Create(ctx context.Context, e *Entry) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO journal_entries (id, user_id, content, mood, tags, drawing, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+entryColumns,
		uuid.New(), e.UserID, e.Content, e.Mood, e.Tags, e.Drawing)
	return scanEntry(row)
}

func (r *PgRepository) Update(ctx context.Context, e *Entry) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE journal_entries
		SET content = $2, mood = $3, tags = $4, drawing = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+entryColumns,
		e.ID, e.Content, e.Mood, e.Tags, e.Drawing)
	return scanEntry(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM journal_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}
