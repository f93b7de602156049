package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const upsertSuffix = `ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, ` +
	`full_name = COALESCE(EXCLUDED.full_name, users.full_name), updated_at = now()`

// PGRepo stores partners in the users table.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	query, args, err := psql.Insert("users").
		Columns("id", "email", "full_name", "created_at", "updated_at").
		Values(user.ID, user.Email, nullableString(user.FullName), sq.Expr("now()"), sq.Expr("now()")).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("build user upsert: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	query, args, err := psql.Select("id", "email", "full_name", "created_at", "updated_at").
		From("users").
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return User{}, fmt.Errorf("build user select: %w", err)
	}

	var (
		user     User
		fullName sql.NullString
	)
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.Email, &fullName, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("load user %s: %w", userID, err)
	}
	user.FullName = fullName.String
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
