package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var documentColumns = []string{
	"user_id", "doc_type", "path", "public_id", "uploaded_at", "status", "content_type", "size_bytes",
}

// PGRepo implements Repo using Postgres. Update serializes writers with SELECT ... FOR UPDATE.
type PGRepo struct {
	DB *sql.DB
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PGRepo) Ensure(ctx context.Context, userID string, now time.Time) (Record, error) {
	rec := NewRecord(userID, now.UTC())
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := psql.Insert("verification_records").
		Columns("user_id", "verification_status", "version", "created_at", "updated_at").
		Values(rec.UserID, string(rec.Status), rec.Version, rec.CreatedAt, rec.UpdatedAt).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return Record{}, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return Record{}, err
	}
	if err := writeDocuments(ctx, tx, rec, "ON CONFLICT (user_id, doc_type) DO NOTHING"); err != nil {
		return Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return r.Get(ctx, userID)
}

func (r *PGRepo) Get(ctx context.Context, userID string) (Record, error) {
	return load(ctx, r.DB, userID, false)
}

func (r *PGRepo) Update(ctx context.Context, userID string, fn MutateFunc) (Record, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := load(ctx, tx, userID, true)
	if err != nil {
		return Record{}, err
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return Record{}, err
	}
	next.UserID = current.UserID
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	if err := next.Validate(); err != nil {
		return Record{}, err
	}

	if err := writeDocuments(ctx, tx, next, `ON CONFLICT (user_id, doc_type) DO UPDATE SET
  path = EXCLUDED.path,
  public_id = EXCLUDED.public_id,
  uploaded_at = EXCLUDED.uploaded_at,
  status = EXCLUDED.status,
  content_type = EXCLUDED.content_type,
  size_bytes = EXCLUDED.size_bytes`); err != nil {
		return Record{}, err
	}

	query, args, err := psql.Update("verification_records").
		Set("verification_status", string(next.Status)).
		Set("version", next.Version).
		Set("updated_at", next.UpdatedAt).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return Record{}, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return next, nil
}

func load(ctx context.Context, q queryer, userID string, forUpdate bool) (Record, error) {
	builder := psql.Select("user_id", "verification_status", "version", "created_at", "updated_at").
		From("verification_records").
		Where(sq.Eq{"user_id": userID})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return Record{}, err
	}

	rec := NewRecord(userID, time.Time{})
	var status string
	err = q.QueryRowContext(ctx, query, args...).Scan(&rec.UserID, &status, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: verification record for user %s", ErrNotFound, userID)
		}
		return Record{}, err
	}
	rec.Status = AggregateStatus(status)

	query, args, err = psql.Select(documentColumns[1:]...).
		From("verification_documents").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return Record{}, err
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return Record{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			docType     string
			path        sql.NullString
			publicID    sql.NullString
			uploadedAt  sql.NullTime
			slotStatus  string
			contentType sql.NullString
			sizeBytes   sql.NullInt64
		)
		if err := rows.Scan(&docType, &path, &publicID, &uploadedAt, &slotStatus, &contentType, &sizeBytes); err != nil {
			return Record{}, err
		}
		t := DocumentType(docType)
		if !t.Valid() {
			continue
		}
		slot := Slot{
			Ref:         publicID.String,
			URL:         path.String,
			Status:      SlotStatus(slotStatus),
			ContentType: contentType.String,
			SizeBytes:   sizeBytes.Int64,
		}
		if uploadedAt.Valid {
			at := uploadedAt.Time.UTC()
			slot.UploadedAt = &at
		}
		rec.Documents[t] = slot
	}
	if err := rows.Err(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// writeDocuments writes all four slots in one statement.
func writeDocuments(ctx context.Context, q queryer, rec Record, suffix string) error {
	builder := psql.Insert("verification_documents").Columns(documentColumns...)
	for _, t := range DocumentTypes {
		slot := rec.Documents[t]
		var uploadedAt any
		if slot.UploadedAt != nil {
			uploadedAt = *slot.UploadedAt
		}
		var size any
		if slot.SizeBytes > 0 {
			size = slot.SizeBytes
		}
		builder = builder.Values(
			rec.UserID,
			string(t),
			nullableString(slot.URL),
			nullableString(slot.Ref),
			uploadedAt,
			string(slot.Status),
			nullableString(slot.ContentType),
			size,
		)
	}
	query, args, err := builder.Suffix(suffix).ToSql()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, query, args...)
	return err
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
