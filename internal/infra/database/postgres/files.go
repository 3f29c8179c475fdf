package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/EgorLis/my-files/internal/domain"
)

const fileColumns = "id, name, encoded_name, extension, size, location, location_type, management_key, created_at"

// CreateFiles вставляет все записи одним INSERT внутри транзакции:
// либо вся пачка становится видимой, либо ни одной строки.
func (r *PGRepo) CreateFiles(ctx context.Context, recs []domain.FileRecord) ([]domain.FileRecord, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("create files: empty batch")
	}

	q := r.qb().Insert(fmt.Sprintf("%s.files", r.schema)).
		Columns("id", "name", "encoded_name", "extension", "size", "location", "location_type", "management_key")
	for _, rec := range recs {
		q = q.Values(rec.ID, rec.Name, rec.EncodedName, rec.Extension, rec.Size, rec.Location, rec.Type, rec.Key)
	}
	q = q.Suffix("RETURNING " + fileColumns)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}
	r.logSQL("CreateFiles", sqlStr, args)

	start := time.Now()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Printf("CreateFiles begin error: %v", err)
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("CreateFiles query error after %s: %v", time.Since(start), err)
		return nil, err
	}

	out := make([]domain.FileRecord, 0, len(recs))
	for rows.Next() {
		var rec domain.FileRecord
		if err := scanFile(rows, &rec); err != nil {
			rows.Close()
			r.logger.Printf("CreateFiles scan error: %v", err)
			return nil, err
		}
		out = append(out, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		r.logger.Printf("CreateFiles rows error: %v", err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Printf("CreateFiles commit error after %s: %v", time.Since(start), err)
		return nil, err
	}
	r.logger.Printf("CreateFiles ok in %s count=%d", time.Since(start), len(out))
	return out, nil
}

func (r *PGRepo) FileByID(ctx context.Context, id string) (domain.FileRecord, error) {
	q := r.qb().Select(
		"id", "name", "encoded_name", "extension", "size",
		"location", "location_type", "management_key", "created_at",
	).From(fmt.Sprintf("%s.files", r.schema)).Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("FileByID", sqlStr, args)

	start := time.Now()
	row := r.pool.QueryRow(ctx, sqlStr, args...)
	var rec domain.FileRecord
	if err := scanFile(row, &rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("FileByID not found in %s id=%s", time.Since(start), id)
			return domain.FileRecord{}, domain.ErrNotFound
		}
		r.logger.Printf("FileByID scan error after %s: %v", time.Since(start), err)
		return domain.FileRecord{}, err
	}
	r.logger.Printf("FileByID ok in %s id=%s", time.Since(start), rec.ID)
	return rec, nil
}

// DeleteFile удаляет строку в транзакции. Удаление блоба — на вызывающей
// стороне и только после коммита: строка-без-блоба хуже, чем блоб-без-строки.
func (r *PGRepo) DeleteFile(ctx context.Context, id string) error {
	q := r.qb().Delete(fmt.Sprintf("%s.files", r.schema)).Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	r.logSQL("DeleteFile", sqlStr, args)

	start := time.Now()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Printf("DeleteFile begin error: %v", err)
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("DeleteFile exec error after %s: %v", time.Since(start), err)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.Printf("DeleteFile no rows affected in %s id=%s", time.Since(start), id)
		return domain.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		r.logger.Printf("DeleteFile commit error after %s: %v", time.Since(start), err)
		return err
	}
	r.logger.Printf("DeleteFile ok in %s id=%s", time.Since(start), id)
	return nil
}

func scanFile(row pgx.Row, rec *domain.FileRecord) error {
	return row.Scan(
		&rec.ID, &rec.Name, &rec.EncodedName, &rec.Extension, &rec.Size,
		&rec.Location, &rec.Type, &rec.Key, &rec.CreatedAt,
	)
}
