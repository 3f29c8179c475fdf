package domain

import "context"

// Леджер метаданных. Реализация — Postgres (internal/infra/database/postgres).
type FilesRepo interface {
	Close()
	Ping(context.Context) error

	// CreateFiles вставляет пачку записей атомарно: либо все строки
	// становятся видимыми, либо ни одной. Возвращает записи с
	// проставленными created_at.
	CreateFiles(ctx context.Context, recs []FileRecord) ([]FileRecord, error)

	// FileByID возвращает ErrNotFound, если записи нет.
	FileByID(ctx context.Context, id string) (FileRecord, error)

	// DeleteFile удаляет строку в транзакции; ErrNotFound при нуле строк.
	DeleteFile(ctx context.Context, id string) error
}
