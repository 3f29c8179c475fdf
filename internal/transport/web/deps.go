package web

import (
	"context"

	"github.com/EgorLis/my-files/internal/domain"
)

// BlobStore — хранилище блобов + пинг для readiness
type BlobStore interface {
	domain.BlobStore
	Ping(context.Context) error
}

type Deps struct {
	Repo    domain.FilesRepo
	Storage BlobStore
	Cache   domain.Cache
}
