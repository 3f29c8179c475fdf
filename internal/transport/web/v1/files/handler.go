package files

import (
	"log"
	"time"

	"github.com/EgorLis/my-files/internal/domain"
)

type Handler struct {
	Log     *log.Logger
	Repo    domain.FilesRepo
	Storage domain.BlobStore
	Cache   domain.Cache

	MaxFileSize    int64 // байт на один файл
	MaxRequestSize int64 // байт на весь запрос
	MetaTTL        int   // секунд жизни кеша метаданных
}

// Ответ на создание: managementKey отдаётся здесь и больше никогда
type fileCreated struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	EncodedName   string    `json:"encodedName"`
	Extension     string    `json:"extension"`
	Size          int64     `json:"size"`
	ManagementKey string    `json:"managementKey"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Ответ /info: без секретов и без location
type fileInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	EncodedName string    `json:"encodedName"`
	Extension   string    `json:"extension"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}
