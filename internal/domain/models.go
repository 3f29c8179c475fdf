package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Тип хранилища, где лежит контент файла.
// Закрытый набор вариантов: реализован только local,
// остальные отдаются наружу как not_implemented.
type LocationType string

const (
	LocationLocal LocationType = "local"
	LocationS3    LocationType = "s3"
)

// Метаданные файла (одна строка леджера на один блоб).
// Сериализация здесь — полная (для кеша); наружу запись целиком
// не отдаётся никогда, ответы собираются в transport из своих структур.
type FileRecord struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`        // имя без расширения
	EncodedName string       `json:"encodedName"` // percent-encoded имя для заголовков
	Extension   string       `json:"extension"`   // с ведущей точкой, может быть пустым
	Size        int64        `json:"size"`
	Location    string       `json:"location"` // опорный локатор, резолвится только хранилищем
	Type        LocationType `json:"locationType"`
	Key         string       `json:"managementKey"` // секрет удаления; клиенту показывается один раз при создании
	CreatedAt   time.Time    `json:"createdAt"`
}

const (
	fileIDBytes        = 16
	managementKeyBytes = 32
)

// NewFileID генерирует случайный идентификатор файла (32 hex-символа).
func NewFileID() string {
	return randomHex(fileIDBytes)
}

// NewManagementKey генерирует секретный ключ управления (64 hex-символа).
// Независим от id: id можно раздавать для чтения, ключ — только владельцу.
func NewManagementKey() string {
	return randomHex(managementKeyBytes)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	// crypto/rand.Read не возвращает ошибку
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
