package domain

import "context"

// Ключи кеша — единое место, чтобы не расползались по коду.
func CacheKeyFileMeta(id string) string { return "filemeta:" + id }

// Простой k/v интерфейс. Реализация — Redis.
// Ошибки кеша никогда не валят запрос: логируем и идём в БД.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttlSeconds int) error
	Del(ctx context.Context, keys ...string) error
	Ping(context.Context) error
	Close()
}
