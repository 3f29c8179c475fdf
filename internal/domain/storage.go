package domain

import "io"

// Хранилище бинарного контента, адресуемое по id файла.
//
// Запись двухфазная: Create выдаёт handle во временный файл,
// Save делает байты долговечными и видимыми для Open/Exists/Size.
// До Save объект не виден никакому читателю; Abort убирает черновик.
type BlobStore interface {
	Create(id string) (BlobWriter, error)
	// Open возвращает ErrNotFound, если блоба нет.
	Open(id string) (io.ReadCloser, error)
	// Delete возвращает ErrNotFound, если блоба нет.
	Delete(id string) error
	Exists(id string) bool
	// Size — фактический размер сохранённого блоба в байтах.
	Size(id string) (int64, error)
	// Location — опорный локатор (абсолютный путь) для строки леджера.
	Location(id string) string
}

type BlobWriter interface {
	io.Writer
	// Size — количество байт, записанных через handle.
	Size() int64
	// Save — точка долговечности: flush, fsync, rename на итоговое имя.
	Save() error
	// Abort удаляет незавершённую запись. Безопасен после Save-ошибки.
	Abort() error
}
