package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/EgorLis/my-files/internal/domain"
)

// Локальное хранилище блобов: один плоский файл на объект,
// имя файла — id записи. Запись идёт во временный файл в <root>/tmp
// и становится видимой только после Save (rename на итоговый путь).
type Storage struct {
	root   string
	logger *log.Logger
}

func New(dir string, logger *log.Logger) (*Storage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("bootstrap dirs: %w", err)
	}
	logger.Printf("storage root: %s", abs)
	return &Storage{root: abs, logger: logger}, nil
}

func (s *Storage) Create(id string) (domain.BlobWriter, error) {
	f, err := os.CreateTemp(filepath.Join(s.root, "tmp"), id+"-*")
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	return &blobWriter{file: f, final: s.Location(id)}, nil
}

func (s *Storage) Open(id string) (io.ReadCloser, error) {
	f, err := os.Open(s.Location(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *Storage) Delete(id string) error {
	err := os.Remove(s.Location(id))
	if errors.Is(err, os.ErrNotExist) {
		return domain.ErrNotFound
	}
	return err
}

func (s *Storage) Exists(id string) bool {
	_, err := os.Stat(s.Location(id))
	return err == nil
}

func (s *Storage) Size(id string) (int64, error) {
	fi, err := os.Stat(s.Location(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return fi.Size(), nil
}

func (s *Storage) Location(id string) string {
	return filepath.Join(s.root, id)
}

func (s *Storage) Ping(_ context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

// ---- handle записи ----

type blobWriter struct {
	file  *os.File
	final string
	size  int64
	done  bool
}

func (w *blobWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *blobWriter) Size() int64 { return w.size }

// Save — точка долговечности: до rename объект не виден читателям.
func (w *blobWriter) Save() error {
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("sync blob: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(w.file.Name(), w.final); err != nil {
		return fmt.Errorf("finalize blob: %w", err)
	}
	w.done = true
	return nil
}

func (w *blobWriter) Abort() error {
	if w.done {
		return nil
	}
	w.file.Close()
	return os.Remove(w.file.Name())
}
