// Package fs сохраняет скачанные файлы в локальную директорию.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ChunkSize — размер блока записи
const ChunkSize = 8192

// ErrEmptyFilename возвращается при пустом имени файла
var ErrEmptyFilename = errors.New("empty filename")

// Storage пишет файлы в базовую директорию
type Storage struct {
	basePath string
	logger   *zap.Logger
}

// NewStorage создает хранилище; директория создается при первой записи
func NewStorage(basePath string, logger *zap.Logger) *Storage {
	return &Storage{
		basePath: basePath,
		logger:   logger.With(zap.String("component", "filesystem_storage")),
	}
}

// BasePath возвращает базовую директорию
func (s *Storage) BasePath() string {
	return s.basePath
}

// Save создает базовую директорию при необходимости и копирует r в файл name
// блоками по ChunkSize. Файл закрывается на любом пути выхода, при ошибке
// недописанный файл удаляется.
func (s *Storage) Save(ctx context.Context, name string, r io.Reader) (path string, written int64, err error) {
	if name == "" || filepath.Base(name) != name {
		return "", 0, fmt.Errorf("%w: %q", ErrEmptyFilename, name)
	}

	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create download directory: %w", err)
	}

	path = filepath.Join(s.basePath, name)
	if abs, absErr := filepath.Abs(path); absErr == nil {
		path = abs
	}

	file, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
			s.logger.Warn("Partial file removed", zap.String("path", path), zap.Error(err))
			path, written = "", 0
		}
	}()

	written, err = copyChunks(ctx, file, r)
	if err != nil {
		return path, written, err
	}

	s.logger.Debug("File written", zap.String("path", path), zap.Int64("bytes", written))
	return path, written, nil
}

// copyChunks копирует поток фиксированными блоками, проверяя контекст между ними
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			w, writeErr := dst.Write(buf[:n])
			written += int64(w)
			if writeErr != nil {
				return written, fmt.Errorf("failed to write data: %w", writeErr)
			}
			if w != n {
				return written, fmt.Errorf("failed to write data: %w", io.ErrShortWrite)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("failed to read data: %w", readErr)
		}
	}
}
