// Файл: internal/api/media.go
package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// saveImage сохраняет изображение клиента в медиахранилище под уникальным
// именем и возвращает ссылку для записи в сообщение.
func (s *supportAPI) saveImage(data []byte, originalName string) (string, error) {
	if err := os.MkdirAll(s.deps.MediaDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("ошибка создания каталога медиахранилища: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}
	uniqueFilename := fmt.Sprintf("%s%s", uuid.New().String(), ext)

	destPath := filepath.Join(s.deps.MediaDir, uniqueFilename)
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return "", fmt.Errorf("ошибка записи файла %s: %w", destPath, err)
	}

	return "/api/media/" + uniqueFilename, nil
}

// MediaHandler отдает сохраненное изображение по имени файла.
// Имя проверяется на попытки выхода из каталога хранилища.
func (s *supportAPI) MediaHandler(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" {
		writeJSONError(w, http.StatusBadRequest, "Filename is required")
		return
	}

	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		writeJSONError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	filePath := filepath.Join(s.deps.MediaDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}
