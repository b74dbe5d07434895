// Файл: internal/api/handlers.go
package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"supportrelay/internal/constants"
	"supportrelay/internal/models"
)

// Формат ответов повторяет контракт исходного бэкенда виджета:
// {success: ...} при успехе, {error: ...} при ошибке. Внутренние тексты
// ошибок клиенту не отдаются - только оператору, который доверен.

type sendMessageRequest struct {
	SupportToken string `json:"supportToken"`
	Message      string `json:"message"`
}

type getMessagesRequest struct {
	SupportToken string `json:"supportToken"`
}

type messageResponse struct {
	ID        int64  `json:"id"`
	Message   string `json:"message"`
	Image     string `json:"image"`
	Sender    int    `json:"sender"`
	CreatedAt string `json:"createdAt"`
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(payload)
}

// SendMessageHandler принимает текстовое сообщение клиента: записывает его
// в хранилище и уведомляет оператора. Сбой уведомления не влияет на ответ
// клиенту - его сообщение уже зафиксировано.
func (s *supportAPI) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.SupportToken == "" || req.Message == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing supportToken or message")
		return
	}

	saved, err := s.deps.Store.AppendMessage(req.SupportToken, req.Message, "", constants.SENDER_VISITOR)
	if err != nil {
		log.Printf("SendMessageHandler: ошибка сохранения сообщения (токен %s): %v", req.SupportToken, err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if s.deps.Notifier != nil {
		// Ошибка доставки оператору логируется внутри и здесь глушится.
		if errPush := s.deps.Notifier.PushToOperator(req.SupportToken, req.Message, nil); errPush != nil {
			log.Printf("SendMessageHandler: уведомление оператору не доставлено (токен %s): %v", req.SupportToken, errPush)
		}
	}

	writeJSON(w, map[string]interface{}{"success": true, "messageId": saved.ID})
}

// SendImageHandler принимает изображение от клиента (multipart, поле image,
// лимит 5 МБ). Файл сохраняется в локальное медиахранилище, в строку
// сообщения записывается ссылка на него, оператору уходит само фото.
func (s *supportAPI) SendImageHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MAX_IMAGE_UPLOAD_BYTES)
	if err := r.ParseMultipartForm(constants.MAX_IMAGE_UPLOAD_BYTES); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Image too large or malformed form")
		return
	}

	supportToken := r.FormValue("supportToken")
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Missing supportToken or image")
		return
	}
	defer file.Close()
	if supportToken == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing supportToken or image")
		return
	}

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		log.Printf("SendImageHandler: ошибка чтения файла (токен %s): %v", supportToken, err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	imageRef, err := s.saveImage(imageBytes, header.Filename)
	if err != nil {
		log.Printf("SendImageHandler: ошибка сохранения изображения (токен %s): %v", supportToken, err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if _, err := s.deps.Store.AppendMessage(supportToken, "", imageRef, constants.SENDER_VISITOR); err != nil {
		log.Printf("SendImageHandler: ошибка сохранения сообщения (токен %s): %v", supportToken, err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if s.deps.Notifier != nil {
		if errPush := s.deps.Notifier.PushToOperator(supportToken, "", imageBytes); errPush != nil {
			log.Printf("SendImageHandler: уведомление оператору не доставлено (токен %s): %v", supportToken, errPush)
		}
	}

	writeJSON(w, map[string]interface{}{"success": true})
}

// GetMessagesHandler — polling-чтение истории диалога клиентом.
// Флаг отправителя каждой строки к этому моменту уже нормализован хранилищем.
func (s *supportAPI) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	var req getMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.SupportToken == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing supportToken")
		return
	}

	messages, err := s.deps.Store.GetMessagesByToken(req.SupportToken)
	if err != nil {
		log.Printf("GetMessagesHandler: ошибка выборки сообщений (токен %s): %v", req.SupportToken, err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, map[string]interface{}{
		"success":  true,
		"messages": toMessageResponses(messages),
	})
}

// HealthHandler — проверка живости для хостинга.
func (s *supportAPI) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func toMessageResponses(messages []models.Message) []messageResponse {
	out := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		out = append(out, messageResponse{
			ID:        msg.ID,
			Message:   msg.Message,
			Image:     msg.Image,
			Sender:    msg.Sender,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
