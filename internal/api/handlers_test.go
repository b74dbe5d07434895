package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"supportrelay/internal/db"
)

// fakeNotifier записывает вызовы PushToOperator вместо похода в Telegram.
type fakeNotifier struct {
	calls []notifierCall
}

type notifierCall struct {
	supportToken string
	text         string
	imageBytes   []byte
}

func (f *fakeNotifier) PushToOperator(supportToken, text string, imageBytes []byte) error {
	f.calls = append(f.calls, notifierCall{supportToken, text, imageBytes})
	return nil
}

func newTestAPI(t *testing.T) (chi.Router, *fakeNotifier) {
	t.Helper()

	store, err := db.InitStore(filepath.Join(t.TempDir(), "chat_test.db"))
	if err != nil {
		t.Fatalf("не удалось создать тестовое хранилище: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	notifier := &fakeNotifier{}
	router := chi.NewRouter()
	SetupRoutes(router, ApiDependencies{
		Store:    store,
		Notifier: notifier,
		MediaDir: t.TempDir(),
	})
	return router, notifier
}

func postJSON(t *testing.T, router chi.Router, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("не удалось сериализовать тело запроса: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("не удалось разобрать ответ %q: %v", rec.Body.String(), err)
	}
	return result
}

func TestSendMessage(t *testing.T) {
	router, notifier := newTestAPI(t)

	rec := postJSON(t, router, "/api/support/sendMessage", map[string]string{
		"supportToken": "abc123",
		"message":      "Здравствуйте, у меня вопрос",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d: %s", rec.Code, rec.Body.String())
	}

	result := decodeBody(t, rec)
	if result["success"] != true {
		t.Errorf("ожидался success=true, получено %v", result)
	}
	if id, ok := result["messageId"].(float64); !ok || id <= 0 {
		t.Errorf("ожидался положительный messageId, получено %v", result["messageId"])
	}

	if len(notifier.calls) != 1 {
		t.Fatalf("ожидался один вызов уведомления оператора, получено %d", len(notifier.calls))
	}
	call := notifier.calls[0]
	if call.supportToken != "abc123" || call.text != "Здравствуйте, у меня вопрос" || call.imageBytes != nil {
		t.Errorf("уведомление оператору с неверными параметрами: %+v", call)
	}
}

func TestSendMessageMissingFields(t *testing.T) {
	router, notifier := newTestAPI(t)

	for _, payload := range []map[string]string{
		{"message": "без токена"},
		{"supportToken": "abc123"},
		{},
	} {
		rec := postJSON(t, router, "/api/support/sendMessage", payload)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("для %v ожидался статус 400, получен %d", payload, rec.Code)
		}
		result := decodeBody(t, rec)
		if result["error"] == "" || result["error"] == nil {
			t.Errorf("для %v ожидалось поле error в ответе, получено %v", payload, result)
		}
	}
	if len(notifier.calls) != 0 {
		t.Errorf("отклонённые запросы не должны уведомлять оператора, вызовов: %d", len(notifier.calls))
	}
}

func TestGetMessagesRoundTrip(t *testing.T) {
	router, _ := newTestAPI(t)

	postJSON(t, router, "/api/support/sendMessage", map[string]string{
		"supportToken": "abc123", "message": "первое",
	})
	postJSON(t, router, "/api/support/sendMessage", map[string]string{
		"supportToken": "abc123", "message": "второе",
	})
	// Чужой диалог не должен попадать в выборку.
	postJSON(t, router, "/api/support/sendMessage", map[string]string{
		"supportToken": "other", "message": "чужое",
	})

	rec := postJSON(t, router, "/api/support/getMessages", map[string]string{"supportToken": "abc123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Success  bool `json:"success"`
		Messages []struct {
			ID        int64  `json:"id"`
			Message   string `json:"message"`
			Sender    int    `json:"sender"`
			CreatedAt string `json:"createdAt"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("не удалось разобрать ответ: %v", err)
	}
	if !result.Success {
		t.Error("ожидался success=true")
	}
	if len(result.Messages) != 2 {
		t.Fatalf("ожидалось 2 сообщения, получено %d", len(result.Messages))
	}
	if result.Messages[0].Message != "первое" || result.Messages[1].Message != "второе" {
		t.Errorf("порядок или содержимое сообщений нарушены: %+v", result.Messages)
	}
	for _, msg := range result.Messages {
		if msg.Sender != 1 {
			t.Errorf("сообщение клиента должно иметь sender=1, получено %d", msg.Sender)
		}
		if msg.CreatedAt == "" {
			t.Errorf("у сообщения #%d пустой createdAt", msg.ID)
		}
	}
}

func TestGetMessagesMissingToken(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := postJSON(t, router, "/api/support/getMessages", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидался статус 400, получен %d", rec.Code)
	}
}

func TestSendImageAndFetchMedia(t *testing.T) {
	router, notifier := newTestAPI(t)

	imageData := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02, 0x03}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("supportToken", "abc123"); err != nil {
		t.Fatalf("ошибка формирования формы: %v", err)
	}
	part, err := writer.CreateFormFile("image", "photo.jpg")
	if err != nil {
		t.Fatalf("ошибка формирования формы: %v", err)
	}
	part.Write(imageData)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/support/sendImage", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d: %s", rec.Code, rec.Body.String())
	}

	if len(notifier.calls) != 1 || !bytes.Equal(notifier.calls[0].imageBytes, imageData) {
		t.Errorf("оператор должен получить байты изображения, вызовы: %+v", notifier.calls)
	}

	// В истории диалога должна появиться ссылка на сохранённый файл.
	getRec := postJSON(t, router, "/api/support/getMessages", map[string]string{"supportToken": "abc123"})
	var result struct {
		Messages []struct {
			Image string `json:"image"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(getRec.Body.Bytes(), &result); err != nil {
		t.Fatalf("не удалось разобрать ответ: %v", err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("ожидалось 1 сообщение, получено %d", len(result.Messages))
	}
	imageRef := result.Messages[0].Image
	if !strings.HasPrefix(imageRef, "/api/media/") || !strings.HasSuffix(imageRef, ".jpg") {
		t.Fatalf("неожиданная ссылка на изображение: %q", imageRef)
	}

	// Сохранённый файл отдаётся по ссылке байт в байт.
	mediaReq := httptest.NewRequest(http.MethodGet, imageRef, nil)
	mediaRec := httptest.NewRecorder()
	router.ServeHTTP(mediaRec, mediaReq)
	if mediaRec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200 для %s, получен %d", imageRef, mediaRec.Code)
	}
	if !bytes.Equal(mediaRec.Body.Bytes(), imageData) {
		t.Error("содержимое отданного файла не совпадает с загруженным")
	}
}

func TestSendImageMissingToken(t *testing.T) {
	router, _ := newTestAPI(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("image", "photo.jpg")
	part.Write([]byte{0x01})
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/support/sendImage", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидался статус 400, получен %d", rec.Code)
	}
}

func TestMediaRejectsTraversal(t *testing.T) {
	router, _ := newTestAPI(t)

	// %5C декодируется в обратный слеш и должен быть отклонён.
	req := httptest.NewRequest(http.MethodGet, "/api/media/..%5Csecret.txt", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидался статус 400 для имени с обходом каталога, получен %d", rec.Code)
	}
}

func TestMediaNotFound(t *testing.T) {
	router, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/media/nosuchfile.jpg", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("ожидался статус 404, получен %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	result := decodeBody(t, rec)
	if result["status"] != "ok" {
		t.Errorf("ожидался status=ok, получено %v", result)
	}
}
