package handlers

import (
	"strings"
	"testing"

	"supportrelay/internal/constants"
	"supportrelay/internal/models"
	"supportrelay/internal/session"
)

func TestResolveTokenFromReplyPrefersCorrelationTable(t *testing.T) {
	relay := session.NewRelayManager()
	relay.TrackNotification("abc123", 55)

	// Даже если в тексте упомянут другой токен, таблица соответствий первична.
	token := resolveTokenFromReply(relay, 55, "🔑 Токен: `other999`")
	if token != "abc123" {
		t.Errorf("resolveTokenFromReply = %q, ожидалось abc123", token)
	}
}

func TestResolveTokenFromReplyFallsBackToText(t *testing.T) {
	relay := session.NewRelayManager()

	notification := "🔔 НОВОЕ СООБЩЕНИЕ ОТ КЛИЕНТА\n\n🔑 Токен: `abc123`\n💬 Сообщение:\nпомогите"
	token := resolveTokenFromReply(relay, 77, notification)
	if token != "abc123" {
		t.Fatalf("resolveTokenFromReply = %q, ожидалось abc123", token)
	}

	// Разобранный токен должен заново привязаться к message_id,
	// чтобы следующий ответ разрешился без разбора текста.
	rebound, ok := relay.TokenByMessageID(77)
	if !ok || rebound != "abc123" {
		t.Errorf("токен не привязался к message_id после разбора: (%q, %v)", rebound, ok)
	}
}

func TestResolveTokenFromReplyMiss(t *testing.T) {
	relay := session.NewRelayManager()

	if token := resolveTokenFromReply(relay, 42, "сообщение без токена"); token != "" {
		t.Errorf("ожидалась пустая строка, получено %q", token)
	}
	if token := resolveTokenFromReply(relay, 42, ""); token != "" {
		t.Errorf("ожидалась пустая строка для пустого текста, получено %q", token)
	}
}

func TestFormatHistory(t *testing.T) {
	messages := []models.Message{
		{ID: 1, Message: "здравствуйте", Sender: constants.SENDER_VISITOR},
		{ID: 2, Message: "чем можем помочь?", Sender: constants.SENDER_OPERATOR},
		{ID: 3, Image: "/api/media/xyz.jpg", Sender: constants.SENDER_VISITOR},
	}

	history := formatHistory("abc123", messages)

	if !strings.Contains(history, "abc123") {
		t.Error("история не содержит токен диалога")
	}
	if !strings.Contains(history, "👤 Клиент:\nздравствуйте") {
		t.Error("сообщение клиента отсутствует или подписано неверно")
	}
	if !strings.Contains(history, "👨‍💼 Оператор:\nчем можем помочь?") {
		t.Error("сообщение оператора отсутствует или подписано неверно")
	}
	if !strings.Contains(history, "📷 [Изображение]") {
		t.Error("сообщение-изображение без текста должно показываться заглушкой")
	}

	// Клиент до оператора: порядок переписки сохраняется.
	if strings.Index(history, "здравствуйте") > strings.Index(history, "чем можем помочь?") {
		t.Error("порядок сообщений в истории нарушен")
	}
}
