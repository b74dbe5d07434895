package handlers

import (
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"supportrelay/internal/config"
	"supportrelay/internal/db"
	"supportrelay/internal/session"
	"supportrelay/internal/telegram_api"
	"supportrelay/internal/widgetkey"
)

// HandlerDependencies содержит все зависимости, необходимые для обработчиков.
// HandlerDependencies contains all dependencies required for handlers.
type HandlerDependencies struct {
	Config    *config.Config
	BotClient *telegram_api.BotClient
	Store     db.Store
	Relay     *session.RelayManager
	Keys      *widgetkey.Manager
}

// BotHandler инкапсулирует логику обработки сообщений и коллбэков оператора.
// BotHandler encapsulates the logic for handling operator messages and callbacks.
type BotHandler struct {
	Deps HandlerDependencies
}

// NewBotHandler создает новый экземпляр BotHandler.
func NewBotHandler(deps HandlerDependencies) *BotHandler {
	if deps.Config == nil || deps.BotClient == nil || deps.Store == nil || deps.Relay == nil {
		// Это критическая ошибка конфигурации, приложение не сможет работать корректно.
		panic("Не все зависимости для BotHandler были предоставлены.")
	}
	return &BotHandler{Deps: deps}
}

// isOperatorChat проверяет, принадлежит ли chatID единственному настроенному
// оператору. Сравнение идёт по нормализованным строкам: так значение из
// окружения переживает случайные пробелы и не зависит от разбора числа.
func (bh *BotHandler) isOperatorChat(chatID int64) bool {
	operator := strings.TrimSpace(bh.Deps.Config.OperatorChatID)
	if operator == "" {
		return false
	}
	return strconv.FormatInt(chatID, 10) == operator
}

// operatorChatID возвращает числовой chat_id оператора для отправки сообщений.
func (bh *BotHandler) operatorChatID() (int64, bool) {
	operator := strings.TrimSpace(bh.Deps.Config.OperatorChatID)
	id, err := strconv.ParseInt(operator, 10, 64)
	if err != nil {
		log.Printf("operatorChatID: OPERATOR_CHAT_ID '%s' не является числом: %v", operator, err)
		return 0, false
	}
	return id, true
}

// sendMessage отправляет оператору простое текстовое сообщение.
// Ошибка отправки логируется и не распространяется дальше.
func (bh *BotHandler) sendMessage(chatID int64, text string) {
	if _, err := bh.Deps.BotClient.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("sendMessage: ошибка отправки сообщения для chatID %d: %v", chatID, err)
	}
}
