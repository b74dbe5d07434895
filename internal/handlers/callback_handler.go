// Файл: internal/handlers/callback_handler.go

package handlers

import (
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"supportrelay/internal/constants"
)

// HandleCallback обрабатывает нажатия inline-кнопок.
// Единственная кнопка бота - "Ответить" под уведомлением о сообщении клиента:
// она помечает токен как ожидающий следующего текстового сообщения оператора.
// Сама по себе кнопка ничего не записывает в хранилище.
func (bh *BotHandler) HandleCallback(update tgbotapi.Update) {
	if update.CallbackQuery == nil || update.CallbackQuery.Message == nil {
		return
	}

	query := update.CallbackQuery
	chatID := query.Message.Chat.ID
	if !bh.isOperatorChat(chatID) {
		log.Printf("HandleCallback: callback из чужого чата %d проигнорирован.", chatID)
		return
	}

	data := query.Data
	if !strings.HasPrefix(data, constants.CALLBACK_PREFIX_REPLY) {
		log.Printf("HandleCallback: неизвестные callback-данные '%s'.", data)
		return
	}

	supportToken := strings.TrimPrefix(data, constants.CALLBACK_PREFIX_REPLY)
	bh.Deps.Relay.SetPendingReply(supportToken)
	log.Printf("HandleCallback: токен %s ожидает ответа оператора.", supportToken)

	if _, err := bh.Deps.BotClient.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("HandleCallback: ошибка ответа на callback: %v", err)
	}

	bh.sendMessage(chatID, fmt.Sprintf(
		"💬 Готово к ответу\n\n🔑 Токен: %s\n\n📝 Отправьте ваш ответ текстом\nИли ответьте на сообщение клиента (reply)",
		supportToken))
}
