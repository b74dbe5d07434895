// Файл: internal/handlers/message_handler.go

package handlers

import (
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"supportrelay/internal/constants"
	"supportrelay/internal/models"
	"supportrelay/internal/session"
	"supportrelay/internal/telegram_api"
	"supportrelay/internal/utils"
)

const helpText = `👋 Бот поддержки.

📋 Доступные команды:
/reply <токен> <сообщение> - Ответить клиенту напрямую
/chats - Показать активные чаты
/history <токен> - История переписки
/export <токен> - Выгрузить историю в Excel
/qr <токен> - QR-код ссылки на виджет
/setkey <ключ> - Установить ключ виджета
/getkey - Показать текущий ключ виджета
/help - Показать эту справку

💡 Как ответить клиенту:
1️⃣ Нажмите кнопку "💬 Ответить" под сообщением клиента
2️⃣ Или ответьте на сообщение клиента (reply)
3️⃣ Или используйте команду /reply`

const unresolvedReplyText = `❓ Не понятно, кому отвечать

📋 Для ответа клиенту:

1️⃣ Нажмите кнопку "💬 Ответить" под сообщением клиента
2️⃣ Или ответьте на сообщение клиента (reply)
3️⃣ Или используйте команду:
/reply <токен> <сообщение>`

// HandleMessage обрабатывает входящие сообщения от Telegram.
// Все сообщения не от оператора молча игнорируются.
func (bh *BotHandler) HandleMessage(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	message := update.Message
	chatID := message.Chat.ID
	if !bh.isOperatorChat(chatID) {
		log.Printf("HandleMessage: сообщение из чужого чата %d проигнорировано.", chatID)
		return
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		text = strings.TrimSpace(message.Caption)
	}
	log.Printf("HandleMessage: ChatID=%d, Text='%.50s'", chatID, text)

	if message.IsCommand() {
		args := strings.TrimSpace(message.CommandArguments())
		switch message.Command() {
		case "start", "help":
			bh.sendMessage(chatID, helpText)
		case "reply":
			bh.handleReplyCommand(chatID, args)
		case "chats":
			bh.handleChatsCommand(chatID)
		case "history":
			bh.handleHistoryCommand(chatID, args)
		case "export":
			bh.generateAndSendHistoryExcel(chatID, args)
		case "qr":
			bh.handleQRCommand(chatID, args)
		case "setkey":
			bh.handleSetKeyCommand(chatID, args)
		case "getkey":
			bh.handleGetKeyCommand(chatID)
		default:
			log.Printf("HandleMessage: неизвестная команда '%s' от оператора.", message.Command())
			bh.sendMessage(chatID, "Неизвестная команда. /help - список команд.")
		}
		return
	}

	if text == "" {
		return
	}
	bh.handleOperatorReply(message, text)
}

// handleOperatorReply обрабатывает свободный текст от оператора.
// Порядок разрешения токена: (1) reply-цепочка - по message_id уведомления,
// с разбором текста уведомления как резервом; (2) отложенный ответ после
// нажатия кнопки. Если токен не разрешился, оператор получает инструкцию
// и ничего не записывается.
func (bh *BotHandler) handleOperatorReply(message *tgbotapi.Message, text string) {
	chatID := message.Chat.ID

	var supportToken string
	if message.ReplyToMessage != nil {
		repliedText := message.ReplyToMessage.Text
		if repliedText == "" {
			repliedText = message.ReplyToMessage.Caption
		}
		supportToken = resolveTokenFromReply(bh.Deps.Relay, message.ReplyToMessage.MessageID, repliedText)
	}

	if supportToken == "" {
		if token, ok := bh.Deps.Relay.ConsumePendingReply(); ok {
			supportToken = token
			log.Printf("handleOperatorReply: токен %s взят из отложенного ответа.", supportToken)
		}
	}

	if supportToken == "" {
		log.Println("handleOperatorReply: не найден токен для сообщения от оператора.")
		bh.sendMessage(chatID, unresolvedReplyText)
		return
	}

	bh.appendOperatorMessage(chatID, supportToken, text)
}

// resolveTokenFromReply определяет токен диалога по сообщению, на которое
// оператор ответил. Первичный механизм - message_id в таблице соответствий;
// разбор текста уведомления применяется строго как резерв последней очереди
// (таблица пуста после рестарта процесса). Найденный разбором токен заново
// привязывается к message_id, чтобы следующий ответ разрешился без разбора.
func resolveTokenFromReply(relay *session.RelayManager, repliedMessageID int, repliedText string) string {
	if token, ok := relay.TokenByMessageID(repliedMessageID); ok {
		log.Printf("resolveTokenFromReply: токен %s найден по message_id %d.", token, repliedMessageID)
		return token
	}

	if token := utils.ExtractSupportToken(repliedText); token != "" {
		relay.TrackNotification(token, repliedMessageID)
		log.Printf("resolveTokenFromReply: токен %s извлечён из текста уведомления.", token)
		return token
	}
	return ""
}

// appendOperatorMessage записывает ответ оператора в хранилище и шлёт подтверждение.
func (bh *BotHandler) appendOperatorMessage(chatID int64, supportToken, text string) {
	saved, err := bh.Deps.Store.AppendMessage(supportToken, text, "", constants.SENDER_OPERATOR)
	if err != nil {
		log.Printf("appendOperatorMessage: ошибка сохранения ответа оператора (токен %s): %v", supportToken, err)
		bh.sendMessage(chatID, "❌ Ошибка: "+err.Error())
		return
	}

	log.Printf("appendOperatorMessage: ответ оператора #%d сохранён (токен %s).", saved.ID, supportToken)
	bh.sendMessage(chatID, fmt.Sprintf("✅ Ответ отправлен\n\n🔑 Токен: %s\n💬 Клиент получит ваш ответ", supportToken))
}

// handleReplyCommand — прямой путь ответа, минующий таблицу соответствий:
// /reply <токен> <сообщение>
func (bh *BotHandler) handleReplyCommand(chatID int64, args string) {
	parts := strings.SplitN(args, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		bh.sendMessage(chatID, "Использование: /reply <токен> <сообщение>")
		return
	}
	bh.appendOperatorMessage(chatID, parts[0], strings.TrimSpace(parts[1]))
}

// handleChatsCommand показывает активные диалоги по данным хранилища.
func (bh *BotHandler) handleChatsCommand(chatID int64) {
	chats, err := bh.Deps.Store.GetActiveTokens(50)
	if err != nil {
		log.Printf("handleChatsCommand: ошибка получения активных диалогов: %v", err)
		bh.sendMessage(chatID, "❌ Ошибка при получении списка чатов.")
		return
	}
	if len(chats) == 0 {
		bh.sendMessage(chatID, "📭 Нет активных чатов")
		return
	}

	var b strings.Builder
	b.WriteString("📋 Активные чаты:\n\n")
	for _, chat := range chats {
		b.WriteString(fmt.Sprintf("🔑 %s (посл. сообщение %s)\n", chat.SupportToken, chat.LastMessageAt.Format("02.01.2006 15:04")))
	}
	bh.sendMessage(chatID, b.String())
}

// handleHistoryCommand отправляет оператору историю переписки по токену,
// разбивая вывод по лимиту длины сообщения Telegram.
func (bh *BotHandler) handleHistoryCommand(chatID int64, supportToken string) {
	if supportToken == "" {
		bh.sendMessage(chatID, "Использование: /history <токен>")
		return
	}

	messages, err := bh.Deps.Store.GetMessagesByToken(supportToken)
	if err != nil {
		log.Printf("handleHistoryCommand: ошибка получения истории для токена %s: %v", supportToken, err)
		bh.sendMessage(chatID, "❌ Ошибка при получении истории чата.")
		return
	}
	if len(messages) == 0 {
		bh.sendMessage(chatID, fmt.Sprintf("📭 История чата %s пуста", supportToken))
		return
	}

	history := formatHistory(supportToken, messages)
	if err := telegram_api.SendLongMessage(bh.Deps.BotClient, chatID, history); err != nil {
		log.Printf("handleHistoryCommand: ошибка отправки истории (токен %s): %v", supportToken, err)
	}
}

// formatHistory собирает текстовое представление истории переписки.
func formatHistory(supportToken string, messages []models.Message) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📜 История чата\n\n🔑 Токен: %s\n\n%s\n\n", supportToken, notificationSeparator))

	for i, msg := range messages {
		if i > 0 {
			b.WriteString(fmt.Sprintf("\n\n%s\n\n", notificationSeparator))
		}
		from := "👨‍💼 Оператор"
		if msg.Sender == constants.SENDER_VISITOR {
			from = "👤 Клиент"
		}
		body := msg.Message
		if body == "" {
			body = "📷 [Изображение]"
		}
		b.WriteString(fmt.Sprintf("%s:\n%s", from, body))
	}
	return b.String()
}

// handleQRCommand отправляет оператору QR-код ссылки на виджет для диалога.
func (bh *BotHandler) handleQRCommand(chatID int64, supportToken string) {
	if supportToken == "" {
		bh.sendMessage(chatID, "Использование: /qr <токен>")
		return
	}

	qrBytes, err := utils.GenerateWidgetQRCode(bh.Deps.Config.SiteURL, supportToken)
	if err != nil {
		bh.sendMessage(chatID, "❌ Не удалось сгенерировать QR-код: "+err.Error())
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "widget_qr.png", Bytes: qrBytes})
	photo.Caption = fmt.Sprintf("🔑 Токен: %s", supportToken)
	if _, err := bh.Deps.BotClient.Send(photo); err != nil {
		log.Printf("handleQRCommand: ошибка отправки QR-кода (токен %s): %v", supportToken, err)
	}
}

// handleSetKeyCommand обновляет ключ виджета в HTML-странице и файле ключа.
func (bh *BotHandler) handleSetKeyCommand(chatID int64, args string) {
	if bh.Deps.Keys == nil {
		bh.sendMessage(chatID, "❌ Управление ключом виджета не настроено.")
		return
	}
	if args == "" {
		bh.sendMessage(chatID, "Использование: /setkey <ключ>")
		return
	}
	if err := bh.Deps.Keys.SetKey(args); err != nil {
		log.Printf("handleSetKeyCommand: ошибка установки ключа: %v", err)
		bh.sendMessage(chatID, "❌ Не удалось обновить ключ: "+err.Error())
		return
	}
	bh.sendMessage(chatID, "✅ Ключ виджета обновлен")
}

// handleGetKeyCommand показывает текущий ключ виджета.
func (bh *BotHandler) handleGetKeyCommand(chatID int64) {
	if bh.Deps.Keys == nil {
		bh.sendMessage(chatID, "❌ Управление ключом виджета не настроено.")
		return
	}
	key := bh.Deps.Keys.CurrentKey()
	if key == "" {
		bh.sendMessage(chatID, "ℹ️ Ключ виджета не установлен")
		return
	}
	bh.sendMessage(chatID, "🔑 Текущий ключ виджета: "+key)
}
