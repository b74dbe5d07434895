package handlers

import (
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"supportrelay/internal/constants"
	"supportrelay/internal/telegram_api"
	"supportrelay/internal/utils"
)

const notificationSeparator = "━━━━━━━━━━━━━━━━━━━━"

// PushToOperator пересылает сообщение клиента оператору: уведомление с токеном
// и текстом (или фото с подписью), кнопка "Ответить" и запись message_id
// отправленного уведомления в таблицу соответствий.
//
// Сначала уходит вариант с разметкой MarkdownV2; если Telegram отверг его
// (спецсимволы в тексте клиента), делается одна запасная попытка без разметки.
// Ошибка запасной попытки логируется и не блокирует доставку на стороне
// клиента: его сообщение уже в хранилище.
func (bh *BotHandler) PushToOperator(supportToken, text string, imageBytes []byte) error {
	operatorChatID, ok := bh.operatorChatID()
	if !ok {
		return fmt.Errorf("OPERATOR_CHAT_ID не настроен")
	}

	displayText := text
	if displayText == "" {
		displayText = "📷 [Изображение]"
	}

	formattedBody := fmt.Sprintf(
		"🔔 *НОВОЕ СООБЩЕНИЕ ОТ КЛИЕНТА*\n\n🔑 *Токен:* `%s`\n💬 *Сообщение:*\n%s\n\n%s",
		utils.EscapeTelegramMarkdownV2(supportToken),
		utils.EscapeTelegramMarkdownV2(displayText),
		notificationSeparator,
	)
	plainBody := fmt.Sprintf(
		"🔔 НОВОЕ СООБЩЕНИЕ ОТ КЛИЕНТА\n\n🔑 Токен: %s\n💬 Сообщение:\n%s\n\n%s",
		supportToken, displayText, notificationSeparator,
	)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💬 Ответить", constants.CALLBACK_PREFIX_REPLY+supportToken),
		),
	)

	var formatted, plain tgbotapi.Chattable
	if imageBytes != nil {
		photoFile := tgbotapi.FileBytes{Name: "image.jpg", Bytes: imageBytes}

		formattedPhoto := tgbotapi.NewPhoto(operatorChatID, photoFile)
		formattedPhoto.Caption = formattedBody
		formattedPhoto.ParseMode = tgbotapi.ModeMarkdownV2
		formattedPhoto.ReplyMarkup = keyboard
		formatted = formattedPhoto

		plainPhoto := tgbotapi.NewPhoto(operatorChatID, photoFile)
		plainPhoto.Caption = plainBody
		plainPhoto.ReplyMarkup = keyboard
		plain = plainPhoto
	} else {
		formattedMsg := tgbotapi.NewMessage(operatorChatID, formattedBody)
		formattedMsg.ParseMode = tgbotapi.ModeMarkdownV2
		formattedMsg.ReplyMarkup = keyboard
		formatted = formattedMsg

		plainMsg := tgbotapi.NewMessage(operatorChatID, plainBody)
		plainMsg.ReplyMarkup = keyboard
		plain = plainMsg
	}

	sent, err := telegram_api.SendWithPlainFallback(bh.Deps.BotClient, formatted, plain)
	if err != nil {
		log.Printf("PushToOperator: уведомление оператору не доставлено (токен %s): %v", supportToken, err)
		return err
	}

	bh.Deps.Relay.TrackNotification(supportToken, sent.MessageID)
	log.Printf("PushToOperator: уведомление отправлено (токен %s, message_id %d).", supportToken, sent.MessageID)
	return nil
}
