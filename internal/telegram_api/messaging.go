package telegram_api

import (
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"supportrelay/internal/constants"
)

// SendWithPlainFallback отправляет форматированное сообщение, а при ошибке
// (как правило это несовместимость спецсимволов с разметкой MarkdownV2)
// делает одну повторную попытку с запасным вариантом без разметки.
// Возвращает отправленное сообщение первой удавшейся попытки.
func SendWithPlainFallback(botClient *BotClient, formatted, plain tgbotapi.Chattable) (tgbotapi.Message, error) {
	if botClient == nil {
		return tgbotapi.Message{}, fmt.Errorf("BotClient не инициализирован")
	}

	sent, err := botClient.Send(formatted)
	if err == nil {
		return sent, nil
	}
	log.Printf("SendWithPlainFallback: ошибка отправки форматированного сообщения: %v. Повтор без разметки.", err)

	sent, errPlain := botClient.Send(plain)
	if errPlain != nil {
		log.Printf("SendWithPlainFallback: ошибка запасной отправки: %v", errPlain)
		return tgbotapi.Message{}, errPlain
	}
	return sent, nil
}

// SendLongMessage отправляет текст, при необходимости разбивая его на части,
// укладывающиеся в лимит длины одного сообщения Telegram.
func SendLongMessage(botClient *BotClient, chatID int64, text string) error {
	if botClient == nil {
		return fmt.Errorf("BotClient не инициализирован")
	}

	for _, chunk := range SplitMessage(text, constants.MAX_TELEGRAM_MESSAGE_LEN) {
		if _, err := botClient.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			log.Printf("SendLongMessage: ошибка отправки части сообщения для chatID %d: %v", chatID, err)
			return err
		}
	}
	return nil
}

// SplitMessage режет текст на части не длиннее limit символов, по возможности
// по границам строк. Лимит считается в рунах: история переписки почти всегда
// кириллическая, и резать по байтам нельзя. Пустой текст дает пустой результат.
func SplitMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		// Ищем перенос строки в хвосте куска, чтобы не рвать сообщение посередине.
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
