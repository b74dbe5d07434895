package telegram_api

import (
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// BotClient — обертка над Telegram Bot API.
// Хранит экземпляр бота и флаг отладочного логирования.
type BotClient struct {
	api   *tgbotapi.BotAPI
	Debug bool
}

// Глобальный экземпляр бота для пакета
// Global Bot instance for the package
var Client *BotClient

// InitBot инициализирует Telegram бота.
// token - API токен бота, debug - флаг режима отладки.
func InitBot(token string, debug bool) error {
	if token == "" {
		return fmt.Errorf("токен Telegram API не предоставлен")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("ошибка инициализации Telegram Bot API: %w", err)
	}

	api.Debug = debug

	log.Printf("Авторизован как аккаунт %s", api.Self.UserName)

	// Отключаем вебхук, если он активен (важно для getUpdates).
	// Конфликт двух слушателей - самая частая причина сбоев long-poll.
	deleteWebhookConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: true,
	}
	_, err = api.Request(deleteWebhookConfig)
	if err != nil {
		// Ошибка может возникнуть, если вебхука и не было. Логируем, но не прерываем.
		log.Printf("Предупреждение при отключении вебхука: %v. Это нормально, если вебхук не был установлен.", err)
	} else {
		log.Println("Вебхук успешно отключен (или не был установлен).")
	}

	Client = &BotClient{
		api:   api,
		Debug: debug,
	}
	return nil
}

// GetAPI возвращает нижележащий экземпляр *tgbotapi.BotAPI.
func (bc *BotClient) GetAPI() *tgbotapi.BotAPI {
	if bc == nil || bc.api == nil {
		log.Fatal("BotClient или его API не инициализирован.")
	}
	return bc.api
}

// GetUpdatesChan возвращает канал обновлений от Telegram.
func (bc *BotClient) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	if bc == nil || bc.api == nil {
		log.Fatal("BotClient или его API не инициализирован перед запросом обновлений.")
	}
	if bc.Debug {
		log.Printf("Запрос канала обновлений с конфигурацией: %+v", config)
	}
	return bc.api.GetUpdatesChan(config)
}

// StopReceivingUpdates останавливает long-poll цикл получения обновлений.
func (bc *BotClient) StopReceivingUpdates() {
	if bc == nil || bc.api == nil {
		return
	}
	bc.api.StopReceivingUpdates()
}

// Send отправляет сообщение через BotClient.
func (bc *BotClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if bc == nil || bc.api == nil {
		return tgbotapi.Message{}, fmt.Errorf("BotClient или его API не инициализирован")
	}
	if bc.Debug {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			log.Printf("Отправка сообщения: ChatID=%d, Text='%.50s...'", msg.ChatID, msg.Text)
		} else if photoMsg, ok := c.(tgbotapi.PhotoConfig); ok {
			log.Printf("Отправка фото: ChatID=%d, Caption='%.50s...'", photoMsg.ChatID, photoMsg.Caption)
		} else {
			log.Printf("Отправка/запрос типа %T", c)
		}
	}
	return bc.api.Send(c)
}

// Request выполняет запрос через BotClient (ответы на callback и т.п.).
func (bc *BotClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if bc == nil || bc.api == nil {
		return nil, fmt.Errorf("BotClient или его API не инициализирован")
	}
	if bc.Debug {
		if cbAns, ok := c.(tgbotapi.CallbackConfig); ok {
			log.Printf("Запрос ответа на коллбэк: CallbackQueryID=%s, Text='%.50s...'", cbAns.CallbackQueryID, cbAns.Text)
		} else {
			log.Printf("Выполнение запроса типа %T", c)
		}
	}
	return bc.api.Request(c)
}
